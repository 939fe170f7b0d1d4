package service

import (
	"context"
	"errors"

	"github.com/smallbiznis/procura/internal/auth/domain"
	"github.com/smallbiznis/procura/internal/auth/token"
	"github.com/smallbiznis/procura/internal/authorization"
	userdomain "github.com/smallbiznis/procura/internal/user/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log    *zap.Logger
	Issuer *token.Issuer
	Users  userdomain.Service
}

type Service struct {
	log    *zap.Logger
	issuer *token.Issuer
	users  userdomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		log:    p.Log.Named("auth.service"),
		issuer: p.Issuer,
		users:  p.Users,
	}
}

func (s *Service) Login(ctx context.Context, req domain.LoginRequest) (*domain.LoginResult, error) {
	user, err := s.users.Authenticate(ctx, req.Username, req.Password)
	if err != nil {
		if errors.Is(err, userdomain.ErrInvalidCredentials) || errors.Is(err, userdomain.ErrUserInactive) {
			s.log.Info("login rejected", zap.String("username", req.Username), zap.Error(err))
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	raw, expiresAt, err := s.issuer.Issue(user.ID.String(), user.Role)
	if err != nil {
		return nil, err
	}

	return &domain.LoginResult{
		AccessToken: raw,
		TokenType:   "Bearer",
		ExpiresAt:   expiresAt,
	}, nil
}

// Authenticate reloads the user on every call so role changes and
// deactivation take effect before the token expires.
func (s *Service) Authenticate(ctx context.Context, rawToken string) (authorization.Actor, error) {
	if rawToken == "" {
		return authorization.Actor{}, authorization.ErrUnauthenticated
	}
	claims, err := s.issuer.Parse(rawToken)
	if err != nil {
		return authorization.Actor{}, err
	}
	return s.users.ResolveActor(ctx, claims.Subject)
}
