package domain

import (
	"context"
	"time"

	"github.com/smallbiznis/procura/internal/authorization"
)

type Service interface {
	Login(ctx context.Context, req LoginRequest) (*LoginResult, error)
	// Authenticate turns a bearer token into the actor it was issued for.
	Authenticate(ctx context.Context, rawToken string) (authorization.Actor, error)
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResult struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}
