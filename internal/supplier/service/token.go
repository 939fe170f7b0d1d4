package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	auditdomain "github.com/smallbiznis/procura/internal/audit/domain"
	"github.com/smallbiznis/procura/internal/authorization"
	"github.com/smallbiznis/procura/internal/clock"
	"github.com/smallbiznis/procura/internal/config"
	"github.com/smallbiznis/procura/internal/observability/metrics"
	"github.com/smallbiznis/procura/internal/supplier/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// maxRotationAttempts bounds how often GetOrCreate retries after losing a
// rotation race.
const maxRotationAttempts = 3

const (
	tokenOutcomeCreated     = "created"
	tokenOutcomeReused      = "reused"
	tokenOutcomeRotated     = "rotated"
	tokenOutcomeRegenerated = "regenerated"
)

type TokenParams struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Settings *config.ProcurementHolder
	Authz    authorization.Service
	Repo     domain.Repository
	Tokens   domain.TokenRepository
	Metrics  *metrics.Metrics    `optional:"true"`
	AuditSvc auditdomain.Service `optional:"true"`
}

type TokenService struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	settings *config.ProcurementHolder
	authz    authorization.Service
	repo     domain.Repository
	tokens   domain.TokenRepository
	metrics  *metrics.Metrics
	auditSvc auditdomain.Service
}

func NewTokenService(p TokenParams) domain.TokenService {
	return &TokenService{
		db:       p.DB,
		log:      p.Log.Named("supplier.token"),
		genID:    p.GenID,
		clock:    p.Clock,
		settings: p.Settings,
		authz:    p.Authz,
		repo:     p.Repo,
		tokens:   p.Tokens,
		metrics:  p.Metrics,
		auditSvc: p.AuditSvc,
	}
}

func (s *TokenService) GetOrCreate(ctx context.Context, supplierID string) (*domain.TokenResponse, error) {
	supplier, err := s.findSupplier(ctx, supplierID)
	if err != nil {
		return nil, err
	}
	ttl := s.settings.Get().SupplierTokenTTL

	for attempt := 0; attempt < maxRotationAttempts; attempt++ {
		now := s.clock.Now()
		inserted, err := s.tokens.InsertIfAbsent(ctx, s.db, s.newToken(supplier.ID, now))
		if err != nil {
			return nil, err
		}

		current, err := s.tokens.FindBySupplier(ctx, s.db, supplier.ID)
		if err != nil {
			return nil, err
		}
		if current == nil {
			// Deleted between insert and read; try again.
			continue
		}
		if current.Live(now, ttl) {
			outcome := tokenOutcomeReused
			if inserted {
				outcome = tokenOutcomeCreated
			}
			s.metrics.RecordSupplierToken(ctx, outcome)
			return toTokenResponse(current, ttl), nil
		}

		next := s.newToken(supplier.ID, now)
		swapped, err := s.tokens.Swap(ctx, s.db, supplier.ID, current.Token, next)
		if err != nil {
			return nil, err
		}
		if swapped {
			next.ID = current.ID
			s.metrics.RecordSupplierToken(ctx, tokenOutcomeRotated)
			s.log.Info("supplier token rotated", zap.String("supplier_id", supplier.ID.String()))
			return toTokenResponse(next, ttl), nil
		}
		// Another caller rotated first; the next pass reads its token.
	}

	s.log.Warn("supplier token rotation contended", zap.String("supplier_id", supplier.ID.String()))
	return nil, domain.ErrTokenContention
}

func (s *TokenService) Regenerate(ctx context.Context, actor authorization.Actor, supplierID string) (*domain.TokenResponse, error) {
	supplier, err := s.findSupplier(ctx, supplierID)
	if err != nil {
		return nil, err
	}
	if err := s.authz.Authorize(ctx, actor, authorization.Resource{Object: authorization.ObjectSupplierToken, OrgID: supplier.OrganizationID}, authorization.ActionWrite); err != nil {
		return nil, err
	}

	ttl := s.settings.Get().SupplierTokenTTL
	next := s.newToken(supplier.ID, s.clock.Now())
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inserted, err := s.tokens.InsertIfAbsent(ctx, tx, next)
		if err != nil || inserted {
			return err
		}
		return s.tokens.Replace(ctx, tx, next)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordSupplierToken(ctx, tokenOutcomeRegenerated)
	if s.auditSvc != nil {
		actorID := actor.UserID.String()
		targetID := supplier.ID.String()
		orgID := supplier.OrganizationID
		if err := s.auditSvc.AuditLog(ctx, &orgID, string(auditdomain.ActorTypeUser), &actorID, "supplier_token.regenerated", "supplier", &targetID, map[string]any{
			"token": next.Token,
		}); err != nil {
			s.log.Warn("audit write failed", zap.String("action", "supplier_token.regenerated"), zap.Error(err))
		}
	}
	return toTokenResponse(next, ttl), nil
}

func (s *TokenService) Authenticate(ctx context.Context, token string) (*domain.Supplier, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, domain.ErrInvalidToken
	}
	if _, err := uuid.Parse(token); err != nil {
		return nil, domain.ErrInvalidToken
	}

	record, err := s.tokens.FindByToken(ctx, s.db, token)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, domain.ErrInvalidToken
	}
	if !record.Live(s.clock.Now(), s.settings.Get().SupplierTokenTTL) {
		return nil, domain.ErrTokenExpired
	}

	supplier, err := s.repo.FindByID(ctx, s.db, record.SupplierID)
	if err != nil {
		return nil, err
	}
	if supplier == nil {
		return nil, domain.ErrInvalidToken
	}
	return supplier, nil
}

func (s *TokenService) findSupplier(ctx context.Context, id string) (*domain.Supplier, error) {
	supplierID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil || supplierID == 0 {
		return nil, domain.ErrInvalidSupplier
	}
	supplier, err := s.repo.FindByID(ctx, s.db, supplierID)
	if err != nil {
		return nil, err
	}
	if supplier == nil {
		return nil, domain.ErrNotFound
	}
	return supplier, nil
}

func (s *TokenService) newToken(supplierID snowflake.ID, now time.Time) *domain.SupplierToken {
	return &domain.SupplierToken{
		ID:         s.genID.Generate(),
		SupplierID: supplierID,
		Token:      uuid.NewString(),
		CreatedAt:  now,
	}
}

func toTokenResponse(token *domain.SupplierToken, ttl time.Duration) *domain.TokenResponse {
	return &domain.TokenResponse{
		SupplierID: token.SupplierID.String(),
		Token:      token.Token,
		CreatedAt:  token.CreatedAt,
		ExpiresAt:  token.ExpiresAt(ttl),
	}
}
