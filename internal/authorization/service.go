package authorization

import (
	"context"

	auditdomain "github.com/smallbiznis/procura/internal/audit/domain"
	"github.com/smallbiznis/procura/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Service interface {
	// Authorize checks a single-row action. Denials of mutations are audited.
	Authorize(ctx context.Context, actor Actor, res Resource, act Action) error
	// Visible resolves list visibility; it never fails, an empty result means none.
	Visible(actor Actor, object Object) Visibility
}

type Params struct {
	fx.In

	Log      *zap.Logger
	Enforcer Enforcer
	Metrics  *metrics.Metrics    `optional:"true"`
	AuditSvc auditdomain.Service `optional:"true"`
}

type ServiceImpl struct {
	log      *zap.Logger
	enforcer Enforcer
	metrics  *metrics.Metrics
	auditSvc auditdomain.Service
}

func NewService(p Params) Service {
	return &ServiceImpl{
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
		metrics:  p.Metrics,
		auditSvc: p.AuditSvc,
	}
}

func (s *ServiceImpl) Authorize(ctx context.Context, actor Actor, res Resource, act Action) error {
	err := Evaluate(s.enforcer, actor, res, act)
	if err == nil || err == ErrUnauthenticated {
		return err
	}
	if err != ErrForbidden {
		s.log.Error("policy evaluation failed", zap.Error(err))
		return err
	}

	s.metrics.RecordAccessDenied(ctx, string(actor.Role), string(res.Object), string(act))
	if act != ActionRead {
		s.auditDenied(ctx, actor, res, act)
	}
	return ErrForbidden
}

func (s *ServiceImpl) Visible(actor Actor, object Object) Visibility {
	return Visible(s.enforcer, actor, object)
}

func (s *ServiceImpl) auditDenied(ctx context.Context, actor Actor, res Resource, act Action) {
	if s.auditSvc == nil {
		return
	}
	var orgID *int64
	if res.OrgID != 0 {
		id := res.OrgID.Int64()
		orgID = &id
	}
	actorID := actor.UserID.String()
	if err := s.auditSvc.AuditLog(ctx, nil, string(auditdomain.ActorTypeUser), &actorID, "authorization.denied", string(res.Object), nil, map[string]any{
		"role":            string(actor.Role),
		"action":          string(act),
		"organization_id": orgID,
	}); err != nil {
		s.log.Warn("audit write failed", zap.String("action", "authorization.denied"), zap.Error(err))
	}
}
