package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/procura/internal/clock"
	"github.com/smallbiznis/procura/internal/observability/metrics"
	pricedomain "github.com/smallbiznis/procura/internal/price/domain"
	"github.com/smallbiznis/procura/internal/pricerequest/domain"
	productdomain "github.com/smallbiznis/procura/internal/product/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ResponderParams struct {
	fx.In

	Log     *zap.Logger
	Clock   clock.Clock
	Repo    domain.Repository
	Metrics *metrics.Metrics `optional:"true"`
}

// Responder closes pending requests once the asked supplier quotes the item.
type Responder struct {
	log     *zap.Logger
	clock   clock.Clock
	repo    domain.Repository
	metrics *metrics.Metrics
}

func NewResponder(p ResponderParams) pricedomain.QuoteListener {
	return &Responder{
		log:     p.Log.Named("pricerequest.responder"),
		clock:   p.Clock,
		repo:    p.Repo,
		metrics: p.Metrics,
	}
}

func (r *Responder) QuoteSubmitted(ctx context.Context, tx *gorm.DB, kind productdomain.Kind, itemID, supplierID snowflake.ID) (int64, error) {
	count, err := r.repo.RespondForQuote(ctx, tx, kind.ItemColumn(), itemID, supplierID, r.clock.Now())
	if err != nil {
		return 0, err
	}
	if count > 0 {
		r.metrics.RecordPriceRequestTransition(ctx, string(domain.StatusPending), string(domain.StatusResponded), count)
		r.log.Info("price requests responded",
			zap.String("supplier_id", supplierID.String()),
			zap.String("item_id", itemID.String()),
			zap.Int64("count", count),
		)
	}
	return count, nil
}
