package service

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/procura/internal/authorization"
	"github.com/smallbiznis/procura/internal/clock"
	"github.com/smallbiznis/procura/internal/config"
	"github.com/smallbiznis/procura/internal/observability/metrics"
	"github.com/smallbiznis/procura/internal/price/domain"
	productdomain "github.com/smallbiznis/procura/internal/product/domain"
	supplierdomain "github.com/smallbiznis/procura/internal/supplier/domain"
	"github.com/smallbiznis/procura/internal/validation"
	"github.com/smallbiznis/procura/pkg/db"
	"github.com/smallbiznis/procura/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	channelStaff    = "staff"
	channelSupplier = "supplier_portal"
)

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	GenID        *snowflake.Node
	Clock        clock.Clock
	Settings     *config.ProcurementHolder
	Authz        authorization.Service
	Repo         domain.Repository
	ProductRepo  productdomain.Repository
	SupplierRepo supplierdomain.Repository
	Listener     domain.QuoteListener `optional:"true"`
	Metrics      *metrics.Metrics     `optional:"true"`
}

type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	genID        *snowflake.Node
	clock        clock.Clock
	settings     *config.ProcurementHolder
	authz        authorization.Service
	repo         domain.Repository
	productRepo  productdomain.Repository
	supplierRepo supplierdomain.Repository
	listener     domain.QuoteListener
	metrics      *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("price.service"),
		genID:        p.GenID,
		clock:        p.Clock,
		settings:     p.Settings,
		authz:        p.Authz,
		repo:         p.Repo,
		productRepo:  p.ProductRepo,
		supplierRepo: p.SupplierRepo,
		listener:     p.Listener,
		metrics:      p.Metrics,
	}
}

func (s *Service) Create(ctx context.Context, actor authorization.Actor, kind productdomain.Kind, req domain.CreateRequest) (*domain.Response, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	amount, err := normalizePrice(req.Price)
	if err != nil {
		return nil, err
	}

	item, err := s.findItem(ctx, kind, req.ItemID)
	if err != nil {
		return nil, err
	}
	if err := s.authz.Authorize(ctx, actor, authorization.Resource{Object: authorization.ObjectPrice, OrgID: item.OrganizationID}, authorization.ActionWrite); err != nil {
		return nil, err
	}
	supplier, err := s.findSupplier(ctx, req.SupplierID)
	if err != nil {
		return nil, err
	}
	if !s.authz.Visible(actor, authorization.ObjectSupplier).Allows(supplier.OrganizationID) {
		return nil, domain.ErrInvalidSupplier
	}
	if !quotesKind(supplier.Type, kind) {
		return nil, domain.ErrSupplierKindMismatch
	}

	now := s.clock.Now()
	quote := &domain.Quote{
		ID:             s.genID.Generate(),
		ItemID:         item.ID,
		SupplierID:     supplier.ID,
		SupplierName:   supplier.Name,
		OrganizationID: item.OrganizationID,
		Price:          amount,
		Manufacturer:   trimmed(req.Manufacturer),
		DateAdded:      now,
		DateUpdated:    now,
	}
	if req.DateAdded != nil {
		quote.DateAdded = req.DateAdded.UTC()
	}

	if err := s.repo.Insert(ctx, s.db, kind, quote); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrDuplicateQuote
		}
		return nil, err
	}
	s.metrics.RecordQuote(ctx, string(kind), channelStaff)
	return toResponse(kind, quote), nil
}

func (s *Service) List(ctx context.Context, actor authorization.Actor, kind productdomain.Kind, req domain.ListRequest) (domain.ListResponse, error) {
	if err := authorization.RequireActor(actor); err != nil {
		return domain.ListResponse{}, err
	}
	visible := s.authz.Visible(actor, authorization.ObjectPrice)
	if visible.Empty() {
		return domain.ListResponse{Prices: []domain.Response{}}, nil
	}

	var filter domain.ListFilter
	if raw := strings.TrimSpace(req.ItemID); raw != "" {
		id, err := snowflake.ParseString(raw)
		if err != nil {
			return domain.ListResponse{}, domain.ErrInvalidItem
		}
		filter.ItemID = id
	}
	if raw := strings.TrimSpace(req.SupplierID); raw != "" {
		id, err := snowflake.ParseString(raw)
		if err != nil {
			return domain.ListResponse{}, domain.ErrInvalidSupplier
		}
		filter.SupplierID = id
	}

	page := pagination.Pagination{PageToken: req.PageToken, PageSize: s.settings.PageSize(req.PageSize)}
	quotes, err := s.repo.List(ctx, s.db, kind, visible, filter, page)
	if err != nil {
		return domain.ListResponse{}, err
	}
	quotes, pageInfo := pagination.BuildCursorPageInfo(quotes, page.PageSize, func(q *domain.Quote) pagination.Cursor {
		return pagination.Cursor{ID: q.ID.Int64(), CreatedAt: q.DateAdded}
	})

	resp := domain.ListResponse{PageInfo: pageInfo, Prices: make([]domain.Response, 0, len(quotes))}
	for _, q := range quotes {
		resp.Prices = append(resp.Prices, *toResponse(kind, q))
	}
	return resp, nil
}

func (s *Service) Get(ctx context.Context, actor authorization.Actor, kind productdomain.Kind, id string) (*domain.Response, error) {
	if err := authorization.RequireActor(actor); err != nil {
		return nil, err
	}
	quote, err := s.find(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	if !s.authz.Visible(actor, authorization.ObjectPrice).Allows(quote.OrganizationID) {
		return nil, domain.ErrNotFound
	}
	return toResponse(kind, quote), nil
}

func (s *Service) Update(ctx context.Context, actor authorization.Actor, kind productdomain.Kind, id string, req domain.UpdateRequest) (*domain.Response, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	quote, err := s.find(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	if err := s.authz.Authorize(ctx, actor, authorization.Resource{Object: authorization.ObjectPrice, OrgID: quote.OrganizationID}, authorization.ActionWrite); err != nil {
		return nil, err
	}

	if req.Price != nil {
		amount, err := normalizePrice(*req.Price)
		if err != nil {
			return nil, err
		}
		quote.Price = amount
	}
	if req.Manufacturer != nil {
		quote.Manufacturer = trimmed(req.Manufacturer)
	}
	quote.DateUpdated = s.clock.Now()

	if err := s.repo.Update(ctx, s.db, kind, quote); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return toResponse(kind, quote), nil
}

func (s *Service) ListForItem(ctx context.Context, actor authorization.Actor, kind productdomain.Kind, itemID string) ([]domain.Response, error) {
	if err := authorization.RequireActor(actor); err != nil {
		return nil, err
	}
	empty := []domain.Response{}

	id, err := snowflake.ParseString(strings.TrimSpace(itemID))
	if err != nil || id == 0 {
		return empty, nil
	}
	item, err := s.productRepo.FindByID(ctx, s.db, kind, id)
	if err != nil {
		return nil, err
	}
	if item == nil || !s.authz.Visible(actor, kind.Object()).Allows(item.OrganizationID) {
		return empty, nil
	}

	quotes, err := s.repo.ListByItems(ctx, s.db, kind, []snowflake.ID{item.ID})
	if err != nil {
		return nil, err
	}
	resp := make([]domain.Response, 0, len(quotes))
	for _, q := range quotes {
		resp = append(resp, *toResponse(kind, q))
	}
	return resp, nil
}

func (s *Service) SubmitFromSupplier(ctx context.Context, supplier *supplierdomain.Supplier, req domain.SupplierQuoteRequest) (*domain.SupplierQuoteResponse, error) {
	if supplier == nil {
		return nil, domain.ErrInvalidSupplier
	}
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	kind, err := productdomain.ParseKind(req.Kind)
	if err != nil {
		return nil, err
	}
	amount, err := normalizePrice(req.Price)
	if err != nil {
		return nil, err
	}

	item, err := s.findItem(ctx, kind, req.ItemID)
	if err != nil {
		return nil, err
	}
	// Suppliers only quote for their own organization's catalog.
	if item.OrganizationID != supplier.OrganizationID {
		return nil, domain.ErrInvalidItem
	}
	if !quotesKind(supplier.Type, kind) {
		return nil, domain.ErrSupplierKindMismatch
	}

	now := s.clock.Now()
	quote := &domain.Quote{
		ID:             s.genID.Generate(),
		ItemID:         item.ID,
		SupplierID:     supplier.ID,
		SupplierName:   supplier.Name,
		OrganizationID: item.OrganizationID,
		Price:          amount,
		Manufacturer:   trimmed(req.Manufacturer),
		DateAdded:      now,
		DateUpdated:    now,
	}

	var responded int64
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Insert(ctx, tx, kind, quote); err != nil {
			return err
		}
		if s.listener == nil {
			return nil
		}
		n, err := s.listener.QuoteSubmitted(ctx, tx, kind, item.ID, supplier.ID)
		if err != nil {
			return err
		}
		responded = n
		return nil
	})
	if err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrDuplicateQuote
		}
		return nil, err
	}

	s.metrics.RecordQuote(ctx, string(kind), channelSupplier)
	s.log.Info("supplier quote recorded",
		zap.String("supplier_id", supplier.ID.String()),
		zap.String("kind", string(kind)),
		zap.String("item_id", item.ID.String()),
		zap.Int64("responded_requests", responded),
	)
	return &domain.SupplierQuoteResponse{Quote: *toResponse(kind, quote), RespondedRequests: responded}, nil
}

func (s *Service) find(ctx context.Context, kind productdomain.Kind, id string) (*domain.Quote, error) {
	quoteID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil || quoteID == 0 {
		return nil, domain.ErrInvalidID
	}
	quote, err := s.repo.FindByID(ctx, s.db, kind, quoteID)
	if err != nil {
		return nil, err
	}
	if quote == nil {
		return nil, domain.ErrNotFound
	}
	return quote, nil
}

func (s *Service) findItem(ctx context.Context, kind productdomain.Kind, raw string) (*productdomain.Item, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil || id == 0 {
		return nil, domain.ErrInvalidItem
	}
	item, err := s.productRepo.FindByID(ctx, s.db, kind, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.ErrInvalidItem
	}
	return item, nil
}

func (s *Service) findSupplier(ctx context.Context, raw string) (*supplierdomain.Supplier, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil || id == 0 {
		return nil, domain.ErrInvalidSupplier
	}
	supplier, err := s.supplierRepo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if supplier == nil {
		return nil, domain.ErrInvalidSupplier
	}
	return supplier, nil
}

// normalizePrice rounds to cents and enforces the numeric(10,2) range. A null
// price is kept as null.
func normalizePrice(value decimal.NullDecimal) (decimal.NullDecimal, error) {
	if !value.Valid {
		return value, nil
	}
	amount := value.Decimal.Round(2)
	if amount.IsNegative() || amount.GreaterThan(domain.MaxPrice) {
		return decimal.NullDecimal{}, validation.Field("price", "out_of_range", "price must be between 0 and 99999999.99")
	}
	return decimal.NewNullDecimal(amount), nil
}

func quotesKind(supplierType string, kind productdomain.Kind) bool {
	switch supplierType {
	case supplierdomain.TypeAll:
		return true
	case supplierdomain.TypeAlcohol:
		return kind == productdomain.KindAlcohol
	default:
		return kind == productdomain.KindProduct
	}
}

func trimmed(value *string) *string {
	if value == nil {
		return nil
	}
	v := strings.TrimSpace(*value)
	if v == "" {
		return nil
	}
	return &v
}

func toResponse(kind productdomain.Kind, q *domain.Quote) *domain.Response {
	resp := &domain.Response{
		ID:           q.ID.String(),
		Kind:         kind,
		ItemID:       q.ItemID.String(),
		SupplierID:   q.SupplierID.String(),
		SupplierName: q.SupplierName,
		Manufacturer: q.Manufacturer,
		DateAdded:    q.DateAdded,
		DateUpdated:  q.DateUpdated,
	}
	if q.Price.Valid {
		amount := q.Price.Decimal
		resp.Price = &amount
	}
	return resp
}
