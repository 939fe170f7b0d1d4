package service

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/procura/internal/audit/domain"
	"github.com/smallbiznis/procura/internal/authorization"
	"github.com/smallbiznis/procura/internal/clock"
	"github.com/smallbiznis/procura/internal/config"
	"github.com/smallbiznis/procura/internal/observability/metrics"
	"github.com/smallbiznis/procura/internal/pricerequest/domain"
	productdomain "github.com/smallbiznis/procura/internal/product/domain"
	supplierdomain "github.com/smallbiznis/procura/internal/supplier/domain"
	"github.com/smallbiznis/procura/internal/validation"
	"github.com/smallbiznis/procura/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
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
	Metrics      *metrics.Metrics    `optional:"true"`
	AuditSvc     auditdomain.Service `optional:"true"`
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
	metrics      *metrics.Metrics
	auditSvc     auditdomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("pricerequest.service"),
		genID:        p.GenID,
		clock:        p.Clock,
		settings:     p.Settings,
		authz:        p.Authz,
		repo:         p.Repo,
		productRepo:  p.ProductRepo,
		supplierRepo: p.SupplierRepo,
		metrics:      p.Metrics,
		auditSvc:     p.AuditSvc,
	}
}

func (s *Service) Create(ctx context.Context, actor authorization.Actor, req domain.CreateRequest) (*domain.Response, error) {
	if err := authorization.RequireActor(actor); err != nil {
		return nil, err
	}
	req.Message = strings.TrimSpace(req.Message)
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	kind, rawItem, err := chooseItem(req.ProductID, req.AlcoholID)
	if err != nil {
		return nil, err
	}
	item, err := s.findItem(ctx, kind, rawItem)
	if err != nil {
		return nil, err
	}
	if !s.authz.Visible(actor, kind.Object()).Allows(item.OrganizationID) {
		return nil, invalidItem(kind)
	}
	supplier, err := s.findSupplier(ctx, req.SupplierID)
	if err != nil {
		return nil, err
	}
	if !s.authz.Visible(actor, authorization.ObjectSupplier).Allows(supplier.OrganizationID) {
		return nil, domain.ErrInvalidSupplier
	}
	if err := s.authz.Authorize(ctx, actor, authorization.Resource{Object: authorization.ObjectPriceRequest, OrgID: item.OrganizationID}, authorization.ActionWrite); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	request := &domain.PriceRequest{
		ID:             s.genID.Generate(),
		PurchaserID:    actor.UserID,
		SupplierID:     supplier.ID,
		OrganizationID: item.OrganizationID,
		Status:         domain.StatusPending,
		Message:        req.Message,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	itemID := item.ID
	if kind == productdomain.KindAlcohol {
		request.AlcoholID = &itemID
	} else {
		request.ProductID = &itemID
	}

	if err := s.repo.Insert(ctx, s.db, request); err != nil {
		return nil, err
	}
	s.log.Info("price request created",
		zap.String("price_request_id", request.ID.String()),
		zap.String("kind", string(kind)),
		zap.String("supplier_id", supplier.ID.String()),
	)
	return s.reload(ctx, request.ID)
}

func (s *Service) Get(ctx context.Context, actor authorization.Actor, id string) (*domain.Response, error) {
	if err := authorization.RequireActor(actor); err != nil {
		return nil, err
	}
	view, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && view.PurchaserID != actor.UserID {
		return nil, domain.ErrNotFound
	}
	return toResponse(view), nil
}

func (s *Service) List(ctx context.Context, actor authorization.Actor, req domain.ListRequest) (domain.ListResponse, error) {
	if err := authorization.RequireActor(actor); err != nil {
		return domain.ListResponse{}, err
	}

	var filter domain.ListFilter
	if !actor.IsAdmin() {
		filter.PurchaserID = actor.UserID
	}
	if raw := strings.TrimSpace(req.Status); raw != "" {
		status, err := domain.ParseStatus(raw)
		if err != nil {
			return domain.ListResponse{}, err
		}
		filter.Status = status
	}
	if raw := strings.TrimSpace(req.SupplierID); raw != "" {
		id, err := snowflake.ParseString(raw)
		if err != nil {
			return domain.ListResponse{}, domain.ErrInvalidSupplier
		}
		filter.SupplierID = id
	}

	page := pagination.Pagination{PageToken: req.PageToken, PageSize: s.settings.PageSize(req.PageSize)}
	views, err := s.repo.List(ctx, s.db, filter, page)
	if err != nil {
		return domain.ListResponse{}, err
	}
	views, pageInfo := pagination.BuildCursorPageInfo(views, page.PageSize, func(v *domain.View) pagination.Cursor {
		return pagination.Cursor{ID: v.ID.Int64(), CreatedAt: v.CreatedAt}
	})

	resp := domain.ListResponse{PageInfo: pageInfo, PriceRequests: make([]domain.Response, 0, len(views))}
	for _, v := range views {
		resp.PriceRequests = append(resp.PriceRequests, *toResponse(v))
	}
	return resp, nil
}

func (s *Service) Update(ctx context.Context, actor authorization.Actor, id string, req domain.UpdateRequest) (*domain.Response, error) {
	if err := authorization.RequireActor(actor); err != nil {
		return nil, err
	}
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	view, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	current := view.PriceRequest

	if !actor.IsAdmin() {
		if current.PurchaserID != actor.UserID {
			return nil, s.deny(ctx, actor, current)
		}
		if req.PurchaserID != nil || req.Status != nil {
			return nil, s.deny(ctx, actor, current)
		}
	}
	if err := s.authz.Authorize(ctx, actor, resourceOf(current), authorization.ActionWrite); err != nil {
		return nil, err
	}
	if err := checkImmutable(current, req); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	fields := map[string]any{}
	if req.Message != nil {
		fields["message"] = strings.TrimSpace(*req.Message)
	}
	if req.PurchaserID != nil {
		purchaserID, err := s.resolvePurchaser(ctx, *req.PurchaserID)
		if err != nil {
			return nil, err
		}
		fields["purchaser_id"] = purchaserID
	}

	var statusChange *domain.Status
	if req.Status != nil {
		next, err := domain.ParseStatus(*req.Status)
		if err != nil {
			return nil, err
		}
		if next != current.Status {
			statusChange = &next
		}
	}

	if len(fields) == 0 && statusChange == nil {
		return toResponse(view), nil
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if statusChange != nil {
			moved, err := s.repo.Transition(ctx, tx, current.ID, current.Status, *statusChange, now)
			if err != nil {
				return err
			}
			if !moved {
				return s.conflict(ctx, tx, current.ID)
			}
		}
		if len(fields) > 0 {
			fields["updated_at"] = now
			if err := s.repo.UpdateFields(ctx, tx, current.ID, fields); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	if statusChange != nil {
		s.metrics.RecordPriceRequestTransition(ctx, string(current.Status), string(*statusChange), 1)
		s.audit(ctx, actor, &current.OrganizationID, "price_request.status_changed", current.ID.String(), map[string]any{
			"from": string(current.Status),
			"to":   string(*statusChange),
		})
	}
	return s.reload(ctx, current.ID)
}

func (s *Service) Cancel(ctx context.Context, actor authorization.Actor, id string) (*domain.Response, error) {
	if err := authorization.RequireActor(actor); err != nil {
		return nil, err
	}
	view, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	current := view.PriceRequest

	if err := s.authz.Authorize(ctx, actor, resourceOf(current), authorization.ActionDelete); err != nil {
		return nil, err
	}
	if current.Status != domain.StatusPending {
		return nil, &domain.ConflictError{Current: current.Status}
	}

	moved, err := s.repo.Transition(ctx, s.db, current.ID, domain.StatusPending, domain.StatusCancelled, s.clock.Now())
	if err != nil {
		return nil, err
	}
	if !moved {
		return nil, s.conflict(ctx, s.db, current.ID)
	}

	s.metrics.RecordPriceRequestTransition(ctx, string(domain.StatusPending), string(domain.StatusCancelled), 1)
	s.log.Info("price request cancelled",
		zap.String("price_request_id", current.ID.String()),
		zap.String("actor_id", actor.UserID.String()),
	)
	return s.reload(ctx, current.ID)
}

func (s *Service) BulkCancel(ctx context.Context, actor authorization.Actor, req domain.BulkCancelRequest) (domain.BulkCancelResponse, error) {
	if err := authorization.RequireActor(actor); err != nil {
		return domain.BulkCancelResponse{}, err
	}
	if !actor.IsAdmin() {
		return domain.BulkCancelResponse{}, s.deny(ctx, actor, domain.PriceRequest{})
	}

	filter, err := parseBulkFilter(req)
	if err != nil {
		return domain.BulkCancelResponse{}, err
	}

	count, err := s.repo.TransitionMatching(ctx, s.db, filter, domain.StatusPending, domain.StatusCancelled, s.clock.Now())
	if err != nil {
		return domain.BulkCancelResponse{}, err
	}

	s.metrics.RecordPriceRequestTransition(ctx, string(domain.StatusPending), string(domain.StatusCancelled), count)
	s.audit(ctx, actor, nil, "price_request.bulk_cancelled", "", map[string]any{
		"cancelled":       count,
		"ids":             req.IDs,
		"purchaser_id":    req.PurchaserID,
		"supplier_id":     req.SupplierID,
		"organization_id": req.OrganizationID,
	})
	s.log.Info("price requests bulk cancelled", zap.Int64("count", count))
	return domain.BulkCancelResponse{Cancelled: count}, nil
}

func (s *Service) find(ctx context.Context, id string) (*domain.View, error) {
	requestID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil || requestID == 0 {
		return nil, domain.ErrInvalidID
	}
	view, err := s.repo.FindByID(ctx, s.db, requestID)
	if err != nil {
		return nil, err
	}
	if view == nil {
		return nil, domain.ErrNotFound
	}
	return view, nil
}

func (s *Service) reload(ctx context.Context, id snowflake.ID) (*domain.Response, error) {
	view, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if view == nil {
		return nil, domain.ErrNotFound
	}
	return toResponse(view), nil
}

// conflict builds the error for a transition that matched no row.
func (s *Service) conflict(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	view, err := s.repo.FindByID(ctx, db, id)
	if err != nil {
		return err
	}
	if view == nil {
		return domain.ErrNotFound
	}
	return &domain.ConflictError{Current: view.Status}
}

// deny routes a Go-side ownership or field denial through the authorizer so
// it is counted and audited like any other.
func (s *Service) deny(ctx context.Context, actor authorization.Actor, request domain.PriceRequest) error {
	res := resourceOf(request)
	res.OwnerID = 0
	if err := s.authz.Authorize(ctx, actor, res, authorization.ActionDelete); err != nil {
		return err
	}
	return authorization.ErrForbidden
}

func (s *Service) audit(ctx context.Context, actor authorization.Actor, orgID *snowflake.ID, action, targetID string, metadata map[string]any) {
	if s.auditSvc == nil {
		return
	}
	actorID := actor.UserID.String()
	var target *string
	if targetID != "" {
		target = &targetID
	}
	if err := s.auditSvc.AuditLog(ctx, orgID, string(auditdomain.ActorTypeUser), &actorID, action, "price_request", target, metadata); err != nil {
		s.log.Warn("audit write failed", zap.String("action", action), zap.Error(err))
	}
}

func (s *Service) findItem(ctx context.Context, kind productdomain.Kind, raw string) (*productdomain.Item, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil || id == 0 {
		return nil, invalidItem(kind)
	}
	item, err := s.productRepo.FindByID(ctx, s.db, kind, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, invalidItem(kind)
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

func (s *Service) resolvePurchaser(ctx context.Context, raw string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidPurchaser
	}
	var count int64
	if err := s.db.WithContext(ctx).Table("users").Where("id = ?", id).Count(&count).Error; err != nil {
		return 0, err
	}
	if count == 0 {
		return 0, domain.ErrInvalidPurchaser
	}
	return id, nil
}

// chooseItem enforces that exactly one of product and alcohol is named.
func chooseItem(productID, alcoholID *string) (productdomain.Kind, string, error) {
	product := nonBlank(productID)
	alcohol := nonBlank(alcoholID)
	switch {
	case product != "" && alcohol == "":
		return productdomain.KindProduct, product, nil
	case alcohol != "" && product == "":
		return productdomain.KindAlcohol, alcohol, nil
	default:
		return "", "", domain.ErrItemChoice
	}
}

func checkImmutable(current domain.PriceRequest, req domain.UpdateRequest) error {
	if changes(req.SupplierID, &current.SupplierID) {
		return &domain.ImmutableFieldError{Field: "supplier_id"}
	}
	if changes(req.ProductID, current.ProductID) {
		return &domain.ImmutableFieldError{Field: "product_id"}
	}
	if changes(req.AlcoholID, current.AlcoholID) {
		return &domain.ImmutableFieldError{Field: "alcohol_id"}
	}
	return nil
}

// changes reports whether a submitted id differs from the stored one.
// Resubmitting the stored value is allowed.
func changes(submitted *string, stored *snowflake.ID) bool {
	if submitted == nil {
		return false
	}
	value := strings.TrimSpace(*submitted)
	if stored == nil {
		return value != ""
	}
	return value != stored.String()
}

func parseBulkFilter(req domain.BulkCancelRequest) (domain.BulkFilter, error) {
	var filter domain.BulkFilter
	for _, raw := range req.IDs {
		id, err := snowflake.ParseString(strings.TrimSpace(raw))
		if err != nil {
			return filter, domain.ErrInvalidID
		}
		filter.IDs = append(filter.IDs, id)
	}
	parse := func(raw string, invalid error) (snowflake.ID, error) {
		if strings.TrimSpace(raw) == "" {
			return 0, nil
		}
		id, err := snowflake.ParseString(strings.TrimSpace(raw))
		if err != nil {
			return 0, invalid
		}
		return id, nil
	}

	var err error
	if filter.PurchaserID, err = parse(req.PurchaserID, domain.ErrInvalidPurchaser); err != nil {
		return filter, err
	}
	if filter.SupplierID, err = parse(req.SupplierID, domain.ErrInvalidSupplier); err != nil {
		return filter, err
	}
	if filter.OrganizationID, err = parse(req.OrganizationID, domain.ErrInvalidID); err != nil {
		return filter, err
	}
	filter.CreatedBefore = req.CreatedBefore

	if len(filter.IDs) == 0 && filter.PurchaserID == 0 && filter.SupplierID == 0 &&
		filter.OrganizationID == 0 && filter.CreatedBefore == nil {
		return filter, domain.ErrEmptyBulkFilter
	}
	return filter, nil
}

func resourceOf(request domain.PriceRequest) authorization.Resource {
	return authorization.Resource{
		Object:  authorization.ObjectPriceRequest,
		OrgID:   request.OrganizationID,
		OwnerID: request.PurchaserID,
	}
}

func invalidItem(kind productdomain.Kind) error {
	if kind == productdomain.KindAlcohol {
		return domain.ErrInvalidAlcohol
	}
	return domain.ErrInvalidProduct
}

func nonBlank(value *string) string {
	if value == nil {
		return ""
	}
	return strings.TrimSpace(*value)
}

func toResponse(view *domain.View) *domain.Response {
	resp := &domain.Response{
		ID:                view.ID.String(),
		PurchaserID:       view.PurchaserID.String(),
		PurchaserUsername: view.PurchaserUsername,
		SupplierID:        view.SupplierID.String(),
		SupplierName:      view.SupplierName,
		ItemName:          view.ItemName,
		OrganizationID:    view.OrganizationID.String(),
		Status:            view.Status,
		Message:           view.Message,
		CreatedAt:         view.CreatedAt,
		UpdatedAt:         view.UpdatedAt,
	}
	if view.ProductID != nil {
		id := view.ProductID.String()
		resp.ProductID = &id
	}
	if view.AlcoholID != nil {
		id := view.AlcoholID.String()
		resp.AlcoholID = &id
	}
	return resp
}
