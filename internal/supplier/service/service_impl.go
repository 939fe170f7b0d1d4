package service

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/procura/internal/authorization"
	"github.com/smallbiznis/procura/internal/clock"
	"github.com/smallbiznis/procura/internal/config"
	"github.com/smallbiznis/procura/internal/supplier/domain"
	"github.com/smallbiznis/procura/internal/validation"
	"github.com/smallbiznis/procura/pkg/db"
	"github.com/smallbiznis/procura/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Settings *config.ProcurementHolder
	Authz    authorization.Service
	Repo     domain.Repository
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	settings *config.ProcurementHolder
	authz    authorization.Service
	repo     domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("supplier.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		settings: p.Settings,
		authz:    p.Authz,
		repo:     p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, actor authorization.Actor, req domain.CreateRequest) (*domain.Response, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.INN = strings.TrimSpace(req.INN)
	req.Type = strings.TrimSpace(req.Type)
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	orgID, err := s.resolveReference(ctx, "organizations", req.OrganizationID, domain.ErrInvalidOrganization)
	if err != nil {
		return nil, err
	}
	if err := s.authz.Authorize(ctx, actor, authorization.Resource{Object: authorization.ObjectSupplier, OrgID: orgID}, authorization.ActionWrite); err != nil {
		return nil, err
	}
	cityID, err := s.resolveCity(ctx, req.CityID)
	if err != nil {
		return nil, err
	}

	supplierType := req.Type
	if supplierType == "" {
		supplierType = domain.TypeProducts
	}

	now := s.clock.Now()
	supplier := &domain.Supplier{
		ID:             s.genID.Generate(),
		OrganizationID: orgID,
		Name:           req.Name,
		ContactInfo:    strings.TrimSpace(req.ContactInfo),
		INN:            req.INN,
		Type:           supplierType,
		CityID:         cityID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.repo.Create(ctx, s.db, supplier); err != nil {
		return nil, err
	}
	return toResponse(supplier), nil
}

func (s *Service) List(ctx context.Context, actor authorization.Actor, req domain.ListRequest) (domain.ListResponse, error) {
	if err := authorization.RequireActor(actor); err != nil {
		return domain.ListResponse{}, err
	}
	visible := s.authz.Visible(actor, authorization.ObjectSupplier)
	if visible.Empty() {
		return domain.ListResponse{Suppliers: []domain.Response{}}, nil
	}

	filter := domain.ListFilter{
		Name: strings.TrimSpace(req.Name),
		Type: strings.TrimSpace(req.Type),
	}
	if raw := strings.TrimSpace(req.OrganizationID); raw != "" {
		id, err := snowflake.ParseString(raw)
		if err != nil {
			return domain.ListResponse{}, domain.ErrInvalidOrganization
		}
		filter.OrganizationID = id
	}
	if raw := strings.TrimSpace(req.CityID); raw != "" {
		id, err := snowflake.ParseString(raw)
		if err != nil {
			return domain.ListResponse{}, domain.ErrInvalidCity
		}
		filter.CityID = id
	}

	page := pagination.Pagination{PageToken: req.PageToken, PageSize: s.settings.PageSize(req.PageSize)}
	items, err := s.repo.List(ctx, s.db, visible, filter, page)
	if err != nil {
		return domain.ListResponse{}, err
	}
	items, pageInfo := pagination.BuildCursorPageInfo(items, page.PageSize, func(item *domain.Supplier) pagination.Cursor {
		return pagination.Cursor{ID: item.ID.Int64(), CreatedAt: item.CreatedAt}
	})

	resp := domain.ListResponse{PageInfo: pageInfo, Suppliers: make([]domain.Response, 0, len(items))}
	for _, item := range items {
		resp.Suppliers = append(resp.Suppliers, *toResponse(item))
	}
	return resp, nil
}

func (s *Service) Get(ctx context.Context, actor authorization.Actor, id string) (*domain.Response, error) {
	if err := authorization.RequireActor(actor); err != nil {
		return nil, err
	}
	supplier, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.authz.Visible(actor, authorization.ObjectSupplier).Allows(supplier.OrganizationID) {
		return nil, domain.ErrNotFound
	}
	return toResponse(supplier), nil
}

func (s *Service) Update(ctx context.Context, actor authorization.Actor, id string, req domain.UpdateRequest) (*domain.Response, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	supplier, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authz.Authorize(ctx, actor, authorization.Resource{Object: authorization.ObjectSupplier, OrgID: supplier.OrganizationID}, authorization.ActionWrite); err != nil {
		return nil, err
	}

	if req.OrganizationID != nil {
		orgID, err := s.resolveReference(ctx, "organizations", *req.OrganizationID, domain.ErrInvalidOrganization)
		if err != nil {
			return nil, err
		}
		if orgID != supplier.OrganizationID {
			if err := s.authz.Authorize(ctx, actor, authorization.Resource{Object: authorization.ObjectSupplier, OrgID: orgID}, authorization.ActionWrite); err != nil {
				return nil, err
			}
			supplier.OrganizationID = orgID
		}
	}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, validation.Field("name", "required", "name must not be blank")
		}
		supplier.Name = name
	}
	if req.ContactInfo != nil {
		supplier.ContactInfo = strings.TrimSpace(*req.ContactInfo)
	}
	if req.INN != nil {
		inn := strings.TrimSpace(*req.INN)
		if !validation.ValidINN(inn) {
			return nil, validation.Field("inn", "invalid_inn", "inn must be 10 to 12 digits")
		}
		supplier.INN = inn
	}
	if req.Type != nil {
		supplier.Type = strings.TrimSpace(*req.Type)
	}
	if req.CityID != nil {
		cityID, err := s.resolveCity(ctx, req.CityID)
		if err != nil {
			return nil, err
		}
		supplier.CityID = cityID
	}

	supplier.UpdatedAt = s.clock.Now()
	if err := s.repo.Update(ctx, s.db, supplier); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return toResponse(supplier), nil
}

func (s *Service) Delete(ctx context.Context, actor authorization.Actor, id string) error {
	supplier, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	if err := s.authz.Authorize(ctx, actor, authorization.Resource{Object: authorization.ObjectSupplier, OrgID: supplier.OrganizationID}, authorization.ActionDelete); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, s.db, supplier.ID); err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return domain.ErrNotFound
		case db.IsForeignKeyErr(err):
			return domain.ErrInUse
		}
		return err
	}
	s.log.Info("supplier deleted", zap.String("supplier_id", supplier.ID.String()))
	return nil
}

func (s *Service) find(ctx context.Context, id string) (*domain.Supplier, error) {
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

// resolveCity treats an empty id as "no city".
func (s *Service) resolveCity(ctx context.Context, raw *string) (*snowflake.ID, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	cityID, err := s.resolveReference(ctx, "cities", *raw, domain.ErrInvalidCity)
	if err != nil {
		return nil, err
	}
	return &cityID, nil
}

func (s *Service) resolveReference(ctx context.Context, table, raw string, invalid error) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil || id == 0 {
		return 0, invalid
	}
	var count int64
	if err := s.db.WithContext(ctx).Table(table).Where("id = ?", id).Count(&count).Error; err != nil {
		return 0, err
	}
	if count == 0 {
		return 0, invalid
	}
	return id, nil
}

func toResponse(supplier *domain.Supplier) *domain.Response {
	resp := &domain.Response{
		ID:             supplier.ID.String(),
		OrganizationID: supplier.OrganizationID.String(),
		Name:           supplier.Name,
		ContactInfo:    supplier.ContactInfo,
		INN:            supplier.INN,
		Type:           supplier.Type,
		CreatedAt:      supplier.CreatedAt,
		UpdatedAt:      supplier.UpdatedAt,
	}
	if supplier.CityID != nil {
		cityID := supplier.CityID.String()
		resp.CityID = &cityID
	}
	return resp
}
