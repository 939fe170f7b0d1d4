package service

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/procura/internal/authorization"
	"github.com/smallbiznis/procura/internal/clock"
	"github.com/smallbiznis/procura/internal/config"
	"github.com/smallbiznis/procura/internal/product/domain"
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
		log:      p.Log.Named("product.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		settings: p.Settings,
		authz:    p.Authz,
		repo:     p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, actor authorization.Actor, kind domain.Kind, req domain.CreateRequest) (*domain.Response, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Unit = strings.TrimSpace(req.Unit)
	req.Type = strings.TrimSpace(req.Type)
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	orgID, err := s.resolveOrganization(ctx, req.OrganizationID)
	if err != nil {
		return nil, err
	}
	if err := s.authz.Authorize(ctx, actor, authorization.Resource{Object: kind.Object(), OrgID: orgID}, authorization.ActionWrite); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	item := &domain.Item{
		ID:             s.genID.Generate(),
		OrganizationID: orgID,
		Name:           req.Name,
		Quantity:       req.Quantity,
		Unit:           req.Unit,
		LastUpdated:    now,
		CreatedAt:      now,
	}
	switch kind {
	case domain.KindProduct:
		itemType := req.Type
		if itemType == "" {
			itemType = domain.DefaultProductType
		}
		item.Type = &itemType
	case domain.KindAlcohol:
		required := req.ExciseStampRequired != nil && *req.ExciseStampRequired
		item.ExciseStampRequired = &required
	default:
		return nil, domain.ErrInvalidKind
	}

	if err := s.repo.Create(ctx, s.db, kind, item); err != nil {
		return nil, err
	}
	return toResponse(kind, item), nil
}

func (s *Service) List(ctx context.Context, actor authorization.Actor, kind domain.Kind, req domain.ListRequest) (domain.ListResponse, error) {
	if err := authorization.RequireActor(actor); err != nil {
		return domain.ListResponse{}, err
	}
	visible := s.authz.Visible(actor, kind.Object())
	if visible.Empty() {
		return domain.ListResponse{Items: []domain.Response{}}, nil
	}

	filter := domain.ListFilter{
		Name: strings.TrimSpace(req.Name),
		Type: strings.TrimSpace(req.Type),
	}
	if raw := strings.TrimSpace(req.OrganizationID); raw != "" {
		orgID, err := snowflake.ParseString(raw)
		if err != nil {
			return domain.ListResponse{}, domain.ErrInvalidOrganization
		}
		filter.OrganizationID = orgID
	}

	page := pagination.Pagination{PageToken: req.PageToken, PageSize: s.settings.PageSize(req.PageSize)}
	items, err := s.repo.List(ctx, s.db, kind, visible, filter, page)
	if err != nil {
		return domain.ListResponse{}, err
	}
	items, pageInfo := pagination.BuildCursorPageInfo(items, page.PageSize, func(item *domain.Item) pagination.Cursor {
		return pagination.Cursor{ID: item.ID.Int64(), CreatedAt: item.CreatedAt}
	})

	resp := domain.ListResponse{PageInfo: pageInfo, Items: make([]domain.Response, 0, len(items))}
	for _, item := range items {
		resp.Items = append(resp.Items, *toResponse(kind, item))
	}
	return resp, nil
}

func (s *Service) Get(ctx context.Context, actor authorization.Actor, kind domain.Kind, id string) (*domain.Response, error) {
	if err := authorization.RequireActor(actor); err != nil {
		return nil, err
	}
	item, err := s.find(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	if !s.authz.Visible(actor, kind.Object()).Allows(item.OrganizationID) {
		return nil, domain.ErrNotFound
	}
	return toResponse(kind, item), nil
}

func (s *Service) Update(ctx context.Context, actor authorization.Actor, kind domain.Kind, id string, req domain.UpdateRequest) (*domain.Response, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	item, err := s.find(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	if err := s.authz.Authorize(ctx, actor, authorization.Resource{Object: kind.Object(), OrgID: item.OrganizationID}, authorization.ActionWrite); err != nil {
		return nil, err
	}

	if req.OrganizationID != nil {
		orgID, err := s.resolveOrganization(ctx, *req.OrganizationID)
		if err != nil {
			return nil, err
		}
		if orgID != item.OrganizationID {
			if err := s.authz.Authorize(ctx, actor, authorization.Resource{Object: kind.Object(), OrgID: orgID}, authorization.ActionWrite); err != nil {
				return nil, err
			}
			item.OrganizationID = orgID
		}
	}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, validation.Field("name", "required", "name must not be blank")
		}
		item.Name = name
	}
	if req.Quantity != nil {
		item.Quantity = *req.Quantity
	}
	if req.Unit != nil {
		item.Unit = strings.TrimSpace(*req.Unit)
	}
	if req.Type != nil && kind == domain.KindProduct {
		itemType := strings.TrimSpace(*req.Type)
		item.Type = &itemType
	}
	if req.ExciseStampRequired != nil && kind == domain.KindAlcohol {
		item.ExciseStampRequired = req.ExciseStampRequired
	}

	item.LastUpdated = s.clock.Now()
	if err := s.repo.Update(ctx, s.db, kind, item); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return toResponse(kind, item), nil
}

func (s *Service) Delete(ctx context.Context, actor authorization.Actor, kind domain.Kind, id string) error {
	item, err := s.find(ctx, kind, id)
	if err != nil {
		return err
	}
	if err := s.authz.Authorize(ctx, actor, authorization.Resource{Object: kind.Object(), OrgID: item.OrganizationID}, authorization.ActionDelete); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, s.db, kind, item.ID); err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return domain.ErrNotFound
		case db.IsForeignKeyErr(err):
			return domain.ErrInUse
		}
		return err
	}

	s.log.Info("item deleted", zap.String("kind", string(kind)), zap.String("item_id", item.ID.String()))
	return nil
}

func (s *Service) find(ctx context.Context, kind domain.Kind, id string) (*domain.Item, error) {
	itemID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil || itemID == 0 {
		return nil, domain.ErrInvalidID
	}
	item, err := s.repo.FindByID(ctx, s.db, kind, itemID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.ErrNotFound
	}
	return item, nil
}

func (s *Service) resolveOrganization(ctx context.Context, raw string) (snowflake.ID, error) {
	orgID, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil || orgID == 0 {
		return 0, domain.ErrInvalidOrganization
	}
	var count int64
	if err := s.db.WithContext(ctx).Table("organizations").Where("id = ?", orgID).Count(&count).Error; err != nil {
		return 0, err
	}
	if count == 0 {
		return 0, domain.ErrInvalidOrganization
	}
	return orgID, nil
}

func toResponse(kind domain.Kind, item *domain.Item) *domain.Response {
	return &domain.Response{
		ID:                  item.ID.String(),
		Kind:                kind,
		OrganizationID:      item.OrganizationID.String(),
		Name:                item.Name,
		Quantity:            item.Quantity,
		Unit:                item.Unit,
		Type:                item.Type,
		ExciseStampRequired: item.ExciseStampRequired,
		LastUpdated:         item.LastUpdated,
		CreatedAt:           item.CreatedAt,
	}
}
