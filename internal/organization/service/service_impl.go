package service

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/smallbiznis/procura/internal/authorization"
	"github.com/smallbiznis/procura/internal/clock"
	"github.com/smallbiznis/procura/internal/config"
	"github.com/smallbiznis/procura/internal/organization/domain"
	"github.com/smallbiznis/procura/pkg/db"
	"github.com/smallbiznis/procura/pkg/db/option"
	"github.com/smallbiznis/procura/pkg/db/pagination"
	"github.com/smallbiznis/procura/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Settings *config.ProcurementHolder
	Authz    authorization.Service
	Repo     repository.Repository[domain.Organization]
}

type service struct {
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	settings *config.ProcurementHolder
	authz    authorization.Service
	repo     repository.Repository[domain.Organization]
}

func NewService(p Params) domain.Service {
	return &service{
		log:      p.Log.Named("organization.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		settings: p.Settings,
		authz:    p.Authz,
		repo:     p.Repo,
	}
}

func (s *service) Create(ctx context.Context, actor authorization.Actor, req domain.CreateOrganizationRequest) (*domain.OrganizationResponse, error) {
	if err := s.authz.Authorize(ctx, actor, authorization.Resource{Object: authorization.ObjectOrganization}, authorization.ActionWrite); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}

	now := s.clock.Now()
	orgID := s.genID.Generate()
	org := domain.Organization{
		ID:          orgID,
		Name:        name,
		Slug:        makeSlug(name, orgID),
		Description: normalizeText(req.Description),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.Create(ctx, &org); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrSlugTaken
		}
		return nil, err
	}

	s.log.Info("organization created", zap.String("organization_id", orgID.String()), zap.String("slug", org.Slug))
	return toResponse(&org), nil
}

func (s *service) List(ctx context.Context, actor authorization.Actor, req domain.ListOrganizationRequest) (domain.ListOrganizationResponse, error) {
	if err := authorization.RequireActor(actor); err != nil {
		return domain.ListOrganizationResponse{}, err
	}

	visible := s.authz.Visible(actor, authorization.ObjectOrganization)
	if visible.Empty() {
		return domain.ListOrganizationResponse{Organizations: []domain.OrganizationResponse{}}, nil
	}

	page := pagination.Pagination{
		PageToken: req.PageToken,
		PageSize:  s.settings.PageSize(req.PageSize),
	}
	query := &domain.Organization{Name: strings.TrimSpace(req.Name)}
	items, err := s.repo.Find(ctx, query,
		option.QueryOptionFunc(visible.Scope("id")),
		option.QueryOptionFunc(pagination.Scope("", page)),
	)
	if err != nil {
		return domain.ListOrganizationResponse{}, err
	}

	items, pageInfo := pagination.BuildCursorPageInfo(items, page.PageSize, func(org *domain.Organization) pagination.Cursor {
		return pagination.Cursor{ID: org.ID.Int64(), CreatedAt: org.CreatedAt}
	})

	resp := domain.ListOrganizationResponse{
		PageInfo:      pageInfo,
		Organizations: make([]domain.OrganizationResponse, 0, len(items)),
	}
	for _, item := range items {
		resp.Organizations = append(resp.Organizations, *toResponse(item))
	}
	return resp, nil
}

func (s *service) Get(ctx context.Context, actor authorization.Actor, id string) (*domain.OrganizationResponse, error) {
	if err := authorization.RequireActor(actor); err != nil {
		return nil, err
	}

	org, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.authz.Visible(actor, authorization.ObjectOrganization).Allows(org.ID) {
		return nil, domain.ErrNotFound
	}
	return toResponse(org), nil
}

func (s *service) Update(ctx context.Context, actor authorization.Actor, id string, req domain.UpdateOrganizationRequest) (*domain.OrganizationResponse, error) {
	org, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authz.Authorize(ctx, actor, authorization.Resource{Object: authorization.ObjectOrganization, OrgID: org.ID}, authorization.ActionWrite); err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, domain.ErrInvalidName
		}
		org.Name = name
		org.Slug = makeSlug(name, org.ID)
		updates["name"] = org.Name
		updates["slug"] = org.Slug
	}
	if req.Description != nil {
		org.Description = normalizeText(req.Description)
		updates["description"] = org.Description
	}
	if len(updates) == 0 {
		return toResponse(org), nil
	}

	org.UpdatedAt = s.clock.Now()
	updates["updated_at"] = org.UpdatedAt
	if err := s.repo.Update(ctx, org.ID.Int64(), updates); err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return nil, domain.ErrNotFound
		case db.IsDuplicateKeyErr(err):
			return nil, domain.ErrSlugTaken
		}
		return nil, err
	}
	return toResponse(org), nil
}

func (s *service) Delete(ctx context.Context, actor authorization.Actor, id string) error {
	org, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	if err := s.authz.Authorize(ctx, actor, authorization.Resource{Object: authorization.ObjectOrganization, OrgID: org.ID}, authorization.ActionDelete); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, org.ID.Int64()); err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return domain.ErrNotFound
		case db.IsForeignKeyErr(err):
			return domain.ErrInUse
		}
		return err
	}

	s.log.Info("organization deleted", zap.String("organization_id", org.ID.String()))
	return nil
}

func (s *service) find(ctx context.Context, id string) (*domain.Organization, error) {
	orgID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil || orgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}
	org, err := s.repo.FindOne(ctx, &domain.Organization{ID: orgID})
	if err != nil {
		return nil, err
	}
	if org == nil {
		return nil, domain.ErrNotFound
	}
	return org, nil
}

// makeSlug falls back to the id when the name has no sluggable characters.
func makeSlug(name string, id snowflake.ID) string {
	value := slug.Make(name)
	if value == "" {
		return id.String()
	}
	return value
}

func normalizeText(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func toResponse(org *domain.Organization) *domain.OrganizationResponse {
	return &domain.OrganizationResponse{
		ID:          org.ID.String(),
		Name:        org.Name,
		Slug:        org.Slug,
		Description: org.Description,
		CreatedAt:   org.CreatedAt,
		UpdatedAt:   org.UpdatedAt,
	}
}
