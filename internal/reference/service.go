package reference

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/procura/internal/authorization"
	"github.com/smallbiznis/procura/internal/clock"
	"github.com/smallbiznis/procura/internal/reference/domain"
	"github.com/smallbiznis/procura/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type ServiceParams struct {
	fx.In

	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Authz authorization.Service
	Repo  domain.Repository
}

type service struct {
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	authz authorization.Service
	repo  domain.Repository
}

func NewService(p ServiceParams) domain.Service {
	return &service{
		log:   p.Log.Named("reference.service"),
		genID: p.GenID,
		clock: p.Clock,
		authz: p.Authz,
		repo:  p.Repo,
	}
}

func (s *service) CreateCity(ctx context.Context, actor authorization.Actor, req domain.CityRequest) (*domain.CityResponse, error) {
	if err := s.authz.Authorize(ctx, actor, authorization.Resource{Object: authorization.ObjectCity}, authorization.ActionWrite); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}

	now := s.clock.Now()
	city := domain.City{
		ID:        s.genID.Generate(),
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.CreateCity(ctx, city); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrCityExists
		}
		return nil, err
	}
	return toCityResponse(city), nil
}

func (s *service) ListCities(ctx context.Context, actor authorization.Actor, name string) ([]domain.CityResponse, error) {
	if err := authorization.RequireActor(actor); err != nil {
		return nil, err
	}
	if s.authz.Visible(actor, authorization.ObjectCity).Empty() {
		return []domain.CityResponse{}, nil
	}

	cities, err := s.repo.ListCities(ctx, strings.ToLower(strings.TrimSpace(name)))
	if err != nil {
		return nil, err
	}

	resp := make([]domain.CityResponse, 0, len(cities))
	for _, city := range cities {
		resp = append(resp, *toCityResponse(city))
	}
	return resp, nil
}

func (s *service) GetCity(ctx context.Context, actor authorization.Actor, id string) (*domain.CityResponse, error) {
	if err := authorization.RequireActor(actor); err != nil {
		return nil, err
	}
	if s.authz.Visible(actor, authorization.ObjectCity).Empty() {
		return nil, domain.ErrCityNotFound
	}

	city, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	return toCityResponse(*city), nil
}

func (s *service) UpdateCity(ctx context.Context, actor authorization.Actor, id string, req domain.CityRequest) (*domain.CityResponse, error) {
	if err := s.authz.Authorize(ctx, actor, authorization.Resource{Object: authorization.ObjectCity}, authorization.ActionWrite); err != nil {
		return nil, err
	}

	city, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}

	city.Name = name
	city.UpdatedAt = s.clock.Now()
	if err := s.repo.RenameCity(ctx, *city); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrCityExists
		}
		return nil, err
	}
	return toCityResponse(*city), nil
}

func (s *service) DeleteCity(ctx context.Context, actor authorization.Actor, id string) error {
	if err := s.authz.Authorize(ctx, actor, authorization.Resource{Object: authorization.ObjectCity}, authorization.ActionDelete); err != nil {
		return err
	}

	cityID, err := parseCityID(id)
	if err != nil {
		return err
	}
	deleted, err := s.repo.DeleteCity(ctx, cityID)
	if err != nil {
		return err
	}
	if !deleted {
		return domain.ErrCityNotFound
	}

	s.log.Info("city deleted", zap.String("city_id", cityID.String()))
	return nil
}

func (s *service) find(ctx context.Context, id string) (*domain.City, error) {
	cityID, err := parseCityID(id)
	if err != nil {
		return nil, err
	}
	city, err := s.repo.FindCity(ctx, cityID)
	if err != nil {
		return nil, err
	}
	if city == nil {
		return nil, domain.ErrCityNotFound
	}
	return city, nil
}

func parseCityID(id string) (snowflake.ID, error) {
	cityID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil || cityID == 0 {
		return 0, domain.ErrInvalidCity
	}
	return cityID, nil
}

func toCityResponse(city domain.City) *domain.CityResponse {
	return &domain.CityResponse{
		ID:        city.ID.String(),
		Name:      city.Name,
		CreatedAt: city.CreatedAt,
		UpdatedAt: city.UpdatedAt,
	}
}
