package domain

import (
	"context"
	"errors"
	"time"

	"github.com/smallbiznis/procura/internal/authorization"
)

type Service interface {
	CreateCity(ctx context.Context, actor authorization.Actor, req CityRequest) (*CityResponse, error)
	ListCities(ctx context.Context, actor authorization.Actor, name string) ([]CityResponse, error)
	GetCity(ctx context.Context, actor authorization.Actor, id string) (*CityResponse, error)
	UpdateCity(ctx context.Context, actor authorization.Actor, id string, req CityRequest) (*CityResponse, error)
	DeleteCity(ctx context.Context, actor authorization.Actor, id string) error
}

type CityRequest struct {
	Name string `json:"name"`
}

type CityResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

var (
	ErrInvalidCity  = errors.New("invalid_city")
	ErrInvalidName  = errors.New("invalid_name")
	ErrCityNotFound = errors.New("city_not_found")
	ErrCityExists   = errors.New("city_exists")
)
