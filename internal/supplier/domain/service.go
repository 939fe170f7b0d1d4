package domain

import (
	"context"
	"errors"
	"time"

	"github.com/smallbiznis/procura/internal/authorization"
	"github.com/smallbiznis/procura/pkg/db/pagination"
)

type Service interface {
	Create(ctx context.Context, actor authorization.Actor, req CreateRequest) (*Response, error)
	List(ctx context.Context, actor authorization.Actor, req ListRequest) (ListResponse, error)
	Get(ctx context.Context, actor authorization.Actor, id string) (*Response, error)
	Update(ctx context.Context, actor authorization.Actor, id string, req UpdateRequest) (*Response, error)
	Delete(ctx context.Context, actor authorization.Actor, id string) error
}

// TokenService issues the per-supplier rotating bearer token.
type TokenService interface {
	// GetOrCreate returns the live token, rotating it once it has expired.
	GetOrCreate(ctx context.Context, supplierID string) (*TokenResponse, error)
	// Regenerate forces a fresh token regardless of age.
	Regenerate(ctx context.Context, actor authorization.Actor, supplierID string) (*TokenResponse, error)
	// Authenticate resolves a live token to its supplier.
	Authenticate(ctx context.Context, token string) (*Supplier, error)
}

type CreateRequest struct {
	OrganizationID string  `json:"organization_id" validate:"required"`
	Name           string  `json:"name" validate:"notblank,max=255"`
	ContactInfo    string  `json:"contact_info"`
	INN            string  `json:"inn" validate:"inn"`
	Type           string  `json:"type" validate:"omitempty,oneof=prod alco all"`
	CityID         *string `json:"city_id"`
}

type UpdateRequest struct {
	OrganizationID *string `json:"organization_id"`
	Name           *string `json:"name" validate:"omitempty,max=255"`
	ContactInfo    *string `json:"contact_info"`
	INN            *string `json:"inn" validate:"omitempty,inn"`
	Type           *string `json:"type" validate:"omitempty,oneof=prod alco all"`
	CityID         *string `json:"city_id"`
}

type ListRequest struct {
	pagination.Pagination
	Name           string `form:"name"`
	Type           string `form:"type"`
	OrganizationID string `form:"organization_id"`
	CityID         string `form:"city_id"`
}

type Response struct {
	ID             string    `json:"id"`
	OrganizationID string    `json:"organization_id"`
	Name           string    `json:"name"`
	ContactInfo    string    `json:"contact_info"`
	INN            string    `json:"inn"`
	Type           string    `json:"type"`
	CityID         *string   `json:"city_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type ListResponse struct {
	pagination.PageInfo
	Suppliers []Response `json:"suppliers"`
}

type TokenResponse struct {
	SupplierID string    `json:"supplier_id"`
	Token      string    `json:"token"`
	CreatedAt  time.Time `json:"created_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}

var (
	ErrInvalidSupplier     = errors.New("invalid_supplier")
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidCity         = errors.New("invalid_city")
	ErrNotFound            = errors.New("supplier_not_found")
	ErrInUse               = errors.New("supplier_in_use")
	ErrInvalidToken        = errors.New("invalid_supplier_token")
	ErrTokenExpired        = errors.New("supplier_token_expired")
	ErrTokenContention     = errors.New("supplier_token_contention")
)
