package domain

import (
	"context"
	"errors"
	"time"

	"github.com/smallbiznis/procura/internal/authorization"
	"github.com/smallbiznis/procura/pkg/db/pagination"
)

type Service interface {
	Create(ctx context.Context, actor authorization.Actor, kind Kind, req CreateRequest) (*Response, error)
	List(ctx context.Context, actor authorization.Actor, kind Kind, req ListRequest) (ListResponse, error)
	Get(ctx context.Context, actor authorization.Actor, kind Kind, id string) (*Response, error)
	Update(ctx context.Context, actor authorization.Actor, kind Kind, id string, req UpdateRequest) (*Response, error)
	Delete(ctx context.Context, actor authorization.Actor, kind Kind, id string) error
}

type ListRequest struct {
	pagination.Pagination
	Name           string `form:"name"`
	Type           string `form:"type"`
	OrganizationID string `form:"organization_id"`
}

type CreateRequest struct {
	OrganizationID      string `json:"organization_id" validate:"required"`
	Name                string `json:"name" validate:"notblank,max=255"`
	Quantity            int    `json:"quantity" validate:"gte=0"`
	Unit                string `json:"unit" validate:"max=50"`
	Type                string `json:"type" validate:"omitempty,oneof=boevka grocery desserts ice milk sh other"`
	ExciseStampRequired *bool  `json:"excise_stamp_required"`
}

type UpdateRequest struct {
	OrganizationID      *string `json:"organization_id"`
	Name                *string `json:"name" validate:"omitempty,notblank,max=255"`
	Quantity            *int    `json:"quantity" validate:"omitempty,gte=0"`
	Unit                *string `json:"unit" validate:"omitempty,max=50"`
	Type                *string `json:"type" validate:"omitempty,oneof=boevka grocery desserts ice milk sh other"`
	ExciseStampRequired *bool   `json:"excise_stamp_required"`
}

type Response struct {
	ID                  string    `json:"id"`
	Kind                Kind      `json:"kind"`
	OrganizationID      string    `json:"organization_id"`
	Name                string    `json:"name"`
	Quantity            int       `json:"quantity"`
	Unit                string    `json:"unit"`
	Type                *string   `json:"type,omitempty"`
	ExciseStampRequired *bool     `json:"excise_stamp_required,omitempty"`
	LastUpdated         time.Time `json:"last_updated"`
	CreatedAt           time.Time `json:"created_at"`
}

type ListResponse struct {
	pagination.PageInfo
	Items []Response `json:"items"`
}

var (
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidID           = errors.New("invalid_id")
	ErrNotFound            = errors.New("item_not_found")
	ErrInUse               = errors.New("item_in_use")
)
