package domain

import (
	"context"
	"errors"
	"time"

	"github.com/smallbiznis/procura/internal/authorization"
	"github.com/smallbiznis/procura/pkg/db/pagination"
)

type Service interface {
	Create(ctx context.Context, actor authorization.Actor, req CreateOrganizationRequest) (*OrganizationResponse, error)
	List(ctx context.Context, actor authorization.Actor, req ListOrganizationRequest) (ListOrganizationResponse, error)
	Get(ctx context.Context, actor authorization.Actor, id string) (*OrganizationResponse, error)
	Update(ctx context.Context, actor authorization.Actor, id string, req UpdateOrganizationRequest) (*OrganizationResponse, error)
	Delete(ctx context.Context, actor authorization.Actor, id string) error
}

type CreateOrganizationRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
}

type UpdateOrganizationRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

type ListOrganizationRequest struct {
	pagination.Pagination
	Name string `form:"name"`
}

type OrganizationResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description *string   `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type ListOrganizationResponse struct {
	pagination.PageInfo
	Organizations []OrganizationResponse `json:"organizations"`
}

var (
	ErrInvalidName         = errors.New("invalid_name")
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrNotFound            = errors.New("organization_not_found")
	ErrSlugTaken           = errors.New("organization_slug_taken")
	ErrInUse               = errors.New("organization_in_use")
)
