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
	Get(ctx context.Context, actor authorization.Actor, id string) (*Response, error)
	// List returns every request to admins and the actor's own otherwise.
	List(ctx context.Context, actor authorization.Actor, req ListRequest) (ListResponse, error)
	// Update changes message, and for admins status and purchaser. Item and
	// supplier never change after creation.
	Update(ctx context.Context, actor authorization.Actor, id string, req UpdateRequest) (*Response, error)
	// Cancel moves a pending request owned by the actor to cancelled.
	Cancel(ctx context.Context, actor authorization.Actor, id string) (*Response, error)
	// BulkCancel cancels every pending request matching the filter.
	BulkCancel(ctx context.Context, actor authorization.Actor, req BulkCancelRequest) (BulkCancelResponse, error)
}

type CreateRequest struct {
	ProductID  *string `json:"product_id"`
	AlcoholID  *string `json:"alcohol_id"`
	SupplierID string  `json:"supplier_id" validate:"required"`
	Message    string  `json:"message" validate:"max=4000"`
}

type UpdateRequest struct {
	Message     *string `json:"message" validate:"omitempty,max=4000"`
	Status      *string `json:"status" validate:"omitempty,oneof=pending responded cancelled"`
	PurchaserID *string `json:"purchaser_id"`
	ProductID   *string `json:"product_id"`
	AlcoholID   *string `json:"alcohol_id"`
	SupplierID  *string `json:"supplier_id"`
}

type ListRequest struct {
	pagination.Pagination
	Status     string `form:"status"`
	SupplierID string `form:"supplier_id"`
}

type BulkCancelRequest struct {
	IDs            []string   `json:"ids"`
	PurchaserID    string     `json:"purchaser_id"`
	SupplierID     string     `json:"supplier_id"`
	OrganizationID string     `json:"organization_id"`
	CreatedBefore  *time.Time `json:"created_before"`
}

type BulkCancelResponse struct {
	Cancelled int64 `json:"cancelled"`
}

type Response struct {
	ID                string    `json:"id"`
	PurchaserID       string    `json:"purchaser_id"`
	PurchaserUsername string    `json:"purchaser_username"`
	SupplierID        string    `json:"supplier_id"`
	SupplierName      string    `json:"supplier_name"`
	ProductID         *string   `json:"product_id"`
	AlcoholID         *string   `json:"alcohol_id"`
	ItemName          string    `json:"item_name"`
	OrganizationID    string    `json:"organization_id"`
	Status            Status    `json:"status"`
	Message           string    `json:"message"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

type ListResponse struct {
	pagination.PageInfo
	PriceRequests []Response `json:"price_requests"`
}

// ConflictError reports a transition attempted from a state that does not
// allow it.
type ConflictError struct {
	Current Status
}

func (e *ConflictError) Error() string {
	return "invalid_transition: request is " + string(e.Current)
}

func (e *ConflictError) Is(target error) bool {
	return target == ErrInvalidTransition
}

// ImmutableFieldError names a field that cannot change after creation.
type ImmutableFieldError struct {
	Field string
}

func (e *ImmutableFieldError) Error() string {
	return "immutable_field: " + e.Field
}

func (e *ImmutableFieldError) Is(target error) bool {
	return target == ErrImmutableField
}

var (
	ErrItemChoice        = errors.New("exactly_one_item_required")
	ErrInvalidProduct    = errors.New("invalid_product")
	ErrInvalidAlcohol    = errors.New("invalid_alcohol")
	ErrInvalidSupplier   = errors.New("invalid_supplier")
	ErrInvalidPurchaser  = errors.New("invalid_purchaser")
	ErrInvalidStatus     = errors.New("invalid_status")
	ErrInvalidID         = errors.New("invalid_id")
	ErrNotFound          = errors.New("price_request_not_found")
	ErrInvalidTransition = errors.New("invalid_transition")
	ErrImmutableField    = errors.New("immutable_field")
	ErrEmptyBulkFilter   = errors.New("empty_bulk_filter")
)
