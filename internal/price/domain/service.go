package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/procura/internal/authorization"
	productdomain "github.com/smallbiznis/procura/internal/product/domain"
	supplierdomain "github.com/smallbiznis/procura/internal/supplier/domain"
	"github.com/smallbiznis/procura/pkg/db/pagination"
	"gorm.io/gorm"
)

type Service interface {
	Create(ctx context.Context, actor authorization.Actor, kind productdomain.Kind, req CreateRequest) (*Response, error)
	List(ctx context.Context, actor authorization.Actor, kind productdomain.Kind, req ListRequest) (ListResponse, error)
	Get(ctx context.Context, actor authorization.Actor, kind productdomain.Kind, id string) (*Response, error)
	Update(ctx context.Context, actor authorization.Actor, kind productdomain.Kind, id string, req UpdateRequest) (*Response, error)
	// ListForItem returns an item's quotes newest first. An item the actor
	// cannot see yields an empty list.
	ListForItem(ctx context.Context, actor authorization.Actor, kind productdomain.Kind, itemID string) ([]Response, error)
	// SubmitFromSupplier records a quote sent by an authenticated supplier.
	SubmitFromSupplier(ctx context.Context, supplier *supplierdomain.Supplier, req SupplierQuoteRequest) (*SupplierQuoteResponse, error)
}

// QuoteListener is told about supplier quotes inside the insert transaction
// and reports how many rows it changed.
type QuoteListener interface {
	QuoteSubmitted(ctx context.Context, tx *gorm.DB, kind productdomain.Kind, itemID, supplierID snowflake.ID) (int64, error)
}

type CreateRequest struct {
	ItemID       string              `json:"item_id" validate:"required"`
	SupplierID   string              `json:"supplier_id" validate:"required"`
	Price        decimal.NullDecimal `json:"price"`
	Manufacturer *string             `json:"manufacturer" validate:"omitempty,max=255"`
	DateAdded    *time.Time          `json:"date_added"`
}

type UpdateRequest struct {
	Price        *decimal.NullDecimal `json:"price"`
	Manufacturer *string              `json:"manufacturer" validate:"omitempty,max=255"`
}

type ListRequest struct {
	pagination.Pagination
	ItemID     string `form:"item_id"`
	SupplierID string `form:"supplier_id"`
}

type SupplierQuoteRequest struct {
	Kind         string              `json:"kind" validate:"required,oneof=product alcohol"`
	ItemID       string              `json:"item_id" validate:"required"`
	Price        decimal.NullDecimal `json:"price"`
	Manufacturer *string             `json:"manufacturer" validate:"omitempty,max=255"`
}

type Response struct {
	ID           string             `json:"id"`
	Kind         productdomain.Kind `json:"kind"`
	ItemID       string             `json:"item_id"`
	SupplierID   string             `json:"supplier_id"`
	SupplierName string             `json:"supplier_name"`
	Price        *decimal.Decimal   `json:"price"`
	Manufacturer *string            `json:"manufacturer"`
	DateAdded    time.Time          `json:"date_added"`
	DateUpdated  time.Time          `json:"date_updated"`
}

type ListResponse struct {
	pagination.PageInfo
	Prices []Response `json:"prices"`
}

type SupplierQuoteResponse struct {
	Quote             Response `json:"quote"`
	RespondedRequests int64    `json:"responded_requests"`
}

// MaxPrice is the largest amount a numeric(10,2) column holds.
var MaxPrice = decimal.RequireFromString("99999999.99")

var (
	ErrInvalidItem          = errors.New("invalid_product")
	ErrInvalidSupplier      = errors.New("invalid_supplier")
	ErrInvalidID            = errors.New("invalid_id")
	ErrNotFound             = errors.New("price_not_found")
	ErrDuplicateQuote       = errors.New("duplicate_quote")
	ErrSupplierKindMismatch = errors.New("supplier_kind_mismatch")
)
