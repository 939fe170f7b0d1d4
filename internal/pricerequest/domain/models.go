// Package domain holds the price request model and its lifecycle rules.
package domain

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusResponded Status = "responded"
	StatusCancelled Status = "cancelled"
)

func ParseStatus(raw string) (Status, error) {
	switch status := Status(strings.ToLower(strings.TrimSpace(raw))); status {
	case StatusPending, StatusResponded, StatusCancelled:
		return status, nil
	default:
		return "", ErrInvalidStatus
	}
}

// Terminal reports whether no further transition is allowed from s.
func (s Status) Terminal() bool {
	return s == StatusResponded || s == StatusCancelled
}

// PriceRequest asks a supplier to quote exactly one product or alcohol item.
// OrganizationID is the item's organization when the request was made.
type PriceRequest struct {
	ID             snowflake.ID  `gorm:"primaryKey;autoIncrement:false"`
	PurchaserID    snowflake.ID  `gorm:"column:purchaser_id;not null;index:ix_price_requests_purchaser"`
	SupplierID     snowflake.ID  `gorm:"column:supplier_id;not null;index:ix_price_requests_supplier"`
	ProductID      *snowflake.ID `gorm:"column:product_id;index:ix_price_requests_product"`
	AlcoholID      *snowflake.ID `gorm:"column:alcohol_id;index:ix_price_requests_alcohol"`
	OrganizationID snowflake.ID  `gorm:"column:organization_id;not null;index:ix_price_requests_organization"`
	Status         Status        `gorm:"type:text;not null;index:ix_price_requests_status"`
	Message        string        `gorm:"type:text;not null"`
	CreatedAt      time.Time     `gorm:"not null"`
	UpdatedAt      time.Time     `gorm:"not null"`
}

func (PriceRequest) TableName() string { return "price_requests" }

// View is a price request joined with the names shown to callers.
type View struct {
	PriceRequest
	PurchaserUsername string
	SupplierName      string
	ItemName          string
}

type ListFilter struct {
	PurchaserID snowflake.ID
	SupplierID  snowflake.ID
	Status      Status
}

// BulkFilter selects pending requests for a bulk transition. Zero fields do
// not filter.
type BulkFilter struct {
	IDs            []snowflake.ID
	PurchaserID    snowflake.ID
	SupplierID     snowflake.ID
	OrganizationID snowflake.ID
	CreatedBefore  *time.Time
}
