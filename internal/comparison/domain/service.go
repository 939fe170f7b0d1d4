package domain

import (
	"context"
	"io"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/procura/internal/authorization"
	productdomain "github.com/smallbiznis/procura/internal/product/domain"
	"github.com/smallbiznis/procura/pkg/db/pagination"
)

// Service projects visible items together with their supplier quotes.
type Service interface {
	List(ctx context.Context, actor authorization.Actor, kind string, req ListRequest) (ListResponse, error)
	ExportPDF(ctx context.Context, actor authorization.Actor, kind string) (io.Reader, error)
}

type ListRequest struct {
	pagination.Pagination
}

type Item struct {
	ID                  string             `json:"id"`
	Kind                productdomain.Kind `json:"kind"`
	OrganizationID      string             `json:"organization_id"`
	OrganizationName    string             `json:"organization_name"`
	Name                string             `json:"name"`
	Quantity            int                `json:"quantity"`
	Unit                string             `json:"unit"`
	Type                *string            `json:"type,omitempty"`
	ExciseStampRequired *bool              `json:"excise_stamp_required,omitempty"`
	LastUpdated         time.Time          `json:"last_updated"`
	Prices              []Quote            `json:"prices"`
}

type Quote struct {
	ID           string           `json:"id"`
	Price        *decimal.Decimal `json:"price"`
	Manufacturer *string          `json:"manufacturer"`
	DateUpdated  time.Time        `json:"date_updated"`
	SupplierID   string           `json:"supplier_id"`
	SupplierName string           `json:"supplier_name"`
}

type ListResponse struct {
	pagination.PageInfo
	Items []Item `json:"items"`
}
