package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/procura/pkg/db/pagination"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, request *PriceRequest) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*View, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter, page pagination.Pagination) ([]*View, error)
	UpdateFields(ctx context.Context, db *gorm.DB, id snowflake.ID, fields map[string]any) error
	// Transition moves one request from -> to and reports whether it did.
	// Zero rows means the request was no longer in from.
	Transition(ctx context.Context, db *gorm.DB, id snowflake.ID, from, to Status, at time.Time) (bool, error)
	// TransitionMatching moves every request in from that matches filter and
	// returns the count.
	TransitionMatching(ctx context.Context, db *gorm.DB, filter BulkFilter, from, to Status, at time.Time) (int64, error)
	// RespondForQuote marks pending requests for the supplier and item as
	// responded.
	RespondForQuote(ctx context.Context, db *gorm.DB, itemColumn string, itemID, supplierID snowflake.ID, at time.Time) (int64, error)
}
