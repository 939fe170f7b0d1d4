package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/procura/internal/authorization"
	productdomain "github.com/smallbiznis/procura/internal/product/domain"
	"github.com/smallbiznis/procura/pkg/db/pagination"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, kind productdomain.Kind, quote *Quote) error
	FindByID(ctx context.Context, db *gorm.DB, kind productdomain.Kind, id snowflake.ID) (*Quote, error)
	List(ctx context.Context, db *gorm.DB, kind productdomain.Kind, visible authorization.Visibility, filter ListFilter, page pagination.Pagination) ([]*Quote, error)
	// ListByItems returns every quote of the given items, newest first.
	ListByItems(ctx context.Context, db *gorm.DB, kind productdomain.Kind, itemIDs []snowflake.ID) ([]*Quote, error)
	Update(ctx context.Context, db *gorm.DB, kind productdomain.Kind, quote *Quote) error
}
