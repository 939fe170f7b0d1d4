package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/procura/internal/authorization"
	"github.com/smallbiznis/procura/pkg/db/pagination"
	"gorm.io/gorm"
)

type Repository interface {
	Create(ctx context.Context, db *gorm.DB, kind Kind, item *Item) error
	FindByID(ctx context.Context, db *gorm.DB, kind Kind, id snowflake.ID) (*Item, error)
	List(ctx context.Context, db *gorm.DB, kind Kind, visible authorization.Visibility, filter ListFilter, page pagination.Pagination) ([]*Item, error)
	Update(ctx context.Context, db *gorm.DB, kind Kind, item *Item) error
	// Delete removes the item together with its quote history.
	Delete(ctx context.Context, db *gorm.DB, kind Kind, id snowflake.ID) error
}
