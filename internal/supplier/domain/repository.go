package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/procura/internal/authorization"
	"github.com/smallbiznis/procura/pkg/db/pagination"
	"gorm.io/gorm"
)

type Repository interface {
	Create(ctx context.Context, db *gorm.DB, supplier *Supplier) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Supplier, error)
	List(ctx context.Context, db *gorm.DB, visible authorization.Visibility, filter ListFilter, page pagination.Pagination) ([]*Supplier, error)
	Update(ctx context.Context, db *gorm.DB, supplier *Supplier) error
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error
}

type TokenRepository interface {
	// InsertIfAbsent stores token unless the supplier already holds one and
	// reports whether a row was written.
	InsertIfAbsent(ctx context.Context, db *gorm.DB, token *SupplierToken) (bool, error)
	FindBySupplier(ctx context.Context, db *gorm.DB, supplierID snowflake.ID) (*SupplierToken, error)
	FindByToken(ctx context.Context, db *gorm.DB, token string) (*SupplierToken, error)
	// Swap replaces the supplier's token only while it still equals previous.
	Swap(ctx context.Context, db *gorm.DB, supplierID snowflake.ID, previous string, next *SupplierToken) (bool, error)
	// Replace overwrites the supplier's token unconditionally.
	Replace(ctx context.Context, db *gorm.DB, next *SupplierToken) error
}
