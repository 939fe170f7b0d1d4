package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/procura/pkg/db/pagination"
	"gorm.io/gorm"
)

type Repository interface {
	Create(ctx context.Context, db *gorm.DB, user *User) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*User, error)
	FindByUsername(ctx context.Context, db *gorm.DB, username string) (*User, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter, page pagination.Pagination) ([]*User, error)
	UpdateFields(ctx context.Context, db *gorm.DB, id snowflake.ID, fields map[string]any) error

	CreateProfile(ctx context.Context, db *gorm.DB, profile *PurchaserProfile) error
	FindProfile(ctx context.Context, db *gorm.DB, id snowflake.ID) (*PurchaserProfile, error)
	FindProfileByUser(ctx context.Context, db *gorm.DB, userID snowflake.ID) (*PurchaserProfile, error)
	ListProfiles(ctx context.Context, db *gorm.DB, page pagination.Pagination) ([]*PurchaserProfile, error)
	UpdateProfileScope(ctx context.Context, db *gorm.DB, profile *PurchaserProfile) error
	DeleteProfileByUser(ctx context.Context, db *gorm.DB, userID snowflake.ID) error
}
