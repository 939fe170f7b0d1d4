package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/procura/internal/user/domain"
	"github.com/smallbiznis/procura/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Create(ctx context.Context, db *gorm.DB, user *domain.User) error {
	return db.WithContext(ctx).Create(user).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.User, error) {
	return first[domain.User](db.WithContext(ctx).Where("id = ?", id))
}

func (r *repo) FindByUsername(ctx context.Context, db *gorm.DB, username string) (*domain.User, error) {
	return first[domain.User](db.WithContext(ctx).Where("username = ?", username))
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter, page pagination.Pagination) ([]*domain.User, error) {
	stmt := db.WithContext(ctx).Model(&domain.User{})
	if filter.Role != "" {
		stmt = stmt.Where("role = ?", filter.Role)
	}
	if filter.Username != "" {
		stmt = stmt.Where("username = ?", filter.Username)
	}
	if filter.IsActive != nil {
		stmt = stmt.Where("is_active = ?", *filter.IsActive)
	}

	stmt, err := pagination.Apply(stmt, "", page)
	if err != nil {
		return nil, err
	}

	var items []*domain.User
	if err := stmt.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) UpdateFields(ctx context.Context, db *gorm.DB, id snowflake.ID, fields map[string]any) error {
	result := db.WithContext(ctx).Model(&domain.User{}).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repo) CreateProfile(ctx context.Context, db *gorm.DB, profile *domain.PurchaserProfile) error {
	return db.WithContext(ctx).Create(profile).Error
}

func (r *repo) FindProfile(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.PurchaserProfile, error) {
	return first[domain.PurchaserProfile](db.WithContext(ctx).Where("id = ?", id))
}

func (r *repo) FindProfileByUser(ctx context.Context, db *gorm.DB, userID snowflake.ID) (*domain.PurchaserProfile, error) {
	return first[domain.PurchaserProfile](db.WithContext(ctx).Where("user_id = ?", userID))
}

func (r *repo) ListProfiles(ctx context.Context, db *gorm.DB, page pagination.Pagination) ([]*domain.PurchaserProfile, error) {
	stmt, err := pagination.Apply(db.WithContext(ctx).Model(&domain.PurchaserProfile{}), "", page)
	if err != nil {
		return nil, err
	}

	var items []*domain.PurchaserProfile
	if err := stmt.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) UpdateProfileScope(ctx context.Context, db *gorm.DB, profile *domain.PurchaserProfile) error {
	return db.WithContext(ctx).Exec(
		`UPDATE purchaser_profiles SET organization_ids = ?, city_ids = ?, updated_at = ? WHERE id = ?`,
		profile.OrganizationIDs,
		profile.CityIDs,
		profile.UpdatedAt,
		profile.ID,
	).Error
}

func (r *repo) DeleteProfileByUser(ctx context.Context, db *gorm.DB, userID snowflake.ID) error {
	return db.WithContext(ctx).Where("user_id = ?", userID).Delete(&domain.PurchaserProfile{}).Error
}

func first[T any](stmt *gorm.DB) (*T, error) {
	var item T
	if err := stmt.First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}
