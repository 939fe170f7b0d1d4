package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/procura/internal/authorization"
	"github.com/smallbiznis/procura/internal/supplier/domain"
	"github.com/smallbiznis/procura/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Create(ctx context.Context, db *gorm.DB, supplier *domain.Supplier) error {
	return db.WithContext(ctx).Create(supplier).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Supplier, error) {
	var supplier domain.Supplier
	if err := db.WithContext(ctx).Where("id = ?", id).Take(&supplier).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &supplier, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, visible authorization.Visibility, filter domain.ListFilter, page pagination.Pagination) ([]*domain.Supplier, error) {
	stmt := db.WithContext(ctx).Model(&domain.Supplier{}).Scopes(visible.Scope("organization_id"))
	if filter.Name != "" {
		stmt = stmt.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(filter.Name)+"%")
	}
	if filter.Type != "" {
		stmt = stmt.Where("type = ?", filter.Type)
	}
	if filter.OrganizationID != 0 {
		stmt = stmt.Where("organization_id = ?", filter.OrganizationID)
	}
	if filter.CityID != 0 {
		stmt = stmt.Where("city_id = ?", filter.CityID)
	}

	stmt, err := pagination.Apply(stmt, "", page)
	if err != nil {
		return nil, err
	}

	var items []*domain.Supplier
	if err := stmt.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, supplier *domain.Supplier) error {
	result := db.WithContext(ctx).Model(&domain.Supplier{}).Where("id = ?", supplier.ID).Updates(map[string]any{
		"organization_id": supplier.OrganizationID,
		"name":            supplier.Name,
		"contact_info":    supplier.ContactInfo,
		"inn":             supplier.INN,
		"type":            supplier.Type,
		"city_id":         supplier.CityID,
		"updated_at":      supplier.UpdatedAt,
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("supplier_id = ?", id).Delete(&domain.SupplierToken{}).Error; err != nil {
			return err
		}
		result := tx.Where("id = ?", id).Delete(&domain.Supplier{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}
