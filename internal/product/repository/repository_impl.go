package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/procura/internal/authorization"
	"github.com/smallbiznis/procura/internal/product/domain"
	"github.com/smallbiznis/procura/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Create(ctx context.Context, db *gorm.DB, kind domain.Kind, item *domain.Item) error {
	stmt := db.WithContext(ctx).Table(kind.Table())
	if kind == domain.KindAlcohol {
		stmt = stmt.Omit("type")
	} else {
		stmt = stmt.Omit("excise_stamp_required")
	}
	return stmt.Create(item).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, kind domain.Kind, id snowflake.ID) (*domain.Item, error) {
	var item domain.Item
	err := db.WithContext(ctx).Table(kind.Table()).Where("id = ?", id).Take(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, kind domain.Kind, visible authorization.Visibility, filter domain.ListFilter, page pagination.Pagination) ([]*domain.Item, error) {
	stmt := db.WithContext(ctx).Table(kind.Table()).Scopes(visible.Scope("organization_id"))
	if filter.Name != "" {
		stmt = stmt.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(filter.Name)+"%")
	}
	if filter.Type != "" && kind == domain.KindProduct {
		stmt = stmt.Where("type = ?", filter.Type)
	}
	if filter.OrganizationID != 0 {
		stmt = stmt.Where("organization_id = ?", filter.OrganizationID)
	}

	stmt, err := pagination.Apply(stmt, "", page)
	if err != nil {
		return nil, err
	}

	var items []*domain.Item
	if err := stmt.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, kind domain.Kind, item *domain.Item) error {
	fields := map[string]any{
		"organization_id": item.OrganizationID,
		"name":            item.Name,
		"quantity":        item.Quantity,
		"unit":            item.Unit,
		"last_updated":    item.LastUpdated,
	}
	if kind == domain.KindAlcohol && item.ExciseStampRequired != nil {
		fields["excise_stamp_required"] = *item.ExciseStampRequired
	}
	if kind == domain.KindProduct && item.Type != nil {
		fields["type"] = *item.Type
	}

	result := db.WithContext(ctx).Table(kind.Table()).Where("id = ?", item.ID).Updates(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, kind domain.Kind, id snowflake.ID) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(`DELETE FROM `+kind.PriceTable()+` WHERE `+kind.ItemColumn()+` = ?`, id).Error; err != nil {
			return err
		}
		result := tx.Exec(`DELETE FROM `+kind.Table()+` WHERE id = ?`, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}
