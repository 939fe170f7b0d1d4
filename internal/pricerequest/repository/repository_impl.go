package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/procura/internal/pricerequest/domain"
	"github.com/smallbiznis/procura/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, request *domain.PriceRequest) error {
	return db.WithContext(ctx).Create(request).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.View, error) {
	var view domain.View
	err := selectViews(db.WithContext(ctx)).Where("pr.id = ?", id).Take(&view).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &view, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter, page pagination.Pagination) ([]*domain.View, error) {
	stmt := selectViews(db.WithContext(ctx))
	if filter.PurchaserID != 0 {
		stmt = stmt.Where("pr.purchaser_id = ?", filter.PurchaserID)
	}
	if filter.SupplierID != 0 {
		stmt = stmt.Where("pr.supplier_id = ?", filter.SupplierID)
	}
	if filter.Status != "" {
		stmt = stmt.Where("pr.status = ?", filter.Status)
	}

	stmt, err := pagination.Apply(stmt, "pr", page)
	if err != nil {
		return nil, err
	}

	var views []*domain.View
	if err := stmt.Find(&views).Error; err != nil {
		return nil, err
	}
	return views, nil
}

func (r *repo) UpdateFields(ctx context.Context, db *gorm.DB, id snowflake.ID, fields map[string]any) error {
	result := db.WithContext(ctx).Model(&domain.PriceRequest{}).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repo) Transition(ctx context.Context, db *gorm.DB, id snowflake.ID, from, to domain.Status, at time.Time) (bool, error) {
	result := db.WithContext(ctx).Model(&domain.PriceRequest{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]any{"status": to, "updated_at": at})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repo) TransitionMatching(ctx context.Context, db *gorm.DB, filter domain.BulkFilter, from, to domain.Status, at time.Time) (int64, error) {
	stmt := db.WithContext(ctx).Model(&domain.PriceRequest{}).Where("status = ?", from)
	if len(filter.IDs) > 0 {
		stmt = stmt.Where("id IN ?", filter.IDs)
	}
	if filter.PurchaserID != 0 {
		stmt = stmt.Where("purchaser_id = ?", filter.PurchaserID)
	}
	if filter.SupplierID != 0 {
		stmt = stmt.Where("supplier_id = ?", filter.SupplierID)
	}
	if filter.OrganizationID != 0 {
		stmt = stmt.Where("organization_id = ?", filter.OrganizationID)
	}
	if filter.CreatedBefore != nil {
		stmt = stmt.Where("created_at < ?", *filter.CreatedBefore)
	}

	result := stmt.Updates(map[string]any{"status": to, "updated_at": at})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func (r *repo) RespondForQuote(ctx context.Context, db *gorm.DB, itemColumn string, itemID, supplierID snowflake.ID, at time.Time) (int64, error) {
	result := db.WithContext(ctx).Model(&domain.PriceRequest{}).
		Where("status = ? AND supplier_id = ? AND "+itemColumn+" = ?", domain.StatusPending, supplierID, itemID).
		Updates(map[string]any{"status": domain.StatusResponded, "updated_at": at})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func selectViews(db *gorm.DB) *gorm.DB {
	return db.Table("price_requests AS pr").
		Select(`pr.id, pr.purchaser_id, pr.supplier_id, pr.product_id, pr.alcohol_id, pr.organization_id,
			pr.status, pr.message, pr.created_at, pr.updated_at,
			COALESCE(u.username, '') AS purchaser_username, COALESCE(s.name, '') AS supplier_name,
			COALESCE(p.name, a.name, '') AS item_name`).
		Joins("LEFT JOIN users u ON u.id = pr.purchaser_id").
		Joins("LEFT JOIN suppliers s ON s.id = pr.supplier_id").
		Joins("LEFT JOIN products p ON p.id = pr.product_id").
		Joins("LEFT JOIN alcohol_products a ON a.id = pr.alcohol_id")
}
