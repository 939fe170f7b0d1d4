package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/procura/internal/authorization"
	"github.com/smallbiznis/procura/internal/price/domain"
	productdomain "github.com/smallbiznis/procura/internal/product/domain"
	"github.com/smallbiznis/procura/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, kind productdomain.Kind, quote *domain.Quote) error {
	db = db.WithContext(ctx)
	if kind == productdomain.KindAlcohol {
		return db.Create(&domain.PriceAlcohol{
			ID:           quote.ID,
			AlcoholID:    quote.ItemID,
			SupplierID:   quote.SupplierID,
			Price:        quote.Price,
			Manufacturer: quote.Manufacturer,
			DateAdded:    quote.DateAdded,
			DateUpdated:  quote.DateUpdated,
		}).Error
	}
	return db.Create(&domain.Price{
		ID:           quote.ID,
		ProductID:    quote.ItemID,
		SupplierID:   quote.SupplierID,
		Price:        quote.Price,
		Manufacturer: quote.Manufacturer,
		DateAdded:    quote.DateAdded,
		DateUpdated:  quote.DateUpdated,
	}).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, kind productdomain.Kind, id snowflake.ID) (*domain.Quote, error) {
	var quote domain.Quote
	err := selectQuotes(db.WithContext(ctx), kind).Where("q.id = ?", id).Take(&quote).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &quote, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, kind productdomain.Kind, visible authorization.Visibility, filter domain.ListFilter, page pagination.Pagination) ([]*domain.Quote, error) {
	stmt := selectQuotes(db.WithContext(ctx), kind).Scopes(visible.Scope("i.organization_id"))
	if filter.ItemID != 0 {
		stmt = stmt.Where("q."+kind.ItemColumn()+" = ?", filter.ItemID)
	}
	if filter.SupplierID != 0 {
		stmt = stmt.Where("q.supplier_id = ?", filter.SupplierID)
	}

	stmt, err := pagination.ApplyBy(stmt, "q", "date_added", page)
	if err != nil {
		return nil, err
	}

	var quotes []*domain.Quote
	if err := stmt.Find(&quotes).Error; err != nil {
		return nil, err
	}
	return quotes, nil
}

func (r *repo) ListByItems(ctx context.Context, db *gorm.DB, kind productdomain.Kind, itemIDs []snowflake.ID) ([]*domain.Quote, error) {
	if len(itemIDs) == 0 {
		return nil, nil
	}
	var quotes []*domain.Quote
	err := selectQuotes(db.WithContext(ctx), kind).
		Where("q."+kind.ItemColumn()+" IN ?", itemIDs).
		Order("q.date_added desc").
		Order("q.id desc").
		Find(&quotes).Error
	if err != nil {
		return nil, err
	}
	return quotes, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, kind productdomain.Kind, quote *domain.Quote) error {
	result := db.WithContext(ctx).Table(kind.PriceTable()).Where("id = ?", quote.ID).Updates(map[string]any{
		"price":        quote.Price,
		"manufacturer": quote.Manufacturer,
		"date_updated": quote.DateUpdated,
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func selectQuotes(db *gorm.DB, kind productdomain.Kind) *gorm.DB {
	itemColumn := "q." + kind.ItemColumn()
	return db.Table(kind.PriceTable()+" AS q").
		Select(itemColumn+" AS item_id, q.id, q.supplier_id, s.name AS supplier_name, i.organization_id, q.price, q.manufacturer, q.date_added, q.date_updated").
		Joins("JOIN suppliers s ON s.id = q.supplier_id").
		Joins("JOIN " + kind.Table() + " i ON i.id = " + itemColumn)
}
