package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/procura/internal/supplier/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type tokenRepo struct{}

func ProvideTokens() domain.TokenRepository {
	return &tokenRepo{}
}

func (r *tokenRepo) InsertIfAbsent(ctx context.Context, db *gorm.DB, token *domain.SupplierToken) (bool, error) {
	result := db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "supplier_id"}},
			DoNothing: true,
		}).
		Create(token)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *tokenRepo) FindBySupplier(ctx context.Context, db *gorm.DB, supplierID snowflake.ID) (*domain.SupplierToken, error) {
	return r.findOne(db.WithContext(ctx).Where("supplier_id = ?", supplierID))
}

func (r *tokenRepo) FindByToken(ctx context.Context, db *gorm.DB, token string) (*domain.SupplierToken, error) {
	return r.findOne(db.WithContext(ctx).Where("token = ?", token))
}

func (r *tokenRepo) Swap(ctx context.Context, db *gorm.DB, supplierID snowflake.ID, previous string, next *domain.SupplierToken) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE supplier_tokens SET token = ?, created_at = ? WHERE supplier_id = ? AND token = ?`,
		next.Token,
		next.CreatedAt,
		supplierID,
		previous,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *tokenRepo) Replace(ctx context.Context, db *gorm.DB, next *domain.SupplierToken) error {
	return db.WithContext(ctx).Exec(
		`UPDATE supplier_tokens SET token = ?, created_at = ? WHERE supplier_id = ?`,
		next.Token,
		next.CreatedAt,
		next.SupplierID,
	).Error
}

func (r *tokenRepo) findOne(stmt *gorm.DB) (*domain.SupplierToken, error) {
	var token domain.SupplierToken
	if err := stmt.Take(&token).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &token, nil
}
