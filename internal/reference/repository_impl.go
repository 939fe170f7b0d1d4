package reference

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/lib/pq"
	"github.com/smallbiznis/procura/internal/reference/domain"
	"gorm.io/gorm"
)

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) domain.Repository {
	return &repository{db: db}
}

func (r *repository) ListCities(ctx context.Context, name string) ([]domain.City, error) {
	stmt := r.db.WithContext(ctx).Model(&domain.City{})
	if name != "" {
		stmt = stmt.Where("LOWER(name) LIKE ?", "%"+name+"%")
	}

	var cities []domain.City
	if err := stmt.Order("name").Find(&cities).Error; err != nil {
		return nil, err
	}
	return cities, nil
}

func (r *repository) FindCity(ctx context.Context, id snowflake.ID) (*domain.City, error) {
	var city domain.City
	err := r.db.WithContext(ctx).
		Raw(`SELECT id, name, created_at, updated_at FROM cities WHERE id = ?`, id).
		Scan(&city).Error
	if err != nil {
		return nil, err
	}
	if city.ID == 0 {
		return nil, nil
	}
	return &city, nil
}

func (r *repository) CreateCity(ctx context.Context, city domain.City) error {
	return r.db.WithContext(ctx).Exec(
		`INSERT INTO cities (id, name, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		city.ID,
		city.Name,
		city.CreatedAt,
		city.UpdatedAt,
	).Error
}

func (r *repository) RenameCity(ctx context.Context, city domain.City) error {
	return r.db.WithContext(ctx).Exec(
		`UPDATE cities SET name = ?, updated_at = ? WHERE id = ?`,
		city.Name,
		city.UpdatedAt,
		city.ID,
	).Error
}

func (r *repository) DeleteCity(ctx context.Context, id snowflake.ID) (bool, error) {
	var deleted bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(`UPDATE suppliers SET city_id = NULL WHERE city_id = ?`, id).Error; err != nil {
			return err
		}
		if err := detachProfiles(tx, id); err != nil {
			return err
		}
		result := tx.Exec(`DELETE FROM cities WHERE id = ?`, id)
		if result.Error != nil {
			return result.Error
		}
		deleted = result.RowsAffected > 0
		return nil
	})
	return deleted, err
}

// detachProfiles drops the city from every purchaser profile scope.
func detachProfiles(tx *gorm.DB, cityID snowflake.ID) error {
	type row struct {
		ID      int64         `gorm:"column:id"`
		CityIDs pq.Int64Array `gorm:"column:city_ids"`
	}

	var rows []row
	if err := tx.Raw(`SELECT id, city_ids FROM purchaser_profiles`).Scan(&rows).Error; err != nil {
		return err
	}
	for _, item := range rows {
		kept := make(pq.Int64Array, 0, len(item.CityIDs))
		for _, id := range item.CityIDs {
			if id != cityID.Int64() {
				kept = append(kept, id)
			}
		}
		if len(kept) == len(item.CityIDs) {
			continue
		}
		if err := tx.Exec(`UPDATE purchaser_profiles SET city_ids = ? WHERE id = ?`, kept, item.ID).Error; err != nil {
			return err
		}
	}
	return nil
}
