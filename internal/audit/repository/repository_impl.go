package repository

import (
	"context"
	"strings"

	"github.com/smallbiznis/procura/internal/audit/domain"
	"github.com/smallbiznis/procura/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, entry *domain.AuditLog) error {
	if entry == nil {
		return nil
	}
	return db.WithContext(ctx).Create(entry).Error
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter, page pagination.Pagination) ([]*domain.AuditLog, error) {
	stmt := db.WithContext(ctx).Model(&domain.AuditLog{}).Scopes(matching(filter))

	stmt, err := pagination.Apply(stmt, "", page)
	if err != nil {
		return nil, err
	}

	var logs []*domain.AuditLog
	if err := stmt.Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}

// matching narrows the trail to entries equal on every non-empty filter field.
func matching(filter domain.ListFilter) func(*gorm.DB) *gorm.DB {
	return func(stmt *gorm.DB) *gorm.DB {
		if filter.OrganizationID != nil {
			stmt = stmt.Where("org_id = ?", filter.OrganizationID.Int64())
		}
		for _, eq := range [][2]string{
			{"actor_id", filter.ActorID},
			{"actor_type", filter.ActorType},
			{"action", filter.Action},
			{"target_type", filter.TargetType},
			{"target_id", filter.TargetID},
		} {
			if value := strings.TrimSpace(eq[1]); value != "" {
				stmt = stmt.Where(eq[0]+" = ?", value)
			}
		}
		if filter.StartAt != nil {
			stmt = stmt.Where("created_at >= ?", filter.StartAt.UTC())
		}
		if filter.EndAt != nil {
			stmt = stmt.Where("created_at <= ?", filter.EndAt.UTC())
		}
		return stmt
	}
}
