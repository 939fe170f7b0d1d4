// Package domain contains the user and purchaser profile models.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/lib/pq"
)

// User is an authenticated staff account.
type User struct {
	ID           snowflake.ID `gorm:"primaryKey;autoIncrement:false"`
	Username     string       `gorm:"type:text;not null;uniqueIndex:ux_users_username"`
	PasswordHash string       `gorm:"column:password_hash;type:text;not null"`
	Role         string       `gorm:"type:text;not null"`
	Phone        *string      `gorm:"type:text"`
	IsActive     bool         `gorm:"column:is_active;not null"`
	CreatedAt    time.Time    `gorm:"not null"`
	UpdatedAt    time.Time    `gorm:"not null"`
}

// TableName sets the database table name.
func (User) TableName() string { return "users" }

// PurchaserProfile scopes a non-admin user to a set of organizations and cities.
type PurchaserProfile struct {
	ID              snowflake.ID  `gorm:"primaryKey;autoIncrement:false"`
	UserID          snowflake.ID  `gorm:"column:user_id;not null;uniqueIndex:ux_purchaser_profiles_user"`
	OrganizationIDs pq.Int64Array `gorm:"column:organization_ids;type:bigint[];not null"`
	CityIDs         pq.Int64Array `gorm:"column:city_ids;type:bigint[];not null"`
	CreatedAt       time.Time     `gorm:"not null"`
	UpdatedAt       time.Time     `gorm:"not null"`
}

// TableName sets the database table name.
func (PurchaserProfile) TableName() string { return "purchaser_profiles" }

// ListFilter narrows user listings.
type ListFilter struct {
	Role     string
	IsActive *bool
	Username string
}
