package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Product is an orderable grocery-type item.
type Product struct {
	ID             snowflake.ID `json:"id" gorm:"primaryKey;autoIncrement:false"`
	OrganizationID snowflake.ID `json:"organization_id" gorm:"column:organization_id;not null;index:ix_products_organization"`
	Name           string       `json:"name" gorm:"type:text;not null"`
	Quantity       int          `json:"quantity" gorm:"not null"`
	Unit           string       `json:"unit" gorm:"type:text;not null"`
	Type           string       `json:"type" gorm:"type:text;not null"`
	LastUpdated    time.Time    `json:"last_updated" gorm:"column:last_updated;not null"`
	CreatedAt      time.Time    `json:"created_at" gorm:"not null"`
}

func (Product) TableName() string { return "products" }

// AlcoholProduct is a regulated item priced separately from groceries.
type AlcoholProduct struct {
	ID                  snowflake.ID `json:"id" gorm:"primaryKey;autoIncrement:false"`
	OrganizationID      snowflake.ID `json:"organization_id" gorm:"column:organization_id;not null;index:ix_alcohol_products_organization"`
	Name                string       `json:"name" gorm:"type:text;not null"`
	Quantity            int          `json:"quantity" gorm:"not null"`
	Unit                string       `json:"unit" gorm:"type:text;not null"`
	ExciseStampRequired bool         `json:"excise_stamp_required" gorm:"column:excise_stamp_required;not null"`
	LastUpdated         time.Time    `json:"last_updated" gorm:"column:last_updated;not null"`
	CreatedAt           time.Time    `json:"created_at" gorm:"not null"`
}

func (AlcoholProduct) TableName() string { return "alcohol_products" }

// Item is a row of either item table. Type is only set for products and
// ExciseStampRequired only for alcohol.
type Item struct {
	ID                  snowflake.ID `gorm:"primaryKey;autoIncrement:false"`
	OrganizationID      snowflake.ID `gorm:"column:organization_id"`
	Name                string
	Quantity            int
	Unit                string
	Type                *string `gorm:"column:type"`
	ExciseStampRequired *bool   `gorm:"column:excise_stamp_required"`
	LastUpdated         time.Time
	CreatedAt           time.Time
}

type ListFilter struct {
	Name           string
	Type           string
	OrganizationID snowflake.ID
}
