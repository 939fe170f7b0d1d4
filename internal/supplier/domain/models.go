// Package domain contains supplier and supplier token models.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Supplier is a price-quoting counterparty owned by an organization.
type Supplier struct {
	ID             snowflake.ID  `gorm:"primaryKey;autoIncrement:false"`
	OrganizationID snowflake.ID  `gorm:"column:organization_id;not null;index:ix_suppliers_organization"`
	Name           string        `gorm:"type:text;not null"`
	ContactInfo    string        `gorm:"column:contact_info;type:text;not null"`
	INN            string        `gorm:"column:inn;type:text;not null"`
	Type           string        `gorm:"type:text;not null"`
	CityID         *snowflake.ID `gorm:"column:city_id;index:ix_suppliers_city"`
	CreatedAt      time.Time     `gorm:"not null"`
	UpdatedAt      time.Time     `gorm:"not null"`
}

func (Supplier) TableName() string { return "suppliers" }

// SupplierToken is the bearer credential a supplier uses to submit quotes.
// A supplier holds at most one row.
type SupplierToken struct {
	ID         snowflake.ID `gorm:"primaryKey;autoIncrement:false"`
	SupplierID snowflake.ID `gorm:"column:supplier_id;not null;uniqueIndex:ux_supplier_tokens_supplier"`
	Token      string       `gorm:"type:text;not null;uniqueIndex:ux_supplier_tokens_token"`
	CreatedAt  time.Time    `gorm:"not null"`
}

func (SupplierToken) TableName() string { return "supplier_tokens" }

// ExpiresAt reports when the token stops being accepted.
func (t SupplierToken) ExpiresAt(ttl time.Duration) time.Time {
	return t.CreatedAt.Add(ttl)
}

// Live reports whether the token is still younger than ttl at now.
func (t SupplierToken) Live(now time.Time, ttl time.Duration) bool {
	return now.Before(t.ExpiresAt(ttl))
}

const (
	TypeProducts = "prod"
	TypeAlcohol  = "alco"
	TypeAll      = "all"
)

type ListFilter struct {
	Name           string
	Type           string
	OrganizationID snowflake.ID
	CityID         snowflake.ID
}
