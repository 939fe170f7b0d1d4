package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// Price is one quote a supplier gave for a grocery product. Quotes are
// append-only history; a new quote is a new row.
type Price struct {
	ID           snowflake.ID        `gorm:"primaryKey;autoIncrement:false"`
	ProductID    snowflake.ID        `gorm:"column:product_id;not null;uniqueIndex:ux_prices_product_supplier_added,priority:1"`
	SupplierID   snowflake.ID        `gorm:"column:supplier_id;not null;uniqueIndex:ux_prices_product_supplier_added,priority:2;index:ix_prices_supplier"`
	Price        decimal.NullDecimal `gorm:"type:numeric(10,2)"`
	Manufacturer *string             `gorm:"type:varchar(255)"`
	DateAdded    time.Time           `gorm:"column:date_added;not null;uniqueIndex:ux_prices_product_supplier_added,priority:3"`
	DateUpdated  time.Time           `gorm:"column:date_updated;not null"`
}

func (Price) TableName() string { return "prices" }

// PriceAlcohol is the alcohol counterpart of Price.
type PriceAlcohol struct {
	ID           snowflake.ID        `gorm:"primaryKey;autoIncrement:false"`
	AlcoholID    snowflake.ID        `gorm:"column:alcohol_id;not null;uniqueIndex:ux_price_alcohol_alcohol_supplier_added,priority:1"`
	SupplierID   snowflake.ID        `gorm:"column:supplier_id;not null;uniqueIndex:ux_price_alcohol_alcohol_supplier_added,priority:2;index:ix_price_alcohol_supplier"`
	Price        decimal.NullDecimal `gorm:"type:numeric(10,2)"`
	Manufacturer *string             `gorm:"type:varchar(255)"`
	DateAdded    time.Time           `gorm:"column:date_added;not null;uniqueIndex:ux_price_alcohol_alcohol_supplier_added,priority:3"`
	DateUpdated  time.Time           `gorm:"column:date_updated;not null"`
}

func (PriceAlcohol) TableName() string { return "price_alcohol" }

// Quote is a row of either quote table joined with its supplier and the
// owning organization of its item.
type Quote struct {
	ID             snowflake.ID
	ItemID         snowflake.ID
	SupplierID     snowflake.ID
	SupplierName   string
	OrganizationID snowflake.ID
	Price          decimal.NullDecimal
	Manufacturer   *string
	DateAdded      time.Time
	DateUpdated    time.Time
}

type ListFilter struct {
	ItemID     snowflake.ID
	SupplierID snowflake.ID
}
