package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// City is a geographic scope referenced by suppliers and purchaser profiles.
type City struct {
	ID        snowflake.ID `json:"id" gorm:"primaryKey;autoIncrement:false"`
	Name      string       `json:"name" gorm:"type:text;not null;uniqueIndex:ux_cities_name"`
	CreatedAt time.Time    `json:"created_at" gorm:"not null"`
	UpdatedAt time.Time    `json:"updated_at" gorm:"not null"`
}

func (City) TableName() string { return "cities" }
