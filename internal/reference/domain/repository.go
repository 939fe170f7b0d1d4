package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

type Repository interface {
	ListCities(ctx context.Context, name string) ([]City, error)
	FindCity(ctx context.Context, id snowflake.ID) (*City, error)
	CreateCity(ctx context.Context, city City) error
	RenameCity(ctx context.Context, city City) error
	// DeleteCity detaches suppliers and purchaser profile scopes before removing the row.
	DeleteCity(ctx context.Context, id snowflake.ID) (bool, error)
}
