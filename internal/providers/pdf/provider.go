package pdf

import (
	"context"
	"io"
	"time"
)

type Provider interface {
	GenerateComparison(ctx context.Context, sheet ComparisonSheet) (io.Reader, error)
}

// ComparisonSheet is the print form of a supplier price comparison.
type ComparisonSheet struct {
	Title       string
	Kind        string
	GeneratedAt time.Time
	Items       []ComparisonItem
}

type ComparisonItem struct {
	Name         string
	Organization string
	Quantity     int
	Unit         string
	Quotes       []ComparisonQuote
}

type ComparisonQuote struct {
	Supplier     string
	Price        string
	Manufacturer string
	Updated      time.Time
}

type NoOpProvider struct{}

func (p *NoOpProvider) GenerateComparison(ctx context.Context, sheet ComparisonSheet) (io.Reader, error) {
	return nil, nil
}
