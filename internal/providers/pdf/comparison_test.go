package pdf

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateComparison(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	sheet := ComparisonSheet{
		Title:       "Supplier price comparison",
		Kind:        "product",
		GeneratedAt: now,
		Items: []ComparisonItem{
			{Name: "Milk", Organization: "North", Quantity: 10, Unit: "l", Quotes: []ComparisonQuote{
				{Supplier: "Farm", Price: "1.20", Manufacturer: "Dairy Co", Updated: now},
			}},
			{Name: "Butter", Organization: "North", Quantity: 2, Unit: "kg"},
		},
	}

	doc, err := New().GenerateComparison(context.Background(), sheet)
	require.NoError(t, err)

	raw, err := io.ReadAll(doc)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(raw, []byte("%PDF")))
}

func TestGenerateComparisonHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New().GenerateComparison(ctx, ComparisonSheet{})
	assert.ErrorIs(t, err, context.Canceled)
}
