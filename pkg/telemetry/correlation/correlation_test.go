package correlation

import (
	"context"
	"strings"
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureCorrelationIDKeepsExisting(t *testing.T) {
	ctx := ContextWithCorrelationID(context.Background(), "abc")
	ctx, cid := EnsureCorrelationID(ctx)

	assert.Equal(t, "abc", cid)
	assert.Equal(t, "abc", ExtractCorrelationID(ctx))
}

func TestEnsureCorrelationIDGeneratesULID(t *testing.T) {
	ctx, cid := EnsureCorrelationID(context.Background())

	_, err := ulid.Parse(cid)
	require.NoError(t, err)
	assert.Equal(t, cid, ExtractCorrelationID(ctx))
}

func TestFromHeader(t *testing.T) {
	assert.Equal(t, "req-42", FromHeader("  req-42 "))
	assert.Equal(t, "", FromHeader("has space"))
	assert.Equal(t, "", FromHeader("line\nbreak"))
	assert.Equal(t, "", FromHeader(strings.Repeat("a", maxIDLength+1)))
	assert.Equal(t, "", FromHeader("заказ"))
}
