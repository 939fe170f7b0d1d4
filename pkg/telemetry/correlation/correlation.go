package correlation

import (
	"context"
	"strings"
	"unicode"

	"github.com/oklog/ulid/v2"
)

// Header carries a caller supplied correlation id.
const Header = "X-Correlation-Id"

const maxIDLength = 128

type correlationKey struct{}

// ExtractCorrelationID returns the id stored on ctx, or "".
func ExtractCorrelationID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if val, ok := ctx.Value(correlationKey{}).(string); ok {
		return val
	}
	return ""
}

func ContextWithCorrelationID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, correlationKey{}, id)
}

// FromHeader accepts a caller id only when it is short printable ASCII, since
// it ends up in logs and audit metadata.
func FromHeader(raw string) string {
	id := strings.TrimSpace(raw)
	if id == "" || len(id) > maxIDLength {
		return ""
	}
	for _, r := range id {
		if r > unicode.MaxASCII || !unicode.IsPrint(r) || unicode.IsSpace(r) {
			return ""
		}
	}
	return id
}

// EnsureCorrelationID keeps the id on ctx or mints a ULID.
func EnsureCorrelationID(ctx context.Context) (context.Context, string) {
	cid := ExtractCorrelationID(ctx)
	if cid == "" {
		cid = ulid.Make().String()
	}
	return ContextWithCorrelationID(ctx, cid), cid
}
