package tracing

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/attribute"
)

func TestSafeAttributesDropsSensitiveKeys(t *testing.T) {
	attrs := SafeAttributes(
		attribute.String("http.route", "/suppliers/:id/token"),
		attribute.String("supplier_token", "secret-value"),
		attribute.String("user.password", "hunter2"),
	)

	assert.Len(t, attrs, 1)
	assert.Equal(t, attribute.Key("http.route"), attrs[0].Key)
}

func TestSafeAttributesTruncates(t *testing.T) {
	attrs := SafeAttributes(attribute.String("note", strings.Repeat("x", 1000)))

	assert.Len(t, attrs[0].Value.AsString(), maxAttributeLength)
}
