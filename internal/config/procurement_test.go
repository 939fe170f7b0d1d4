package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestProcurementHolderPageSize(t *testing.T) {
	holder := NewStaticProcurementHolder(DefaultProcurementConfig())

	assert.Equal(t, 20, holder.PageSize(0))
	assert.Equal(t, 5, holder.PageSize(5))
	assert.Equal(t, 250, holder.PageSize(10_000))
}

func TestValidateProcurementConfig(t *testing.T) {
	cfg := DefaultProcurementConfig()
	assert.NoError(t, validateProcurementConfig(cfg))

	cfg.SupplierTokenTTL = 0
	assert.Error(t, validateProcurementConfig(cfg))

	cfg = DefaultProcurementConfig()
	cfg.MaxPageSize = 1
	assert.Error(t, validateProcurementConfig(cfg))
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("AUTH_TOKEN_TTL", "90m")
	t.Setenv("TOKEN_RATE_LIMIT_BURST", "9")
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("OTEL_EXPORTER_OTLP_PROTOCOL", "HTTP")
	t.Setenv("OTEL_EXPORTER_OTLP_TRACES_PROTOCOL", "")

	cfg := Load()

	assert.Equal(t, 90*time.Minute, cfg.AuthTokenTTL)
	assert.Equal(t, 9, cfg.TokenRateLimit.Burst)
	assert.False(t, cfg.TokenRateLimit.Enabled)
	assert.Equal(t, "http", cfg.Telemetry.OTLPProtocol)
}
