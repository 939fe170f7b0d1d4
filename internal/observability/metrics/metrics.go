package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Metrics exposes procurement instruments.
type Metrics struct {
	priceRequestTransitions metric.Int64Counter
	quotesRecorded          metric.Int64Counter
	supplierTokenIssued     metric.Int64Counter
	accessDenied            metric.Int64Counter
	rateLimitDenied         metric.Int64Counter
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(15*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				log.Info("shutting down meter provider")
				return provider.Shutdown(ctx)
			},
		})
	}

	log.Info("metrics initialized",
		zap.String("endpoint", cfg.ExporterEndpoint),
		zap.String("protocol", cfg.ExporterProtocol),
	)

	return provider, nil
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "procura"
	}
	meter := provider.Meter(name)

	transitions, err := meter.Int64Counter("procura_price_request_transitions_total")
	if err != nil {
		return nil, err
	}
	quotes, err := meter.Int64Counter("procura_quotes_recorded_total")
	if err != nil {
		return nil, err
	}
	tokens, err := meter.Int64Counter("procura_supplier_tokens_issued_total")
	if err != nil {
		return nil, err
	}
	denied, err := meter.Int64Counter("procura_access_denied_total")
	if err != nil {
		return nil, err
	}
	rateLimited, err := meter.Int64Counter("procura_rate_limit_denied_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		priceRequestTransitions: transitions,
		quotesRecorded:          quotes,
		supplierTokenIssued:     tokens,
		accessDenied:            denied,
		rateLimitDenied:         rateLimited,
	}, nil
}

// NewNoop returns instruments bound to a no-op provider.
func NewNoop() *Metrics {
	m, _ := New(Config{}, noop.NewMeterProvider())
	return m
}

// RecordPriceRequestTransition counts price request status changes.
func (m *Metrics) RecordPriceRequestTransition(ctx context.Context, from, to string, count int64) {
	if m == nil || count <= 0 {
		return
	}
	attrs := FilterAttributes(
		attribute.String("from_status", strings.TrimSpace(from)),
		attribute.String("to_status", strings.TrimSpace(to)),
	)
	m.priceRequestTransitions.Add(ctx, count, metric.WithAttributes(attrs...))
}

// RecordQuote counts recorded supplier quotes per item kind and channel.
func (m *Metrics) RecordQuote(ctx context.Context, itemKind, channel string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("item_kind", strings.TrimSpace(itemKind)),
		attribute.String("channel", strings.TrimSpace(channel)),
	)
	m.quotesRecorded.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordSupplierToken counts token issuance outcomes (reused, created, rotated, regenerated).
func (m *Metrics) RecordSupplierToken(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("outcome", strings.TrimSpace(outcome)))
	m.supplierTokenIssued.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (m *Metrics) RecordAccessDenied(ctx context.Context, role, object, action string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("role", strings.TrimSpace(role)),
		attribute.String("object", strings.TrimSpace(object)),
		attribute.String("action", strings.TrimSpace(action)),
	)
	m.accessDenied.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (m *Metrics) RecordRateLimitDenied(ctx context.Context, endpoint string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("endpoint", strings.TrimSpace(endpoint)))
	m.rateLimitDenied.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	protocol = strings.ToLower(strings.TrimSpace(protocol))
	switch protocol {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{otlpmetrichttp.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

var allowedLabelKeys = map[attribute.Key]struct{}{
	"from_status": {},
	"to_status":   {},
	"item_kind":   {},
	"channel":     {},
	"outcome":     {},
	"role":        {},
	"object":      {},
	"action":      {},
	"endpoint":    {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; !ok {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}
