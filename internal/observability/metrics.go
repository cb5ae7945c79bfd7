package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// MetricsConfig configures InitMetrics.
type MetricsConfig struct {
	Service  Service
	Exporter Exporter
	// Interval between OTLP pushes. Zero uses the SDK default of one minute.
	Interval time.Duration
	// Reader is an extra metric reader, used by tests to collect in-process.
	Reader sdkmetric.Reader
}

// TickDurationBuckets are the histogram boundaries, in seconds, applied to
// every *_duration_seconds instrument. A driver tick is expected to finish
// well inside the 50ms host tick.
var TickDurationBuckets = []float64{0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1}

// MetricsProvider owns the global meter provider until Shutdown.
type MetricsProvider struct {
	provider *sdkmetric.MeterProvider
}

// InitMetrics installs a global meter provider. Instruments created in
// package init functions before this call are rebound by the otel global
// delegate.
func InitMetrics(ctx context.Context, cfg MetricsConfig) (*MetricsProvider, error) {
	opts := []sdkmetric.Option{
		sdkmetric.WithResource(cfg.Service.resource()),
		sdkmetric.WithView(sdkmetric.NewView(
			sdkmetric.Instrument{Name: "*_duration_seconds"},
			sdkmetric.Stream{Aggregation: sdkmetric.AggregationExplicitBucketHistogram{
				Boundaries: TickDurationBuckets,
			}},
		)),
	}
	if cfg.Reader != nil {
		opts = append(opts, sdkmetric.WithReader(cfg.Reader))
	}

	if cfg.Exporter.enabled() {
		exOpts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(cfg.Exporter.Endpoint)}
		if cfg.Exporter.Insecure {
			exOpts = append(exOpts, otlpmetricgrpc.WithInsecure())
		}
		exporter, err := otlpmetricgrpc.New(ctx, exOpts...)
		if err != nil {
			return nil, fmt.Errorf("create OTLP metric exporter: %w", err)
		}
		var readerOpts []sdkmetric.PeriodicReaderOption
		if cfg.Interval > 0 {
			readerOpts = append(readerOpts, sdkmetric.WithInterval(cfg.Interval))
		}
		opts = append(opts, sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)))
	}

	provider := sdkmetric.NewMeterProvider(opts...)
	otel.SetMeterProvider(provider)

	return &MetricsProvider{provider: provider}, nil
}

// Shutdown flushes pending exports.
func (mp *MetricsProvider) Shutdown(ctx context.Context) error {
	if mp.provider == nil {
		return nil
	}
	return mp.provider.Shutdown(ctx)
}
