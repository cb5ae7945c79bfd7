// Package observability sets up the three signals every timetuner process
// emits: slog logs with secret redaction, OpenTelemetry traces and
// OpenTelemetry metrics. Traces and metrics share one Service resource so a
// collector can join them.
package observability

import (
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

// Service identifies the emitting process.
type Service struct {
	Name        string
	Version     string
	Environment string
}

// resource builds the OTel resource without merging resource.Default(), whose
// schema URL can conflict with the semconv version used here.
func (s Service) resource() *resource.Resource {
	return resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(s.Name),
		semconv.ServiceVersion(s.Version),
		semconv.DeploymentEnvironment(s.Environment),
	)
}

// Exporter points a signal at an OTLP/gRPC collector. An empty Endpoint
// disables export.
type Exporter struct {
	Endpoint string
	Insecure bool
}

func (e Exporter) enabled() bool { return e.Endpoint != "" }
