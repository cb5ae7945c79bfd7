// Package adapter contains implementations of interfaces defined in app:
// the Redis snapshot store, the in-memory simulated host and the localized
// broadcast notifier.
package adapter

import "go.opentelemetry.io/otel"

var tracer = otel.Tracer("timetuner/adapter")
