package observability

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

// LogConfig configures InitLogger.
type LogConfig struct {
	Level   string // debug, info, warn or error; anything else means info
	Format  string // json or text
	Service Service
	// Output defaults to os.Stdout.
	Output io.Writer
}

// sensitivePatterns are matched case-insensitively as substrings of
// attribute keys.
var sensitivePatterns = []string{
	"_key",
	"_credential",
	"authorization",
	"bearer",
	"apikey",
	"secret",
	"password",
	"token",
	"private",
}

const redacted = "[REDACTED]"

// InitLogger builds the process logger and installs it as slog's default.
// Every record carries the service name and environment.
func InitLogger(cfg LogConfig) *slog.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}

	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "text") {
		opts.ReplaceAttr = redactSecrets
		handler = slog.NewTextHandler(out, opts)
	} else {
		handler = NewRedactingHandler(out, opts)
	}

	logger := slog.New(handler).With(
		slog.String("service", cfg.Service.Name),
		slog.String("environment", cfg.Service.Environment),
	)
	slog.SetDefault(logger)
	return logger
}

func parseLevel(s string) slog.Level {
	if strings.EqualFold(s, "warning") {
		return slog.LevelWarn
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// NewRedactingHandler returns a JSON handler that masks sensitive attribute
// values after any ReplaceAttr already set in opts.
func NewRedactingHandler(w io.Writer, opts *slog.HandlerOptions) slog.Handler {
	var o slog.HandlerOptions
	if opts != nil {
		o = *opts
	}
	inner := o.ReplaceAttr
	o.ReplaceAttr = func(groups []string, a slog.Attr) slog.Attr {
		if inner != nil {
			a = inner(groups, a)
		}
		return redactSecrets(groups, a)
	}
	return slog.NewJSONHandler(w, &o)
}

func redactSecrets(_ []string, a slog.Attr) slog.Attr {
	key := strings.ToLower(a.Key)
	for _, pattern := range sensitivePatterns {
		if strings.Contains(key, pattern) {
			return slog.String(a.Key, redacted)
		}
	}
	return a
}

// WithZone scopes a logger to one zone.
func WithZone(logger *slog.Logger, zoneID, zoneName string) *slog.Logger {
	return logger.With(slog.String("zone_id", zoneID), slog.String("zone", zoneName))
}

// WithTraceID adds the active trace ID, if any, to logger.
func WithTraceID(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if traceID := TraceIDFromContext(ctx); traceID != "" {
		return logger.With(slog.String("trace_id", traceID))
	}
	return logger
}
