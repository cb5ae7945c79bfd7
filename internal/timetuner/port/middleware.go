package port

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/aelexs/timetuner/internal/domain"
)

type operatorKey struct{}

// Operator returns the authenticated operator subject, or "" when
// authentication is disabled.
func Operator(ctx context.Context) string {
	sub, _ := ctx.Value(operatorKey{}).(string)
	return sub
}

// statusRecorder captures the response status for span attributes.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (h *Handler) traced(pattern string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), pattern,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(attribute.String("http.route", pattern)),
		)
		defer span.End()

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r.WithContext(ctx))

		span.SetAttributes(attribute.Int("http.status_code", rec.status))
		if rec.status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(rec.status))
		}
	})
}

// authorize requires a bearer token granting perm. With no validator
// configured every request is let through.
func (h *Handler) authorize(perm string, next http.HandlerFunc) http.HandlerFunc {
	if h.validator == nil {
		return next
	}
	return func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			h.writeError(w, r, fmt.Errorf("missing bearer token: %w", domain.ErrUnauthorized))
			return
		}
		claims, err := h.validator.Validate(token)
		if err != nil {
			if !errors.Is(err, domain.ErrUnauthorized) {
				err = fmt.Errorf("%w: %v", domain.ErrUnauthorized, err)
			}
			h.writeError(w, r, err)
			return
		}
		if !claims.Has(perm) {
			h.writeError(w, r, fmt.Errorf("%s lacks %s: %w", claims.Subject, perm, domain.ErrForbidden))
			return
		}
		ctx := context.WithValue(r.Context(), operatorKey{}, claims.Subject)
		next(w, r.WithContext(ctx))
	}
}

func bearerToken(r *http.Request) string {
	const prefix = "Bearer "
	v := r.Header.Get("Authorization")
	if len(v) < len(prefix) || !strings.EqualFold(v[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(v[len(prefix):])
}
