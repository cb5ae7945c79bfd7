package port

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/aelexs/timetuner/internal/domain"
	"github.com/aelexs/timetuner/internal/errmap"
	"github.com/aelexs/timetuner/internal/messages"
	"github.com/aelexs/timetuner/internal/observability"
	"github.com/aelexs/timetuner/pkg/protocol"
)

const maxBodyBytes = 64 << 10

// errorMessages maps errmap codes to localized message ids.
var errorMessages = map[string]string{
	"ZONE_NOT_MANAGED":  messages.ErrNotManaged,
	"UNAUTHENTICATED":   messages.ErrUnauthorized,
	"PERMISSION_DENIED": messages.ErrForbidden,
	"RELOAD_THROTTLED":  messages.ErrThrottled,
	"INVALID_SPEED":     messages.ErrInvalid,
	"INVALID_ARGUMENT":  messages.ErrInvalid,
	"ZONE_DISABLED":     messages.ErrInvalid,
}

func (h *Handler) localize(r *http.Request, id string, data map[string]any) string {
	if h.catalog == nil {
		return id
	}
	return h.catalog.Localize(id, data, r.Header.Get("Accept-Language"))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	he := errmap.ToHTTPError(err)
	id, ok := errorMessages[he.Code]
	if !ok {
		id = messages.ErrInternal
	}

	resp := protocol.ErrorResponse{Code: he.Code, Message: h.localize(r, id, nil)}
	if he.StatusCode < http.StatusInternalServerError {
		resp.Detail = he.Message
	} else {
		observability.WithTraceID(r.Context(), h.logger).ErrorContext(r.Context(), "admin request failed",
			"route", r.Pattern, "error", err)
	}
	writeJSON(w, he.StatusCode, resp)
}

// decode reads a JSON body into v, rejecting unknown fields and trailing data.
func decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: decode body: %v", domain.ErrInvalidInput, err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: trailing data after body", domain.ErrInvalidInput)
	}
	return nil
}
