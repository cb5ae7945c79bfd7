package errmap_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc/codes"

	"github.com/aelexs/timetuner/internal/domain"
	"github.com/aelexs/timetuner/internal/errmap"
)

func TestToHTTPError(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		wantStatusCode int
		wantCode       string
	}{
		{"nil error", nil, http.StatusOK, ""},

		{"ErrZoneNotManaged", domain.ErrZoneNotManaged, http.StatusNotFound, "ZONE_NOT_MANAGED"},
		{"ErrZoneAlreadyManaged", domain.ErrZoneAlreadyManaged, http.StatusConflict, "ZONE_ALREADY_MANAGED"},
		{"ErrZoneDisabled", domain.ErrZoneDisabled, http.StatusConflict, "ZONE_DISABLED"},

		{"ErrUnauthorized", domain.ErrUnauthorized, http.StatusUnauthorized, "UNAUTHENTICATED"},
		{"ErrForbidden", domain.ErrForbidden, http.StatusForbidden, "PERMISSION_DENIED"},

		{"ErrInvalidSpeed", domain.ErrInvalidSpeed, http.StatusBadRequest, "INVALID_SPEED"},
		{"ErrInvalidInput", domain.ErrInvalidInput, http.StatusBadRequest, "INVALID_ARGUMENT"},
		{"ErrEmptyID", domain.ErrEmptyID, http.StatusBadRequest, "INVALID_ARGUMENT"},
		{"ErrInvalidID", domain.ErrInvalidID, http.StatusBadRequest, "INVALID_ARGUMENT"},

		{"ErrReloadThrottled", domain.ErrReloadThrottled, http.StatusTooManyRequests, "RELOAD_THROTTLED"},
		{"ErrUnavailable", domain.ErrUnavailable, http.StatusServiceUnavailable, "UNAVAILABLE"},
		{"ErrConfigRequired", domain.ErrConfigRequired, http.StatusServiceUnavailable, "NOT_CONFIGURED"},

		{"wrapped ErrZoneNotManaged", fmt.Errorf("zone x: %w", domain.ErrZoneNotManaged), http.StatusNotFound, "ZONE_NOT_MANAGED"},
		{"unknown error", fmt.Errorf("boom"), http.StatusInternalServerError, "INTERNAL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := errmap.ToHTTPError(tt.err)
			assert.Equal(t, tt.wantStatusCode, got.StatusCode)
			assert.Equal(t, tt.wantCode, got.Code)
		})
	}
}

func TestToHTTPError_HidesInternalDetails(t *testing.T) {
	got := errmap.ToHTTPError(fmt.Errorf("redis: connection pool exhausted"))
	assert.Equal(t, "internal error", got.Message)
}

func TestHTTPErrorImplementsError(t *testing.T) {
	var err error = errmap.ToHTTPError(domain.ErrZoneNotManaged)
	assert.NotEmpty(t, err.Error())
}

// TestHTTPMappingMatchesGRPC verifies both transports classify every domain
// error the same way.
func TestHTTPMappingMatchesGRPC(t *testing.T) {
	grpcToHTTP := map[codes.Code]int{
		codes.InvalidArgument:    http.StatusBadRequest,
		codes.Unauthenticated:    http.StatusUnauthorized,
		codes.PermissionDenied:   http.StatusForbidden,
		codes.NotFound:           http.StatusNotFound,
		codes.AlreadyExists:      http.StatusConflict,
		codes.FailedPrecondition: -1, // no single HTTP equivalent
		codes.ResourceExhausted:  http.StatusTooManyRequests,
		codes.Unavailable:        http.StatusServiceUnavailable,
	}

	for _, err := range allDomainErrors {
		t.Run(err.Error(), func(t *testing.T) {
			code := errmap.ToGRPCStatus(err).Code()
			want, ok := grpcToHTTP[code]
			assert.True(t, ok, "unexpected gRPC code %v", code)
			if want > 0 {
				assert.Equal(t, want, errmap.ToHTTPStatusCode(err))
			}
			assert.NotEqual(t, http.StatusInternalServerError, errmap.ToHTTPStatusCode(err))
		})
	}
}
