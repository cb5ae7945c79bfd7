package errmap_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/aelexs/timetuner/internal/domain"
	"github.com/aelexs/timetuner/internal/errmap"
)

// allDomainErrors lists every sentinel from domain/errors.go.
var allDomainErrors = []error{
	domain.ErrEmptyID,
	domain.ErrInvalidID,
	domain.ErrZoneNotManaged,
	domain.ErrZoneAlreadyManaged,
	domain.ErrZoneDisabled,
	domain.ErrUnauthorized,
	domain.ErrForbidden,
	domain.ErrInvalidInput,
	domain.ErrInvalidSpeed,
	domain.ErrUnavailable,
	domain.ErrReloadThrottled,
	domain.ErrConfigRequired,
}

func TestToGRPCStatus(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode codes.Code
	}{
		{"nil error", nil, codes.OK},

		{"ErrZoneNotManaged", domain.ErrZoneNotManaged, codes.NotFound},
		{"ErrZoneAlreadyManaged", domain.ErrZoneAlreadyManaged, codes.AlreadyExists},
		{"ErrZoneDisabled", domain.ErrZoneDisabled, codes.FailedPrecondition},

		{"ErrUnauthorized", domain.ErrUnauthorized, codes.Unauthenticated},
		{"ErrForbidden", domain.ErrForbidden, codes.PermissionDenied},

		{"ErrInvalidInput", domain.ErrInvalidInput, codes.InvalidArgument},
		{"ErrInvalidSpeed", domain.ErrInvalidSpeed, codes.InvalidArgument},
		{"ErrEmptyID", domain.ErrEmptyID, codes.InvalidArgument},
		{"ErrInvalidID", domain.ErrInvalidID, codes.InvalidArgument},

		{"ErrReloadThrottled", domain.ErrReloadThrottled, codes.ResourceExhausted},
		{"ErrUnavailable", domain.ErrUnavailable, codes.Unavailable},

		// Wrapped errors (via %w) must map to correct codes
		{"wrapped ErrZoneNotManaged", fmt.Errorf("pause %s: %w", "abc", domain.ErrZoneNotManaged), codes.NotFound},
		{"wrapped ErrUnauthorized", fmt.Errorf("token expired: %w", domain.ErrUnauthorized), codes.Unauthenticated},

		// Existing status errors pass through
		{"status error", status.Error(codes.DeadlineExceeded, "slow"), codes.DeadlineExceeded},

		// Unknown errors map to Internal
		{"unknown error", fmt.Errorf("something unexpected"), codes.Internal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := errmap.ToGRPCStatus(tt.err)
			assert.Equal(t, tt.wantCode, got.Code(), "expected code %v, got %v", tt.wantCode, got.Code())
		})
	}
}

func TestToGRPCStatus_HidesInternalDetails(t *testing.T) {
	got := errmap.ToGRPCStatus(fmt.Errorf("dial tcp 10.0.0.1:6379: connection refused"))
	assert.Equal(t, "internal error", got.Message())
}

func TestFromGRPCError(t *testing.T) {
	t.Run("returns OK for nil", func(t *testing.T) {
		assert.Equal(t, codes.OK, errmap.FromGRPCError(nil))
	})

	t.Run("extracts code from gRPC error", func(t *testing.T) {
		grpcErr := errmap.ToGRPCError(domain.ErrZoneNotManaged)
		assert.Equal(t, codes.NotFound, errmap.FromGRPCError(grpcErr))
	})

	t.Run("returns Unknown for non-gRPC error", func(t *testing.T) {
		assert.Equal(t, codes.Unknown, errmap.FromGRPCError(fmt.Errorf("regular error")))
	})
}

func TestUnaryServerInterceptor(t *testing.T) {
	interceptor := errmap.UnaryServerInterceptor()
	info := &grpc.UnaryServerInfo{FullMethod: "/test.Service/Method"}

	t.Run("maps domain errors", func(t *testing.T) {
		_, err := interceptor(context.Background(), nil, info, func(context.Context, any) (any, error) {
			return nil, fmt.Errorf("status: %w", domain.ErrForbidden)
		})
		require.Error(t, err)
		assert.Equal(t, codes.PermissionDenied, errmap.FromGRPCError(err))
	})

	t.Run("passes responses through", func(t *testing.T) {
		resp, err := interceptor(context.Background(), nil, info, func(context.Context, any) (any, error) {
			return "ok", nil
		})
		require.NoError(t, err)
		assert.Equal(t, "ok", resp)
	})
}

// TestGRPCMappingCompleteness ensures every domain error has an explicit mapping.
// This test will fail if a new domain error is added without updating the mapper.
func TestGRPCMappingCompleteness(t *testing.T) {
	for _, err := range allDomainErrors {
		t.Run(err.Error(), func(t *testing.T) {
			assert.NotEqual(t, codes.Internal, errmap.ToGRPCStatus(err).Code(),
				"domain error %q should have explicit gRPC mapping, not Internal", err.Error())
		})
	}
}
