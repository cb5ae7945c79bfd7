// Package errmap provides wire protocol mappers for domain errors.
// Every domain error has explicit gRPC and HTTP mappings.
package errmap

import (
	"context"
	"errors"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/aelexs/timetuner/internal/domain"
)

// grpcMappings maps domain errors to gRPC status codes.
// Order matters: first match wins (via errors.Is).
//
// Mapping follows gRPC status codes reference:
// https://grpc.github.io/grpc/core/md_doc_statuscodes.html
var grpcMappings = []struct {
	err  error
	code codes.Code
}{
	// Registry errors
	{domain.ErrZoneNotManaged, codes.NotFound},
	{domain.ErrZoneAlreadyManaged, codes.AlreadyExists},
	{domain.ErrZoneDisabled, codes.FailedPrecondition},

	// Auth errors
	{domain.ErrUnauthorized, codes.Unauthenticated},
	{domain.ErrForbidden, codes.PermissionDenied},

	// Validation errors
	{domain.ErrInvalidSpeed, codes.InvalidArgument},
	{domain.ErrInvalidInput, codes.InvalidArgument},
	{domain.ErrEmptyID, codes.InvalidArgument},
	{domain.ErrInvalidID, codes.InvalidArgument},

	// Throttling
	{domain.ErrReloadThrottled, codes.ResourceExhausted},

	// Availability
	{domain.ErrUnavailable, codes.Unavailable},
	{domain.ErrConfigRequired, codes.FailedPrecondition},
}

// ToGRPCStatus converts a domain error to a gRPC status.
// The returned status can be sent directly to gRPC clients.
func ToGRPCStatus(err error) *status.Status {
	if err == nil {
		return status.New(codes.OK, "")
	}
	if st, ok := status.FromError(err); ok {
		return st
	}
	for _, m := range grpcMappings {
		if errors.Is(err, m.err) {
			return status.New(m.code, err.Error())
		}
	}
	// Never expose internal error details to clients
	return status.New(codes.Internal, "internal error")
}

// ToGRPCError converts a domain error to a gRPC error (implements error interface).
func ToGRPCError(err error) error {
	return ToGRPCStatus(err).Err()
}

// FromGRPCError extracts the gRPC status code from an error.
// Returns codes.Unknown if the error is not a gRPC status error.
func FromGRPCError(err error) codes.Code {
	if err == nil {
		return codes.OK
	}
	if st, ok := status.FromError(err); ok {
		return st.Code()
	}
	return codes.Unknown
}

// UnaryServerInterceptor converts domain errors returned by unary handlers
// into gRPC status errors.
func UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, _ *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		resp, err := handler(ctx, req)
		if err != nil {
			return resp, ToGRPCError(err)
		}
		return resp, nil
	}
}
