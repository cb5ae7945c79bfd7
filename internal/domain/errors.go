package domain

import "errors"

// Sentinel errors for domain error conditions.
// Use errors.Is() for matching - never compare error strings.
var (
	// ID validation errors
	ErrEmptyID   = errors.New("ID cannot be empty")
	ErrInvalidID = errors.New("invalid ID format")

	// Zone registry errors
	ErrZoneNotManaged     = errors.New("zone is not managed")
	ErrZoneAlreadyManaged = errors.New("zone is already managed")
	ErrZoneDisabled       = errors.New("zone is disabled by configuration")

	// Operator errors
	ErrUnauthorized = errors.New("authentication required")
	ErrForbidden    = errors.New("permission denied")

	// Validation errors
	ErrInvalidInput = errors.New("invalid input")
	ErrInvalidSpeed = errors.New("speed must be a finite, non-negative number")

	// Operational errors
	ErrUnavailable     = errors.New("service temporarily unavailable")
	ErrReloadThrottled = errors.New("configuration reload requested too soon")

	// Configuration errors
	ErrConfigRequired = errors.New("required configuration key missing")
)

// IsRetryable returns true if the error represents a transient condition
// that may succeed on retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrUnavailable) ||
		errors.Is(err, ErrReloadThrottled)
}

// clientErrors enumerates all domain errors that represent caller-side issues.
var clientErrors = []error{
	ErrEmptyID,
	ErrInvalidID,
	ErrZoneNotManaged,
	ErrZoneAlreadyManaged,
	ErrZoneDisabled,
	ErrUnauthorized,
	ErrForbidden,
	ErrInvalidInput,
	ErrInvalidSpeed,
}

// IsClientError returns true if the error represents a caller-side issue
// that will not succeed on retry without changes to the request.
func IsClientError(err error) bool {
	for _, target := range clientErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// IsPermissionDenied returns true if the error represents a permission issue.
func IsPermissionDenied(err error) bool {
	return errors.Is(err, ErrForbidden) ||
		errors.Is(err, ErrUnauthorized)
}

// IsNotManaged returns true if the error reports an unknown zone.
func IsNotManaged(err error) bool {
	return errors.Is(err, ErrZoneNotManaged)
}
