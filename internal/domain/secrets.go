package domain

import "log/slog"

const redacted = "[REDACTED]"

// SecretString holds a credential loaded from configuration (the Redis
// password, the operator token signing secret). It never prints or logs its
// value; call Expose at the single point where the value is consumed.
type SecretString string

// String returns a redacted placeholder.
func (s SecretString) String() string { return redacted }

// LogValue implements slog.LogValuer so structured logs never see the value,
// even when the logger's ReplaceAttr redaction is bypassed.
func (s SecretString) LogValue() slog.Value { return slog.StringValue(redacted) }

// Expose returns the underlying value.
func (s SecretString) Expose() string { return string(s) }

// Bytes returns the underlying value as a key for HMAC signing.
func (s SecretString) Bytes() []byte { return []byte(s) }

// IsEmpty reports whether no secret was configured.
func (s SecretString) IsEmpty() bool { return s == "" }

var _ slog.LogValuer = SecretString("")
