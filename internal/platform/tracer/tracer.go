// Package tracer provides a lightweight tracing abstraction for the
// authentication pipeline.
//
// The interface does not depend on OpenTelemetry APIs directly, so services
// can emit spans without coupling handler and service code to a specific
// tracing implementation.
//
// Implementations:
//   - NoopTracer: for tests (zero overhead)
//   - OTelTracer: OpenTelemetry adapter for production
package tracer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Span represents an active trace span.
type Span interface {
	// End completes the span, recording any error that occurred.
	// If err is non-nil, the span is marked as failed.
	// End must be called exactly once, typically via defer.
	End(err error)

	// SetAttributes adds key-value pairs to the span.
	SetAttributes(attrs ...Attribute)

	// AddEvent records a timestamped event within the span.
	AddEvent(name string, attrs ...Attribute)
}

// Tracer creates spans for distributed tracing.
// Implementations must be safe for concurrent use.
type Tracer interface {
	// Start creates a new span with the given name and attributes.
	// The returned context contains the new span and should be passed to
	// child operations. The span must be ended by calling Span.End().
	Start(ctx context.Context, name string, attrs ...Attribute) (context.Context, Span)
}

// Attribute represents a key-value pair attached to spans.
type Attribute struct {
	Key   string
	Value any
}

// String creates a string attribute.
func String(key, value string) Attribute {
	return Attribute{Key: key, Value: value}
}

// Bool creates a boolean attribute.
func Bool(key string, value bool) Attribute {
	return Attribute{Key: key, Value: value}
}

// Int64 creates an int64 attribute.
func Int64(key string, value int64) Attribute {
	return Attribute{Key: key, Value: value}
}

// Duration creates a duration attribute in milliseconds.
func Duration(key string, value time.Duration) Attribute {
	return Attribute{Key: key, Value: value.Milliseconds()}
}

// HashIdentity returns a truncated SHA-256 hash of an identity string (an
// email address or client IP) for safe correlation in traces without
// exposing the identity itself.
func HashIdentity(identity string) string {
	if identity == "" {
		return ""
	}
	hash := sha256.Sum256([]byte(identity))
	return hex.EncodeToString(hash[:8])
}

// Span names used by the authentication pipeline.
const (
	SpanLogin         = "auth.login"
	SpanRegister      = "auth.register"
	SpanVerify        = "auth.verify_credentials"
	SpanTokenIssue    = "auth.token_issue"
	SpanRateLimit     = "auth.rate_limit"
	SpanPasswordCheck = "auth.password_check"
)

// Attribute keys used by the authentication pipeline.
const (
	AttrIdentity    = "auth.identity"
	AttrOutcome     = "auth.outcome"
	AttrRateLimited = "auth.rate_limited"
	AttrRemaining   = "ratelimit.remaining"
	AttrDevice      = "auth.device"
)

// Event names used by the authentication pipeline.
const (
	EventBlocked     = "ratelimit.blocked"
	EventTokenIssued = "token.issued"
)
