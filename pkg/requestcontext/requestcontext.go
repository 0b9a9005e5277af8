// Package requestcontext carries request-scoped values: the request time and
// client metadata. All operations within a single request observe the same
// "now" timestamp, which keeps limiter windows, token lifetimes, and audit
// logs consistent and makes time injectable in tests.
package requestcontext

import (
	"context"
	"time"
)

type contextKeyTime struct{}
type contextKeyClientMeta struct{}

type clientMetadata struct {
	ip        string
	userAgent string
}

// Now retrieves the request-scoped time from context.
// Falls back to time.Now() if not set (for non-HTTP contexts like workers, CLI, tests).
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(contextKeyTime{}).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime injects a specific time into a context.
// Useful for:
//   - Service unit tests that don't run the full HTTP middleware chain
//   - Workers that need consistent time within a batch operation
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, contextKeyTime{}, t)
}

// WithClientMetadata stores the resolved client IP and User-Agent.
func WithClientMetadata(ctx context.Context, ip, userAgent string) context.Context {
	return context.WithValue(ctx, contextKeyClientMeta{}, clientMetadata{ip: ip, userAgent: userAgent})
}

// ClientIP returns the resolved client IP, or "" if the metadata middleware
// did not run. Callers treat the value as an opaque identity key.
func ClientIP(ctx context.Context) string {
	if m, ok := ctx.Value(contextKeyClientMeta{}).(clientMetadata); ok {
		return m.ip
	}
	return ""
}

// UserAgent returns the raw User-Agent header, or "" if unset.
func UserAgent(ctx context.Context) string {
	if m, ok := ctx.Value(contextKeyClientMeta{}).(clientMetadata); ok {
		return m.userAgent
	}
	return ""
}
