// Package service orchestrates registration, login, and profile lookup.
//
// Security posture, in one place:
//   - Login failures are indistinguishable: an unknown email and a wrong
//     password produce the same error, the same message, and the same
//     amount of password hashing work.
//   - The abuse limiter is consulted before any credential work, keyed by
//     client IP.
//   - Registration counts every attempt; login counts only failures.
package service

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"gatekeeper/internal/auth/device"
	"gatekeeper/internal/auth/metrics"
	"gatekeeper/internal/auth/models"
	"gatekeeper/internal/platform/tracer"
	ratelimit "gatekeeper/internal/ratelimit/models"
	"gatekeeper/pkg/requestcontext"
)

// Generic credential failure message. Both unknown-email and wrong-password
// paths must return exactly this string.
const msgInvalidCredentials = "Invalid email or password"

// UserStore defines the persistence interface for user data.
// Error Contract: Find methods return wrapped sentinel.ErrNotFound when the
// entity doesn't exist; Create returns wrapped sentinel.ErrConflict when the
// email is taken.
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
}

// RateLimiter gates attempt-worthy operations. Decisions are never errors;
// a limiter fault surfaces as an allowed decision (fail open).
type RateLimiter interface {
	CheckAndRecord(ctx context.Context, identity string) *ratelimit.Decision
	RecordFailure(ctx context.Context, identity string) *ratelimit.Decision
	Peek(ctx context.Context, identity string) *ratelimit.Decision
}

// TokenIssuer mints signed session tokens.
type TokenIssuer interface {
	Issue(ctx context.Context, subjectID, displayName, email string) (string, error)
}

// PasswordHasher hashes and verifies password secrets.
type PasswordHasher interface {
	Hash(secret string) (string, error)
	Verify(secret, encodedHash string) bool
	DummyHash() string
}

type Service struct {
	users   UserStore
	limiter RateLimiter
	tokens  TokenIssuer
	hasher  PasswordHasher
	devices *device.Service
	logger  *slog.Logger
	tracer  tracer.Tracer
	metrics *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithTracer(t tracer.Tracer) Option {
	return func(s *Service) {
		if t != nil {
			s.tracer = t
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithDeviceService(d *device.Service) Option {
	return func(s *Service) {
		s.devices = d
	}
}

func NewService(users UserStore, limiter RateLimiter, tokens TokenIssuer, hasher PasswordHasher, opts ...Option) *Service {
	svc := &Service{
		users:   users,
		limiter: limiter,
		tokens:  tokens,
		hasher:  hasher,
		tracer:  tracer.NewNoop(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	if svc.logger == nil {
		svc.logger = slog.Default()
	}
	return svc
}

// identity returns the limiter key for this request. Requests that bypass
// the metadata middleware share one bucket rather than escaping limiting.
func (s *Service) identity(ctx context.Context) string {
	if ip := requestcontext.ClientIP(ctx); ip != "" {
		return ip
	}
	return "unknown"
}

func (s *Service) deviceName(ctx context.Context) string {
	if s.devices == nil {
		return ""
	}
	return device.DisplayName(requestcontext.UserAgent(ctx))
}

// deviceFingerprint returns the stable device hash for audit logs, or ""
// when device tracking is not configured.
func (s *Service) deviceFingerprint(ctx context.Context) string {
	if s.devices == nil {
		return ""
	}
	return s.devices.Fingerprint(requestcontext.UserAgent(ctx))
}

