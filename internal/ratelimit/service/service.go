// Package service implements the abuse-rate limiter: a bounded, per-identity
// fixed-window counter with blocking.
//
// Any internal fault while computing a decision fails OPEN: the caller gets a
// permissive decision with a full quota. A limiter that fails closed hands an
// attacker a denial-of-service lever, so this exception to "fail safe" is
// deliberate. Do not change it to fail-closed without re-deriving that
// argument.
package service

import (
	"context"
	"log/slog"
	"time"

	"gatekeeper/internal/ratelimit/metrics"
	"gatekeeper/internal/ratelimit/models"
	dErrors "gatekeeper/pkg/domain-errors"
	"gatekeeper/pkg/requestcontext"
)

// Store persists attempt records. Implementations must be safe for
// concurrent use; the service additionally serializes read-modify-write
// cycles so completed calls are each counted exactly once.
type Store interface {
	Get(ctx context.Context, identity string, now time.Time) (*models.AttemptRecord, error)
	Peek(ctx context.Context, identity string, now time.Time) (*models.AttemptRecord, error)
	Put(ctx context.Context, record *models.AttemptRecord) error
	Clear(ctx context.Context, identity string) error
	ClearAll(ctx context.Context) error
	Len(ctx context.Context) (int, error)
}

// Config holds the limiter policy. The reference policy is 5 attempts per
// 15 minute window with a 1 hour block.
type Config struct {
	MaxAttempts   int
	Window        time.Duration
	BlockDuration time.Duration
}

func (c Config) validate() error {
	if c.MaxAttempts <= 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "max attempts must be positive")
	}
	if c.Window <= 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "window duration must be positive")
	}
	if c.BlockDuration <= 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "block duration must be positive")
	}
	return nil
}

type Service struct {
	store   Store
	config  Config
	logger  *slog.Logger
	metrics *metrics.Metrics

	// mu serializes read-modify-write cycles across identities. The critical
	// section is O(1) and in-memory; it is never held across hashing or any
	// other slow call.
	mu chan struct{}
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// New constructs the limiter around an injected, explicitly owned store.
// There is no ambient state; independent instances can coexist in tests.
func New(store Store, cfg Config, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "attempt store is required")
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	svc := &Service{
		store:  store,
		config: cfg,
		logger: slog.Default(),
		mu:     make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// CheckAndRecord is the primary gate used before accepting an attempt-worthy
// action. It counts the attempt and decides in one step: a fresh identity is
// admitted with attempts=1, an elapsed window resets the counter, and an
// increment past the maximum starts a block.
func (s *Service) CheckAndRecord(ctx context.Context, identity string) (decision *models.Decision) {
	now := requestcontext.Now(ctx)
	defer s.recoverOpen(now, &decision)
	return s.recordAttempt(ctx, identity, now)
}

// RecordFailure counts a failed attempt for callers that already gated the
// action with Peek, so check-then-record flows count each failure exactly
// once. The mutation is shared with CheckAndRecord; the two paths cannot
// drift apart on when a block starts. The returned decision denies only when
// the identity is now inside an active block.
func (s *Service) RecordFailure(ctx context.Context, identity string) (decision *models.Decision) {
	now := requestcontext.Now(ctx)
	defer s.recoverOpen(now, &decision)
	return s.recordAttempt(ctx, identity, now)
}

func (s *Service) recordAttempt(ctx context.Context, identity string, now time.Time) *models.Decision {
	s.lock()
	defer s.unlock()

	record, err := s.store.Get(ctx, identity, now)
	if err != nil {
		return s.failOpen(now, err)
	}

	if record == nil {
		record, err = models.NewAttemptRecord(identity, now)
		if err != nil {
			return s.failOpen(now, err)
		}
		if err := s.store.Put(ctx, record); err != nil {
			return s.failOpen(now, err)
		}
		s.observeAttempt(ctx, false)
		return s.allowDecision(record)
	}

	if record.IsBlocked(now) {
		return s.denyDecision(*record.BlockedUntil, now)
	}

	if record.WindowExpired(now, s.config.Window) {
		record.Attempts = 1
		record.WindowStart = now
		record.BlockedUntil = nil
	} else {
		record.Attempts++
	}
	record.LastAttempt = now

	blocked := false
	if record.Attempts > s.config.MaxAttempts {
		blockedUntil := now.Add(s.config.BlockDuration)
		record.BlockedUntil = &blockedUntil
		blocked = true
	}

	if err := s.store.Put(ctx, record); err != nil {
		return s.failOpen(now, err)
	}
	s.observeAttempt(ctx, blocked)

	if blocked {
		s.logger.InfoContext(ctx, "identity blocked",
			"event", "rate_limit_block",
			"attempts", record.Attempts,
			"blocked_until", record.BlockedUntil,
		)
		return s.denyDecision(*record.BlockedUntil, now)
	}
	return s.allowDecision(record)
}

// Peek reports the decision CheckAndRecord would make, without mutating any
// state. Use it to test "would this be blocked" before a side-effecting
// action.
func (s *Service) Peek(ctx context.Context, identity string) (decision *models.Decision) {
	now := requestcontext.Now(ctx)
	defer s.recoverOpen(now, &decision)

	record, err := s.store.Peek(ctx, identity, now)
	if err != nil {
		return s.failOpen(now, err)
	}

	if record == nil {
		simulated := &models.AttemptRecord{Attempts: 1, WindowStart: now}
		return s.allowDecision(simulated)
	}

	// Block first: a block deadline is independent of the counting window
	// and must hold even after the window lapses.
	if record.IsBlocked(now) {
		return s.denyDecision(*record.BlockedUntil, now)
	}

	if record.WindowExpired(now, s.config.Window) {
		simulated := &models.AttemptRecord{Attempts: 1, WindowStart: now}
		return s.allowDecision(simulated)
	}

	if record.Attempts+1 > s.config.MaxAttempts {
		return s.denyDecision(now.Add(s.config.BlockDuration), now)
	}

	simulated := &models.AttemptRecord{Attempts: record.Attempts + 1, WindowStart: record.WindowStart}
	return s.allowDecision(simulated)
}

// Clear removes one identity's record. Clearing a never-seen identity is not
// an error.
func (s *Service) Clear(ctx context.Context, identity string) error {
	if err := s.store.Clear(ctx, identity); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to clear attempt record")
	}
	return nil
}

// ClearAll resets every tracked identity to a fresh state.
func (s *Service) ClearAll(ctx context.Context) error {
	if err := s.store.ClearAll(ctx); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to clear attempt records")
	}
	return nil
}

func (s *Service) lock()   { s.mu <- struct{}{} }
func (s *Service) unlock() { <-s.mu }

func (s *Service) allowDecision(record *models.AttemptRecord) *models.Decision {
	remaining := s.config.MaxAttempts - record.Attempts
	if remaining < 0 {
		remaining = 0
	}
	return &models.Decision{
		Allowed:   true,
		Limit:     s.config.MaxAttempts,
		Remaining: remaining,
		ResetAt:   record.WindowStart.Add(s.config.Window),
	}
}

func (s *Service) denyDecision(resetAt, now time.Time) *models.Decision {
	if s.metrics != nil {
		s.metrics.DeniedTotal.Inc()
	}
	return &models.Decision{
		Allowed:    false,
		Limit:      s.config.MaxAttempts,
		Remaining:  0,
		ResetAt:    resetAt,
		RetryAfter: retryAfterSeconds(resetAt, now),
	}
}

// failOpen converts an internal fault into the permissive decision.
func (s *Service) failOpen(now time.Time, cause any) *models.Decision {
	s.logger.Error("rate limiter fault, failing open", "error", cause)
	if s.metrics != nil {
		s.metrics.FailOpenTotal.Inc()
	}
	return &models.Decision{
		Allowed:   true,
		Limit:     s.config.MaxAttempts,
		Remaining: s.config.MaxAttempts,
		ResetAt:   now.Add(s.config.Window),
	}
}

// recoverOpen turns a panic inside decision computation into a fail-open
// decision instead of tearing down the request.
func (s *Service) recoverOpen(now time.Time, decision **models.Decision) {
	if r := recover(); r != nil {
		*decision = s.failOpen(now, r)
	}
}

func (s *Service) observeAttempt(ctx context.Context, blocked bool) {
	if s.metrics == nil {
		return
	}
	s.metrics.AttemptsRecordedTotal.Inc()
	if blocked {
		s.metrics.BlocksTotal.Inc()
	}
	if n, err := s.store.Len(ctx); err == nil {
		s.metrics.TrackedIdentities.Set(float64(n))
	}
}

func retryAfterSeconds(resetAt, now time.Time) int {
	seconds := int(resetAt.Sub(now).Seconds())
	if seconds < 1 {
		seconds = 1
	}
	return seconds
}
