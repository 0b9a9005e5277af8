package service

import (
	"context"
	"errors"
	"time"

	"gatekeeper/internal/auth/models"
	"gatekeeper/internal/platform/tracer"
	ratelimit "gatekeeper/internal/ratelimit/models"
	"gatekeeper/internal/sentinel"
	dErrors "gatekeeper/pkg/domain-errors"
)

// Login verifies credentials and returns a session token.
//
// The failure path is timing-uniform: when the email is unknown the password
// is still verified against a precomputed dummy hash, so both failure modes
// pay the same bcrypt cost. The check before credential work is a
// non-mutating peek; successful logins leave the counter untouched.
func (s *Service) Login(ctx context.Context, req *models.LoginRequest) (*models.AuthResult, error) {
	start := time.Now()
	identity := s.identity(ctx)

	ctx, span := s.tracer.Start(ctx, tracer.SpanLogin,
		tracer.String(tracer.AttrIdentity, tracer.HashIdentity(identity)),
	)
	var outcome error
	defer func() { span.End(outcome) }()

	decision := s.limiter.Peek(ctx, identity)
	if !decision.Allowed {
		// A denied attempt is still an attempt. Recording it lets the
		// attempt that crossed the limit start the block, whose deadline
		// outlives the counting window.
		if failDecision := s.limiter.RecordFailure(ctx, identity); !failDecision.Allowed {
			decision = failDecision
		}
		outcome = s.rateLimited(ctx, span, "login", identity, decision)
		return nil, outcome
	}

	req.Normalize()
	if err := req.Validate(); err != nil {
		outcome = err
		return nil, err
	}

	user, findErr := s.users.FindByEmail(ctx, req.Email)
	if findErr != nil && !errors.Is(findErr, sentinel.ErrNotFound) {
		outcome = dErrors.Wrap(findErr, dErrors.CodeInternal, "failed to load user")
		return nil, outcome
	}

	// Verify runs on every credential path. A lookup miss verifies against
	// the dummy hash and discards the result.
	var verified bool
	if user == nil {
		s.hasher.Verify(req.Password, s.hasher.DummyHash())
	} else {
		verified = s.hasher.Verify(req.Password, user.PasswordHash)
	}

	if !verified {
		failDecision := s.limiter.RecordFailure(ctx, identity)
		if s.metrics != nil {
			s.metrics.AuthFailures.WithLabelValues("login").Inc()
		}
		s.logger.InfoContext(ctx, "login failed",
			"identity", tracer.HashIdentity(identity),
		)
		if !failDecision.Allowed {
			outcome = s.rateLimited(ctx, span, "login", identity, failDecision)
			return nil, outcome
		}
		outcome = dErrors.New(dErrors.CodeUnauthorized, msgInvalidCredentials)
		return nil, outcome
	}

	token, err := s.tokens.Issue(ctx, user.ID.String(), user.Username, user.Email)
	if err != nil {
		outcome = dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue session token")
		return nil, outcome
	}
	span.AddEvent(tracer.EventTokenIssued)

	s.logger.InfoContext(ctx, "login succeeded",
		"user_id", user.ID,
		"device", s.deviceName(ctx),
		"device_fingerprint", s.deviceFingerprint(ctx),
	)
	if s.metrics != nil {
		s.metrics.LoginSuccesses.Inc()
		s.metrics.TokensIssued.Inc()
		s.metrics.LoginDurationMs.Observe(float64(time.Since(start).Milliseconds()))
	}

	return &models.AuthResult{User: user.Public(), Token: token}, nil
}

func (s *Service) rateLimited(ctx context.Context, span tracer.Span, operation, identity string, decision *ratelimit.Decision) error {
	span.AddEvent(tracer.EventBlocked)
	if s.metrics != nil {
		s.metrics.RateLimitedRequests.WithLabelValues(operation).Inc()
	}
	s.logger.WarnContext(ctx, "request rate limited",
		"operation", operation,
		"identity", tracer.HashIdentity(identity),
		"retry_after", decision.RetryAfter,
	)
	return &ratelimit.RateLimitedError{Decision: decision}
}
