package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"gatekeeper/internal/auth/models"
	"gatekeeper/internal/platform/tracer"
	"gatekeeper/internal/sentinel"
	dErrors "gatekeeper/pkg/domain-errors"
	"gatekeeper/pkg/requestcontext"
)

// Register creates an account and returns a session token for it.
//
// The limiter is consulted first and counts this attempt whether or not the
// request turns out to be valid, so invalid payloads cannot be used to probe
// for free. The duplicate-email answer is deliberately coarse ("already
// exists", no hint of which account) and costs a bcrypt hash either way.
func (s *Service) Register(ctx context.Context, req *models.RegisterRequest) (*models.AuthResult, error) {
	start := time.Now()
	identity := s.identity(ctx)

	ctx, span := s.tracer.Start(ctx, tracer.SpanRegister,
		tracer.String(tracer.AttrIdentity, tracer.HashIdentity(identity)),
	)
	var outcome error
	defer func() { span.End(outcome) }()

	decision := s.limiter.CheckAndRecord(ctx, identity)
	if !decision.Allowed {
		outcome = s.rateLimited(ctx, span, "register", identity, decision)
		return nil, outcome
	}
	span.SetAttributes(tracer.Int64(tracer.AttrRemaining, int64(decision.Remaining)))

	req.Normalize()
	if err := req.Validate(); err != nil {
		outcome = err
		return nil, err
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		outcome = dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash password")
		return nil, outcome
	}

	user := &models.User{
		ID:           uuid.New(),
		Email:        req.Email,
		Username:     req.Username,
		PasswordHash: hash,
		CreatedAt:    requestcontext.Now(ctx),
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			if s.metrics != nil {
				s.metrics.AuthFailures.WithLabelValues("register").Inc()
			}
			outcome = dErrors.New(dErrors.CodeConflict, "An account with this email already exists")
			return nil, outcome
		}
		outcome = dErrors.Wrap(err, dErrors.CodeInternal, "failed to create user")
		return nil, outcome
	}

	token, err := s.tokens.Issue(ctx, user.ID.String(), user.Username, user.Email)
	if err != nil {
		outcome = dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue session token")
		return nil, outcome
	}
	span.AddEvent(tracer.EventTokenIssued)

	s.logger.InfoContext(ctx, "user registered",
		"user_id", user.ID,
		"device", s.deviceName(ctx),
		"device_fingerprint", s.deviceFingerprint(ctx),
	)
	if s.metrics != nil {
		s.metrics.UsersCreated.Inc()
		s.metrics.TokensIssued.Inc()
		s.metrics.RegisterDurationMs.Observe(float64(time.Since(start).Milliseconds()))
	}

	return &models.AuthResult{User: user.Public(), Token: token}, nil
}
