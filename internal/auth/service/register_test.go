package service

import (
	"context"
	"errors"
	"fmt"

	"gatekeeper/internal/auth/models"
	ratelimit "gatekeeper/internal/ratelimit/models"
	dErrors "gatekeeper/pkg/domain-errors"
)

func (s *AuthServiceSuite) TestRegister() {
	s.Run("creates a user and returns a verifiable token", func() {
		result, err := s.service.Register(s.ctx, s.registerRequest())
		s.Require().NoError(err)

		s.Equal("alice@example.com", result.User.Email)
		s.Equal("alice", result.User.Username)
		s.NotEmpty(result.User.ID)
		s.Equal(s.now, result.User.CreatedAt)

		claims, err := s.codec.Verify(result.Token)
		s.Require().NoError(err)
		s.Equal(result.User.ID, claims.Subject)
		s.Equal("alice@example.com", claims.Email)
		s.Equal("alice", claims.Name)
	})

	s.Run("persists a hash, never the password", func() {
		stored, err := s.users.FindByEmail(context.Background(), "alice@example.com")
		s.Require().NoError(err)
		s.NotEqual("Sup3rSecret", stored.PasswordHash)
		s.True(s.hasher.Verify("Sup3rSecret", stored.PasswordHash))
	})

	s.Run("duplicate email conflicts with a coarse message", func() {
		req := s.registerRequest()
		req.Username = "alice2"
		_, err := s.service.Register(s.ctx, req)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
		s.Contains(err.Error(), "already exists")
	})

	s.Run("email normalization collapses case variants", func() {
		req := s.registerRequest()
		req.Email = "ALICE@Example.com"
		_, err := s.service.Register(s.ctx, req)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})
}

func (s *AuthServiceSuite) TestRegisterValidation() {
	s.Run("invalid payload is rejected", func() {
		req := s.registerRequest()
		req.ConfirmPassword = "Mismatch3d"
		_, err := s.service.Register(s.ctx, req)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("invalid payload still consumed an attempt", func() {
		record, err := s.attempts.Peek(context.Background(), testClientIP, s.now)
		s.Require().NoError(err)
		s.Require().NotNil(record)
		s.Equal(1, record.Attempts)
	})
}

func (s *AuthServiceSuite) TestRegisterRateLimited() {
	for i := 0; i < testMaxAttempts; i++ {
		req := s.registerRequest()
		req.Email = fmt.Sprintf("user%d@example.com", i)
		req.Username = fmt.Sprintf("user%d", i)
		_, err := s.service.Register(s.ctx, req)
		s.Require().NoError(err, "attempt %d", i+1)
	}

	req := s.registerRequest()
	req.Email = "overflow@example.com"
	req.Username = "overflow"
	_, err := s.service.Register(s.ctx, req)
	s.Require().Error(err)

	var limited *ratelimit.RateLimitedError
	s.Require().True(errors.As(err, &limited))
	s.True(dErrors.HasCode(err, dErrors.CodeRateLimited))
	s.Greater(limited.Decision.RetryAfter, 0)

	s.Run("no user was created for the denied attempt", func() {
		_, err := s.users.FindByEmail(context.Background(), "overflow@example.com")
		s.Error(err)
	})

	s.Run("another identity is unaffected", func() {
		other := s.requestCtx("198.51.100.20")
		req := s.registerRequest()
		req.Email = "fresh@example.com"
		req.Username = "fresh"
		_, err := s.service.Register(other, req)
		s.NoError(err)
	})
}

func (s *AuthServiceSuite) TestRegisterResultOmitsCredentialMaterial() {
	result, err := s.service.Register(s.ctx, s.registerRequest())
	s.Require().NoError(err)

	var _ models.PublicUser = result.User
	s.NotContains(result.Token, "Sup3rSecret")
}
