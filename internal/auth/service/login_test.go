package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"gatekeeper/internal/auth/device"
	"gatekeeper/internal/auth/models"
	ratelimit "gatekeeper/internal/ratelimit/models"
	dErrors "gatekeeper/pkg/domain-errors"
)

func (s *AuthServiceSuite) login(ctx context.Context, email, pass string) (*models.AuthResult, error) {
	return s.service.Login(ctx, &models.LoginRequest{Email: email, Password: pass})
}

func (s *AuthServiceSuite) TestLogin() {
	s.registerAlice()

	s.Run("valid credentials return a verifiable token", func() {
		result, err := s.login(s.ctx, "alice@example.com", "Sup3rSecret")
		s.Require().NoError(err)

		claims, err := s.codec.Verify(result.Token)
		s.Require().NoError(err)
		s.Equal(result.User.ID, claims.Subject)
		s.Equal("alice@example.com", result.User.Email)
	})

	s.Run("email lookup is case-insensitive via normalization", func() {
		_, err := s.login(s.ctx, "ALICE@Example.COM", "Sup3rSecret")
		s.NoError(err)
	})

	s.Run("success does not reset previously recorded failures", func() {
		_, err := s.login(s.ctx, "alice@example.com", "WrongPass1")
		s.Require().Error(err)

		_, err = s.login(s.ctx, "alice@example.com", "Sup3rSecret")
		s.Require().NoError(err)

		record, err := s.attempts.Peek(context.Background(), testClientIP, s.now)
		s.Require().NoError(err)
		s.Require().NotNil(record)
		s.Equal(1, record.Attempts, "the failure remains on the books")
	})
}

func (s *AuthServiceSuite) TestLoginFailuresAreIndistinguishable() {
	s.registerAlice()

	_, unknownErr := s.login(s.ctx, "nobody@example.com", "Sup3rSecret")
	_, wrongPassErr := s.login(s.ctx, "alice@example.com", "WrongPass1")

	s.Require().Error(unknownErr)
	s.Require().Error(wrongPassErr)

	s.True(dErrors.HasCode(unknownErr, dErrors.CodeUnauthorized))
	s.True(dErrors.HasCode(wrongPassErr, dErrors.CodeUnauthorized))

	var unknownDomain, wrongDomain *dErrors.Error
	s.Require().True(errors.As(unknownErr, &unknownDomain))
	s.Require().True(errors.As(wrongPassErr, &wrongDomain))
	s.Equal("Invalid email or password", unknownDomain.Message)
	s.Equal(unknownDomain.Message, wrongDomain.Message)
}

func (s *AuthServiceSuite) TestLoginVerifiesOnEveryPath() {
	s.registerAlice()

	s.Run("unknown email still runs verification", func() {
		before := s.hasher.verifyCalls
		_, err := s.login(s.ctx, "nobody@example.com", "whatever1A")
		s.Error(err)
		s.Equal(before+1, s.hasher.verifyCalls, "dummy-hash verification must run on lookup miss")
	})

	s.Run("known email runs verification once", func() {
		before := s.hasher.verifyCalls
		_, err := s.login(s.ctx, "alice@example.com", "WrongPass1")
		s.Error(err)
		s.Equal(before+1, s.hasher.verifyCalls)
	})

	s.Run("rate-limited request does no verification", func() {
		for i := 0; i < testMaxAttempts; i++ {
			_, _ = s.login(s.ctx, "alice@example.com", "WrongPass1")
		}
		before := s.hasher.verifyCalls
		_, err := s.login(s.ctx, "alice@example.com", "Sup3rSecret")
		s.Error(err)
		s.Equal(before, s.hasher.verifyCalls, "blocked requests must not reach credential work")
	})
}

func (s *AuthServiceSuite) TestLoginLockoutScenario() {
	s.registerAlice()

	// Five wrong-password attempts each fail with the generic message.
	for i := 1; i <= testMaxAttempts; i++ {
		_, err := s.login(s.ctx, "alice@example.com", "WrongPass1")
		s.Require().Error(err, "attempt %d", i)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized), "attempt %d must be unauthorized, not rate limited", i)
	}

	// The sixth attempt is rejected by the limiter, even with the correct
	// password.
	_, err := s.login(s.ctx, "alice@example.com", "Sup3rSecret")
	s.Require().Error(err)
	var limited *ratelimit.RateLimitedError
	s.Require().True(errors.As(err, &limited))
	s.Greater(limited.Decision.RetryAfter, 0)

	// A seventh attempt at the same instant reports the same retry horizon.
	_, err = s.login(s.ctx, "alice@example.com", "Sup3rSecret")
	var limitedAgain *ratelimit.RateLimitedError
	s.Require().True(errors.As(err, &limitedAgain))
	s.GreaterOrEqual(limitedAgain.Decision.RetryAfter, limited.Decision.RetryAfter)

	s.Run("the denial starts a real block", func() {
		record, err := s.attempts.Peek(context.Background(), testClientIP, s.now)
		s.Require().NoError(err)
		s.Require().NotNil(record)
		s.Require().NotNil(record.BlockedUntil, "crossing the limit must set a block deadline")
		s.Equal(s.now.Add(testBlock), *record.BlockedUntil)
		s.Equal(int(testBlock/time.Second), limited.Decision.RetryAfter, "the advertised retry horizon must match the block deadline")
	})

	s.Run("the block outlives the counting window", func() {
		afterWindow := requestCtxAt(s.now.Add(testWindow+time.Second), testClientIP)
		_, err := s.login(afterWindow, "alice@example.com", "Sup3rSecret")
		var stillLimited *ratelimit.RateLimitedError
		s.Require().True(errors.As(err, &stillLimited), "a lapsed window must not lift an active block")
	})

	s.Run("another identity can still log in", func() {
		other := s.requestCtx("198.51.100.20")
		_, err := s.login(other, "alice@example.com", "Sup3rSecret")
		s.NoError(err)
	})

	s.Run("the window eventually reopens", func() {
		later := requestCtxAt(s.now.Add(testWindow+testBlock+time.Second), testClientIP)
		_, err := s.login(later, "alice@example.com", "Sup3rSecret")
		s.NoError(err)
	})
}

func (s *AuthServiceSuite) TestLoginAuditLogCarriesDeviceFingerprint() {
	s.registerAlice()

	var logBuf bytes.Buffer
	svc := NewService(s.users, s.limiter, s.codec, s.hasher,
		WithLogger(slog.New(slog.NewJSONHandler(&logBuf, nil))),
		WithDeviceService(device.NewService(true)),
	)

	_, err := svc.Login(s.ctx, &models.LoginRequest{Email: "alice@example.com", Password: "Sup3rSecret"})
	s.Require().NoError(err)

	want := device.NewService(true).Fingerprint("test-agent/1.0")
	s.Require().NotEmpty(want)
	s.Contains(logBuf.String(), `"device_fingerprint":"`+want+`"`)
}

// unavailableUserStore simulates a persistence outage.
type unavailableUserStore struct{}

func (unavailableUserStore) Create(context.Context, *models.User) error {
	return errors.New("store unavailable")
}

func (unavailableUserStore) FindByID(context.Context, uuid.UUID) (*models.User, error) {
	return nil, errors.New("store unavailable")
}

func (unavailableUserStore) FindByEmail(context.Context, string) (*models.User, error) {
	return nil, errors.New("store unavailable")
}

func (s *AuthServiceSuite) TestLoginStoreFailureIsNotUnauthorized() {
	svc := NewService(unavailableUserStore{}, s.limiter, s.codec, s.hasher,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)

	_, err := svc.Login(s.ctx, &models.LoginRequest{Email: "alice@example.com", Password: "Sup3rSecret"})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInternal), "an infrastructure fault must not masquerade as bad credentials")
	s.False(dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func (s *AuthServiceSuite) TestLoginValidation() {
	s.registerAlice()

	s.Run("missing password", func() {
		_, err := s.login(s.ctx, "alice@example.com", "")
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("malformed email", func() {
		_, err := s.login(s.ctx, "not-an-email", "whatever1A")
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("validation failures are not counted as credential failures", func() {
		record, err := s.attempts.Peek(context.Background(), testClientIP, s.now)
		s.NoError(err)
		s.Nil(record)
	})
}
