package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"

	"gatekeeper/internal/auth/models"
	"gatekeeper/internal/auth/store/user"
	"gatekeeper/internal/password"
	limiter "gatekeeper/internal/ratelimit/service"
	"gatekeeper/internal/ratelimit/store/attempts"
	"gatekeeper/internal/token"
	"gatekeeper/pkg/requestcontext"
)

const (
	testSigningKey  = "test-signing-key-test-signing-key"
	testMaxAttempts = 5
	testWindow      = 15 * time.Minute
	testBlock       = time.Hour
	testClientIP    = "203.0.113.7"
)

// countingHasher wraps the real hasher and counts Verify invocations, so
// tests can prove the verification step runs on every login path.
type countingHasher struct {
	*password.Hasher
	verifyCalls int
}

func (h *countingHasher) Verify(secret, hash string) bool {
	h.verifyCalls++
	return h.Hasher.Verify(secret, hash)
}

type AuthServiceSuite struct {
	suite.Suite
	users    *user.InMemoryUserStore
	attempts *attempts.InMemoryAttemptStore
	limiter  *limiter.Service
	codec    *token.Codec
	hasher   *countingHasher
	service  *Service
	now      time.Time
	ctx      context.Context
}

func TestAuthServiceSuite(t *testing.T) {
	suite.Run(t, new(AuthServiceSuite))
}

func (s *AuthServiceSuite) SetupTest() {
	s.users = user.New()

	store, err := attempts.New(100, testWindow)
	s.Require().NoError(err)
	s.attempts = store

	discard := slog.New(slog.NewTextHandler(io.Discard, nil))

	lim, err := limiter.New(store, limiter.Config{
		MaxAttempts:   testMaxAttempts,
		Window:        testWindow,
		BlockDuration: testBlock,
	}, limiter.WithLogger(discard))
	s.Require().NoError(err)
	s.limiter = lim

	codec, err := token.New(testSigningKey, 15*time.Minute)
	s.Require().NoError(err)
	s.codec = codec

	hasher, err := password.New(bcrypt.MinCost)
	s.Require().NoError(err)
	s.hasher = &countingHasher{Hasher: hasher}

	s.service = NewService(s.users, s.limiter, s.codec, s.hasher,
		WithLogger(discard),
	)

	s.now = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	s.ctx = s.requestCtx(testClientIP)
}

// requestCtx builds a context the way the middleware chain would.
func (s *AuthServiceSuite) requestCtx(ip string) context.Context {
	return requestCtxAt(s.now, ip)
}

func requestCtxAt(t time.Time, ip string) context.Context {
	ctx := requestcontext.WithTime(context.Background(), t)
	return requestcontext.WithClientMetadata(ctx, ip, "test-agent/1.0")
}

func (s *AuthServiceSuite) registerRequest() *models.RegisterRequest {
	return &models.RegisterRequest{
		Email:           "alice@example.com",
		Username:        "alice",
		Password:        "Sup3rSecret",
		ConfirmPassword: "Sup3rSecret",
	}
}

func (s *AuthServiceSuite) registerAlice() *models.AuthResult {
	result, err := s.service.Register(s.ctx, s.registerRequest())
	s.Require().NoError(err)
	// Registration counts against the same identity; reset so login tests
	// start from a clean window.
	s.Require().NoError(s.limiter.ClearAll(context.Background()))
	return result
}
