// Package token creates and verifies compact signed session tokens.
//
// Tokens are self-contained HS256 JWTs: holders treat them as opaque, and
// verification needs no database round trip. There is no revocation; a token
// stays valid until its short expiry. The jti claim is surfaced so a denylist
// could be layered on top later.
package token

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"gatekeeper/internal/sentinel"
	dErrors "gatekeeper/pkg/domain-errors"
	"gatekeeper/pkg/requestcontext"
)

// MinKeyBytes is the shortest accepted symmetric signing key. Anything
// shorter undermines HMAC-SHA256.
const MinKeyBytes = 32

// SessionClaims is the payload of an issued session token.
type SessionClaims struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Codec signs and verifies session tokens with a symmetric key loaded once
// at process start.
type Codec struct {
	signingKey []byte
	ttl        time.Duration
}

// New constructs a Codec. It fails fast on keys shorter than MinKeyBytes or
// a non-positive TTL so a misconfigured process never starts.
func New(signingKey string, ttl time.Duration) (*Codec, error) {
	if len(signingKey) < MinKeyBytes {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "signing key must be at least 32 bytes")
	}
	if ttl <= 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "token TTL must be positive")
	}
	return &Codec{signingKey: []byte(signingKey), ttl: ttl}, nil
}

// Issue mints a signed token for the subject. Each token carries a random
// jti, so two tokens issued in the same instant for the same subject are
// never byte-identical. Issue and expiry times come from the request-scoped
// clock.
func (c *Codec) Issue(ctx context.Context, subjectID, displayName, email string) (string, error) {
	if subjectID == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "subject id cannot be empty")
	}
	if displayName == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "display name cannot be empty")
	}
	if email == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "email cannot be empty")
	}

	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "could not generate token id")
	}
	jti := hex.EncodeToString(buf)
	now := requestcontext.Now(ctx)

	newToken := jwt.NewWithClaims(jwt.SigningMethodHS256, SessionClaims{
		Name:  displayName,
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subjectID,
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        jti,
		},
	})

	signed, err := newToken.SignedString(c.signingKey)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "could not sign token")
	}
	return signed, nil
}

// Verify checks signature, algorithm, expiry, and claim completeness.
//
// The returned error is always CodeUnauthorized but wraps a sentinel that
// distinguishes expired, bad signature, and malformed for callers inside the
// trust boundary. Network-facing callers must collapse all of them to a
// generic unauthenticated response.
func (c *Codec) Verify(tokenString string) (*SessionClaims, error) {
	if tokenString == "" {
		return nil, dErrors.Wrap(sentinel.ErrMalformed, dErrors.CodeUnauthorized, "empty token")
	}

	claims := new(SessionClaims)
	parsed, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		// Pin the algorithm: an "unsigned" (none) token or an asymmetric
		// variant must never reach signature verification with our key.
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, jwt.ErrTokenUnverifiable
		}
		return c.signingKey, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, dErrors.Wrap(sentinel.ErrExpired, dErrors.CodeUnauthorized, "token expired")
		case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrSignatureInvalid):
			return nil, dErrors.Wrap(sentinel.ErrBadSignature, dErrors.CodeUnauthorized, "invalid token signature")
		default:
			return nil, dErrors.Wrap(sentinel.ErrMalformed, dErrors.CodeUnauthorized, "invalid token")
		}
	}
	if !parsed.Valid {
		return nil, dErrors.Wrap(sentinel.ErrBadSignature, dErrors.CodeUnauthorized, "invalid token")
	}

	if claims.Subject == "" || claims.Name == "" || claims.Email == "" ||
		claims.ExpiresAt == nil || claims.IssuedAt == nil || claims.ID == "" {
		return nil, dErrors.Wrap(sentinel.ErrMalformed, dErrors.CodeUnauthorized, "token missing required claims")
	}

	return claims, nil
}

// TTL returns the configured token lifetime.
func (c *Codec) TTL() time.Duration {
	return c.ttl
}
