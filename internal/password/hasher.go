// Package password provides one-way credential hashing with bcrypt.
//
// Verification is constant-outcome: a wrong password and a corrupt stored
// hash are indistinguishable to the caller, and the exported dummy hash lets
// the authentication flow burn the same hashing cost for unknown users.
package password

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"

	dErrors "gatekeeper/pkg/domain-errors"
)

// Hasher hashes and verifies secrets at a fixed cost factor.
type Hasher struct {
	cost      int
	dummyHash string
}

// New constructs a Hasher. The cost must be within bcrypt's supported range;
// the config layer additionally restricts production configs to the 12-14
// band, while tests may run at bcrypt.MinCost.
func New(cost int) (*Hasher, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("password: cost %d outside supported range [%d, %d]", cost, bcrypt.MinCost, bcrypt.MaxCost)
	}

	// The dummy hash is computed once at the same cost so that verifying a
	// caller-supplied secret against it takes as long as a real verification.
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("password: could not generate dummy secret: %w", err)
	}
	dummy, err := bcrypt.GenerateFromPassword([]byte(base64.RawURLEncoding.EncodeToString(buf)), cost)
	if err != nil {
		return nil, fmt.Errorf("password: could not precompute dummy hash: %w", err)
	}

	return &Hasher{cost: cost, dummyHash: string(dummy)}, nil
}

// Hash creates a salted bcrypt hash of the secret. Each call produces a
// different output for the same input because bcrypt generates a fresh salt.
func (h *Hasher) Hash(secret string) (string, error) {
	if secret == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "secret cannot be empty")
	}
	if !utf8.ValidString(secret) {
		return "", dErrors.New(dErrors.CodeInvalidInput, "secret must be valid UTF-8")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(secret), h.cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", dErrors.New(dErrors.CodeInvalidInput, "secret is too long")
		}
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "could not hash secret")
	}
	return string(hashed), nil
}

// Verify reports whether the secret matches the stored hash. It never returns
// an error: a mismatch, an empty secret, and a malformed stored hash all
// yield false, so the caller cannot distinguish "wrong password" from
// "corrupt record". bcrypt performs the comparison in constant time.
func (h *Hasher) Verify(secret, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)) == nil
}

// DummyHash returns a hash of a random secret that no caller can know.
// Verifying against it always fails but costs the same as a real check.
func (h *Hasher) DummyHash() string {
	return h.dummyHash
}

// Cost returns the configured cost factor.
func (h *Hasher) Cost() int {
	return h.cost
}
