package config

import (
	"fmt"
	"net/netip"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Defaults mirror the reference policy: 15 minute tokens, 5 attempts per
// 15 minute window, 1 hour blocks, 10k tracked identities.
const (
	DefaultAddr           = ":8080"
	DefaultTokenTTL       = 15 * time.Minute
	DefaultHashCost       = 12
	DefaultMaxAttempts    = 5
	DefaultWindowDuration = 15 * time.Minute
	DefaultBlockDuration  = time.Hour
	DefaultCacheCapacity  = 10_000
	DefaultRequestTimeout = 30 * time.Second
)

// Operator-adjustable bounds for the password hashing cost. Values outside
// this band either disable the brute-force protection or make logins
// unusably slow, so Validate rejects them instead of clamping.
const (
	MinHashCost = 12
	MaxHashCost = 14
)

// Server is the immutable process configuration. Build it once with FromEnv,
// validate it once with Validate, and pass it by value.
type Server struct {
	Addr           string
	SigningKey     string
	TokenTTL       time.Duration
	HashCost       int
	MaxAttempts    int
	WindowDuration time.Duration
	BlockDuration  time.Duration
	CacheCapacity  int
	RequestTimeout time.Duration
	TrustedProxies []netip.Prefix
}

// FromEnv builds a Server config from environment variables so main stays lean.
// Unset variables fall back to defaults; values that fail to parse are an
// error rather than a silent fallback.
func FromEnv() (Server, error) {
	cfg := Server{
		Addr:           envOr("GATEKEEPER_ADDR", DefaultAddr),
		SigningKey:     os.Getenv("GATEKEEPER_SIGNING_KEY"),
		TokenTTL:       DefaultTokenTTL,
		HashCost:       DefaultHashCost,
		MaxAttempts:    DefaultMaxAttempts,
		WindowDuration: DefaultWindowDuration,
		BlockDuration:  DefaultBlockDuration,
		CacheCapacity:  DefaultCacheCapacity,
		RequestTimeout: DefaultRequestTimeout,
	}

	var err error
	if cfg.TokenTTL, err = durationEnv("GATEKEEPER_TOKEN_TTL", cfg.TokenTTL); err != nil {
		return Server{}, err
	}
	if cfg.HashCost, err = intEnv("GATEKEEPER_HASH_COST", cfg.HashCost); err != nil {
		return Server{}, err
	}
	if cfg.MaxAttempts, err = intEnv("GATEKEEPER_MAX_ATTEMPTS", cfg.MaxAttempts); err != nil {
		return Server{}, err
	}
	if cfg.WindowDuration, err = durationEnv("GATEKEEPER_WINDOW_DURATION", cfg.WindowDuration); err != nil {
		return Server{}, err
	}
	if cfg.BlockDuration, err = durationEnv("GATEKEEPER_BLOCK_DURATION", cfg.BlockDuration); err != nil {
		return Server{}, err
	}
	if cfg.CacheCapacity, err = intEnv("GATEKEEPER_CACHE_CAPACITY", cfg.CacheCapacity); err != nil {
		return Server{}, err
	}
	if cfg.RequestTimeout, err = durationEnv("GATEKEEPER_REQUEST_TIMEOUT", cfg.RequestTimeout); err != nil {
		return Server{}, err
	}
	if cfg.TrustedProxies, err = prefixesEnv("GATEKEEPER_TRUSTED_PROXIES"); err != nil {
		return Server{}, err
	}

	return cfg, nil
}

// Validate checks every field once at startup. Invalid values are fatal to
// the caller; nothing is clamped.
func (c Server) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("config: addr cannot be empty")
	}
	if len(c.SigningKey) < 32 {
		return fmt.Errorf("config: signing key must be at least 32 bytes, got %d", len(c.SigningKey))
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("config: token TTL must be positive, got %s", c.TokenTTL)
	}
	if c.HashCost < MinHashCost || c.HashCost > MaxHashCost {
		return fmt.Errorf("config: hash cost must be between %d and %d, got %d", MinHashCost, MaxHashCost, c.HashCost)
	}
	if c.HashCost > bcrypt.MaxCost {
		return fmt.Errorf("config: hash cost exceeds bcrypt maximum %d", bcrypt.MaxCost)
	}
	if c.MaxAttempts <= 0 {
		return fmt.Errorf("config: max attempts must be positive, got %d", c.MaxAttempts)
	}
	if c.WindowDuration <= 0 {
		return fmt.Errorf("config: window duration must be positive, got %s", c.WindowDuration)
	}
	if c.BlockDuration <= 0 {
		return fmt.Errorf("config: block duration must be positive, got %s", c.BlockDuration)
	}
	if c.CacheCapacity <= 0 {
		return fmt.Errorf("config: cache capacity must be positive, got %d", c.CacheCapacity)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("config: request timeout must be positive, got %s", c.RequestTimeout)
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return d, nil
}

func intEnv(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return n, nil
}

func prefixesEnv(key string) ([]netip.Prefix, error) {
	v := os.Getenv(key)
	if v == "" {
		return nil, nil
	}
	var prefixes []netip.Prefix
	for _, part := range strings.Split(v, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		p, err := netip.ParsePrefix(part)
		if err != nil {
			return nil, fmt.Errorf("config: %s: %w", key, err)
		}
		prefixes = append(prefixes, p)
	}
	return prefixes, nil
}
