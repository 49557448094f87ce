package auth

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"
)

const (
	// MinTokenBytes is the smallest amount of entropy a token may carry.
	MinTokenBytes = 32

	// DefaultTokenLifetime is how long an issued token stays valid.
	DefaultTokenLifetime = 24 * time.Hour
)

// TokenIssuer mints opaque bearer tokens.
//
// OPAQUE VS SIGNED:
// A token here is just random bytes, base64url encoded. It carries no
// claims and no signature; the server looks it up on every request. It
// is valid only while a user row holds it with an expiry in the future, so
// revoking it is a matter of clearing that row.
type TokenIssuer struct {
	size     int
	lifetime time.Duration
	now      func() time.Time
}

// NewTokenIssuer creates an issuer that reads size random bytes per token.
// size is raised to MinTokenBytes and a non-positive lifetime selects
// DefaultTokenLifetime.
func NewTokenIssuer(size int, lifetime time.Duration) *TokenIssuer {
	if size < MinTokenBytes {
		size = MinTokenBytes
	}
	if lifetime <= 0 {
		lifetime = DefaultTokenLifetime
	}
	return &TokenIssuer{
		size:     size,
		lifetime: lifetime,
		now:      time.Now,
	}
}

// WithClock replaces the issuer's time source. Used by tests that need
// deterministic expiry.
func (t *TokenIssuer) WithClock(now func() time.Time) *TokenIssuer {
	t.now = now
	return t
}

func (t *TokenIssuer) Lifetime() time.Duration {
	return t.lifetime
}

// Issue returns a fresh URL-safe token and its expiry in UTC.
func (t *TokenIssuer) Issue() (string, time.Time, error) {
	buf := make([]byte, t.size)
	if _, err := rand.Read(buf); err != nil {
		return "", time.Time{}, fmt.Errorf("auth: reading random bytes: %w", err)
	}

	token := base64.RawURLEncoding.EncodeToString(buf)
	expiresAt := t.now().UTC().Add(t.lifetime)
	return token, expiresAt, nil
}
