package auth

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenIssuer_Issue(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.FixedZone("CET", 3600))
	issuer := NewTokenIssuer(32, 24*time.Hour).WithClock(func() time.Time { return now })

	token, expiresAt, err := issuer.Issue()
	require.NoError(t, err)

	raw, err := base64.RawURLEncoding.DecodeString(token)
	require.NoError(t, err, "token must be unpadded base64url")
	assert.Len(t, raw, 32)

	assert.Equal(t, time.UTC, expiresAt.Location())
	assert.True(t, expiresAt.Equal(now.Add(24*time.Hour)))
}

func TestTokenIssuer_EnforcesMinimumEntropy(t *testing.T) {
	issuer := NewTokenIssuer(8, time.Hour)

	token, _, err := issuer.Issue()
	require.NoError(t, err)

	raw, err := base64.RawURLEncoding.DecodeString(token)
	require.NoError(t, err)
	assert.Len(t, raw, MinTokenBytes)
}

func TestTokenIssuer_DefaultLifetime(t *testing.T) {
	issuer := NewTokenIssuer(32, 0)
	assert.Equal(t, DefaultTokenLifetime, issuer.Lifetime())
}

func TestTokenIssuer_TokensAreUnique(t *testing.T) {
	issuer := NewTokenIssuer(32, time.Hour)

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		token, _, err := issuer.Issue()
		require.NoError(t, err)
		require.False(t, seen[token], "duplicate token issued")
		seen[token] = true
	}
}
