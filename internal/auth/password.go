// Package auth holds the credential primitives: bcrypt password hashing,
// opaque bearer-token issuance and the HTTP guard that resolves a token to
// a user.
//
// WHY BCRYPT?
// bcrypt is deliberately slow, and the slowness is tunable through "cost".
// It also generates a random salt per hash and stores it inside the output,
// so two learners with the same password still get different hashes.
// Plaintext or fast digests (MD5, SHA-256) are never stored.
//
// Hash format (the full output of bcrypt.GenerateFromPassword):
//
//	$2a$12$<22-char salt><31-char hash>
//	 ^   ^
//	 |   cost (12 rounds → 2^12 = 4096 iterations)
//	 version
//
// The salt is embedded in the hash, so no separate column is needed.
package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// defaultCost is the bcrypt work factor used when none is configured.
// Cost 12 takes roughly 250ms on a modern server.
const defaultCost = 12

// MaxPasswordBytes is bcrypt's input limit.
//
// THE 72-BYTE LIMIT:
// bcrypt only reads the first 72 bytes of its input. Anything past that
// would be ignored, so "correct horse...<80 bytes>" and the same string
// with a different tail would verify alike. Longer input is rejected.
const MaxPasswordBytes = 72

// PasswordService provides bcrypt hashing and verification.
type PasswordService struct {
	cost int
}

// NewPasswordService creates a PasswordService. A cost of zero selects the
// default; other values are clamped to bcrypt's allowed range. Tests pass
// bcrypt.MinCost to keep hashing in the millisecond range.
func NewPasswordService(cost int) *PasswordService {
	switch {
	case cost == 0:
		cost = defaultCost
	case cost < bcrypt.MinCost:
		cost = bcrypt.MinCost
	case cost > bcrypt.MaxCost:
		cost = bcrypt.MaxCost
	}
	return &PasswordService{cost: cost}
}

// Cost returns the configured work factor.
func (p *PasswordService) Cost() int {
	return p.cost
}

// Hash hashes the given plaintext password with a fresh random salt.
//
// Returns an error if the plaintext is longer than MaxPasswordBytes.
func (p *PasswordService) Hash(plaintext string) (string, error) {
	if len(plaintext) > MaxPasswordBytes {
		return "", fmt.Errorf("auth: password must be %d bytes or fewer", MaxPasswordBytes)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), p.cost)
	if err != nil {
		return "", fmt.Errorf("auth: hashing password: %w", err)
	}

	return string(hashed), nil
}

// Verify reports whether plaintext matches the stored hash.
//
// TIMING SAFETY:
// bcrypt.CompareHashAndPassword compares in constant time, so response
// latency does not reveal how many leading bytes matched. A malformed or
// empty hash yields false, never an error.
func (p *PasswordService) Verify(hash, plaintext string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}
