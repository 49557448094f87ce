package auth

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/semaphore"
)

// Hasher bounds how many bcrypt operations run at once. Callers beyond the
// limit wait for a slot or give up when their context ends.
//
// BOUNDED CPU WORK:
// One bcrypt at cost 12 keeps a core busy for about a quarter second. A burst
// of logins would otherwise start one per request goroutine and starve the
// rest of the server. semaphore.Weighted caps the concurrent hashes at
// the number of workers, and Acquire honours ctx so an abandoned request
// stops waiting.
type Hasher struct {
	passwords *PasswordService
	sem       *semaphore.Weighted
	workers   int
}

// NewHasher wraps passwords with a pool of the given size. A non-positive
// size selects runtime.NumCPU().
func NewHasher(passwords *PasswordService, workers int) *Hasher {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Hasher{
		passwords: passwords,
		sem:       semaphore.NewWeighted(int64(workers)),
		workers:   workers,
	}
}

// Workers returns the pool size.
func (h *Hasher) Workers() int {
	return h.workers
}

func (h *Hasher) Hash(ctx context.Context, plaintext string) (string, error) {
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return "", fmt.Errorf("auth: waiting for hash worker: %w", err)
	}
	defer h.sem.Release(1)

	return h.passwords.Hash(plaintext)
}

// Verify returns an error only when ctx ends before a worker frees up.
func (h *Hasher) Verify(ctx context.Context, hash, plaintext string) (bool, error) {
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return false, fmt.Errorf("auth: waiting for hash worker: %w", err)
	}
	defer h.sem.Release(1)

	return h.passwords.Verify(hash, plaintext), nil
}
