package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingCleaner struct {
	calls   atomic.Int32
	cleared int64
	err     error
	lastNow atomic.Value
}

func (c *countingCleaner) CleanupExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	c.calls.Add(1)
	c.lastNow.Store(now)
	return c.cleared, c.err
}

func TestSessionSweeper_RunOnce(t *testing.T) {
	cleaner := &countingCleaner{cleared: 3}
	sweeper := NewSessionSweeper(cleaner, testLogger())
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.FixedZone("X", 3600))
	sweeper.now = func() time.Time { return fixed }

	n, err := sweeper.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.Equal(t, time.UTC, cleaner.lastNow.Load().(time.Time).Location())
}

func TestSessionSweeper_RunOnceError(t *testing.T) {
	cleaner := &countingCleaner{err: errors.New("disk I/O error")}
	sweeper := NewSessionSweeper(cleaner, testLogger())

	_, err := sweeper.RunOnce(context.Background())
	assert.Error(t, err)
}

func TestSessionSweeper_RunStopsOnCancel(t *testing.T) {
	cleaner := &countingCleaner{err: errors.New("transient")}
	sweeper := NewSessionSweeper(cleaner, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sweeper.Run(ctx, 5*time.Millisecond) }()

	// Failures do not stop the loop.
	require.Eventually(t, func() bool { return cleaner.calls.Load() >= 3 }, time.Second, time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run() did not return after cancel")
	}
}

func TestAdminService_CleanupExpiredSessions(t *testing.T) {
	repo := newFakeUserRepo()
	svc, clock := newTestAuthService(t, repo)
	registerTestUser(t, svc, "old@example.com")
	clock.Advance(12 * time.Hour)
	fresh := registerTestUser(t, svc, "fresh@example.com")

	admin := NewAdminService(nil, repo, testLogger())

	n, err := admin.CleanupExpiredSessions(context.Background(), clock.Now().Add(13*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = svc.ResolveToken(context.Background(), fresh.Token)
	assert.NoError(t, err, "unexpired token survives the sweep")
}
