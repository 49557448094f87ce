package middleware_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/codewizard/internal/auth"
	"github.com/sakif/codewizard/internal/middleware"
	"github.com/sakif/codewizard/internal/model"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func newLimitedHandler(t *testing.T, limit int) (http.Handler, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	rl := middleware.NewRateLimiter(client, limit, time.Minute, quietLogger())
	return rl.Limit("login")(okHandler), mr
}

func hit(h http.Handler, ip string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/login", nil)
	req.RemoteAddr = ip + ":40000"
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestRateLimiter_BlocksAfterLimit(t *testing.T) {
	h, _ := newLimitedHandler(t, 3)

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, hit(h, "10.0.0.1").Code, "request %d", i+1)
	}

	rr := hit(h, "10.0.0.1")
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.NotEmpty(t, rr.Header().Get("Retry-After"))
	assert.Contains(t, rr.Body.String(), `"error":"rate_limited"`)

	// Other clients have their own window.
	assert.Equal(t, http.StatusOK, hit(h, "10.0.0.2").Code)
}

func TestRateLimiter_WindowExpires(t *testing.T) {
	h, mr := newLimitedHandler(t, 1)

	assert.Equal(t, http.StatusOK, hit(h, "10.0.0.1").Code)
	assert.Equal(t, http.StatusTooManyRequests, hit(h, "10.0.0.1").Code)

	mr.FastForward(time.Minute + time.Second)

	assert.Equal(t, http.StatusOK, hit(h, "10.0.0.1").Code)
}

// flakyExpire fails the first n EXPIRE commands and passes everything else
// through to the real client.
type flakyExpire struct {
	redis.Cmdable
	failures int
}

func (f *flakyExpire) Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd {
	if f.failures > 0 {
		f.failures--
		cmd := redis.NewBoolCmd(ctx, "expire", key)
		cmd.SetErr(errors.New("connection reset by peer"))
		return cmd
	}
	return f.Cmdable.Expire(ctx, key, expiration)
}

func TestRateLimiter_RearmsLostExpiry(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	rl := middleware.NewRateLimiter(&flakyExpire{Cmdable: client, failures: 1}, 2, time.Minute, quietLogger())
	h := rl.Limit("login")(okHandler)

	assert.Equal(t, http.StatusOK, hit(h, "10.0.0.1").Code)
	assert.Equal(t, time.Duration(0), mr.TTL("rate_limit:login:10.0.0.1"), "first EXPIRE was lost")
	assert.Equal(t, http.StatusOK, hit(h, "10.0.0.1").Code)

	rr := hit(h, "10.0.0.1")
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "60", rr.Header().Get("Retry-After"))
	assert.Equal(t, time.Minute, mr.TTL("rate_limit:login:10.0.0.1"))

	mr.FastForward(time.Minute + time.Second)

	assert.Equal(t, http.StatusOK, hit(h, "10.0.0.1").Code)
}

func TestRateLimiter_FailsOpen(t *testing.T) {
	h, mr := newLimitedHandler(t, 1)
	mr.Close()

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, hit(h, "10.0.0.1").Code)
	}
}

func TestRateLimiter_Disabled(t *testing.T) {
	var rl *middleware.RateLimiter
	h := rl.Limit("login")(okHandler)

	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, hit(h, "10.0.0.1").Code)
	}
}

func TestLogger_RecordsStatusAndUser(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short and stout"))
	})

	// Simulate RequireAuth storing the identity before RecordIdentity runs.
	withUser := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := auth.WithIdentity(r.Context(), &model.User{ID: 42})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}

	h := middleware.Logger(logger)(withUser(middleware.RecordIdentity(inner)))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/profile", nil).WithContext(context.Background())
	h.ServeHTTP(httptest.NewRecorder(), req)

	line := buf.String()
	assert.Contains(t, line, "status=418")
	assert.Contains(t, line, "bytes=15")
	assert.Contains(t, line, "user_id=42")
	assert.True(t, strings.Contains(line, "level=WARN"), "4xx logs at warn: %s", line)
}
