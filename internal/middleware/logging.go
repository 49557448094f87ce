// Package middleware contains HTTP middleware shared by every route.
//
// WHAT IS MIDDLEWARE?
// A function that takes the next handler and returns a new one wrapping it.
// Code before next.ServeHTTP runs on the way in, code after it on the way
// out. chi's r.Use stacks them in the order they are registered:
//
//	func MyMiddleware(next http.Handler) http.Handler {
//	    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
//	        // before
//	        next.ServeHTTP(w, r)
//	        // after
//	    })
//	}
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/codewizard/internal/auth"
)

// responseWriter records the status and byte count, which
// http.ResponseWriter does not expose after the fact.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	written    int64
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.written += int64(n)
	return n, err
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// Logger logs one line per request: method, path, status, duration, bytes,
// the chi request id and, when the request was authenticated, the user id.
// 5xx responses log at Error, 4xx at Warn and everything else at Info.
//
// The user id is read after the handler runs, from the request RequireAuth
// saw, so Logger must sit outside the auth guard. The guard stores the
// identity on a derived request; identityRecorder carries it back out.
func Logger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			rec := &identityRecorder{}
			next.ServeHTTP(wrapped, r.WithContext(withRecorder(r.Context(), rec)))

			attrs := []any{
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", wrapped.statusCode),
				slog.Duration("duration", time.Since(start)),
				slog.Int64("bytes", wrapped.written),
			}
			if id := chimiddleware.GetReqID(r.Context()); id != "" {
				attrs = append(attrs, slog.String("request_id", id))
			}
			if rec.userID != 0 {
				attrs = append(attrs, slog.Int64("user_id", rec.userID))
			}

			level := slog.LevelInfo
			switch {
			case wrapped.statusCode >= 500:
				level = slog.LevelError
			case wrapped.statusCode >= 400:
				level = slog.LevelWarn
			}
			logger.Log(r.Context(), level, "request completed", attrs...)
		})
	}
}

// RecordIdentity copies the authenticated user id into the Logger's
// recorder. Mount it after auth.RequireAuth.
func RecordIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rec, ok := r.Context().Value(recorderKey{}).(*identityRecorder); ok {
			if user, ok := auth.IdentityFromContext(r.Context()); ok {
				rec.userID = user.ID
			}
		}
		next.ServeHTTP(w, r)
	})
}

type recorderKey struct{}

type identityRecorder struct {
	userID int64
}

func withRecorder(ctx context.Context, rec *identityRecorder) context.Context {
	return context.WithValue(ctx, recorderKey{}, rec)
}
