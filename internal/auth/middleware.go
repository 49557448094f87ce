package auth

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/sakif/codewizard/internal/apperror"
	"github.com/sakif/codewizard/internal/model"
)

// CONTEXT KEYS:
// context.WithValue compares keys by type and value. A plain string key
// like "identity" could collide with any other package using the same
// string. An unexported named type cannot be constructed outside this
// package, so only WithIdentity and IdentityFromContext can touch it.
type contextKey string

const identityKey contextKey = "identity"

// TokenResolver maps a bearer token to its user. It returns an error
// matching apperror.ErrUnauthenticated when the token is unknown or expired.
type TokenResolver interface {
	ResolveToken(ctx context.Context, token string) (*model.User, error)
}

// RequireAuth rejects the request unless it carries a live bearer token.
//
// Steps, in order:
//  1. missing or malformed "Authorization: Bearer <token>" → 401
//  2. resolver reports the token unknown or expired → 401
//  3. otherwise the user is bound to the request context
//
// The guard has no side effects: it never extends or clears a token, and
// there is no guest identity.
func RequireAuth(resolver TokenResolver, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				deny(w, http.StatusUnauthorized, "unauthenticated", "valid authentication required")
				return
			}

			user, err := resolver.ResolveToken(r.Context(), token)
			if err != nil {
				if errors.Is(err, apperror.ErrUnauthenticated) {
					deny(w, http.StatusUnauthorized, "unauthenticated", "valid authentication required")
					return
				}
				attrs := []any{slog.String("error", err.Error())}
				if cause := apperror.CauseOf(err); cause != nil {
					attrs = append(attrs, slog.String("cause", cause.Error()))
				}
				logger.Error("resolving bearer token", attrs...)
				deny(w, http.StatusInternalServerError, "internal_error", "An internal error occurred")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), user)))
		})
	}
}

// RequireAdmin allows the request through only for admin identities. It
// must be mounted after RequireAuth.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := IdentityFromContext(r.Context())
		if !ok {
			deny(w, http.StatusUnauthorized, "unauthenticated", "valid authentication required")
			return
		}
		if !user.IsAdmin {
			deny(w, http.StatusForbidden, "forbidden", "admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// WithIdentity returns a copy of ctx carrying user.
func WithIdentity(ctx context.Context, user *model.User) context.Context {
	return context.WithValue(ctx, identityKey, user)
}

// IdentityFromContext returns the user bound by RequireAuth.
func IdentityFromContext(ctx context.Context) (*model.User, bool) {
	user, ok := ctx.Value(identityKey).(*model.User)
	return user, ok && user != nil
}

// bearerToken extracts the token from the Authorization header. The scheme
// is matched case-insensitively.
func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	if token == "" || strings.ContainsAny(token, " \t") {
		return "", false
	}
	return token, true
}

func deny(w http.ResponseWriter, status int, kind, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   kind,
		"message": message,
	})
}
