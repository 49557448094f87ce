// Package service holds the business rules. Services take repository
// interfaces and return apperror kinds; they know nothing about HTTP.
//
//	handler (HTTP) → service (rules) → repository (storage)
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sakif/codewizard/internal/apperror"
	"github.com/sakif/codewizard/internal/auth"
	"github.com/sakif/codewizard/internal/model"
	"github.com/sakif/codewizard/internal/repository"
)

// maxTokenSwapAttempts bounds the login retry loop when another request
// keeps replacing the token between our read and our write.
const maxTokenSwapAttempts = 3

// AuthService owns registration, login and session resolution.
type AuthService struct {
	users  repository.UserRepository
	hasher *auth.Hasher
	tokens *auth.TokenIssuer
	logger *slog.Logger
	now    func() time.Time
}

func NewAuthService(
	users repository.UserRepository,
	hasher *auth.Hasher,
	tokens *auth.TokenIssuer,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:  users,
		hasher: hasher,
		tokens: tokens,
		logger: logger,
		now:    time.Now,
	}
}

// AuthResult bundles the user with the bearer token to hand back.
type AuthResult struct {
	User      *model.User
	Token     string
	ExpiresAt time.Time
}

type RegisterInput struct {
	Email    string
	Password string
	Name     string
}

// Register creates an account and returns its first token.
//
// The email pre-check only produces a friendlier early error; the UNIQUE
// constraint on users.email is what guarantees one account per email when
// two registrations race.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	if err := validateEmail(in.Email); err != nil {
		return nil, err
	}
	if err := validatePassword(in.Password); err != nil {
		return nil, err
	}
	if in.Name == "" {
		return nil, apperror.ValidationFailed("name", "name is required")
	}

	_, err := s.users.GetUserByEmail(ctx, in.Email)
	switch {
	case err == nil:
		return nil, apperror.Conflict("user", in.Email)
	case !errors.Is(err, apperror.ErrNotFound):
		return nil, fmt.Errorf("service/auth: checking email: %w", apperror.Typed("lookup user", err))
	}

	hash, err := s.hasher.Hash(ctx, in.Password)
	if err != nil {
		return nil, fmt.Errorf("service/auth: hashing password: %w", err)
	}

	token, expiresAt, err := s.tokens.Issue()
	if err != nil {
		return nil, fmt.Errorf("service/auth: issuing token: %w", err)
	}

	user := &model.User{
		Email:          in.Email,
		PasswordHash:   hash,
		Name:           in.Name,
		Token:          token,
		TokenExpiresAt: expiresAt,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("service/auth: creating user: %w", apperror.Typed("create user", err))
	}

	s.logger.Info("user registered", slog.Int64("userID", user.ID))

	return &AuthResult{User: user, Token: token, ExpiresAt: expiresAt}, nil
}

// Login checks credentials and returns the user's live token, issuing a new
// one only when none is held or the held one has expired. A live token is
// never rotated, so every device logged in as the user shares it.
//
// LOGIN FLOW:
//  1. look the user up by email (unknown email → ErrEmailNotFound, 404)
//  2. compare the password through the bounded hasher (→ 401 on mismatch)
//  3. token still live → return it unchanged
//  4. otherwise SwapUserToken installs a fresh one only if the row still
//     holds no live token; losing that race means another login just won,
//     so reload and return the winner's token
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	if email == "" {
		return nil, apperror.ValidationFailed("email", "email is required")
	}
	if password == "" {
		return nil, apperror.ValidationFailed("password", "password is required")
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.EmailNotFound(email)
		}
		return nil, fmt.Errorf("service/auth: looking up user: %w", apperror.Typed("lookup user", err))
	}

	ok, err := s.hasher.Verify(ctx, user.PasswordHash, password)
	if err != nil {
		return nil, fmt.Errorf("service/auth: verifying password: %w", err)
	}
	if !ok {
		s.logger.Info("login rejected", slog.Int64("userID", user.ID))
		return nil, apperror.InvalidPassword()
	}

	for attempt := 0; attempt < maxTokenSwapAttempts; attempt++ {
		now := s.now()
		if user.HasLiveToken(now) {
			return &AuthResult{User: user, Token: user.Token, ExpiresAt: user.TokenExpiresAt}, nil
		}

		token, expiresAt, err := s.tokens.Issue()
		if err != nil {
			return nil, fmt.Errorf("service/auth: issuing token: %w", err)
		}

		swapped, err := s.users.SwapUserToken(ctx, user.ID, token, expiresAt, now)
		if err != nil {
			return nil, fmt.Errorf("service/auth: storing token: %w", apperror.Typed("store token", err))
		}
		if swapped {
			user.Token = token
			user.TokenExpiresAt = expiresAt
			s.logger.Info("session issued", slog.Int64("userID", user.ID))
			return &AuthResult{User: user, Token: token, ExpiresAt: expiresAt}, nil
		}

		// Another login stored a token first; adopt it.
		user, err = s.users.GetUserByID(ctx, user.ID)
		if err != nil {
			return nil, fmt.Errorf("service/auth: reloading user: %w", apperror.Typed("reload user", err))
		}
	}

	return nil, fmt.Errorf("service/auth: %w",
		apperror.StorageFailure("login", fmt.Errorf("token for user %d kept changing", user.ID)))
}

// ResolveToken returns the user holding token. Unknown and expired tokens
// both yield ErrUnauthenticated. Nothing is written.
func (s *AuthService) ResolveToken(ctx context.Context, token string) (*model.User, error) {
	if token == "" {
		return nil, apperror.Unauthenticated("missing token")
	}

	user, err := s.users.GetUserByToken(ctx, token)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.Unauthenticated("invalid or expired token")
		}
		return nil, fmt.Errorf("service/auth: resolving token: %w", apperror.Typed("resolve token", err))
	}

	if !user.HasLiveToken(s.now()) {
		return nil, apperror.Unauthenticated("invalid or expired token")
	}
	return user, nil
}

// Logout drops the user's token. Every client sharing it is signed out.
func (s *AuthService) Logout(ctx context.Context, userID int64) error {
	if err := s.users.ClearUserToken(ctx, userID); err != nil {
		return fmt.Errorf("service/auth: logging out user %d: %w", userID, apperror.Typed("clear token", err))
	}
	s.logger.Info("user logged out", slog.Int64("userID", userID))
	return nil
}

// ProfileUpdate carries explicit presence: a nil field was not supplied and
// is left unchanged. A supplied empty Name clears the name.
type ProfileUpdate struct {
	Name  *string
	Email *string
}

func (s *AuthService) UpdateProfile(ctx context.Context, userID int64, upd ProfileUpdate) (*model.User, error) {
	if upd.Name == nil && upd.Email == nil {
		return nil, apperror.ValidationFailed("", "no fields to update")
	}

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: loading user %d: %w", userID, apperror.Typed("load user", err))
	}

	name, email := user.Name, user.Email
	if upd.Name != nil {
		name = *upd.Name
	}
	if upd.Email != nil && *upd.Email != user.Email {
		if err := validateEmail(*upd.Email); err != nil {
			return nil, err
		}
		email = *upd.Email
	}

	updated, err := s.users.UpdateUserProfile(ctx, userID, name, email)
	if err != nil {
		return nil, fmt.Errorf("service/auth: updating profile %d: %w", userID, apperror.Typed("update profile", err))
	}
	return updated, nil
}

// ChangePassword requires the current password. The session is kept.
func (s *AuthService) ChangePassword(ctx context.Context, userID int64, current, next string) error {
	if err := validatePassword(next); err != nil {
		return err
	}

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("service/auth: loading user %d: %w", userID, apperror.Typed("load user", err))
	}

	ok, err := s.hasher.Verify(ctx, user.PasswordHash, current)
	if err != nil {
		return fmt.Errorf("service/auth: verifying password: %w", err)
	}
	if !ok {
		return apperror.InvalidPassword()
	}

	hash, err := s.hasher.Hash(ctx, next)
	if err != nil {
		return fmt.Errorf("service/auth: hashing password: %w", err)
	}
	if err := s.users.UpdateUserPassword(ctx, userID, hash); err != nil {
		return fmt.Errorf("service/auth: storing password: %w", apperror.Typed("update password", err))
	}

	s.logger.Info("password changed", slog.Int64("userID", userID))
	return nil
}
