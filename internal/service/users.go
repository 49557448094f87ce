package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sakif/codewizard/internal/apperror"
	"github.com/sakif/codewizard/internal/model"
)

// Account administration. These run behind RequireAdmin; the service
// itself does not re-check the caller.

func (s *AuthService) GetUser(ctx context.Context, id int64) (*model.User, error) {
	user, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/auth: fetching user %d: %w", id, apperror.Typed("get user", err))
	}
	return user, nil
}

func (s *AuthService) ListUsers(ctx context.Context) ([]model.User, error) {
	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("service/auth: listing users: %w", apperror.Typed("list users", err))
	}
	return users, nil
}

func (s *AuthService) PromoteToAdmin(ctx context.Context, id int64) (*model.User, error) {
	return s.setFlag(id, "promoted to admin", func() (*model.User, error) {
		return s.users.SetUserAdmin(ctx, id, true)
	})
}

func (s *AuthService) DemoteAdmin(ctx context.Context, id int64) (*model.User, error) {
	return s.setFlag(id, "admin removed", func() (*model.User, error) {
		return s.users.SetUserAdmin(ctx, id, false)
	})
}

func (s *AuthService) VerifyUser(ctx context.Context, id int64) (*model.User, error) {
	return s.setFlag(id, "verified", func() (*model.User, error) {
		return s.users.SetUserVerified(ctx, id, true)
	})
}

// BanUser revokes verification. The account and its session stay.
func (s *AuthService) BanUser(ctx context.Context, id int64) (*model.User, error) {
	return s.setFlag(id, "banned", func() (*model.User, error) {
		return s.users.SetUserVerified(ctx, id, false)
	})
}

// PromoteByEmail is the bootstrap path for the first admin, used from the
// command line where no admin exists yet to call the HTTP route.
func (s *AuthService) PromoteByEmail(ctx context.Context, email string) (*model.User, error) {
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.EmailNotFound(email)
		}
		return nil, fmt.Errorf("service/auth: looking up %s: %w", email, apperror.Typed("lookup user", err))
	}
	return s.PromoteToAdmin(ctx, user.ID)
}

func (s *AuthService) DeleteUser(ctx context.Context, id int64) error {
	if err := s.users.DeleteUser(ctx, id); err != nil {
		return fmt.Errorf("service/auth: deleting user %d: %w", id, apperror.Typed("delete user", err))
	}
	s.logger.Info("user deleted", slog.Int64("userID", id))
	return nil
}

func (s *AuthService) setFlag(id int64, action string, apply func() (*model.User, error)) (*model.User, error) {
	user, err := apply()
	if err != nil {
		return nil, fmt.Errorf("service/auth: user %d %s: %w", id, action, apperror.Typed("set user flag", err))
	}
	s.logger.Info("user "+action, slog.Int64("userID", id))
	return user, nil
}
