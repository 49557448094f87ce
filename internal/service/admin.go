package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sakif/codewizard/internal/apperror"
	"github.com/sakif/codewizard/internal/model"
	"github.com/sakif/codewizard/internal/repository"
)

// AdminService computes dashboard rollups and expires stale sessions.
// Nothing is cached: every call reads current data.
type AdminService struct {
	stats  repository.StatsRepository
	users  repository.UserRepository
	logger *slog.Logger
}

func NewAdminService(stats repository.StatsRepository, users repository.UserRepository, logger *slog.Logger) *AdminService {
	return &AdminService{stats: stats, users: users, logger: logger}
}

// Dashboard gathers the three rollups concurrently. The first failure
// cancels the others.
func (s *AdminService) Dashboard(ctx context.Context) (*model.DashboardStats, error) {
	var out model.DashboardStats
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		us, err := s.stats.UserStats(gctx)
		out.Users = us
		return err
	})
	g.Go(func() error {
		ls, err := s.stats.LessonStats(gctx)
		out.Lessons = ls
		return err
	})
	g.Go(func() error {
		ps, err := s.stats.ProgressStats(gctx)
		out.Progress = ps
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("service/admin: computing dashboard: %w", apperror.Typed("dashboard stats", err))
	}
	return &out, nil
}

// CleanupExpiredSessions clears every token that expired before now and
// reports how many were cleared.
func (s *AdminService) CleanupExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	n, err := s.users.ClearExpiredTokens(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("service/admin: clearing expired sessions: %w", apperror.Typed("clear expired tokens", err))
	}
	return n, nil
}
