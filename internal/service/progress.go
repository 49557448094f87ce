package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sakif/codewizard/internal/apperror"
	"github.com/sakif/codewizard/internal/model"
	"github.com/sakif/codewizard/internal/repository"
)

// ProgressService tracks one progress record per (user, lesson).
type ProgressService struct {
	progress repository.ProgressRepository
	lessons  repository.LessonRepository
	logger   *slog.Logger
}

func NewProgressService(progress repository.ProgressRepository, lessons repository.LessonRepository, logger *slog.Logger) *ProgressService {
	return &ProgressService{progress: progress, lessons: lessons, logger: logger}
}

// ProgressInput is a full snapshot: every save overwrites all three fields.
// CompletionPercentage is stored as given.
type ProgressInput struct {
	Completed            bool
	CompletionPercentage float64
	TimeSpent            int
}

// Save records the user's progress on the lesson, inserting on first save
// and overwriting afterwards.
func (s *ProgressService) Save(ctx context.Context, userID, lessonID int64, in ProgressInput) (*model.Progress, error) {
	if in.TimeSpent < 0 {
		return nil, apperror.ValidationFailed("timeSpent", "time spent must not be negative")
	}

	if _, err := s.lessons.GetLesson(ctx, lessonID); err != nil {
		return nil, fmt.Errorf("service/progress: checking lesson %d: %w", lessonID, apperror.Typed("get lesson", err))
	}

	p := &model.Progress{
		UserID:               userID,
		LessonID:             lessonID,
		Completed:            in.Completed,
		CompletionPercentage: in.CompletionPercentage,
		TimeSpent:            in.TimeSpent,
	}
	if err := s.progress.UpsertProgress(ctx, p); err != nil {
		return nil, fmt.Errorf("service/progress: saving (user=%d, lesson=%d): %w", userID, lessonID, apperror.Typed("upsert progress", err))
	}

	s.logger.Debug("progress saved",
		slog.Int64("userID", userID),
		slog.Int64("lessonID", lessonID),
		slog.Bool("completed", p.Completed),
	)
	return p, nil
}

// List returns every progress record of the user, ordered by lesson.
func (s *ProgressService) List(ctx context.Context, userID int64) ([]model.Progress, error) {
	rows, err := s.progress.ListProgressByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service/progress: listing for user %d: %w", userID, apperror.Typed("list progress", err))
	}
	return rows, nil
}

func (s *ProgressService) Get(ctx context.Context, userID, lessonID int64) (*model.Progress, error) {
	p, err := s.progress.GetProgress(ctx, userID, lessonID)
	if err != nil {
		return nil, fmt.Errorf("service/progress: fetching (user=%d, lesson=%d): %w", userID, lessonID, apperror.Typed("get progress", err))
	}
	return p, nil
}
