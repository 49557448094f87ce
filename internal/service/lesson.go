package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/codewizard/internal/apperror"
	"github.com/sakif/codewizard/internal/model"
	"github.com/sakif/codewizard/internal/repository"
)

const (
	maxTitleLength  = 200
	minHintLevel    = 1
	defaultHintTier = minHintLevel
)

// LessonService manages course content: lessons and their hints.
type LessonService struct {
	lessons repository.LessonRepository
	hints   repository.HintRepository
	logger  *slog.Logger
}

func NewLessonService(lessons repository.LessonRepository, hints repository.HintRepository, logger *slog.Logger) *LessonService {
	return &LessonService{lessons: lessons, hints: hints, logger: logger}
}

type LessonInput struct {
	Title       string
	Description string
	Difficulty  string
	Content     string
	OrderIndex  int
}

// LessonUpdate uses nil for "not supplied". Supplied zero values, such as
// an empty description or order index 0, are written.
type LessonUpdate struct {
	Title       *string
	Description *string
	Difficulty  *string
	Content     *string
	OrderIndex  *int
}

func (s *LessonService) List(ctx context.Context) ([]model.Lesson, error) {
	lessons, err := s.lessons.ListLessons(ctx)
	if err != nil {
		return nil, fmt.Errorf("service/lesson: listing: %w", apperror.Typed("list lessons", err))
	}
	return lessons, nil
}

func (s *LessonService) Get(ctx context.Context, id int64) (*model.Lesson, error) {
	lesson, err := s.lessons.GetLesson(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/lesson: fetching %d: %w", id, apperror.Typed("get lesson", err))
	}
	return lesson, nil
}

func (s *LessonService) Create(ctx context.Context, in LessonInput) (*model.Lesson, error) {
	lesson := &model.Lesson{
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		Difficulty:  in.Difficulty,
		Content:     in.Content,
		OrderIndex:  in.OrderIndex,
	}
	if lesson.Difficulty == "" {
		lesson.Difficulty = model.DifficultyBeginner
	}
	if err := validateLesson(lesson); err != nil {
		return nil, err
	}

	if err := s.lessons.CreateLesson(ctx, lesson); err != nil {
		return nil, fmt.Errorf("service/lesson: creating: %w", apperror.Typed("create lesson", err))
	}

	s.logger.Info("lesson created", slog.Int64("lessonID", lesson.ID), slog.String("title", lesson.Title))
	return lesson, nil
}

func (s *LessonService) Update(ctx context.Context, id int64, upd LessonUpdate) (*model.Lesson, error) {
	lesson, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if upd.Title != nil {
		lesson.Title = strings.TrimSpace(*upd.Title)
	}
	if upd.Description != nil {
		lesson.Description = *upd.Description
	}
	if upd.Difficulty != nil {
		lesson.Difficulty = *upd.Difficulty
	}
	if upd.Content != nil {
		lesson.Content = *upd.Content
	}
	if upd.OrderIndex != nil {
		lesson.OrderIndex = *upd.OrderIndex
	}
	if err := validateLesson(lesson); err != nil {
		return nil, err
	}

	if err := s.lessons.UpdateLesson(ctx, lesson); err != nil {
		return nil, fmt.Errorf("service/lesson: updating %d: %w", id, apperror.Typed("update lesson", err))
	}
	return lesson, nil
}

// Delete removes the lesson together with its quiz, hints, progress and
// submissions.
func (s *LessonService) Delete(ctx context.Context, id int64) error {
	if err := s.lessons.DeleteLesson(ctx, id); err != nil {
		return fmt.Errorf("service/lesson: deleting %d: %w", id, apperror.Typed("delete lesson", err))
	}
	s.logger.Info("lesson deleted", slog.Int64("lessonID", id))
	return nil
}

// Hints returns the lesson's hints easiest first. An unknown lesson simply
// has no hints.
func (s *LessonService) Hints(ctx context.Context, lessonID int64) ([]model.Hint, error) {
	hints, err := s.hints.ListHintsByLesson(ctx, lessonID)
	if err != nil {
		return nil, fmt.Errorf("service/lesson: listing hints for %d: %w", lessonID, apperror.Typed("list hints", err))
	}
	return hints, nil
}

type HintInput struct {
	Text            string
	DifficultyLevel *int
}

func (s *LessonService) AddHint(ctx context.Context, lessonID int64, in HintInput) (*model.Hint, error) {
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil, apperror.ValidationFailed("text", "hint text is required")
	}
	level := defaultHintTier
	if in.DifficultyLevel != nil {
		level = *in.DifficultyLevel
	}
	// Levels are open-ended; hints list in ascending level order.
	if level < minHintLevel {
		return nil, apperror.ValidationFailed("difficultyLevel", "difficulty level must be 1 or higher")
	}

	if _, err := s.Get(ctx, lessonID); err != nil {
		return nil, err
	}

	hint := &model.Hint{LessonID: lessonID, Text: text, DifficultyLevel: level}
	if err := s.hints.CreateHint(ctx, hint); err != nil {
		return nil, fmt.Errorf("service/lesson: adding hint to %d: %w", lessonID, apperror.Typed("create hint", err))
	}
	return hint, nil
}

func validateLesson(l *model.Lesson) error {
	if l.Title == "" {
		return apperror.ValidationFailed("title", "lesson title is required")
	}
	if len(l.Title) > maxTitleLength {
		return apperror.ValidationFailed("title", fmt.Sprintf("lesson title must be %d characters or fewer", maxTitleLength))
	}
	if !model.ValidDifficulty(l.Difficulty) {
		return apperror.ValidationFailed("difficulty", "difficulty must be beginner, intermediate or advanced")
	}
	return nil
}
