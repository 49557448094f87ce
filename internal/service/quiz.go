package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/sakif/codewizard/internal/apperror"
	"github.com/sakif/codewizard/internal/model"
	"github.com/sakif/codewizard/internal/repository"
)

const defaultMaxScore = 100

// QuizService serves quizzes and keeps the append-only submission ledger.
type QuizService struct {
	quizzes     repository.QuizRepository
	submissions repository.SubmissionRepository
	lessons     repository.LessonRepository
	logger      *slog.Logger
}

func NewQuizService(
	quizzes repository.QuizRepository,
	submissions repository.SubmissionRepository,
	lessons repository.LessonRepository,
	logger *slog.Logger,
) *QuizService {
	return &QuizService{
		quizzes:     quizzes,
		submissions: submissions,
		lessons:     lessons,
		logger:      logger,
	}
}

// ForLesson returns the lesson's quiz or NotFound.
func (s *QuizService) ForLesson(ctx context.Context, lessonID int64) (*model.Quiz, error) {
	quiz, err := s.quizzes.GetQuizByLesson(ctx, lessonID)
	if err != nil {
		return nil, fmt.Errorf("service/quiz: fetching for lesson %d: %w", lessonID, apperror.Typed("get quiz", err))
	}
	return quiz, nil
}

type QuizInput struct {
	Title       string
	Questions   json.RawMessage
	TotalPoints *int
}

// QuizUpdate uses nil for "not supplied" on every field.
type QuizUpdate struct {
	Title       *string
	Questions   json.RawMessage
	TotalPoints *int
}

// Create attaches a quiz to the lesson. A lesson holds at most one quiz.
func (s *QuizService) Create(ctx context.Context, lessonID int64, in QuizInput) (*model.Quiz, error) {
	if err := requireJSON("questions", in.Questions); err != nil {
		return nil, err
	}
	points := model.DefaultTotalPoints
	if in.TotalPoints != nil {
		points = *in.TotalPoints
	}
	if points <= 0 {
		return nil, apperror.ValidationFailed("totalPoints", "total points must be positive")
	}

	if _, err := s.lessons.GetLesson(ctx, lessonID); err != nil {
		return nil, fmt.Errorf("service/quiz: checking lesson %d: %w", lessonID, apperror.Typed("get lesson", err))
	}

	quiz := &model.Quiz{
		LessonID:    lessonID,
		Title:       in.Title,
		Questions:   in.Questions,
		TotalPoints: points,
	}
	if err := s.quizzes.CreateQuiz(ctx, quiz); err != nil {
		return nil, fmt.Errorf("service/quiz: creating for lesson %d: %w", lessonID, apperror.Typed("create quiz", err))
	}

	s.logger.Info("quiz created", slog.Int64("quizID", quiz.ID), slog.Int64("lessonID", lessonID))
	return quiz, nil
}

func (s *QuizService) Update(ctx context.Context, quizID int64, upd QuizUpdate) (*model.Quiz, error) {
	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return nil, fmt.Errorf("service/quiz: fetching %d: %w", quizID, apperror.Typed("get quiz", err))
	}

	if upd.Title != nil {
		quiz.Title = *upd.Title
	}
	if upd.Questions != nil {
		if err := requireJSON("questions", upd.Questions); err != nil {
			return nil, err
		}
		quiz.Questions = upd.Questions
	}
	if upd.TotalPoints != nil {
		if *upd.TotalPoints <= 0 {
			return nil, apperror.ValidationFailed("totalPoints", "total points must be positive")
		}
		quiz.TotalPoints = *upd.TotalPoints
	}

	if err := s.quizzes.UpdateQuiz(ctx, quiz); err != nil {
		return nil, fmt.Errorf("service/quiz: updating %d: %w", quizID, apperror.Typed("update quiz", err))
	}
	return quiz, nil
}

// SubmissionInput carries one attempt. Score defaults to 0 and MaxScore to
// 100 when not supplied.
type SubmissionInput struct {
	Answers  json.RawMessage
	Score    *float64
	MaxScore *float64
}

// Submit appends a submission for the lesson's quiz. It never merges with
// earlier attempts.
func (s *QuizService) Submit(ctx context.Context, userID, lessonID int64, in SubmissionInput) (*model.QuizSubmission, error) {
	if err := requireJSON("answers", in.Answers); err != nil {
		return nil, err
	}
	score, maxScore := 0.0, float64(defaultMaxScore)
	if in.Score != nil {
		score = *in.Score
	}
	if in.MaxScore != nil {
		maxScore = *in.MaxScore
	}
	if score < 0 || maxScore < 0 {
		return nil, apperror.ValidationFailed("score", "scores must not be negative")
	}

	quiz, err := s.quizzes.GetQuizByLesson(ctx, lessonID)
	if err != nil {
		return nil, fmt.Errorf("service/quiz: fetching for lesson %d: %w", lessonID, apperror.Typed("get quiz", err))
	}

	sub := &model.QuizSubmission{
		UserID:   userID,
		QuizID:   quiz.ID,
		LessonID: lessonID,
		Answers:  in.Answers,
		Score:    score,
		MaxScore: maxScore,
	}
	if err := s.submissions.CreateSubmission(ctx, sub); err != nil {
		return nil, fmt.Errorf("service/quiz: recording submission: %w", apperror.Typed("create submission", err))
	}

	s.logger.Info("quiz submitted",
		slog.Int64("userID", userID),
		slog.Int64("quizID", quiz.ID),
		slog.Float64("score", score),
	)
	return sub, nil
}

// Submissions returns the user's attempts newest first.
func (s *QuizService) Submissions(ctx context.Context, userID int64) ([]model.QuizSubmission, error) {
	subs, err := s.submissions.ListSubmissionsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service/quiz: listing submissions for user %d: %w", userID, apperror.Typed("list submissions", err))
	}
	return subs, nil
}

// requireJSON rejects missing, invalid or empty JSON documents. null, {},
// [] and "" all count as empty.
func requireJSON(field string, raw json.RawMessage) error {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return apperror.ValidationFailed(field, field+" are required")
	}
	if !json.Valid(trimmed) {
		return apperror.ValidationFailed(field, field+" must be valid JSON")
	}

	var v any
	if err := json.Unmarshal(trimmed, &v); err != nil {
		return apperror.ValidationFailed(field, field+" must be valid JSON")
	}
	switch t := v.(type) {
	case nil:
		return apperror.ValidationFailed(field, field+" are required")
	case map[string]any:
		if len(t) == 0 {
			return apperror.ValidationFailed(field, field+" are required")
		}
	case []any:
		if len(t) == 0 {
			return apperror.ValidationFailed(field, field+" are required")
		}
	case string:
		if t == "" {
			return apperror.ValidationFailed(field, field+" are required")
		}
	}
	return nil
}
