// Package repository declares the storage contracts the services depend on.
// internal/repository/sqlite is the only implementation.
//
// Lookups that miss return an error matching apperror.ErrNotFound. Writes
// that break a uniqueness rule return one matching apperror.ErrConflict.
package repository

import (
	"context"
	"time"

	"github.com/sakif/codewizard/internal/model"
)

type UserRepository interface {
	// CreateUser inserts user and fills in ID and CreatedAt.
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id int64) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	// GetUserByToken matches the token only; expiry is the caller's check.
	GetUserByToken(ctx context.Context, token string) (*model.User, error)
	// ListUsers returns every user, newest first.
	ListUsers(ctx context.Context) ([]model.User, error)
	UpdateUserProfile(ctx context.Context, id int64, name, email string) (*model.User, error)
	UpdateUserPassword(ctx context.Context, id int64, passwordHash string) error
	// SwapUserToken stores token only if the user holds no token live at
	// now. It reports whether the swap happened.
	SwapUserToken(ctx context.Context, id int64, token string, expiresAt, now time.Time) (bool, error)
	ClearUserToken(ctx context.Context, id int64) error
	SetUserAdmin(ctx context.Context, id int64, isAdmin bool) (*model.User, error)
	SetUserVerified(ctx context.Context, id int64, isVerified bool) (*model.User, error)
	DeleteUser(ctx context.Context, id int64) error
	// ClearExpiredTokens drops every token whose expiry is before now and
	// returns how many users were affected.
	ClearExpiredTokens(ctx context.Context, now time.Time) (int64, error)
}

type LessonRepository interface {
	CreateLesson(ctx context.Context, lesson *model.Lesson) error
	GetLesson(ctx context.Context, id int64) (*model.Lesson, error)
	// ListLessons orders by order_index, then id.
	ListLessons(ctx context.Context) ([]model.Lesson, error)
	UpdateLesson(ctx context.Context, lesson *model.Lesson) error
	DeleteLesson(ctx context.Context, id int64) error
}

type QuizRepository interface {
	CreateQuiz(ctx context.Context, quiz *model.Quiz) error
	GetQuiz(ctx context.Context, id int64) (*model.Quiz, error)
	GetQuizByLesson(ctx context.Context, lessonID int64) (*model.Quiz, error)
	UpdateQuiz(ctx context.Context, quiz *model.Quiz) error
}

type SubmissionRepository interface {
	CreateSubmission(ctx context.Context, sub *model.QuizSubmission) error
	// ListSubmissionsByUser returns newest first.
	ListSubmissionsByUser(ctx context.Context, userID int64) ([]model.QuizSubmission, error)
}

type ProgressRepository interface {
	// UpsertProgress inserts the (user, lesson) row or overwrites it in a
	// single statement, then fills p from the stored row.
	UpsertProgress(ctx context.Context, p *model.Progress) error
	GetProgress(ctx context.Context, userID, lessonID int64) (*model.Progress, error)
	ListProgressByUser(ctx context.Context, userID int64) ([]model.Progress, error)
}

type HintRepository interface {
	CreateHint(ctx context.Context, hint *model.Hint) error
	// ListHintsByLesson orders by difficulty_level, then id.
	ListHintsByLesson(ctx context.Context, lessonID int64) ([]model.Hint, error)
}

type StatsRepository interface {
	UserStats(ctx context.Context) (model.UserStats, error)
	LessonStats(ctx context.Context) (model.LessonStats, error)
	ProgressStats(ctx context.Context) (model.ProgressStats, error)
}
