package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sakif/codewizard/internal/apperror"
	"github.com/sakif/codewizard/internal/model"
	"github.com/sakif/codewizard/internal/repository"
)

var (
	_ repository.QuizRepository       = (*DB)(nil)
	_ repository.SubmissionRepository = (*DB)(nil)
)

const quizColumns = `id, lesson_id, title, questions, total_points, created_at`

func scanQuiz(row rowScanner) (*model.Quiz, error) {
	var (
		q         model.Quiz
		questions string
		createdAt int64
	)
	if err := row.Scan(&q.ID, &q.LessonID, &q.Title, &questions, &q.TotalPoints, &createdAt); err != nil {
		return nil, err
	}
	q.Questions = json.RawMessage(questions)
	q.CreatedAt = fromMillis(createdAt)
	return &q, nil
}

// CreateQuiz inserts the quiz for its lesson. A lesson already holding a
// quiz yields a conflict; a missing lesson yields NotFound.
func (db *DB) CreateQuiz(ctx context.Context, quiz *model.Quiz) error {
	quiz.CreatedAt = db.timestamp()

	res, err := db.conn.ExecContext(ctx,
		`INSERT INTO quizzes (lesson_id, title, questions, total_points, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		quiz.LessonID,
		quiz.Title,
		string(quiz.Questions),
		quiz.TotalPoints,
		toMillis(quiz.CreatedAt),
	)
	if err != nil {
		switch {
		case isUniqueViolation(err):
			return apperror.Conflict("quiz for lesson", quiz.LessonID)
		case isForeignKeyViolation(err):
			return apperror.NotFound("lesson", quiz.LessonID)
		}
		return fmt.Errorf("sqlite: inserting quiz for lesson %d: %w", quiz.LessonID, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("sqlite: reading new quiz id: %w", err)
	}
	quiz.ID = id
	return nil
}

func (db *DB) GetQuiz(ctx context.Context, id int64) (*model.Quiz, error) {
	q, err := scanQuiz(db.conn.QueryRowContext(ctx,
		`SELECT `+quizColumns+` FROM quizzes WHERE id = ?`, id,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("quiz", id)
		}
		return nil, fmt.Errorf("sqlite: getting quiz %d: %w", id, err)
	}
	return q, nil
}

func (db *DB) GetQuizByLesson(ctx context.Context, lessonID int64) (*model.Quiz, error) {
	q, err := scanQuiz(db.conn.QueryRowContext(ctx,
		`SELECT `+quizColumns+` FROM quizzes WHERE lesson_id = ?`, lessonID,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("quiz for lesson", lessonID)
		}
		return nil, fmt.Errorf("sqlite: getting quiz for lesson %d: %w", lessonID, err)
	}
	return q, nil
}

func (db *DB) UpdateQuiz(ctx context.Context, quiz *model.Quiz) error {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE quizzes SET title = ?, questions = ?, total_points = ? WHERE id = ?`,
		quiz.Title,
		string(quiz.Questions),
		quiz.TotalPoints,
		quiz.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating quiz %d: %w", quiz.ID, err)
	}
	return requireAffected(res, "quiz", quiz.ID)
}

// CreateSubmission always inserts: submissions are never merged.
func (db *DB) CreateSubmission(ctx context.Context, sub *model.QuizSubmission) error {
	sub.SubmittedAt = db.timestamp()

	res, err := db.conn.ExecContext(ctx,
		`INSERT INTO quiz_submissions (user_id, quiz_id, lesson_id, answers, score, max_score, submitted_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sub.UserID,
		sub.QuizID,
		sub.LessonID,
		string(sub.Answers),
		sub.Score,
		sub.MaxScore,
		toMillis(sub.SubmittedAt),
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return apperror.NotFound("quiz", sub.QuizID)
		}
		return fmt.Errorf("sqlite: inserting submission for user %d: %w", sub.UserID, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("sqlite: reading new submission id: %w", err)
	}
	sub.ID = id
	return nil
}

func (db *DB) ListSubmissionsByUser(ctx context.Context, userID int64) ([]model.QuizSubmission, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, user_id, quiz_id, lesson_id, answers, score, max_score, submitted_at
		 FROM quiz_submissions
		 WHERE user_id = ?
		 ORDER BY submitted_at DESC, id DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing submissions for user %d: %w", userID, err)
	}
	defer rows.Close()

	subs := []model.QuizSubmission{}
	for rows.Next() {
		var (
			s           model.QuizSubmission
			answers     string
			submittedAt int64
		)
		if err := rows.Scan(&s.ID, &s.UserID, &s.QuizID, &s.LessonID, &answers, &s.Score, &s.MaxScore, &submittedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning submission row: %w", err)
		}
		s.Answers = json.RawMessage(answers)
		s.SubmittedAt = fromMillis(submittedAt)
		subs = append(subs, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating submission rows: %w", err)
	}
	return subs, nil
}
