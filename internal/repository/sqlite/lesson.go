package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/sakif/codewizard/internal/apperror"
	"github.com/sakif/codewizard/internal/model"
	"github.com/sakif/codewizard/internal/repository"
)

var _ repository.LessonRepository = (*DB)(nil)

const lessonColumns = `id, title, description, difficulty, content, order_index, created_at`

func scanLesson(row rowScanner) (*model.Lesson, error) {
	var (
		l         model.Lesson
		createdAt int64
	)
	if err := row.Scan(
		&l.ID,
		&l.Title,
		&l.Description,
		&l.Difficulty,
		&l.Content,
		&l.OrderIndex,
		&createdAt,
	); err != nil {
		return nil, err
	}
	l.CreatedAt = fromMillis(createdAt)
	return &l, nil
}

func (db *DB) CreateLesson(ctx context.Context, lesson *model.Lesson) error {
	lesson.CreatedAt = db.timestamp()

	res, err := db.conn.ExecContext(ctx,
		`INSERT INTO lessons (title, description, difficulty, content, order_index, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		lesson.Title,
		lesson.Description,
		lesson.Difficulty,
		lesson.Content,
		lesson.OrderIndex,
		toMillis(lesson.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting lesson: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("sqlite: reading new lesson id: %w", err)
	}
	lesson.ID = id
	return nil
}

func (db *DB) GetLesson(ctx context.Context, id int64) (*model.Lesson, error) {
	l, err := scanLesson(db.conn.QueryRowContext(ctx,
		`SELECT `+lessonColumns+` FROM lessons WHERE id = ?`, id,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("lesson", id)
		}
		return nil, fmt.Errorf("sqlite: getting lesson %d: %w", id, err)
	}
	return l, nil
}

func (db *DB) ListLessons(ctx context.Context) ([]model.Lesson, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+lessonColumns+` FROM lessons ORDER BY order_index ASC, id ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing lessons: %w", err)
	}
	defer rows.Close()

	lessons := []model.Lesson{}
	for rows.Next() {
		l, err := scanLesson(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning lesson row: %w", err)
		}
		lessons = append(lessons, *l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating lesson rows: %w", err)
	}
	return lessons, nil
}

// UpdateLesson overwrites every mutable column. CreatedAt is left alone.
func (db *DB) UpdateLesson(ctx context.Context, lesson *model.Lesson) error {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE lessons
		 SET title = ?, description = ?, difficulty = ?, content = ?, order_index = ?
		 WHERE id = ?`,
		lesson.Title,
		lesson.Description,
		lesson.Difficulty,
		lesson.Content,
		lesson.OrderIndex,
		lesson.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating lesson %d: %w", lesson.ID, err)
	}
	return requireAffected(res, "lesson", lesson.ID)
}

// DeleteLesson removes the lesson and, by cascade, its quiz, hints,
// progress rows and submissions.
func (db *DB) DeleteLesson(ctx context.Context, id int64) error {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM lessons WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting lesson %d: %w", id, err)
	}
	return requireAffected(res, "lesson", id)
}
