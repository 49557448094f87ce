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

var _ repository.ProgressRepository = (*DB)(nil)

const progressColumns = `id, user_id, lesson_id, completed, completion_percentage, time_spent, last_accessed, created_at`

func scanProgress(row rowScanner) (*model.Progress, error) {
	var (
		p            model.Progress
		lastAccessed int64
		createdAt    int64
	)
	if err := row.Scan(
		&p.ID,
		&p.UserID,
		&p.LessonID,
		&p.Completed,
		&p.CompletionPercentage,
		&p.TimeSpent,
		&lastAccessed,
		&createdAt,
	); err != nil {
		return nil, err
	}
	p.LastAccessed = fromMillis(lastAccessed)
	p.CreatedAt = fromMillis(createdAt)
	return &p, nil
}

// UpsertProgress writes the (user, lesson) row in one statement.
//
// The UNIQUE(user_id, lesson_id) constraint arbitrates concurrent saves:
// whichever statement runs second takes the DO UPDATE branch, so the pair
// never gets two rows. The update overwrites every field and refreshes
// last_accessed; created_at keeps its first value.
func (db *DB) UpsertProgress(ctx context.Context, p *model.Progress) error {
	now := toMillis(db.timestamp())

	stored, err := scanProgress(db.conn.QueryRowContext(ctx,
		`INSERT INTO progress (user_id, lesson_id, completed, completion_percentage, time_spent, last_accessed, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (user_id, lesson_id) DO UPDATE SET
		     completed             = excluded.completed,
		     completion_percentage = excluded.completion_percentage,
		     time_spent            = excluded.time_spent,
		     last_accessed         = excluded.last_accessed
		 RETURNING `+progressColumns,
		p.UserID,
		p.LessonID,
		boolToInt(p.Completed),
		p.CompletionPercentage,
		p.TimeSpent,
		now,
		now,
	))
	if err != nil {
		if isForeignKeyViolation(err) {
			return apperror.NotFound("lesson", p.LessonID)
		}
		return fmt.Errorf("sqlite: upserting progress (user=%d, lesson=%d): %w", p.UserID, p.LessonID, err)
	}

	*p = *stored
	return nil
}

func (db *DB) GetProgress(ctx context.Context, userID, lessonID int64) (*model.Progress, error) {
	p, err := scanProgress(db.conn.QueryRowContext(ctx,
		`SELECT `+progressColumns+` FROM progress WHERE user_id = ? AND lesson_id = ?`,
		userID, lessonID,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("progress for lesson", lessonID)
		}
		return nil, fmt.Errorf("sqlite: getting progress (user=%d, lesson=%d): %w", userID, lessonID, err)
	}
	return p, nil
}

func (db *DB) ListProgressByUser(ctx context.Context, userID int64) ([]model.Progress, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+progressColumns+` FROM progress WHERE user_id = ? ORDER BY lesson_id ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing progress for user %d: %w", userID, err)
	}
	defer rows.Close()

	out := []model.Progress{}
	for rows.Next() {
		p, err := scanProgress(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning progress row: %w", err)
		}
		out = append(out, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating progress rows: %w", err)
	}
	return out, nil
}
