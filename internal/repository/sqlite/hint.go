package sqlite

import (
	"context"
	"fmt"

	"github.com/sakif/codewizard/internal/apperror"
	"github.com/sakif/codewizard/internal/model"
	"github.com/sakif/codewizard/internal/repository"
)

var _ repository.HintRepository = (*DB)(nil)

func (db *DB) CreateHint(ctx context.Context, hint *model.Hint) error {
	hint.CreatedAt = db.timestamp()

	res, err := db.conn.ExecContext(ctx,
		`INSERT INTO hints (lesson_id, text, difficulty_level, created_at) VALUES (?, ?, ?, ?)`,
		hint.LessonID, hint.Text, hint.DifficultyLevel, toMillis(hint.CreatedAt),
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return apperror.NotFound("lesson", hint.LessonID)
		}
		return fmt.Errorf("sqlite: inserting hint for lesson %d: %w", hint.LessonID, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("sqlite: reading new hint id: %w", err)
	}
	hint.ID = id
	return nil
}

func (db *DB) ListHintsByLesson(ctx context.Context, lessonID int64) ([]model.Hint, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, lesson_id, text, difficulty_level, created_at
		 FROM hints WHERE lesson_id = ?
		 ORDER BY difficulty_level ASC, id ASC`,
		lessonID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing hints for lesson %d: %w", lessonID, err)
	}
	defer rows.Close()

	hints := []model.Hint{}
	for rows.Next() {
		var (
			h         model.Hint
			createdAt int64
		)
		if err := rows.Scan(&h.ID, &h.LessonID, &h.Text, &h.DifficultyLevel, &createdAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning hint row: %w", err)
		}
		h.CreatedAt = fromMillis(createdAt)
		hints = append(hints, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating hint rows: %w", err)
	}
	return hints, nil
}
