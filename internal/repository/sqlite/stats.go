package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sakif/codewizard/internal/model"
	"github.com/sakif/codewizard/internal/repository"
)

var _ repository.StatsRepository = (*DB)(nil)

// Each rollup is a single aggregate query so its counts come from one
// consistent snapshot.

func (db *DB) UserStats(ctx context.Context) (model.UserStats, error) {
	var s model.UserStats
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*),
		        COALESCE(SUM(is_verified), 0),
		        COALESCE(SUM(is_admin), 0)
		 FROM users`,
	).Scan(&s.Total, &s.Verified, &s.Admins)
	if err != nil {
		return s, fmt.Errorf("sqlite: counting users: %w", err)
	}
	return s, nil
}

func (db *DB) LessonStats(ctx context.Context) (model.LessonStats, error) {
	var s model.LessonStats
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*),
		        COALESCE(SUM(CASE WHEN difficulty = ? THEN 1 ELSE 0 END), 0),
		        COALESCE(SUM(CASE WHEN difficulty = ? THEN 1 ELSE 0 END), 0),
		        COALESCE(SUM(CASE WHEN difficulty = ? THEN 1 ELSE 0 END), 0)
		 FROM lessons`,
		model.DifficultyBeginner, model.DifficultyIntermediate, model.DifficultyAdvanced,
	).Scan(&s.Total, &s.Beginner, &s.Intermediate, &s.Advanced)
	if err != nil {
		return s, fmt.Errorf("sqlite: counting lessons: %w", err)
	}
	return s, nil
}

// ProgressStats leaves AvgCompletion nil when the table is empty; AVG over
// zero rows is NULL.
func (db *DB) ProgressStats(ctx context.Context) (model.ProgressStats, error) {
	var (
		s   model.ProgressStats
		avg sql.NullFloat64
	)
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*),
		        COALESCE(SUM(completed), 0),
		        AVG(completion_percentage)
		 FROM progress`,
	).Scan(&s.Total, &s.Completed, &avg)
	if err != nil {
		return s, fmt.Errorf("sqlite: aggregating progress: %w", err)
	}
	if avg.Valid {
		v := avg.Float64
		s.AvgCompletion = &v
	}
	return s, nil
}
