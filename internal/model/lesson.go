package model

import "time"

const (
	DifficultyBeginner     = "beginner"
	DifficultyIntermediate = "intermediate"
	DifficultyAdvanced     = "advanced"
)

// ValidDifficulty reports whether d is one of the three lesson levels.
func ValidDifficulty(d string) bool {
	switch d {
	case DifficultyBeginner, DifficultyIntermediate, DifficultyAdvanced:
		return true
	}
	return false
}

// Lesson is a unit of course content. Lessons are listed by OrderIndex.
type Lesson struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Difficulty  string    `json:"difficulty"`
	Content     string    `json:"content"`
	OrderIndex  int       `json:"orderIndex"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Hint is a lesson hint. DifficultyLevel runs 1 (easy) to 3 (hard).
type Hint struct {
	ID              int64     `json:"id"`
	LessonID        int64     `json:"lessonId"`
	Text            string    `json:"text"`
	DifficultyLevel int       `json:"difficultyLevel"`
	CreatedAt       time.Time `json:"createdAt"`
}
