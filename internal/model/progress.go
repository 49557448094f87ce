package model

import "time"

// Progress is the single record for a (user, lesson) pair. TimeSpent is in
// minutes. CompletionPercentage is stored as given.
type Progress struct {
	ID                   int64     `json:"id"`
	UserID               int64     `json:"userId"`
	LessonID             int64     `json:"lessonId"`
	Completed            bool      `json:"completed"`
	CompletionPercentage float64   `json:"completionPercentage"`
	TimeSpent            int       `json:"timeSpent"`
	LastAccessed         time.Time `json:"lastAccessed"`
	CreatedAt            time.Time `json:"createdAt"`
}
