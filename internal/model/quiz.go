package model

import (
	"encoding/json"
	"time"
)

const DefaultTotalPoints = 100

// Quiz belongs to exactly one lesson. Questions is stored and returned
// verbatim; the server never interprets it.
type Quiz struct {
	ID          int64           `json:"id"`
	LessonID    int64           `json:"lessonId"`
	Title       string          `json:"title"`
	Questions   json.RawMessage `json:"questions"`
	TotalPoints int             `json:"totalPoints"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// QuizSubmission is one attempt at a quiz. Submissions are append-only:
// a user may hold any number of them for the same quiz.
type QuizSubmission struct {
	ID          int64           `json:"id"`
	UserID      int64           `json:"userId"`
	QuizID      int64           `json:"quizId"`
	LessonID    int64           `json:"lessonId"`
	Answers     json.RawMessage `json:"answers"`
	Score       float64         `json:"score"`
	MaxScore    float64         `json:"maxScore"`
	SubmittedAt time.Time       `json:"submittedAt"`
}
