package model

type UserStats struct {
	Total    int64 `json:"total"`
	Verified int64 `json:"verified"`
	Admins   int64 `json:"admins"`
}

type LessonStats struct {
	Total        int64 `json:"total"`
	Beginner     int64 `json:"beginner"`
	Intermediate int64 `json:"intermediate"`
	Advanced     int64 `json:"advanced"`
}

// ProgressStats rolls up every progress row. AvgCompletion is nil when
// there are no rows.
type ProgressStats struct {
	Total         int64    `json:"total"`
	Completed     int64    `json:"completed"`
	AvgCompletion *float64 `json:"avgCompletion"`
}

type DashboardStats struct {
	Users    UserStats     `json:"users"`
	Lessons  LessonStats   `json:"lessons"`
	Progress ProgressStats `json:"progress"`
}
