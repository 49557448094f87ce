package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/sakif/codewizard/internal/service"
)

// LessonHandler serves lesson content to learners and the quiz, progress
// and hint routes nested under /lessons/{id}.
type LessonHandler struct {
	lessons  *service.LessonService
	quizzes  *service.QuizService
	progress *service.ProgressService
	responder
}

func NewLessonHandler(
	lessons *service.LessonService,
	quizzes *service.QuizService,
	progress *service.ProgressService,
	logger *slog.Logger,
) *LessonHandler {
	return &LessonHandler{lessons: lessons, quizzes: quizzes, progress: progress, responder: responder{logger: logger}}
}

type submissionRequest struct {
	Answers  json.RawMessage `json:"answers"`
	Score    *float64        `json:"score"`
	MaxScore *float64        `json:"maxScore"`
}

type progressRequest struct {
	Completed            bool    `json:"completed"`
	CompletionPercentage float64 `json:"completionPercentage"`
	TimeSpent            int     `json:"timeSpent"`
}

// HTTP: GET /api/v1/lessons
func (h *LessonHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	lessons, err := h.lessons.List(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, lessons)
}

// HTTP: GET /api/v1/lessons/{id}
func (h *LessonHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	lesson, err := h.lessons.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, lesson)
}

// HTTP: GET /api/v1/lessons/{id}/quiz
func (h *LessonHandler) HandleQuiz(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	quiz, err := h.quizzes.ForLesson(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, quiz)
}

// HandleSubmitQuiz records one attempt. Attempts are never merged, so a
// retry is a new row.
//
// HTTP: POST /api/v1/lessons/{id}/quiz/submit
func (h *LessonHandler) HandleSubmitQuiz(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	var req submissionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	sub, err := h.quizzes.Submit(r.Context(), user.ID, id, service.SubmissionInput{
		Answers:  req.Answers,
		Score:    req.Score,
		MaxScore: req.MaxScore,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, sub)
}

// HandleSaveProgress upserts the caller's progress on the lesson. The body
// is a full snapshot; omitted fields are saved as their zero values.
//
// HTTP: POST /api/v1/lessons/{id}/progress
func (h *LessonHandler) HandleSaveProgress(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	var req progressRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	p, err := h.progress.Save(r.Context(), user.ID, id, service.ProgressInput{
		Completed:            req.Completed,
		CompletionPercentage: req.CompletionPercentage,
		TimeSpent:            req.TimeSpent,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, p)
}

// HTTP: GET /api/v1/lessons/{id}/progress
func (h *LessonHandler) HandleLessonProgress(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	p, err := h.progress.Get(r.Context(), user.ID, id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, p)
}

// HTTP: GET /api/v1/lessons/{id}/hints
func (h *LessonHandler) HandleHints(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	hints, err := h.lessons.Hints(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, hints)
}

// HTTP: GET /api/v1/progress
func (h *LessonHandler) HandleProgress(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	rows, err := h.progress.List(r.Context(), user.ID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, rows)
}

// HTTP: GET /api/v1/quiz-submissions
func (h *LessonHandler) HandleSubmissions(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	subs, err := h.quizzes.Submissions(r.Context(), user.ID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, subs)
}
