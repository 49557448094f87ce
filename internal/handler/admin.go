package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/sakif/codewizard/internal/model"
	"github.com/sakif/codewizard/internal/service"
)

// AdminHandler serves the /admin routes. The router mounts it behind
// auth.RequireAuth and auth.RequireAdmin; it does no role checks itself.
type AdminHandler struct {
	admin    *service.AdminService
	accounts *service.AuthService
	lessons  *service.LessonService
	quizzes  *service.QuizService
	responder
}

func NewAdminHandler(
	admin *service.AdminService,
	accounts *service.AuthService,
	lessons *service.LessonService,
	quizzes *service.QuizService,
	logger *slog.Logger,
) *AdminHandler {
	return &AdminHandler{admin: admin, accounts: accounts, lessons: lessons, quizzes: quizzes, responder: responder{logger: logger}}
}

type lessonRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Difficulty  *string `json:"difficulty"`
	Content     *string `json:"content"`
	OrderIndex  *int    `json:"orderIndex"`
}

type quizRequest struct {
	Title       *string         `json:"title"`
	Questions   json.RawMessage `json:"questions"`
	TotalPoints *int            `json:"totalPoints"`
}

type hintRequest struct {
	Text            string `json:"text"`
	DifficultyLevel *int   `json:"difficultyLevel"`
}

// HandleDashboard returns the user, lesson and progress rollups.
//
// HTTP: GET /api/v1/admin/  and  GET /api/v1/admin/stats
func (h *AdminHandler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := h.admin.Dashboard(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, stats)
}

// HTTP: GET /api/v1/admin/users
func (h *AdminHandler) HandleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.accounts.ListUsers(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, users)
}

// HTTP: POST /api/v1/admin/users/{id}/admin
func (h *AdminHandler) HandlePromote(w http.ResponseWriter, r *http.Request) {
	h.userAction(w, r, h.accounts.PromoteToAdmin)
}

// HTTP: DELETE /api/v1/admin/users/{id}/admin
func (h *AdminHandler) HandleDemote(w http.ResponseWriter, r *http.Request) {
	h.userAction(w, r, h.accounts.DemoteAdmin)
}

// HTTP: POST /api/v1/admin/users/{id}/verify
func (h *AdminHandler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	h.userAction(w, r, h.accounts.VerifyUser)
}

// HTTP: POST /api/v1/admin/users/{id}/ban
func (h *AdminHandler) HandleBan(w http.ResponseWriter, r *http.Request) {
	h.userAction(w, r, h.accounts.BanUser)
}

// HTTP: DELETE /api/v1/admin/users/{id}
func (h *AdminHandler) HandleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.accounts.DeleteUser(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandler) userAction(w http.ResponseWriter, r *http.Request, action func(context.Context, int64) (*model.User, error)) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	user, err := action(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, user)
}

// HTTP: POST /api/v1/admin/lessons
func (h *AdminHandler) HandleCreateLesson(w http.ResponseWriter, r *http.Request) {
	var req lessonRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	lesson, err := h.lessons.Create(r.Context(), service.LessonInput{
		Title:       deref(req.Title),
		Description: deref(req.Description),
		Difficulty:  deref(req.Difficulty),
		Content:     deref(req.Content),
		OrderIndex:  deref(req.OrderIndex),
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, lesson)
}

// HandleUpdateLesson applies only the fields present in the body.
//
// HTTP: PUT /api/v1/admin/lessons/{id}
func (h *AdminHandler) HandleUpdateLesson(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	var req lessonRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	lesson, err := h.lessons.Update(r.Context(), id, service.LessonUpdate{
		Title:       req.Title,
		Description: req.Description,
		Difficulty:  req.Difficulty,
		Content:     req.Content,
		OrderIndex:  req.OrderIndex,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, lesson)
}

// HTTP: DELETE /api/v1/admin/lessons/{id}
func (h *AdminHandler) HandleDeleteLesson(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.lessons.Delete(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HTTP: POST /api/v1/admin/lessons/{id}/quiz
func (h *AdminHandler) HandleCreateQuiz(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	var req quizRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	quiz, err := h.quizzes.Create(r.Context(), id, service.QuizInput{
		Title:       deref(req.Title),
		Questions:   req.Questions,
		TotalPoints: req.TotalPoints,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, quiz)
}

// HTTP: PUT /api/v1/admin/quizzes/{id}
func (h *AdminHandler) HandleUpdateQuiz(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	var req quizRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	quiz, err := h.quizzes.Update(r.Context(), id, service.QuizUpdate{
		Title:       req.Title,
		Questions:   req.Questions,
		TotalPoints: req.TotalPoints,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, quiz)
}

// HTTP: POST /api/v1/admin/lessons/{id}/hints
func (h *AdminHandler) HandleCreateHint(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	var req hintRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	hint, err := h.lessons.AddHint(r.Context(), id, service.HintInput{
		Text:            req.Text,
		DifficultyLevel: req.DifficultyLevel,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, hint)
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
