package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/sakif/codewizard/internal/apperror"
	"github.com/sakif/codewizard/internal/auth"
	"github.com/sakif/codewizard/internal/model"
	"github.com/sakif/codewizard/internal/service"
)

// AccountHandler serves registration, login and the caller's own profile.
//
//   - HandleRegister / HandleLogin are public (rate limited by the router)
//   - everything else runs behind auth.RequireAuth and reads the caller
//     from the request context
type AccountHandler struct {
	accounts *service.AuthService
	responder
}

func NewAccountHandler(accounts *service.AuthService, logger *slog.Logger) *AccountHandler {
	return &AccountHandler{accounts: accounts, responder: responder{logger: logger}}
}

// AuthResponse is returned by register and login. The token is the only
// place it ever appears in a response body.
type AuthResponse struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expiresAt"`
	User      *model.User `json:"user"`
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// profileRequest uses pointers so an omitted field can be told apart from
// an empty one.
type profileRequest struct {
	Name  *string `json:"name"`
	Email *string `json:"email"`
}

type passwordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// HandleRegister creates an account and signs it in.
//
// HTTP: POST /api/v1/register
func (h *AccountHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	res, err := h.accounts.Register(r.Context(), service.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, AuthResponse{Token: res.Token, ExpiresAt: res.ExpiresAt, User: res.User})
}

// HandleLogin exchanges credentials for the account's bearer token.
//
// HTTP: POST /api/v1/login
//
// An unknown email answers 404 and a wrong password 401, so clients can
// tell "sign up first" apart from "try again".
func (h *AccountHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	res, err := h.accounts.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, AuthResponse{Token: res.Token, ExpiresAt: res.ExpiresAt, User: res.User})
}

// HandleProfile returns the caller.
//
// HTTP: GET /api/v1/profile
func (h *AccountHandler) HandleProfile(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, user)
}

// HTTP: PUT /api/v1/profile
func (h *AccountHandler) HandleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	var req profileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	updated, err := h.accounts.UpdateProfile(r.Context(), user.ID, service.ProfileUpdate{Name: req.Name, Email: req.Email})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, updated)
}

// HTTP: PUT /api/v1/profile/password
func (h *AccountHandler) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	var req passwordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	if err := h.accounts.ChangePassword(r.Context(), user.ID, req.CurrentPassword, req.NewPassword); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleLogout clears the caller's token.
//
// HTTP: POST /api/v1/logout
func (h *AccountHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	if err := h.accounts.Logout(r.Context(), user.ID); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// currentUser pulls the identity RequireAuth stored. A missing identity
// means the route was mounted without the guard; answer 401 rather than
// panic.
func (h responder) currentUser(w http.ResponseWriter, r *http.Request) (*model.User, bool) {
	user, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		h.writeError(w, r, apperror.Unauthenticated("authentication required"))
		return nil, false
	}
	return user, true
}
