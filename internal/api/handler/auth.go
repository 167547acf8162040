package handler

import (
	"log/slog"
	"net/http"

	"github.com/joyverse/joyverse-backend/internal/api/middleware"
	"github.com/joyverse/joyverse-backend/internal/api/request"
	"github.com/joyverse/joyverse-backend/internal/api/response"
	"github.com/joyverse/joyverse-backend/internal/services/auth"
	"github.com/joyverse/joyverse-backend/internal/services/profile"
)

// AuthHandler handles signup, login and the current user
type AuthHandler struct {
	auth    *auth.Service
	profile *profile.Service
	logger  *slog.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *auth.Service, profileService *profile.Service, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		auth:    authService,
		profile: profileService,
		logger:  logger,
	}
}

// Signup handles POST /api/v1/auth/signup
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req request.SignupRequest
	if err := request.Decode(w, r, &req); err != nil {
		fail(w, r, h.logger, err)
		return
	}

	user, err := h.auth.Register(r.Context(), req)
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}

	response.Created(w, response.UserFromModel(user))
}

// Login handles POST /api/v1/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req request.LoginRequest
	if err := request.DecodeValid(w, r, &req); err != nil {
		fail(w, r, h.logger, err)
		return
	}

	session, err := h.auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}

	response.JSON(w, http.StatusOK, response.AuthResponseFromSession(session))
}

// Logout handles POST /api/v1/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.auth.Logout(middleware.GetToken(r.Context())); err != nil {
		fail(w, r, h.logger, err)
		return
	}
	response.NoContent(w)
}

// Me handles GET /api/v1/users/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	p := middleware.MustGetPrincipal(r.Context())

	user, err := h.profile.Get(r.Context(), p.UserID)
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}

	response.JSON(w, http.StatusOK, response.UserFromModel(user))
}
