package handler

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/joyverse/joyverse-backend/internal/api/middleware"
	"github.com/joyverse/joyverse-backend/internal/api/request"
	"github.com/joyverse/joyverse-backend/internal/api/response"
	"github.com/joyverse/joyverse-backend/internal/model"
	"github.com/joyverse/joyverse-backend/internal/services/profile"
	"github.com/joyverse/joyverse-backend/internal/services/sessions"
)

// SessionHandler handles game session endpoints
type SessionHandler struct {
	sessions *sessions.Service
	profile  *profile.Service
	logger   *slog.Logger
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(sessionService *sessions.Service, profileService *profile.Service, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{
		sessions: sessionService,
		profile:  profileService,
		logger:   logger,
	}
}

// owner resolves the user a session write is for. An empty reference
// means the caller.
func (h *SessionHandler) owner(r *http.Request, ref string) (model.UserID, error) {
	p := middleware.MustGetPrincipal(r.Context())
	if ref == "" {
		return p.UserID, nil
	}

	user, err := h.profile.Resolve(r.Context(), ref)
	if err != nil {
		return "", err
	}
	if err := middleware.Authorize(p, user.ID, middleware.SelfOrAdmin); err != nil {
		return "", err
	}
	return user.ID, nil
}

// Record handles POST /api/v1/sessions/observations
func (h *SessionHandler) Record(w http.ResponseWriter, r *http.Request) {
	var req request.ObservationRequest
	if err := request.Decode(w, r, &req); err != nil {
		fail(w, r, h.logger, err)
		return
	}

	userID, err := h.owner(r, req.User)
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	req.User = string(userID)

	session, err := h.sessions.Record(r.Context(), req)
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}

	response.JSON(w, http.StatusOK, response.SessionFromModel(session))
}

// Create handles POST /api/v1/sessions
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req request.CreateSessionRequest
	if err := request.Decode(w, r, &req); err != nil {
		fail(w, r, h.logger, err)
		return
	}

	userID, err := h.owner(r, req.User)
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	req.User = string(userID)

	session, err := h.sessions.Create(r.Context(), req)
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}

	response.Created(w, response.SessionFromModel(session))
}

// Get handles GET /api/v1/sessions/{id}
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	session, err := h.sessions.Get(r.Context(), model.SessionID(mux.Vars(r)["id"]))
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}

	p := middleware.GetPrincipal(r.Context())
	if err := middleware.Authorize(p, session.UserID, middleware.SelfOrStaff); err != nil {
		fail(w, r, h.logger, err)
		return
	}

	response.JSON(w, http.StatusOK, response.SessionFromModel(session))
}
