package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/joyverse/joyverse-backend/internal/api/middleware"
	"github.com/joyverse/joyverse-backend/internal/api/request"
	"github.com/joyverse/joyverse-backend/internal/api/response"
	"github.com/joyverse/joyverse-backend/internal/feed"
	"github.com/joyverse/joyverse-backend/internal/model"
	"github.com/joyverse/joyverse-backend/internal/services/profile"
	"github.com/joyverse/joyverse-backend/internal/services/report"
	"github.com/joyverse/joyverse-backend/internal/services/sessions"
)

type userResolver interface {
	Resolve(ctx context.Context, ref string) (*model.User, error)
}

// subject resolves the {ref} path variable and checks the caller may
// act on that user
func subject(r *http.Request, users userResolver, access middleware.Access) (*model.User, error) {
	user, err := users.Resolve(r.Context(), mux.Vars(r)["ref"])
	if err != nil {
		return nil, err
	}
	if err := middleware.Authorize(middleware.GetPrincipal(r.Context()), user.ID, access); err != nil {
		return nil, err
	}
	return user, nil
}

// UserHandler handles user profile endpoints
type UserHandler struct {
	profile  *profile.Service
	sessions *sessions.Service
	reports  *report.Service
	feed     *feed.Feed
	logger   *slog.Logger
}

// NewUserHandler creates a new user handler
func NewUserHandler(profileService *profile.Service, sessionService *sessions.Service, reportService *report.Service, f *feed.Feed, logger *slog.Logger) *UserHandler {
	return &UserHandler{
		profile:  profileService,
		sessions: sessionService,
		reports:  reportService,
		feed:     f,
		logger:   logger,
	}
}

// List handles GET /api/v1/users
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := model.UserFilter{
		Role:          model.Role(q.Get("role")),
		ParentName:    q.Get("parent_name"),
		ParentContact: q.Get("parent_contact"),
	}
	if v := q.Get("approved"); v != "" {
		approved, err := strconv.ParseBool(v)
		if err != nil {
			fail(w, r, h.logger, model.Invalid("approved", "must be true or false"))
			return
		}
		filter.Approved = &approved
	}

	users, err := h.profile.List(r.Context(), filter)
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}

	response.JSON(w, http.StatusOK, response.UserListFromModels(users))
}

// Get handles GET /api/v1/users/{ref}
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, err := subject(r, h.profile, middleware.SelfOrStaff)
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	response.JSON(w, http.StatusOK, response.UserFromModel(user))
}

// Delete handles DELETE /api/v1/users/{id}. The user's live feed goes
// with them: open streams end and the latest update is dropped.
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := model.UserID(mux.Vars(r)["id"])
	if err := h.profile.Delete(r.Context(), id); err != nil {
		fail(w, r, h.logger, err)
		return
	}
	h.feed.Forget(id)
	response.NoContent(w)
}

// AppendEmotion handles POST /api/v1/users/{ref}/emotions
func (h *UserHandler) AppendEmotion(w http.ResponseWriter, r *http.Request) {
	user, err := subject(r, h.profile, middleware.SelfOrAdmin)
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}

	var req request.EmotionRequest
	if err := request.Decode(w, r, &req); err != nil {
		fail(w, r, h.logger, err)
		return
	}

	entry, err := h.profile.AppendEmotion(r.Context(), string(user.ID), req)
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}

	response.Created(w, response.EmotionFromModel(*entry))
}

// AppendGamePlay handles POST /api/v1/users/{ref}/game-plays
func (h *UserHandler) AppendGamePlay(w http.ResponseWriter, r *http.Request) {
	user, err := subject(r, h.profile, middleware.SelfOrAdmin)
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}

	var req request.GamePlayRequest
	if err := request.Decode(w, r, &req); err != nil {
		fail(w, r, h.logger, err)
		return
	}

	entry, err := h.profile.AppendGamePlay(r.Context(), string(user.ID), req)
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}

	response.Created(w, response.GamePlayFromModel(*entry))
}

// Suggest handles POST /api/v1/users/{ref}/suggestions
func (h *UserHandler) Suggest(w http.ResponseWriter, r *http.Request) {
	var req request.SuggestionRequest
	if err := request.Decode(w, r, &req); err != nil {
		fail(w, r, h.logger, err)
		return
	}

	user, err := h.profile.SuggestGame(r.Context(), mux.Vars(r)["ref"], req.GameName)
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}

	response.JSON(w, http.StatusOK, response.UserFromModel(user))
}

// Sessions handles GET /api/v1/users/{ref}/sessions
func (h *UserHandler) Sessions(w http.ResponseWriter, r *http.Request) {
	user, err := subject(r, h.profile, middleware.SelfOrStaff)
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}

	list, err := h.sessions.ListForUser(r.Context(), string(user.ID))
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}

	response.JSON(w, http.StatusOK, response.SessionListFromModels(list))
}

// Report handles GET /api/v1/users/{ref}/report
func (h *UserHandler) Report(w http.ResponseWriter, r *http.Request) {
	user, err := subject(r, h.profile, middleware.SelfOrStaff)
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}

	rep, err := h.reports.ProfileReport(r.Context(), string(user.ID))
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}

	response.JSON(w, http.StatusOK, response.ReportFromModel(rep))
}
