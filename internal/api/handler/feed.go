package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/joyverse/joyverse-backend/internal/api/middleware"
	"github.com/joyverse/joyverse-backend/internal/api/request"
	"github.com/joyverse/joyverse-backend/internal/api/response"
	"github.com/joyverse/joyverse-backend/internal/feed"
	"github.com/joyverse/joyverse-backend/internal/services/profile"
)

// FeedHandler publishes and streams a user's current emotion
type FeedHandler struct {
	feed    *feed.Feed
	profile *profile.Service
	logger  *slog.Logger
}

// NewFeedHandler creates a new feed handler
func NewFeedHandler(f *feed.Feed, profileService *profile.Service, logger *slog.Logger) *FeedHandler {
	return &FeedHandler{feed: f, profile: profileService, logger: logger}
}

// Publish handles POST /api/v1/users/{ref}/emotion/current
func (h *FeedHandler) Publish(w http.ResponseWriter, r *http.Request) {
	user, err := subject(r, h.profile, middleware.SelfOnly)
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}

	var req request.PublishRequest
	if err := request.Decode(w, r, &req); err != nil {
		fail(w, r, h.logger, err)
		return
	}

	update, err := h.feed.Publish(r.Context(), user.ID, req)
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}

	response.JSON(w, http.StatusAccepted, update)
}

// Stream handles GET /api/v1/users/{ref}/emotion/stream
func (h *FeedHandler) Stream(w http.ResponseWriter, r *http.Request) {
	user, err := subject(r, h.profile, middleware.SelfOrStaff)
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}

	// The server write timeout would otherwise end the stream.
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	h.feed.Serve(w, r, user.ID, middleware.MustGetPrincipal(r.Context()).UserID)
}
