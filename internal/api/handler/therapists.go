package handler

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/joyverse/joyverse-backend/internal/api/response"
	"github.com/joyverse/joyverse-backend/internal/model"
	"github.com/joyverse/joyverse-backend/internal/services/profile"
)

// TherapistHandler handles the therapist approval endpoints
type TherapistHandler struct {
	profile *profile.Service
	logger  *slog.Logger
}

// NewTherapistHandler creates a new therapist handler
func NewTherapistHandler(profileService *profile.Service, logger *slog.Logger) *TherapistHandler {
	return &TherapistHandler{profile: profileService, logger: logger}
}

// List handles GET /api/v1/therapists
func (h *TherapistHandler) List(w http.ResponseWriter, r *http.Request) {
	status := model.ApprovalStatus(r.URL.Query().Get("status"))

	therapists, err := h.profile.ListTherapists(r.Context(), status)
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}

	response.JSON(w, http.StatusOK, response.UserListFromModels(therapists))
}

// Approve handles POST /api/v1/therapists/{username}/approve
func (h *TherapistHandler) Approve(w http.ResponseWriter, r *http.Request) {
	user, err := h.profile.Approve(r.Context(), mux.Vars(r)["username"])
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}

	response.JSON(w, http.StatusOK, response.UserFromModel(user))
}
