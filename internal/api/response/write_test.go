package response

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/joyverse/joyverse-backend/internal/model"
)

func TestCreated(t *testing.T) {
	rr := httptest.NewRecorder()
	Created(rr, Health{Status: "ok"})

	assert.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	assert.Equal(t, "no-store", rr.Header().Get("Cache-Control"))
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
}

func TestUserFromModel(t *testing.T) {
	u := &model.User{
		ID:           "u1",
		Username:     "drrao",
		PasswordHash: "$2a$10$hash",
		Role:         model.RoleTherapist,
		Profile:      model.Profile{Email: "rao@clinic.test"},
	}

	rr := httptest.NewRecorder()
	JSON(rr, http.StatusOK, UserFromModel(u))

	body := rr.Body.String()
	assert.NotContains(t, body, "hash")
	assert.Contains(t, body, `"approval_status":"pending"`)
	assert.Contains(t, body, `"suggested_games":[]`)
	assert.Contains(t, body, `"emotions":[]`)
}

func TestNoContent(t *testing.T) {
	rr := httptest.NewRecorder()
	NoContent(rr)

	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Empty(t, rr.Body.String())
}
