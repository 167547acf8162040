package request

import (
	"github.com/joyverse/joyverse-backend/internal/feed"
	"github.com/joyverse/joyverse-backend/internal/services/auth"
	"github.com/joyverse/joyverse-backend/internal/services/profile"
	"github.com/joyverse/joyverse-backend/internal/services/sessions"
)

// Bodies validated by the services that receive them
type (
	SignupRequest        = auth.SignupInput
	EmotionRequest       = profile.EmotionInput
	GamePlayRequest      = profile.GamePlayInput
	ObservationRequest   = sessions.ObservationInput
	CreateSessionRequest = sessions.CreateInput
	PublishRequest       = feed.PublishInput
)

// LoginRequest is the request body for logging in
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// SuggestionRequest is the request body for suggesting a game
type SuggestionRequest struct {
	GameName string `json:"game_name"`
}
