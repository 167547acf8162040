// Package sessions records game sessions: question observations reported
// while a game is played, and whole sessions submitted at the end.
package sessions

import (
	"context"
	"log/slog"
	"strings"

	"github.com/joyverse/joyverse-backend/internal/dependencies/clock"
	"github.com/joyverse/joyverse-backend/internal/dependencies/ids"
	"github.com/joyverse/joyverse-backend/internal/model"
	"github.com/joyverse/joyverse-backend/internal/storage"
	"github.com/joyverse/joyverse-backend/internal/validation"
)

// UserResolver finds a user by id or username
type UserResolver interface {
	Resolve(ctx context.Context, ref string) (*model.User, error)
}

// ObservationInput is a single answered question reported by a game.
// SessionID is the playthrough id minted by the game client; without it
// the observation goes to the user's open session for the game.
type ObservationInput struct {
	User           string `json:"user_id" validate:"required"`
	GameName       string `json:"game_name" validate:"required,max=100"`
	SessionID      string `json:"session_id" validate:"omitempty,max=128"`
	QuestionNumber int    `json:"question_number" validate:"min=1"`
	Emotion        string `json:"emotion" validate:"required,max=32"`
	Score          int    `json:"score"`
	FinalScore     *int   `json:"final_score"`
}

// QuestionInput is one question of a whole session
type QuestionInput struct {
	QuestionNumber int    `json:"question_number" validate:"min=1"`
	Emotion        string `json:"emotion" validate:"required,max=32"`
	Score          int    `json:"score"`
}

// CreateInput is a finished session submitted in one call
type CreateInput struct {
	User       string          `json:"user_id" validate:"required"`
	GameName   string          `json:"game_name" validate:"required,max=100"`
	Questions  []QuestionInput `json:"questions" validate:"dive"`
	FinalScore *int            `json:"final_score"`
}

// Service handles game session operations
type Service struct {
	storage storage.SessionStore
	users   UserResolver
	clock   clock.Clock
	ids     ids.Generator
	logger  *slog.Logger
}

// New creates a new sessions Service
func New(store storage.SessionStore, users UserResolver, clock clock.Clock, ids ids.Generator, logger *slog.Logger) *Service {
	return &Service{
		storage: store,
		users:   users,
		clock:   clock,
		ids:     ids,
		logger:  logger,
	}
}

// Record adds an observation to the matching session, creating the
// session if there is none. The user must exist.
func (s *Service) Record(ctx context.Context, in ObservationInput) (*model.GameSession, error) {
	in.GameName = strings.TrimSpace(in.GameName)
	in.SessionID = strings.TrimSpace(in.SessionID)
	in.Emotion = model.NormalizeEmotion(in.Emotion)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	user, err := s.users.Resolve(ctx, in.User)
	if err != nil {
		return nil, err
	}
	s.checkEmotion(ctx, user.ID, in.Emotion)

	obs := model.Observation{
		UserID:        user.ID,
		GameName:      in.GameName,
		PlaythroughID: in.SessionID,
		Question: model.Question{
			QuestionNumber: in.QuestionNumber,
			Emotion:        in.Emotion,
			Score:          in.Score,
		},
		FinalScore: in.FinalScore,
	}
	candidate := &model.GameSession{
		ID:            model.SessionID(s.ids.NewID()),
		UserID:        user.ID,
		GameName:      in.GameName,
		PlaythroughID: in.SessionID,
		Timestamp:     s.clock.Now(),
	}

	session, err := s.storage.RecordObservation(ctx, obs, candidate)
	if err != nil {
		return nil, err
	}

	if session.ID == candidate.ID {
		s.logger.InfoContext(ctx, "session opened",
			"session_id", session.ID,
			"user_id", user.ID,
			"game", session.GameName,
		)
	}
	if obs.Completes() {
		s.logger.InfoContext(ctx, "session completed",
			"session_id", session.ID,
			"user_id", user.ID,
			"final_score", session.Score(),
		)
	}
	return session, nil
}

// Create stores a finished session in one call
func (s *Service) Create(ctx context.Context, in CreateInput) (*model.GameSession, error) {
	in.GameName = strings.TrimSpace(in.GameName)
	for i := range in.Questions {
		in.Questions[i].Emotion = model.NormalizeEmotion(in.Questions[i].Emotion)
	}
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	user, err := s.users.Resolve(ctx, in.User)
	if err != nil {
		return nil, err
	}

	session := &model.GameSession{
		ID:         model.SessionID(s.ids.NewID()),
		UserID:     user.ID,
		GameName:   in.GameName,
		Questions:  make([]model.Question, 0, len(in.Questions)),
		FinalScore: in.FinalScore,
		Timestamp:  s.clock.Now(),
	}
	for _, q := range in.Questions {
		s.checkEmotion(ctx, user.ID, q.Emotion)
		session.Questions = append(session.Questions, model.Question{
			QuestionNumber: q.QuestionNumber,
			Emotion:        q.Emotion,
			Score:          q.Score,
		})
	}

	if err := s.storage.SaveSession(ctx, session); err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "session saved",
		"session_id", session.ID,
		"user_id", user.ID,
		"game", session.GameName,
		"questions", len(session.Questions),
	)
	return session, nil
}

// checkEmotion warns about labels the classifier does not produce. They
// are still stored as given.
func (s *Service) checkEmotion(ctx context.Context, userID model.UserID, emotion string) {
	if !model.IsKnownEmotion(emotion) {
		s.logger.WarnContext(ctx, "unknown emotion label",
			"user_id", userID,
			"emotion", emotion,
		)
	}
}

// Get returns a session by id
func (s *Service) Get(ctx context.Context, id model.SessionID) (*model.GameSession, error) {
	return s.storage.GetSession(ctx, id)
}

// ListForUser returns a user's sessions, oldest first
func (s *Service) ListForUser(ctx context.Context, ref string) ([]*model.GameSession, error) {
	user, err := s.users.Resolve(ctx, ref)
	if err != nil {
		return nil, err
	}
	return s.storage.ListSessionsForUser(ctx, user.ID)
}
