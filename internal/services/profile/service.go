// Package profile manages user records: lookups, the legacy per-user
// emotion and game-play logs, game suggestions and the therapist
// approval workflow.
package profile

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/joyverse/joyverse-backend/internal/dependencies/clock"
	"github.com/joyverse/joyverse-backend/internal/model"
	"github.com/joyverse/joyverse-backend/internal/services/notify"
	"github.com/joyverse/joyverse-backend/internal/storage"
	"github.com/joyverse/joyverse-backend/internal/validation"
)

// EmotionInput is one entry for the profile emotion log
type EmotionInput struct {
	GameName       string `json:"game_name" validate:"required,max=100"`
	QuestionNumber int    `json:"question_number" validate:"min=1"`
	Emotion        string `json:"emotion" validate:"required,max=32"`
	Score          int    `json:"score"`
}

// GamePlayInput is one entry for the profile game-play log
type GamePlayInput struct {
	GameName   string `json:"game_name" validate:"required,max=100"`
	FinalScore int    `json:"final_score"`
}

type suggestionInput struct {
	GameName string `json:"game_name" validate:"required,max=100"`
}

// Service handles user profile operations
type Service struct {
	storage  storage.UserStore
	clock    clock.Clock
	notifier notify.Notifier
	logger   *slog.Logger
}

// New creates a new profile Service
func New(store storage.UserStore, clock clock.Clock, notifier notify.Notifier, logger *slog.Logger) *Service {
	return &Service{
		storage:  store,
		clock:    clock,
		notifier: notifier,
		logger:   logger,
	}
}

// Resolve finds a user by id or, failing that, by username
func (s *Service) Resolve(ctx context.Context, ref string) (*model.User, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, model.Invalid("user", "is required")
	}

	u, err := s.storage.GetUser(ctx, model.UserID(ref))
	if err == nil || !errors.Is(err, model.ErrUserNotFound) {
		return u, err
	}
	return s.storage.GetUserByUsername(ctx, ref)
}

// Get returns a user by id
func (s *Service) Get(ctx context.Context, id model.UserID) (*model.User, error) {
	return s.storage.GetUser(ctx, id)
}

// List returns the users matching the filter in creation order
func (s *Service) List(ctx context.Context, filter model.UserFilter) ([]*model.User, error) {
	if filter.Role != "" && !filter.Role.Valid() {
		return nil, model.Invalid("role", "must be one of: user, therapist, admin")
	}
	return s.storage.ListUsers(ctx, filter)
}

// ListTherapists returns therapists, optionally narrowed to one approval state
func (s *Service) ListTherapists(ctx context.Context, status model.ApprovalStatus) ([]*model.User, error) {
	filter := model.UserFilter{Role: model.RoleTherapist}
	switch status {
	case "":
	case model.ApprovalPending:
		filter.Approved = new(bool)
	case model.ApprovalApproved:
		approved := true
		filter.Approved = &approved
	default:
		return nil, model.Invalid("status", "must be one of: pending, approved")
	}
	return s.storage.ListUsers(ctx, filter)
}

// AppendEmotion adds an entry to the user's profile emotion log
func (s *Service) AppendEmotion(ctx context.Context, ref string, in EmotionInput) (*model.EmotionLog, error) {
	in.GameName = strings.TrimSpace(in.GameName)
	in.Emotion = model.NormalizeEmotion(in.Emotion)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	u, err := s.Resolve(ctx, ref)
	if err != nil {
		return nil, err
	}

	entry := model.EmotionLog{
		GameName:       in.GameName,
		QuestionNumber: in.QuestionNumber,
		Emotion:        in.Emotion,
		Score:          in.Score,
		Timestamp:      s.clock.Now(),
	}
	if err := s.storage.AppendEmotion(ctx, u.ID, entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

// AppendGamePlay adds a final score to the user's profile game-play log
func (s *Service) AppendGamePlay(ctx context.Context, ref string, in GamePlayInput) (*model.GamePlay, error) {
	in.GameName = strings.TrimSpace(in.GameName)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	u, err := s.Resolve(ctx, ref)
	if err != nil {
		return nil, err
	}

	entry := model.GamePlay{
		GameName:   in.GameName,
		FinalScore: in.FinalScore,
		Timestamp:  s.clock.Now(),
	}
	if err := s.storage.AppendGamePlay(ctx, u.ID, entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

// SuggestGame appends a game to the user's suggestions. Repeated
// suggestions of the same game are all kept.
func (s *Service) SuggestGame(ctx context.Context, ref, gameName string) (*model.User, error) {
	in := suggestionInput{GameName: strings.TrimSpace(gameName)}
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	u, err := s.Resolve(ctx, ref)
	if err != nil {
		return nil, err
	}

	if err := s.storage.AppendSuggestedGame(ctx, u.ID, in.GameName); err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "game suggested", "user_id", u.ID, "game", in.GameName)

	u.SuggestedGames = append(u.SuggestedGames, in.GameName)
	return u, nil
}

// Approve moves a therapist from pending to approved. Approving an
// approved therapist succeeds without side effects.
func (s *Service) Approve(ctx context.Context, username string) (*model.User, error) {
	username = strings.TrimSpace(username)

	current, err := s.storage.GetUserByUsername(ctx, username)
	if errors.Is(err, model.ErrUserNotFound) {
		return nil, model.ErrTherapistNotFound
	}
	if err != nil {
		return nil, err
	}
	if current.Role != model.RoleTherapist {
		return nil, model.ErrTherapistNotFound
	}
	if current.IsApproved {
		return current, nil
	}

	approved, err := s.storage.ApproveTherapist(ctx, username)
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "therapist approved", "user_id", approved.ID, "username", approved.Username)

	if err := s.notifier.TherapistApproved(ctx, approved); err != nil {
		s.logger.WarnContext(ctx, "approval notification failed", "username", approved.Username, "error", err)
	}
	return approved, nil
}

// Delete removes a user. Their game sessions are kept.
func (s *Service) Delete(ctx context.Context, id model.UserID) error {
	if err := s.storage.DeleteUser(ctx, id); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "user deleted", "user_id", id)
	return nil
}
