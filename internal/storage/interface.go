package storage

import (
	"context"

	"github.com/joyverse/joyverse-backend/internal/model"
)

// UserStore persists user profiles and their append-only logs
type UserStore interface {
	// CreateUser stores a new user. It fails with model.ErrUsernameTaken if
	// the username is in use; the check and the insert are atomic.
	CreateUser(ctx context.Context, user *model.User) error
	GetUser(ctx context.Context, id model.UserID) (*model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	// ListUsers returns matching users ordered by creation time
	ListUsers(ctx context.Context, filter model.UserFilter) ([]*model.User, error)
	DeleteUser(ctx context.Context, id model.UserID) error

	AppendEmotion(ctx context.Context, id model.UserID, entry model.EmotionLog) error
	AppendGamePlay(ctx context.Context, id model.UserID, entry model.GamePlay) error
	AppendSuggestedGame(ctx context.Context, id model.UserID, gameName string) error

	// ApproveTherapist marks the therapist with the given username approved.
	// Non-therapist and unknown usernames fail with model.ErrTherapistNotFound.
	ApproveTherapist(ctx context.Context, username string) (*model.User, error)
}

// SessionStore persists game sessions. It does not check that the
// referenced user exists.
type SessionStore interface {
	// RecordObservation atomically finds or creates the session named by
	// obs.OpenKey(), appends the question and applies the final score.
	// newSession supplies the session to create when none is open.
	RecordObservation(ctx context.Context, obs model.Observation, newSession *model.GameSession) (*model.GameSession, error)
	// SaveSession stores a complete session as-is
	SaveSession(ctx context.Context, session *model.GameSession) error
	GetSession(ctx context.Context, id model.SessionID) (*model.GameSession, error)
	// ListSessionsForUser returns the user's sessions ordered by creation
	// timestamp ascending, ties broken by session id.
	ListSessionsForUser(ctx context.Context, userID model.UserID) ([]*model.GameSession, error)
}

// Storage defines the interface for data persistence
type Storage interface {
	UserStore
	SessionStore

	// Close releases connections held by the backend
	Close() error
}
