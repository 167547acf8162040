// Package report builds the aggregated view of a user's emotions and
// game performance shown on the child profile dashboard.
package report

import (
	"context"
	"log/slog"

	"github.com/joyverse/joyverse-backend/internal/model"
	"github.com/joyverse/joyverse-backend/internal/storage"
)

// UserResolver finds a user by id or username
type UserResolver interface {
	Resolve(ctx context.Context, ref string) (*model.User, error)
}

// Service loads the data a report needs. The user and their sessions are
// read separately, so a write landing between the two reads may be
// missing from, or counted twice in, the result.
type Service struct {
	users    UserResolver
	sessions storage.SessionStore
	logger   *slog.Logger
}

// New creates a new report Service
func New(users UserResolver, sessions storage.SessionStore, logger *slog.Logger) *Service {
	return &Service{
		users:    users,
		sessions: sessions,
		logger:   logger,
	}
}

// ProfileReport builds the report for a user given by id or username
func (s *Service) ProfileReport(ctx context.Context, ref string) (*model.Report, error) {
	user, err := s.users.Resolve(ctx, ref)
	if err != nil {
		return nil, err
	}

	sessions, err := s.sessions.ListSessionsForUser(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	r := Build(user, sessions)
	s.logger.DebugContext(ctx, "report built",
		"user_id", user.ID,
		"sessions", r.TotalSessions,
		"emotions", len(r.Emotions),
	)
	return r, nil
}
