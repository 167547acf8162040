// Package notify tells people about approval workflow transitions.
package notify

import (
	"context"
	"log/slog"

	"github.com/joyverse/joyverse-backend/internal/model"
)

// Notifier is told about approval workflow transitions. Implementations
// should not block for long; callers log failures and carry on.
type Notifier interface {
	// TherapistPending is called after a therapist signs up
	TherapistPending(ctx context.Context, therapist *model.User) error
	// TherapistApproved is called after an admin approves a therapist
	TherapistApproved(ctx context.Context, therapist *model.User) error
}

// LogNotifier records notifications in the log instead of sending them
type LogNotifier struct {
	logger *slog.Logger
}

// Ensure LogNotifier implements Notifier
var _ Notifier = (*LogNotifier)(nil)

// NewLogNotifier creates a LogNotifier
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) TherapistPending(ctx context.Context, therapist *model.User) error {
	n.logger.InfoContext(ctx, "therapist awaiting approval",
		"username", therapist.Username,
		"email", therapist.Email,
	)
	return nil
}

func (n *LogNotifier) TherapistApproved(ctx context.Context, therapist *model.User) error {
	n.logger.InfoContext(ctx, "therapist approval notice",
		"username", therapist.Username,
		"email", therapist.Email,
	)
	return nil
}
