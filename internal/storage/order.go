package storage

import (
	"cmp"

	"github.com/joyverse/joyverse-backend/internal/model"
)

// CompareSessions orders sessions by creation timestamp, then by id.
// Backends that cannot sort natively use it to meet the
// ListSessionsForUser ordering.
func CompareSessions(a, b *model.GameSession) int {
	if c := a.Timestamp.Compare(b.Timestamp); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}
