package factory

import (
	"time"

	"github.com/joyverse/joyverse-backend/internal/dependencies/mocks"
	"github.com/joyverse/joyverse-backend/internal/services/auth"
	"github.com/joyverse/joyverse-backend/internal/services/notify"
	"github.com/joyverse/joyverse-backend/internal/storage/memory"
	"github.com/joyverse/joyverse-backend/internal/testutil"
)

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Mocks for test control
	MockClock *mocks.MockClock
	MockIDs   *mocks.MockIDs
}

// NewTestApp creates an App over memory storage with a fixed clock and
// predictable ids
func NewTestApp() *TestApp {
	store := memory.New()
	mockClock := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	mockIDs := mocks.NewMockIDs("id")
	logger := testutil.NopLogger()

	app := newWithDependencies(store, mockClock, mockIDs, notify.NewLogNotifier(logger), auth.DefaultConfig(), logger)

	return &TestApp{
		App:       app,
		MockClock: mockClock,
		MockIDs:   mockIDs,
	}
}
