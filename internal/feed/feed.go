// Package feed publishes each user's current emotion to live
// subscribers over server-sent events. The latest value per user is
// kept so a new subscriber sees it immediately.
package feed

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/joyverse/joyverse-backend/internal/dependencies/clock"
	"github.com/joyverse/joyverse-backend/internal/model"
	"github.com/joyverse/joyverse-backend/internal/validation"
)

// EmotionEvent is the SSE event name for emotion updates
const EmotionEvent = "emotion"

// Update is the current emotion of a user
type Update struct {
	UserID   model.UserID `json:"user_id"`
	Emotion  string       `json:"emotion"`
	GameName string       `json:"game_name,omitempty"`
	At       time.Time    `json:"at"`
}

// PublishInput is a new current emotion
type PublishInput struct {
	Emotion  string `json:"emotion" validate:"required,max=32"`
	GameName string `json:"game_name" validate:"max=100"`
}

// Feed manages one hub per watched user
type Feed struct {
	clock  clock.Clock
	logger *slog.Logger

	mu     sync.RWMutex
	hubs   map[model.UserID]*Hub
	latest map[model.UserID]Update
}

// New creates a new Feed
func New(clock clock.Clock, logger *slog.Logger) *Feed {
	return &Feed{
		clock:  clock,
		logger: logger.With(slog.String("component", "feed")),
		hubs:   make(map[model.UserID]*Hub),
		latest: make(map[model.UserID]Update),
	}
}

// Publish records the user's current emotion and sends it to subscribers
func (f *Feed) Publish(ctx context.Context, userID model.UserID, in PublishInput) (Update, error) {
	in.Emotion = model.NormalizeEmotion(in.Emotion)
	in.GameName = strings.TrimSpace(in.GameName)
	if err := validation.Struct(in); err != nil {
		return Update{}, err
	}

	u := Update{
		UserID:   userID,
		Emotion:  in.Emotion,
		GameName: in.GameName,
		At:       f.clock.Now(),
	}

	f.mu.Lock()
	f.latest[userID] = u
	hub := f.hubs[userID]
	f.mu.Unlock()

	if hub != nil {
		hub.Broadcast(encodeUpdate(u))
	}
	f.logger.DebugContext(ctx, "emotion published", "user_id", userID, "emotion", u.Emotion)
	return u, nil
}

// Latest returns the last published emotion of a user
func (f *Feed) Latest(userID model.UserID) (Update, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	u, ok := f.latest[userID]
	return u, ok
}

// Forget drops the cached emotion of a user and disconnects their subscribers
func (f *Feed) Forget(userID model.UserID) {
	f.mu.Lock()
	delete(f.latest, userID)
	hub := f.hubs[userID]
	delete(f.hubs, userID)
	f.mu.Unlock()

	if hub != nil {
		hub.Close()
	}
}

// Serve streams a user's emotion updates to the request until it ends
func (f *Feed) Serve(w http.ResponseWriter, r *http.Request, userID, viewerID model.UserID) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	// A hub picked up just before CleanupIdle stops it refuses the
	// client; the second attempt gets a fresh hub.
	for range 2 {
		client := NewClient(f.hub(userID), viewerID)
		if !client.hub.Register(client) {
			continue
		}

		var initial []byte
		if u, ok := f.Latest(userID); ok {
			initial = encodeUpdate(u)
		}
		serveStream(w, r, flusher, client, initial)
		return
	}
	http.Error(w, "feed unavailable", http.StatusServiceUnavailable)
}

// SubscriberCount returns the number of live subscribers for a user
func (f *Feed) SubscriberCount(userID model.UserID) int {
	f.mu.RLock()
	hub := f.hubs[userID]
	f.mu.RUnlock()
	if hub == nil {
		return 0
	}
	return hub.ClientCount()
}

func (f *Feed) hub(userID model.UserID) *Hub {
	f.mu.Lock()
	defer f.mu.Unlock()

	if hub, ok := f.hubs[userID]; ok {
		return hub
	}
	hub := NewHub(userID, f.logger)
	f.hubs[userID] = hub
	go hub.Run()
	return hub
}

// CleanupIdle stops hubs without subscribers. Cached emotions are kept.
func (f *Feed) CleanupIdle() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	removed := 0
	for id, hub := range f.hubs {
		if hub.ClientCount() == 0 {
			hub.Close()
			delete(f.hubs, id)
			removed++
		}
	}
	if removed > 0 {
		f.logger.Debug("idle feed hubs removed", slog.Int("removed", removed))
	}
	return removed
}

// RunCleanup calls CleanupIdle every interval until ctx is done
func (f *Feed) RunCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			f.CleanupIdle()
		}
	}
}

// Close stops every hub
func (f *Feed) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, hub := range f.hubs {
		hub.Close()
		delete(f.hubs, id)
	}
}

func encodeUpdate(u Update) []byte {
	data, _ := json.Marshal(u)
	return formatEvent(EmotionEvent, string(data))
}
