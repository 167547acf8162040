package feed

import (
	"net/http"
	"time"

	"github.com/joyverse/joyverse-backend/internal/model"
)

const (
	// Time between keepalive comments
	pingPeriod = 30 * time.Second

	// Buffer size for outgoing messages
	sendBufferSize = 16
)

// Client is one connected stream subscriber
type Client struct {
	hub         *Hub
	viewerID    model.UserID
	send        chan []byte
	connectedAt time.Time
}

// NewClient creates a new subscriber
func NewClient(hub *Hub, viewerID model.UserID) *Client {
	return &Client{
		hub:         hub,
		viewerID:    viewerID,
		send:        make(chan []byte, sendBufferSize),
		connectedAt: time.Now(),
	}
}

// serveStream writes events to w until the request ends or the hub
// closes. The client must already be registered. initial, if set, is
// written straight after the connected event.
func serveStream(w http.ResponseWriter, r *http.Request, flusher http.Flusher, client *Client, initial []byte) {
	defer client.hub.Unregister(client)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	_, _ = w.Write(formatEvent("connected", `{"status":"connected"}`))
	if initial != nil {
		_, _ = w.Write(initial)
	}
	flusher.Flush()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case message, ok := <-client.send:
			if !ok {
				return
			}
			if _, err := w.Write(message); err != nil {
				return
			}
			flusher.Flush()

		case <-ticker.C:
			if _, err := w.Write([]byte(": keepalive\n\n")); err != nil {
				return
			}
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}
