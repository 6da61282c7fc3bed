package api

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/buildwatch/internal/notification"
)

// unreadEvent is the payload of an "unread" SSE event.
type unreadEvent struct {
	Unread int    `json:"unread"`
	Badge  string `json:"badge"`
}

// handleEvents streams the caller's unread notification count. An event is
// sent on connect and whenever the count changes; heartbeats keep proxies
// from closing an idle stream.
func (s *server) handleEvents(c *gin.Context) {
	id, ok := clientID(c)
	if !ok {
		return
	}
	inbox := s.inbox(id)
	ctx := c.Request.Context()

	unread := func() (int, error) {
		list, err := inbox.List(ctx)
		if err != nil {
			return 0, err
		}
		return notification.Unread(list), nil
	}

	last, err := unread()
	if err != nil {
		fail(c, err)
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	writeSSE(c.Writer, "unread", unreadEvent{Unread: last, Badge: notification.Badge(last)})
	c.Writer.Flush()

	ticker := time.NewTicker(s.pollInterval)
	heartbeat := time.NewTicker(s.heartbeat)
	defer ticker.Stop()
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-heartbeat.C:
			writeSSE(c.Writer, "heartbeat", map[string]string{
				"timestamp": s.now().UTC().Format(time.RFC3339),
			})
			c.Writer.Flush()
		case <-ticker.C:
			n, err := unread()
			if err != nil {
				if ctx.Err() == nil {
					log.Printf("api: events for %s: %v", id, err)
				}
				continue
			}
			if n == last {
				continue
			}
			last = n
			writeSSE(c.Writer, "unread", unreadEvent{Unread: n, Badge: notification.Badge(n)})
			c.Writer.Flush()
		}
	}
}

// writeSSE writes a single SSE event to the writer.
func writeSSE(w io.Writer, event string, data any) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, string(jsonData))
}
