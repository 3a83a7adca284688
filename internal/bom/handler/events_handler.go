package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/replaysMike/Binner-sub003/internal/bom/events"
)

// EventsHandler streams BOM changes so open pages know when to reload.
type EventsHandler struct {
	hub       *events.Hub
	heartbeat time.Duration
}

func NewEventsHandler(hub *events.Hub) *EventsHandler {
	return &EventsHandler{hub: hub, heartbeat: 30 * time.Second}
}

// Stream GET /api/bom/events?token=xxx
func (h *EventsHandler) Stream(c *gin.Context) {
	// the server's WriteTimeout must not end the stream
	_ = http.NewResponseController(c.Writer).SetWriteDeadline(time.Time{})

	sub := h.hub.Subscribe(GetUserID(c), 64)
	defer h.hub.Unsubscribe(sub.ID)

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")

	fmt.Fprintf(c.Writer, "event: %s\ndata: {\"clientId\":%q}\n\n", events.TypeConnected, sub.ID)
	c.Writer.Flush()

	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()

	done := c.Request.Context().Done()
	for {
		select {
		case <-done:
			return
		case event, ok := <-sub.Events:
			if !ok {
				return
			}
			fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", event.Type, event.Data)
			c.Writer.Flush()
		case <-heartbeat.C:
			fmt.Fprint(c.Writer, ": keepalive\n\n")
			c.Writer.Flush()
		}
	}
}
