package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/GoSim-25-26J-441/grant-registry-backend/internal/logging"
)

// StreamEvents relays applied registry calls to the client using Server-Sent Events (SSE)
func (h *Handler) StreamEvents(c *gin.Context) {
	if h.events == nil {
		c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "event stream disabled"})
		return
	}

	ctx := c.Request.Context()
	events, err := h.events.Subscribe(ctx)
	if err != nil {
		logging.FromContext(ctx, h.log).WithError(err).Error("subscribe to registry events")
		c.JSON(http.StatusServiceUnavailable, gin.H{"ok": false, "error": "event stream unavailable"})
		return
	}

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "streaming unsupported"})
		return
	}

	// Set SSE headers
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no") // nginx: disable buffering
	c.Status(http.StatusOK)

	fmt.Fprint(c.Writer, "event: ready\ndata: {}\n\n")
	flusher.Flush()

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			// Client disconnected
			return

		case <-ticker.C:
			fmt.Fprint(c.Writer, ": keep-alive\n\n")
			flusher.Flush()

		case ev, ok := <-events:
			if !ok {
				return
			}
			data, err := json.Marshal(ev.Receipt)
			if err != nil {
				continue
			}
			fmt.Fprintf(c.Writer, "id: %s\nevent: %s\ndata: %s\n\n", ev.Receipt.TxID, ev.Op, data)
			flusher.Flush()
		}
	}
}
