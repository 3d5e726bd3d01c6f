package api

import (
	"io"

	"github.com/gin-gonic/gin"

	"github.com/mr1hm/go-trip-alerts/internal/alerts"
	"github.com/mr1hm/go-trip-alerts/internal/metrics"
)

// stream pushes trip snapshots, alert markers and delivered notifications as
// server-sent events until the client goes away or the session shuts down.
func (h *Handler) stream(c *gin.Context) {
	tripID, tripCh := h.session.TripUpdates().Subscribe()
	defer h.session.TripUpdates().Unsubscribe(tripID)
	alertID, alertCh := h.session.AlertUpdates().Subscribe()
	defer h.session.AlertUpdates().Unsubscribe(alertID)
	notifyID, notifyCh := h.notifications.Subscribe()
	defer h.notifications.Unsubscribe(notifyID)

	metrics.StreamSubscribers.Inc()
	defer metrics.StreamSubscribers.Dec()

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")

	// current state first so new clients need no extra requests
	c.SSEvent("trip", h.session.Trip().Snapshot())
	c.SSEvent("alerts", alerts.Markers(h.session.Alerts().Groups()))
	c.Writer.Flush()

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case snap, ok := <-tripCh:
			if !ok {
				return false
			}
			c.SSEvent("trip", snap)
		case groups, ok := <-alertCh:
			if !ok {
				return false
			}
			c.SSEvent("alerts", alerts.Markers(groups))
		case n, ok := <-notifyCh:
			if !ok {
				return false
			}
			c.SSEvent("notification", n)
		}
		return true
	})
}
