package api

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mr1hm/go-trip-alerts/internal/broadcast"
	"github.com/mr1hm/go-trip-alerts/internal/clients/geocoding"
	"github.com/mr1hm/go-trip-alerts/internal/geo"
	"github.com/mr1hm/go-trip-alerts/internal/models"
	"github.com/mr1hm/go-trip-alerts/internal/notify"
	"github.com/mr1hm/go-trip-alerts/internal/position"
	"github.com/mr1hm/go-trip-alerts/internal/repository"
	"github.com/mr1hm/go-trip-alerts/internal/session"
	"github.com/mr1hm/go-trip-alerts/internal/trip"
)

type Geocoder interface {
	Geocode(ctx context.Context, query string) ([]geocoding.Candidate, error)
}

// Checker runs one notification check, satisfied by *notify.Pipeline.
type Checker interface {
	RunCheck(ctx context.Context, mode notify.Mode) notify.Outcome
}

type Store interface {
	repository.SettingsRepository
	repository.NotificationRepository
}

type Handler struct {
	session       *session.Session
	store         Store
	geocoder      Geocoder
	checker       Checker
	notifications *broadcast.Broadcaster[models.Notification]
}

func NewHandler(sess *session.Session, store Store, geocoder Geocoder, checker Checker, notifications *broadcast.Broadcaster[models.Notification]) *Handler {
	return &Handler{
		session:       sess,
		store:         store,
		geocoder:      geocoder,
		checker:       checker,
		notifications: notifications,
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.health)

	api := r.Group("/api")

	api.GET("/trip", h.getTrip)
	api.POST("/trip/destination", h.selectDestination)
	api.DELETE("/trip/destination", h.clearDestination)
	api.POST("/trip/confirm", h.confirmDestination)
	api.POST("/trip/back", h.backToDestination)
	api.POST("/trip/start", h.startTrip)
	api.POST("/trip/end", h.endTrip)
	api.GET("/trip/route.kml", h.getRouteKML)

	api.POST("/position", h.updatePosition)
	api.POST("/position/simulate", h.simulatePosition)
	api.PUT("/position/permission", h.setPermission)

	api.GET("/alerts", h.getAlerts)
	api.GET("/alerts/:id", h.getAlert)

	api.GET("/settings", h.getSettings)
	api.PUT("/settings", h.putSettings)

	api.POST("/notifications/test", h.testNotification)
	api.GET("/notifications", h.getNotifications)

	api.GET("/stream", h.stream)
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) getTrip(c *gin.Context) {
	c.JSON(http.StatusOK, h.session.Trip().Snapshot())
}

type destinationRequest struct {
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
	Description string   `json:"description"`
	Query       string   `json:"query"`
}

// selectDestination accepts either explicit coordinates or a search query, in
// which case the first geocoding candidate is used.
func (h *Handler) selectDestination(c *gin.Context) {
	var req destinationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	var dest models.Destination
	switch {
	case req.Query != "":
		candidates, err := h.geocoder.Geocode(c.Request.Context(), req.Query)
		if err == nil && len(candidates) == 0 {
			err = geocoding.ErrNotFound
		}
		if err != nil {
			writeError(c, err)
			return
		}
		dest = models.Destination{Coordinate: candidates[0].Coordinate, Description: candidates[0].Address}
	case req.Latitude != nil && req.Longitude != nil:
		dest = models.Destination{
			Coordinate:  models.Coordinate{Latitude: *req.Latitude, Longitude: *req.Longitude},
			Description: req.Description,
		}
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "latitude and longitude or query required"})
		return
	}

	if err := h.session.Trip().SelectDestination(dest); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, h.session.Trip().Snapshot())
}

func (h *Handler) clearDestination(c *gin.Context) {
	h.session.Trip().ClearDestination()
	c.JSON(http.StatusOK, h.session.Trip().Snapshot())
}

func (h *Handler) confirmDestination(c *gin.Context) {
	h.transition(c, h.session.Trip().ConfirmDestination)
}

func (h *Handler) backToDestination(c *gin.Context) {
	h.transition(c, h.session.Trip().BackToDestination)
}

type startRequest struct {
	Option string `json:"option"`
}

func (h *Handler) startTrip(c *gin.Context) {
	var req startRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	h.transition(c, func() error { return h.session.Trip().StartTrip(req.Option) })
}

func (h *Handler) endTrip(c *gin.Context) {
	h.session.Trip().EndTrip()
	c.JSON(http.StatusOK, h.session.Trip().Snapshot())
}

func (h *Handler) transition(c *gin.Context, fn func() error) {
	if err := fn(); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.session.Trip().Snapshot())
}

func (h *Handler) getRouteKML(c *gin.Context) {
	snap := h.session.Trip().Snapshot()
	if snap.Route == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no route"})
		return
	}

	var buf bytes.Buffer
	if err := writeRouteKML(&buf, snap); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to render route"})
		return
	}
	c.Header("Content-Disposition", `attachment; filename="route.kml"`)
	c.Data(http.StatusOK, "application/vnd.google-earth.kml+xml", buf.Bytes())
}

type positionRequest struct {
	Latitude  *float64 `json:"latitude" binding:"required"`
	Longitude *float64 `json:"longitude" binding:"required"`
	Heading   *float64 `json:"heading"`
}

func (h *Handler) updatePosition(c *gin.Context) {
	var req positionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "latitude and longitude required"})
		return
	}

	pos := models.Position{
		Coordinate: models.Coordinate{Latitude: *req.Latitude, Longitude: *req.Longitude},
		Heading:    req.Heading,
	}
	if err := h.session.Position().Publish(pos, false); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusAccepted)
}

// simulateRequest carries coordinates as typed into the manual position form.
type simulateRequest struct {
	Latitude  string `json:"latitude"`
	Longitude string `json:"longitude"`
}

func (h *Handler) simulatePosition(c *gin.Context) {
	var req simulateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	coord := position.DefaultManual
	if req.Latitude != "" || req.Longitude != "" {
		var err error
		if coord, err = position.ParseManual(req.Latitude, req.Longitude); err != nil {
			writeError(c, err)
			return
		}
	}

	if err := h.session.Position().Publish(models.Position{Coordinate: coord}, true); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, coord)
}

type permissionRequest struct {
	Granted *bool `json:"granted" binding:"required"`
}

func (h *Handler) setPermission(c *gin.Context) {
	var req permissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "granted required"})
		return
	}
	h.session.Position().SetPermission(*req.Granted)
	c.JSON(http.StatusOK, gin.H{"granted": *req.Granted})
}

func (h *Handler) getAlerts(c *gin.Context) {
	fc := toGeoJSON(h.session.Alerts().Groups())
	c.Header("Content-Type", "application/geo+json")
	c.JSON(http.StatusOK, fc)
}

func (h *Handler) getAlert(c *gin.Context) {
	alert, ok := h.session.Alerts().Alert(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "alert not found"})
		return
	}
	c.JSON(http.StatusOK, alert)
}

func (h *Handler) getSettings(c *gin.Context) {
	settings, err := h.store.GetSettings(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read settings"})
		return
	}
	c.JSON(http.StatusOK, settings)
}

func (h *Handler) putSettings(c *gin.Context) {
	var settings models.Settings
	if err := c.ShouldBindJSON(&settings); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid settings"})
		return
	}
	if settings.AlertRadiusKm < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "alertRadius must not be negative"})
		return
	}

	if err := h.store.SaveSettings(c.Request.Context(), settings); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save settings"})
		return
	}
	c.JSON(http.StatusOK, settings)
}

func (h *Handler) testNotification(c *gin.Context) {
	outcome := h.checker.RunCheck(c.Request.Context(), notify.ModeTest)
	status := http.StatusOK
	if outcome == notify.OutcomeFailed {
		status = http.StatusBadGateway
	}
	c.JSON(status, gin.H{"outcome": outcome.String()})
}

func (h *Handler) getNotifications(c *gin.Context) {
	filter := repository.Filter{
		Limit: 20, // Default to 20 notifications if limit param not supplied
	}
	if l := c.Query("limit"); l != "" {
		if lim, err := strconv.Atoi(l); err == nil && lim > 0 && lim <= 500 {
			filter.Limit = lim
		}
	}
	if o := c.Query("offset"); o != "" {
		if off, err := strconv.Atoi(o); err == nil && off >= 0 {
			filter.Offset = off
		}
	}

	notifications, err := h.store.ListNotifications(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "failed to fetch notifications",
		})
		return
	}
	c.JSON(http.StatusOK, notifications)
}

func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, trip.ErrInvalidTransition), errors.Is(err, trip.ErrRouteNotReady):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, trip.ErrInvalidRideOption), errors.Is(err, geo.ErrInvalidCoordinate):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, position.ErrPermissionDenied):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, geocoding.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	}
}
