package alerts

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/mr1hm/go-trip-alerts/internal/geo"
	"github.com/mr1hm/go-trip-alerts/internal/metrics"
	"github.com/mr1hm/go-trip-alerts/internal/models"
)

const (
	// RefetchDistanceMeters is how far the user must move from the last fetch
	// location before alerts are fetched again.
	RefetchDistanceMeters = 5000.0

	// RetryInterval holds off refetching after a failed fetch.
	RetryInterval = 30 * time.Second
)

// Source fetches alerts around a coordinate.
type Source interface {
	FetchAlerts(ctx context.Context, coord models.Coordinate) ([]models.WeatherAlert, error)
}

// Engine keeps the alert groups for the user's current area.
type Engine struct {
	source          Source
	name            string
	refetchDistance float64
	now             func() time.Time

	mu           sync.Mutex
	inFlight     bool
	lastFetch    *models.Coordinate
	failedAt     time.Time
	forceRefresh bool
	alerts       []models.WeatherAlert
	groups       []models.AlertGroup
	onUpdate     func([]models.AlertGroup)
}

func NewEngine(name string, source Source, refetchDistanceMeters float64) *Engine {
	if refetchDistanceMeters <= 0 {
		refetchDistanceMeters = RefetchDistanceMeters
	}
	return &Engine{
		source:          source,
		name:            name,
		refetchDistance: refetchDistanceMeters,
		now:             time.Now,
	}
}

// OnUpdate registers a callback invoked with the new groups after every refresh.
func (e *Engine) OnUpdate(fn func([]models.AlertGroup)) {
	e.mu.Lock()
	e.onUpdate = fn
	e.mu.Unlock()
}

// FetchAlertsNear issues one provider request. Errors and empty responses both come
// back as an empty list; absence of alerts is the common case.
func (e *Engine) FetchAlertsNear(ctx context.Context, pos models.Coordinate) []models.WeatherAlert {
	alerts, _ := e.fetch(ctx, pos)
	return alerts
}

func (e *Engine) fetch(ctx context.Context, pos models.Coordinate) ([]models.WeatherAlert, error) {
	alerts, err := e.source.FetchAlerts(ctx, pos)
	if err != nil {
		slog.Warn("alert fetch failed", "source", e.name, "error", err)
		metrics.AlertFetches.WithLabelValues(e.name, "error").Inc()
		return []models.WeatherAlert{}, err
	}
	metrics.AlertFetches.WithLabelValues(e.name, "ok").Inc()
	if alerts == nil {
		alerts = []models.WeatherAlert{}
	}
	return alerts, nil
}

// RequestImmediateRefresh makes the next ShouldRefetch ignore the distance check once,
// e.g. after a manually set position.
func (e *Engine) RequestImmediateRefresh() {
	e.mu.Lock()
	e.forceRefresh = true
	e.mu.Unlock()
}

func (e *Engine) ShouldRefetch(pos models.Coordinate) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.shouldRefetchLocked(pos)
}

func (e *Engine) shouldRefetchLocked(pos models.Coordinate) bool {
	if e.inFlight {
		return false
	}
	if e.forceRefresh {
		return true
	}
	if !e.failedAt.IsZero() && e.now().Sub(e.failedAt) < RetryInterval {
		return false
	}
	if e.lastFetch == nil {
		return true
	}
	return geo.DistanceMeters(*e.lastFetch, pos) >= e.refetchDistance
}

// Refresh fetches and regroups alerts around pos when ShouldRefetch allows it.
// Alerts whose area lies beyond radiusKm are left out. It reports whether a fetch ran.
func (e *Engine) Refresh(ctx context.Context, pos models.Coordinate, radiusKm float64) bool {
	e.mu.Lock()
	if !e.shouldRefetchLocked(pos) {
		e.mu.Unlock()
		return false
	}
	e.inFlight = true
	e.forceRefresh = false
	e.mu.Unlock()

	fetched, err := e.fetch(ctx, pos)
	relevant := FilterByRadius(fetched, pos, radiusKm)
	fallback := pos
	groups := GroupAlerts(relevant, &fallback)

	e.mu.Lock()
	e.inFlight = false
	if err != nil {
		e.failedAt = e.now()
	} else {
		e.failedAt = time.Time{}
		e.lastFetch = &fallback
	}
	e.alerts = relevant
	e.groups = groups
	notify := e.onUpdate
	e.mu.Unlock()

	metrics.AlertGroups.Set(float64(len(groups)))
	slog.Debug("alerts refreshed", "source", e.name, "alerts", len(relevant), "groups", len(groups))

	if notify != nil {
		notify(cloneGroups(groups))
	}
	return true
}

func (e *Engine) Groups() []models.AlertGroup {
	e.mu.Lock()
	defer e.mu.Unlock()
	return cloneGroups(e.groups)
}

// Alert looks up an alert from the latest refresh for the detail view.
func (e *Engine) Alert(id string) (models.WeatherAlert, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, a := range e.alerts {
		if a.ID == id {
			return a, true
		}
	}
	return models.WeatherAlert{}, false
}

func cloneGroups(groups []models.AlertGroup) []models.AlertGroup {
	out := make([]models.AlertGroup, len(groups))
	for i, g := range groups {
		out[i] = g
		out[i].Members = append([]models.WeatherAlert(nil), g.Members...)
	}
	return out
}
