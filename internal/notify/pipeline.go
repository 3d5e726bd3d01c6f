// Package notify runs the background alert check: resolve position, fetch alerts,
// filter and dedup them, and deliver at most one notification per run.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mr1hm/go-trip-alerts/internal/logging"
	"github.com/mr1hm/go-trip-alerts/internal/metrics"
	"github.com/mr1hm/go-trip-alerts/internal/models"
	"github.com/mr1hm/go-trip-alerts/internal/position"
)

// DefaultFixTimeout bounds the wait for a fresh position when none is cached.
const DefaultFixTimeout = 30 * time.Second

const (
	defaultTitle = "Weather Alert"
	defaultBody  = "Weather alert detected in your area."
	titlePrefix  = "⚠️ "
)

type Mode int

const (
	ModeScheduled Mode = iota
	// ModeTest guarantees a notification and bypasses dedup and category filters.
	ModeTest
)

func (m Mode) String() string {
	if m == ModeTest {
		return "test"
	}
	return "scheduled"
}

type Outcome int

const (
	OutcomeNoData Outcome = iota
	OutcomeNewData
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeNewData:
		return "new_data"
	case OutcomeFailed:
		return "failed"
	default:
		return "no_data"
	}
}

type SettingsStore interface {
	GetSettings(ctx context.Context) (models.Settings, error)
}

type DedupStore interface {
	LastDeliveredAlertID(ctx context.Context) (string, error)
	SetLastDeliveredAlertID(ctx context.Context, id string) error
}

// PositionResolver is satisfied by *position.Hub.
type PositionResolver interface {
	PermissionGranted() bool
	LastUpdate() (position.Update, bool)
	CurrentPosition(ctx context.Context) (models.Position, error)
}

type AlertSource interface {
	FetchAlerts(ctx context.Context, coord models.Coordinate) ([]models.WeatherAlert, error)
}

type Emitter interface {
	Emit(ctx context.Context, n *models.Notification) error
}

type Pipeline struct {
	settings   SettingsStore
	dedup      DedupStore
	position   PositionResolver
	source     AlertSource
	emitter    Emitter
	fixTimeout time.Duration
	now        func() time.Time
	log        *slog.Logger
}

func NewPipeline(settings SettingsStore, dedup DedupStore, resolver PositionResolver, source AlertSource, emitter Emitter, fixTimeout time.Duration) *Pipeline {
	if fixTimeout <= 0 {
		fixTimeout = DefaultFixTimeout
	}
	return &Pipeline{
		settings:   settings,
		dedup:      dedup,
		position:   resolver,
		source:     source,
		emitter:    emitter,
		fixTimeout: fixTimeout,
		now:        time.Now,
		log:        logging.For("notify"),
	}
}

// RunCheck performs one check. Upstream errors are logged and reported as OutcomeFailed.
func (p *Pipeline) RunCheck(ctx context.Context, mode Mode) Outcome {
	outcome, err := p.run(ctx, mode)
	if err != nil {
		p.log.Error("alert check failed", "mode", mode, "error", err)
	} else {
		p.log.Info("alert check finished", "mode", mode, "outcome", outcome)
	}
	metrics.NotificationChecks.WithLabelValues(mode.String(), outcome.String()).Inc()
	return outcome
}

func (p *Pipeline) run(ctx context.Context, mode Mode) (Outcome, error) {
	settings, err := p.settings.GetSettings(ctx)
	if err != nil {
		return OutcomeFailed, fmt.Errorf("reading settings: %w", err)
	}
	if !settings.NotificationsEnabled {
		return OutcomeNoData, nil
	}

	pos, err := p.resolvePosition(ctx)
	if err != nil {
		return OutcomeFailed, err
	}

	alerts, err := p.source.FetchAlerts(ctx, pos)
	if err != nil {
		return OutcomeFailed, fmt.Errorf("fetching alerts: %w", err)
	}
	if mode == ModeTest && len(alerts) == 0 {
		alerts = []models.WeatherAlert{p.placeholder(pos)}
	}

	lastID := ""
	if mode != ModeTest {
		if lastID, err = p.dedup.LastDeliveredAlertID(ctx); err != nil {
			return OutcomeFailed, fmt.Errorf("reading last delivered alert: %w", err)
		}
	}

	// First match wins: later alerts wait for a future run.
	for _, alert := range alerts {
		id := alert.DedupID()
		if mode != ModeTest && skip(alert, id, lastID, settings.Categories) {
			continue
		}

		n := &models.Notification{
			Title:     notificationTitle(alert),
			Body:      notificationBody(alert),
			Alert:     alert,
			Test:      mode == ModeTest,
			CreatedAt: p.now(),
		}
		if err := p.emitter.Emit(ctx, n); err != nil {
			return OutcomeFailed, fmt.Errorf("emitting notification: %w", err)
		}
		if mode != ModeTest {
			if err := p.dedup.SetLastDeliveredAlertID(ctx, id); err != nil {
				return OutcomeFailed, fmt.Errorf("storing last delivered alert: %w", err)
			}
		}
		return OutcomeNewData, nil
	}
	return OutcomeNoData, nil
}

// resolvePosition prefers the cached fix and only then waits for a fresh one.
// Without location permission only a manually entered position is usable.
func (p *Pipeline) resolvePosition(ctx context.Context) (models.Coordinate, error) {
	last, ok := p.position.LastUpdate()
	if !p.position.PermissionGranted() {
		if ok && last.Manual {
			return last.Position.Coordinate, nil
		}
		return models.Coordinate{}, fmt.Errorf("resolving position: %w", position.ErrPermissionDenied)
	}
	if ok {
		return last.Position.Coordinate, nil
	}
	ctx, cancel := context.WithTimeout(ctx, p.fixTimeout)
	defer cancel()

	pos, err := p.position.CurrentPosition(ctx)
	if err != nil {
		return models.Coordinate{}, fmt.Errorf("resolving position: %w", err)
	}
	return pos.Coordinate, nil
}

func (p *Pipeline) placeholder(pos models.Coordinate) models.WeatherAlert {
	now := p.now()
	return models.WeatherAlert{
		ID:             "test-" + now.UTC().Format(time.RFC3339),
		Source:         models.AlertSourceTest,
		Title:          fmt.Sprintf("Test succeeded! Position: %.4f, %.4f", pos.Latitude, pos.Longitude),
		EventType:      "Test Weather Alert",
		Severity:       models.AlertSeverityModerate,
		StartTime:      now,
		ExpirationTime: now.Add(time.Hour),
	}
}

func skip(alert models.WeatherAlert, id, lastID string, c models.CategorySettings) bool {
	if id != "" && id == lastID {
		return true
	}
	if !c.Weather && alert.Source == models.AlertSourceWeather {
		return true
	}
	event := strings.ToLower(alert.EventType)
	if !c.Flood && strings.Contains(event, "flood") {
		return true
	}
	if !c.Fire && strings.Contains(event, "fire") {
		return true
	}
	return false
}

func notificationTitle(a models.WeatherAlert) string {
	if a.EventType == "" {
		return titlePrefix + defaultTitle
	}
	return titlePrefix + a.EventType
}

func notificationBody(a models.WeatherAlert) string {
	if a.Title == "" {
		return defaultBody
	}
	return a.Title
}
