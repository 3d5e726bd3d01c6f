// Package session connects the position stream to the trip machine and the
// alert engine, and publishes their state to UI subscribers.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/mr1hm/go-trip-alerts/internal/alerts"
	"github.com/mr1hm/go-trip-alerts/internal/broadcast"
	"github.com/mr1hm/go-trip-alerts/internal/logging"
	"github.com/mr1hm/go-trip-alerts/internal/models"
	"github.com/mr1hm/go-trip-alerts/internal/position"
	"github.com/mr1hm/go-trip-alerts/internal/trip"
	"github.com/mr1hm/go-trip-alerts/internal/worker"
)

const DefaultEventBuffer = 64

type SettingsStore interface {
	GetSettings(ctx context.Context) (models.Settings, error)
}

// positionEvent carries the route generation that was current when the fix arrived.
type positionEvent struct {
	update   position.Update
	routeGen uint64
}

type Session struct {
	hub      *position.Hub
	trip     *trip.Machine
	alerts   *alerts.Engine
	settings SettingsStore
	queue    *worker.WorkerPool
	log      *slog.Logger

	tripUpdates  *broadcast.Broadcaster[models.TripSnapshot]
	alertUpdates *broadcast.Broadcaster[[]models.AlertGroup]

	ctx         context.Context
	unsubscribe func()
	wg          sync.WaitGroup
}

func New(hub *position.Hub, machine *trip.Machine, engine *alerts.Engine, settings SettingsStore, eventBuffer int) *Session {
	if eventBuffer <= 0 {
		eventBuffer = DefaultEventBuffer
	}
	s := &Session{
		hub:          hub,
		trip:         machine,
		alerts:       engine,
		settings:     settings,
		log:          logging.For("session"),
		tripUpdates:  broadcast.New[models.TripSnapshot](),
		alertUpdates: broadcast.New[[]models.AlertGroup](),
	}
	s.queue = worker.NewSerialQueue("position-events", eventBuffer, s.process)
	return s
}

// Start wires the callbacks and begins consuming position updates.
func (s *Session) Start(ctx context.Context) {
	s.ctx = ctx
	s.trip.OnChange(s.tripUpdates.Broadcast)
	s.alerts.OnUpdate(s.alertUpdates.Broadcast)
	s.queue.Start(ctx)
	s.unsubscribe = s.hub.Subscribe(s.ingest)
	s.log.Info("session started")
}

// ingest runs in the publisher's goroutine. Manual fixes force the next alert
// refresh before the event is queued.
func (s *Session) ingest(u position.Update) {
	if u.Manual {
		s.alerts.RequestImmediateRefresh()
	}
	ev := positionEvent{update: u, routeGen: s.trip.RouteGeneration()}
	if err := s.queue.Submit(s.ctx, ev); err != nil {
		if errors.Is(err, worker.ErrPoolStopped) {
			return
		}
		s.log.Warn("dropping position event", "error", err)
	}
}

func (s *Session) process(ctx context.Context, job worker.Job) error {
	ev := job.(positionEvent)
	coord := ev.update.Position.Coordinate

	s.trip.UpdatePosition(coord, ev.routeGen)

	if !s.alerts.ShouldRefetch(coord) {
		return nil
	}
	settings, err := s.settings.GetSettings(ctx)
	if err != nil {
		s.log.Warn("using default settings for alert refresh", "error", err)
		settings = models.DefaultSettings()
	}

	// The fetch must not hold up the event queue; the engine's in-flight guard
	// keeps it to one request at a time.
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.alerts.Refresh(ctx, coord, settings.AlertRadiusKm)
	}()
	return nil
}

func (s *Session) Trip() *trip.Machine {
	return s.trip
}

func (s *Session) Alerts() *alerts.Engine {
	return s.alerts
}

func (s *Session) Position() *position.Hub {
	return s.hub
}

func (s *Session) TripUpdates() *broadcast.Broadcaster[models.TripSnapshot] {
	return s.tripUpdates
}

func (s *Session) AlertUpdates() *broadcast.Broadcaster[[]models.AlertGroup] {
	return s.alertUpdates
}

// Stop detaches from the hub, drains queued events and waits for in-flight fetches.
func (s *Session) Stop() {
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
	s.queue.Stop()
	s.wg.Wait()
	s.trip.Close()
	s.tripUpdates.Close()
	s.alertUpdates.Close()
	s.log.Info("session stopped")
}
