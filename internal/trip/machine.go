// Package trip holds the single live trip and its phase transitions.
package trip

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mr1hm/go-trip-alerts/internal/geo"
	"github.com/mr1hm/go-trip-alerts/internal/metrics"
	"github.com/mr1hm/go-trip-alerts/internal/models"
	"github.com/mr1hm/go-trip-alerts/internal/navigation"
)

var (
	ErrInvalidTransition = errors.New("invalid trip transition")
	ErrRouteNotReady     = errors.New("route not ready")
	ErrInvalidRideOption = errors.New("invalid ride option")
)

const (
	routeErrNoOrigin = "no origin"
	routeErrNoRoute  = "no route found"
)

// RouteFetcher is satisfied by *routes.Client.
type RouteFetcher interface {
	FetchRoute(ctx context.Context, origin, destination models.Coordinate) (*models.Route, error)
}

// Machine is the trip state container. All mutations go through its methods; readers
// get immutable snapshots.
type Machine struct {
	fetcher RouteFetcher
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	mu          sync.Mutex
	id          string
	phase       models.TripPhase
	origin      *models.Coordinate
	dest        *models.Destination
	route       *models.Route
	loading     bool
	routeErr    string
	selected    string
	tracker     *navigation.StepTracker
	generation  uint64
	inflightKey string
	updatedAt   time.Time
	onChange    func(models.TripSnapshot)
}

// NewMachine creates an idle trip. geofenceMeters overrides the step arrival radius
// when positive.
func NewMachine(fetcher RouteFetcher, geofenceMeters float64) *Machine {
	ctx, cancel := context.WithCancel(context.Background())
	return &Machine{
		fetcher:   fetcher,
		ctx:       ctx,
		cancel:    cancel,
		phase:     models.TripPhaseIdle,
		tracker:   navigation.NewStepTracker(nil).WithRadius(geofenceMeters),
		updatedAt: time.Now(),
	}
}

// OnChange registers fn to receive a snapshot after every change. fn runs with the
// machine lock held so snapshots arrive in order; it must not call back into the Machine.
func (m *Machine) OnChange(fn func(models.TripSnapshot)) {
	m.mu.Lock()
	m.onChange = fn
	m.mu.Unlock()
}

func (m *Machine) Snapshot() models.TripSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

// RouteGeneration identifies the current destination/route. Position events are
// stamped with it when they are ingested.
func (m *Machine) RouteGeneration() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.generation
}

// SelectDestination moves to DestinationSelected from any phase and starts fetching
// a route from the current origin.
func (m *Machine) SelectDestination(dest models.Destination) error {
	if err := geo.Validate(dest.Coordinate); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.loading && m.origin != nil && m.inflightKey == routeKey(*m.origin, dest.Coordinate) {
		metrics.RouteFetches.WithLabelValues("suppressed").Inc()
		return nil
	}

	if m.phase == models.TripPhaseIdle || m.id == "" {
		m.id = uuid.NewString()
	}
	m.generation++
	m.phase = models.TripPhaseDestinationSelected
	m.dest = &dest
	m.route = nil
	m.selected = ""
	m.routeErr = ""
	m.loading = false
	m.inflightKey = ""
	m.tracker.Reset(nil)

	if m.origin == nil {
		m.routeErr = routeErrNoOrigin
	} else {
		m.startFetchLocked()
	}
	m.changedLocked()
	return nil
}

func (m *Machine) startFetchLocked() {
	origin, dest, gen := *m.origin, m.dest.Coordinate, m.generation
	m.loading = true
	m.routeErr = ""
	m.inflightKey = routeKey(origin, dest)

	m.wg.Add(1)
	go m.fetchRoute(gen, origin, dest)
}

func (m *Machine) fetchRoute(gen uint64, origin, dest models.Coordinate) {
	defer m.wg.Done()

	route, err := m.fetcher.FetchRoute(m.ctx, origin, dest)
	if err == nil && route == nil {
		err = errors.New("fetcher returned no route")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if gen != m.generation {
		slog.Debug("discarding stale route response", "generation", gen, "current", m.generation)
		metrics.RouteFetches.WithLabelValues("stale").Inc()
		return
	}

	m.loading = false
	m.inflightKey = ""
	if err != nil {
		slog.Warn("route fetch failed", "trip_id", m.id, "error", err)
		metrics.RouteFetches.WithLabelValues("error").Inc()
		m.route = nil
		m.routeErr = routeErrNoRoute
	} else {
		metrics.RouteFetches.WithLabelValues("ok").Inc()
		m.route = route.Clone()
		m.routeErr = ""
		slog.Info("route ready", "trip_id", m.id, "steps", len(m.route.Steps),
			"distance_m", m.route.Info.TotalDistanceMeters)
	}
	m.changedLocked()
}

// ConfirmDestination shows the ride options once the route is ready.
func (m *Machine) ConfirmDestination() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.phase != models.TripPhaseDestinationSelected {
		return ErrInvalidTransition
	}
	if m.route == nil || m.loading {
		return ErrRouteNotReady
	}
	m.phase = models.TripPhaseRideOptionsShown
	m.changedLocked()
	return nil
}

// BackToDestination returns from the ride options, keeping the route.
func (m *Machine) BackToDestination() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.phase != models.TripPhaseRideOptionsShown {
		return ErrInvalidTransition
	}
	m.phase = models.TripPhaseDestinationSelected
	m.selected = ""
	m.changedLocked()
	return nil
}

func (m *Machine) StartTrip(option string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.phase != models.TripPhaseRideOptionsShown {
		return ErrInvalidTransition
	}
	if !slices.Contains(models.RideOptions, option) {
		return ErrInvalidRideOption
	}
	m.selected = option
	m.phase = models.TripPhaseNavigating
	m.tracker.Reset(m.route.Steps)
	slog.Info("trip started", "trip_id", m.id, "option", option)
	m.changedLocked()
	return nil
}

func (m *Machine) EndTrip() {
	m.reset("trip ended")
}

func (m *Machine) ClearDestination() {
	m.reset("destination cleared")
}

// reset returns to Idle. The origin survives; the generation bump drops late fetches.
func (m *Machine) reset(reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.phase != models.TripPhaseIdle {
		slog.Info(reason, "trip_id", m.id)
	}
	m.generation++
	m.id = ""
	m.phase = models.TripPhaseIdle
	m.dest = nil
	m.route = nil
	m.loading = false
	m.routeErr = ""
	m.selected = ""
	m.inflightKey = ""
	m.tracker.Reset(nil)
	m.changedLocked()
}

// UpdatePosition makes pos the rolling origin. While navigating, it feeds the step
// tracker if routeGen still names the active route; otherwise the advancement is dropped.
func (m *Machine) UpdatePosition(pos models.Coordinate, routeGen uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	first := m.origin == nil
	m.origin = &pos

	// A destination chosen before the first fix is fetched as soon as one arrives.
	if first && m.phase == models.TripPhaseDestinationSelected && m.route == nil && !m.loading {
		m.startFetchLocked()
		m.changedLocked()
		return
	}

	if m.phase != models.TripPhaseNavigating {
		if first {
			m.changedLocked()
		}
		return
	}
	if routeGen != m.generation {
		metrics.DroppedPositionEvents.Inc()
		return
	}
	if m.tracker.OnPositionUpdate(pos) {
		metrics.StepAdvances.Inc()
		slog.Debug("step advanced", "trip_id", m.id, "step", m.tracker.Current())
		m.changedLocked()
	}
}

// Wait blocks until in-flight route fetches have finished.
func (m *Machine) Wait() {
	m.wg.Wait()
}

// Close cancels in-flight fetches and waits for them.
func (m *Machine) Close() {
	m.cancel()
	m.wg.Wait()
}

func (m *Machine) changedLocked() {
	m.updatedAt = time.Now()
	if m.onChange != nil {
		m.onChange(m.snapshotLocked())
	}
}

func (m *Machine) snapshotLocked() models.TripSnapshot {
	s := models.TripSnapshot{
		ID:             m.id,
		Phase:          m.phase,
		Route:          m.route.Clone(),
		RouteLoading:   m.loading,
		RouteError:     m.routeErr,
		SelectedOption: m.selected,
		UpdatedAt:      m.updatedAt,
	}
	if m.origin != nil {
		o := *m.origin
		s.Origin = &o
	}
	if m.dest != nil {
		d := *m.dest
		s.Destination = &d
	}
	if m.phase == models.TripPhaseNavigating {
		s.ActiveStepIndex = m.tracker.Current()
		if step, ok := m.tracker.Step(); ok {
			s.ActiveStep = &step
		}
	}
	if m.phase == models.TripPhaseRideOptionsShown || m.phase == models.TripPhaseNavigating {
		s.RideOptions = slices.Clone(models.RideOptions)
	}
	return s
}

func routeKey(origin, dest models.Coordinate) string {
	return geo.Quantize(origin) + "|" + geo.Quantize(dest)
}
