package navigation

import (
	"github.com/mr1hm/go-trip-alerts/internal/geo"
	"github.com/mr1hm/go-trip-alerts/internal/models"
)

// GeofenceRadiusMeters is the arrival radius around a step's end location.
const GeofenceRadiusMeters = 25.0

// StepTracker advances a cursor through a route's steps as the user enters the
// geofence around the current step's end point. It is not safe for concurrent use;
// the trip machine serializes access.
type StepTracker struct {
	steps   []models.RouteStep
	current int
	radius  float64
}

func NewStepTracker(steps []models.RouteStep) *StepTracker {
	return &StepTracker{steps: steps, radius: GeofenceRadiusMeters}
}

// WithRadius overrides the geofence radius. Non-positive values are ignored.
func (t *StepTracker) WithRadius(meters float64) *StepTracker {
	if meters > 0 {
		t.radius = meters
	}
	return t
}

// OnPositionUpdate advances by exactly one step when pos is inside the current step's
// geofence. It never skips ahead, even if pos is already near a later step.
func (t *StepTracker) OnPositionUpdate(pos models.Coordinate) bool {
	if t.IsLastStep() {
		return false
	}
	if geo.DistanceMeters(pos, t.steps[t.current].EndLocation) < t.radius {
		t.current++
		return true
	}
	return false
}

// Reset rebinds the tracker to a new step list and rewinds to the first step.
func (t *StepTracker) Reset(steps []models.RouteStep) {
	t.steps = steps
	t.current = 0
}

func (t *StepTracker) Current() int {
	return t.current
}

// Step returns the active step, or false when there are no steps.
func (t *StepTracker) Step() (models.RouteStep, bool) {
	if t.current >= len(t.steps) {
		return models.RouteStep{}, false
	}
	return t.steps[t.current], true
}

// IsLastStep reports whether the cursor sits on the final step. Reaching it does not end the trip.
func (t *StepTracker) IsLastStep() bool {
	return len(t.steps) == 0 || t.current >= len(t.steps)-1
}
