package navigation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mr1hm/go-trip-alerts/internal/models"
)

func threeSteps() []models.RouteStep {
	return []models.RouteStep{
		{Instruction: "Head north", EndLocation: models.Coordinate{Latitude: 44.5000, Longitude: 11.3400}},
		{Instruction: "Turn left", Maneuver: models.ManeuverTurnLeft, EndLocation: models.Coordinate{Latitude: 44.5100, Longitude: 11.3200}},
		{Instruction: "Arrive", EndLocation: models.Coordinate{Latitude: 44.5200, Longitude: 11.3000}},
	}
}

func TestStepTracker_AdvancesInOrder(t *testing.T) {
	steps := threeSteps()
	tracker := NewStepTracker(steps)

	require.Equal(t, 0, tracker.Current())

	assert.True(t, tracker.OnPositionUpdate(steps[0].EndLocation))
	assert.Equal(t, 1, tracker.Current())

	// ~10 m off the second step's end point is inside the geofence
	near := models.Coordinate{Latitude: steps[1].EndLocation.Latitude + 0.00009, Longitude: steps[1].EndLocation.Longitude}
	assert.True(t, tracker.OnPositionUpdate(near))
	assert.Equal(t, 2, tracker.Current())
	assert.True(t, tracker.IsLastStep())

	// at the last step nothing advances and nothing regresses
	assert.False(t, tracker.OnPositionUpdate(steps[2].EndLocation))
	assert.False(t, tracker.OnPositionUpdate(steps[0].EndLocation))
	assert.Equal(t, 2, tracker.Current())
}

func TestStepTracker_NeverSkips(t *testing.T) {
	steps := threeSteps()
	tracker := NewStepTracker(steps)

	assert.False(t, tracker.OnPositionUpdate(steps[2].EndLocation))
	assert.Equal(t, 0, tracker.Current())

	assert.True(t, tracker.OnPositionUpdate(steps[0].EndLocation))
	// still near step 0's end: advancing again requires step 1's geofence
	assert.False(t, tracker.OnPositionUpdate(steps[0].EndLocation))
	assert.Equal(t, 1, tracker.Current())
}

func TestStepTracker_OutsideGeofence(t *testing.T) {
	steps := threeSteps()
	tracker := NewStepTracker(steps)

	// ~30 m away
	far := models.Coordinate{Latitude: steps[0].EndLocation.Latitude + 0.00027, Longitude: steps[0].EndLocation.Longitude}
	assert.False(t, tracker.OnPositionUpdate(far))
	assert.Equal(t, 0, tracker.Current())

	wide := NewStepTracker(steps).WithRadius(50)
	assert.True(t, wide.OnPositionUpdate(far))
}

func TestStepTracker_Reset(t *testing.T) {
	steps := threeSteps()
	tracker := NewStepTracker(steps)
	tracker.OnPositionUpdate(steps[0].EndLocation)
	require.Equal(t, 1, tracker.Current())

	tracker.Reset(steps[:2])
	assert.Equal(t, 0, tracker.Current())
	step, ok := tracker.Step()
	require.True(t, ok)
	assert.Equal(t, "Head north", step.Instruction)
}

func TestStepTracker_Empty(t *testing.T) {
	tracker := NewStepTracker(nil)
	assert.False(t, tracker.OnPositionUpdate(models.Coordinate{}))
	_, ok := tracker.Step()
	assert.False(t, ok)
	assert.True(t, tracker.IsLastStep())
}
