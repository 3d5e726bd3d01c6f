package position

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/mr1hm/go-trip-alerts/internal/geo"
	"github.com/mr1hm/go-trip-alerts/internal/models"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func pos(lat, lng float64) models.Position {
	return models.Position{Coordinate: models.Coordinate{Latitude: lat, Longitude: lng}}
}

func TestHub_SubscribeAndUnsubscribe(t *testing.T) {
	h := NewHub()

	var mu sync.Mutex
	var got []Update
	unsubscribe := h.Subscribe(func(u Update) {
		mu.Lock()
		got = append(got, u)
		mu.Unlock()
	})

	require.NoError(t, h.Publish(pos(44.4949, 11.3426), false))
	unsubscribe()
	unsubscribe()
	require.NoError(t, h.Publish(pos(44.5, 11.35), false))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 1)
	assert.Equal(t, 44.4949, got[0].Position.Coordinate.Latitude)
}

func TestHub_LastKnown(t *testing.T) {
	h := NewHub()

	_, ok := h.LastKnown()
	assert.False(t, ok)

	require.NoError(t, h.Publish(pos(1, 2), true))
	p, ok := h.LastKnown()
	require.True(t, ok)
	assert.Equal(t, 2.0, p.Coordinate.Longitude)
}

func TestHub_LastUpdateKeepsManualFlag(t *testing.T) {
	h := NewHub()

	_, ok := h.LastUpdate()
	assert.False(t, ok)

	require.NoError(t, h.Publish(pos(44.52, 11.3), false))
	u, ok := h.LastUpdate()
	require.True(t, ok)
	assert.False(t, u.Manual)

	require.NoError(t, h.Publish(pos(44.4949, 11.3426), true))
	u, ok = h.LastUpdate()
	require.True(t, ok)
	assert.True(t, u.Manual)
	assert.Equal(t, 44.4949, u.Position.Coordinate.Latitude)
}

func TestHub_PublishRejectsInvalid(t *testing.T) {
	h := NewHub()
	err := h.Publish(pos(91, 0), false)
	assert.True(t, errors.Is(err, geo.ErrInvalidCoordinate))
	_, ok := h.LastKnown()
	assert.False(t, ok)
}

func TestHub_PermissionDenied(t *testing.T) {
	h := NewHub()
	h.SetPermission(false)

	assert.ErrorIs(t, h.Publish(pos(1, 2), false), ErrPermissionDenied)
	assert.NoError(t, h.Publish(pos(1, 2), true))

	_, err := h.CurrentPosition(context.Background())
	assert.ErrorIs(t, err, ErrPermissionDenied)
}

func TestHub_CurrentPositionWaitsForFix(t *testing.T) {
	h := NewHub()

	done := make(chan models.Position, 1)
	go func() {
		p, err := h.CurrentPosition(context.Background())
		if err == nil {
			done <- p
		}
		close(done)
	}()

	// wait until the waiter is registered
	require.Eventually(t, func() bool {
		h.mu.Lock()
		defer h.mu.Unlock()
		return len(h.waiters) == 1
	}, time.Second, time.Millisecond)

	require.NoError(t, h.Publish(pos(10, 20), false))
	p, ok := <-done
	require.True(t, ok)
	assert.Equal(t, 10.0, p.Coordinate.Latitude)
}

func TestHub_CurrentPositionTimeout(t *testing.T) {
	h := NewHub()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := h.CurrentPosition(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Empty(t, h.waiters)
}

func TestHub_DenyWakesWaiters(t *testing.T) {
	h := NewHub()

	errc := make(chan error, 1)
	go func() {
		_, err := h.CurrentPosition(context.Background())
		errc <- err
	}()
	require.Eventually(t, func() bool {
		h.mu.Lock()
		defer h.mu.Unlock()
		return len(h.waiters) == 1
	}, time.Second, time.Millisecond)

	h.SetPermission(false)
	assert.ErrorIs(t, <-errc, ErrPermissionDenied)
}

func TestParseManual(t *testing.T) {
	c, err := ParseManual(" 44.4949", "11.3426 ")
	require.NoError(t, err)
	assert.Equal(t, DefaultManual, c)

	tests := []struct{ lat, lng string }{
		{"abc", "11"},
		{"44", ""},
		{"95", "11"},
		{"44", "-181"},
		{"NaN", "11"},
	}
	for _, tt := range tests {
		_, err := ParseManual(tt.lat, tt.lng)
		assert.ErrorIs(t, err, geo.ErrInvalidCoordinate, "%q,%q", tt.lat, tt.lng)
	}
}
