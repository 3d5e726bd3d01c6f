// Package position is the event source for user location fixes.
package position

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/mr1hm/go-trip-alerts/internal/geo"
	"github.com/mr1hm/go-trip-alerts/internal/models"
)

var ErrPermissionDenied = errors.New("location permission denied")

// DefaultManual is the coordinate the simulate form starts from.
var DefaultManual = models.Coordinate{Latitude: 44.4949, Longitude: 11.3426}

type Update struct {
	Position models.Position `json:"position"`
	Manual   bool            `json:"manual"`
	Time     time.Time       `json:"time"`
}

// Hub fans position fixes out to subscribers and caches the last known one.
type Hub struct {
	mu      sync.Mutex
	nextID  uint64
	subs    map[uint64]func(Update)
	last    *Update
	denied  bool
	waiters []chan Update
}

func NewHub() *Hub {
	return &Hub{subs: make(map[uint64]func(Update))}
}

// Subscribe registers fn for every future update. Calling the returned function
// stops delivery; it is safe to call more than once.
func (h *Hub) Subscribe(fn func(Update)) func() {
	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.subs[id] = fn
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
		})
	}
}

// Publish records a fix and delivers it to subscribers in the caller's goroutine.
// Device fixes are refused while permission is denied; manual fixes never are.
func (h *Hub) Publish(pos models.Position, manual bool) error {
	if err := geo.Validate(pos.Coordinate); err != nil {
		return err
	}

	h.mu.Lock()
	if h.denied && !manual {
		h.mu.Unlock()
		return ErrPermissionDenied
	}
	u := Update{Position: pos, Manual: manual, Time: time.Now()}
	h.last = &u
	waiters := h.waiters
	h.waiters = nil
	subs := make([]func(Update), 0, len(h.subs))
	for _, fn := range h.subs {
		subs = append(subs, fn)
	}
	h.mu.Unlock()

	for _, w := range waiters {
		w <- u
	}
	for _, fn := range subs {
		fn(u)
	}
	return nil
}

func (h *Hub) LastKnown() (models.Position, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.last == nil {
		return models.Position{}, false
	}
	return h.last.Position, true
}

// LastUpdate is LastKnown with the manual flag and receipt time attached.
func (h *Hub) LastUpdate() (Update, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.last == nil {
		return Update{}, false
	}
	return *h.last, true
}

// CurrentPosition waits for the next fix.
func (h *Hub) CurrentPosition(ctx context.Context) (models.Position, error) {
	h.mu.Lock()
	if h.denied {
		h.mu.Unlock()
		return models.Position{}, ErrPermissionDenied
	}
	ch := make(chan Update, 1)
	h.waiters = append(h.waiters, ch)
	h.mu.Unlock()

	select {
	case u, ok := <-ch:
		if !ok {
			return models.Position{}, ErrPermissionDenied
		}
		return u.Position, nil
	case <-ctx.Done():
		h.removeWaiter(ch)
		return models.Position{}, fmt.Errorf("waiting for position fix: %w", ctx.Err())
	}
}

func (h *Hub) removeWaiter(ch chan Update) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i, w := range h.waiters {
		if w == ch {
			h.waiters = append(h.waiters[:i], h.waiters[i+1:]...)
			return
		}
	}
}

// SetPermission records whether the device position may be used. Denying it
// wakes pending CurrentPosition calls with ErrPermissionDenied.
func (h *Hub) SetPermission(granted bool) {
	h.mu.Lock()
	h.denied = !granted
	var waiters []chan Update
	if !granted {
		waiters = h.waiters
		h.waiters = nil
	}
	h.mu.Unlock()

	for _, w := range waiters {
		close(w)
	}
}

func (h *Hub) PermissionGranted() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return !h.denied
}

// ParseManual parses user-typed coordinates.
func ParseManual(lat, lng string) (models.Coordinate, error) {
	la, err := strconv.ParseFloat(strings.TrimSpace(lat), 64)
	if err != nil {
		return models.Coordinate{}, fmt.Errorf("latitude %q: %w", lat, geo.ErrInvalidCoordinate)
	}
	lo, err := strconv.ParseFloat(strings.TrimSpace(lng), 64)
	if err != nil {
		return models.Coordinate{}, fmt.Errorf("longitude %q: %w", lng, geo.ErrInvalidCoordinate)
	}
	c := models.Coordinate{Latitude: la, Longitude: lo}
	if err := geo.Validate(c); err != nil {
		return models.Coordinate{}, err
	}
	return c, nil
}
