package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RouteFetches = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tripnav",
		Subsystem: "trip",
		Name:      "route_fetches_total",
		Help:      "Route fetches by result (ok, error, stale, suppressed)",
	}, []string{"result"})

	StepAdvances = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "tripnav",
		Subsystem: "trip",
		Name:      "step_advances_total",
		Help:      "Geofence hits that advanced the active route step",
	})

	DroppedPositionEvents = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "tripnav",
		Subsystem: "trip",
		Name:      "dropped_position_events_total",
		Help:      "Position events not applied to step advancement because the route changed",
	})

	AlertFetches = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tripnav",
		Subsystem: "alerts",
		Name:      "fetches_total",
		Help:      "Alert provider fetches by source and result",
	}, []string{"source", "result"})

	AlertGroups = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "tripnav",
		Subsystem: "alerts",
		Name:      "groups",
		Help:      "Alert groups currently shown on the map layer",
	})

	NotificationChecks = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tripnav",
		Subsystem: "notify",
		Name:      "checks_total",
		Help:      "Notification check invocations by mode and outcome",
	}, []string{"mode", "outcome"})

	StreamSubscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "tripnav",
		Subsystem: "api",
		Name:      "stream_subscribers",
		Help:      "Open server-sent event streams",
	})
)

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
