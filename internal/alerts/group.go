package alerts

import (
	"github.com/mr1hm/go-trip-alerts/internal/geo"
	"github.com/mr1hm/go-trip-alerts/internal/models"
)

// Coordinate returns the point an alert is placed at: the centroid of its first
// polygon ring, else fallback. ok is false when neither exists.
func Coordinate(a models.WeatherAlert, fallback *models.Coordinate) (models.Coordinate, bool) {
	if c := geo.Centroid(geo.ParseAlertGeometry(a.Polygon)); c != nil {
		return *c, true
	}
	if fallback != nil {
		return *fallback, true
	}
	return models.Coordinate{}, false
}

// GroupAlerts clusters alerts whose coordinates share a quantization key. Groups
// keep the order in which their key was first seen. Alerts without geometry use
// fallback, or are left out of the grouping when fallback is nil.
func GroupAlerts(alerts []models.WeatherAlert, fallback *models.Coordinate) []models.AlertGroup {
	groups := make([]models.AlertGroup, 0, len(alerts))
	index := make(map[string]int, len(alerts))

	for _, a := range alerts {
		c, ok := Coordinate(a, fallback)
		if !ok {
			continue
		}
		key := geo.Quantize(c)
		if i, seen := index[key]; seen {
			groups[i].Members = append(groups[i].Members, a)
			continue
		}
		index[key] = len(groups)
		groups = append(groups, models.AlertGroup{
			Key:        key,
			Coordinate: c,
			Members:    []models.WeatherAlert{a},
		})
	}
	return groups
}

// Representative is the most severe member of a group; ties go to the first member.
func Representative(g models.AlertGroup) (models.WeatherAlert, bool) {
	if len(g.Members) == 0 {
		return models.WeatherAlert{}, false
	}
	best := g.Members[0]
	for _, m := range g.Members[1:] {
		if m.Severity.Rank() > best.Severity.Rank() {
			best = m
		}
	}
	return best, true
}

// Marker is what the map layer draws for a group.
type Marker struct {
	Key            string              `json:"key"`
	Coordinate     models.Coordinate   `json:"coordinate"`
	Count          int                 `json:"count"`
	Representative models.WeatherAlert `json:"representative"`
}

func Markers(groups []models.AlertGroup) []Marker {
	markers := make([]Marker, 0, len(groups))
	for _, g := range groups {
		rep, ok := Representative(g)
		if !ok {
			continue
		}
		markers = append(markers, Marker{
			Key:            g.Key,
			Coordinate:     g.Coordinate,
			Count:          len(g.Members),
			Representative: rep,
		})
	}
	return markers
}

// FilterByRadius drops alerts whose polygon centroid lies farther than radiusKm from
// center. Alerts without geometry are kept: they are assumed to cover the caller's area.
// A non-positive radius disables the filter.
func FilterByRadius(alerts []models.WeatherAlert, center models.Coordinate, radiusKm float64) []models.WeatherAlert {
	if radiusKm <= 0 {
		return alerts
	}
	out := make([]models.WeatherAlert, 0, len(alerts))
	for _, a := range alerts {
		c := geo.Centroid(geo.ParseAlertGeometry(a.Polygon))
		if c != nil && geo.DistanceMeters(center, *c) > radiusKm*1000 {
			continue
		}
		out = append(out, a)
	}
	return out
}
