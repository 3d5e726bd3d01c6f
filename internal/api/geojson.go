package api

import (
	"strings"

	"github.com/mr1hm/go-trip-alerts/internal/alerts"
	"github.com/mr1hm/go-trip-alerts/internal/models"
)

type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}
type Feature struct {
	Type       string         `json:"type"`
	Geometry   Geometry       `json:"geometry"`
	Properties map[string]any `json:"properties"`
}
type Geometry struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"`
}

// toGeoJSON renders one point feature per alert group, described by its most
// severe member.
func toGeoJSON(groups []models.AlertGroup) FeatureCollection {
	features := make([]Feature, 0, len(groups))

	for _, g := range groups {
		rep, ok := alerts.Representative(g)
		if !ok {
			continue
		}
		ids := make([]string, 0, len(g.Members))
		for _, a := range g.Members {
			ids = append(ids, a.ID)
		}

		f := Feature{
			Type: "Feature",
			Geometry: Geometry{
				Type:        "Point",
				Coordinates: []float64{g.Coordinate.Longitude, g.Coordinate.Latitude},
			},
			Properties: map[string]any{
				"key":             g.Key,
				"count":           len(g.Members),
				"member_ids":      ids,
				"id":              rep.ID,
				"title":           rep.Title,
				"event_type":      rep.EventType,
				"severity":        strings.ToLower(string(rep.Severity)),
				"source":          rep.Source,
				"area_name":       rep.AreaName,
				"start_time":      rep.StartTime,
				"expiration_time": rep.ExpirationTime,
			},
		}
		features = append(features, f)
	}

	return FeatureCollection{
		Type:     "FeatureCollection",
		Features: features,
	}
}
