package api

import (
	"fmt"
	"io"

	"github.com/twpayne/go-kml"

	"github.com/mr1hm/go-trip-alerts/internal/models"
)

// writeRouteKML exports the route as a KML document: the overview path as a line
// and one placemark per step end.
func writeRouteKML(w io.Writer, snap models.TripSnapshot) error {
	route := snap.Route
	name := "Route"
	if snap.Destination != nil && snap.Destination.Description != "" {
		name = "Route to " + snap.Destination.Description
	}

	path := make([]kml.Coordinate, 0, len(route.Path))
	for _, c := range route.Path {
		path = append(path, kml.Coordinate{Lon: c.Longitude, Lat: c.Latitude})
	}
	if len(path) == 0 {
		// no overview polyline, connect the step ends instead
		if snap.Origin != nil {
			path = append(path, kml.Coordinate{Lon: snap.Origin.Longitude, Lat: snap.Origin.Latitude})
		}
		for _, s := range route.Steps {
			path = append(path, kml.Coordinate{Lon: s.EndLocation.Longitude, Lat: s.EndLocation.Latitude})
		}
	}

	children := []kml.Element{
		kml.Name(name),
		kml.Description(fmt.Sprintf("%.0f m, %.0f s", route.Info.TotalDistanceMeters, route.Info.TotalDurationSeconds)),
		kml.Placemark(
			kml.Name("Path"),
			kml.LineString(
				kml.Tessellate(true),
				kml.Coordinates(path...),
			),
		),
	}
	for i, s := range route.Steps {
		children = append(children, kml.Placemark(
			kml.Name(fmt.Sprintf("%d. %s", i+1, s.Instruction)),
			kml.Description(string(s.Maneuver)),
			kml.Point(
				kml.Coordinates(kml.Coordinate{Lon: s.EndLocation.Longitude, Lat: s.EndLocation.Latitude}),
			),
		))
	}

	return kml.KML(kml.Document(children...)).WriteIndent(w, "", "  ")
}
