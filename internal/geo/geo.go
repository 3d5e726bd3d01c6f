package geo

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/mr1hm/go-trip-alerts/internal/models"
)

const (
	earthRadiusMeters = 6371000

	// Precision is the number of decimal digits kept by Quantize (~11 m at 4 digits).
	Precision = 4
)

var ErrInvalidCoordinate = errors.New("invalid coordinate: latitude must be [-90, 90], longitude must be [-180, 180]")

// Validate rejects out-of-range coordinates.
func Validate(c models.Coordinate) error {
	if math.IsNaN(c.Latitude) || math.IsNaN(c.Longitude) ||
		c.Latitude < -90 || c.Latitude > 90 || c.Longitude < -180 || c.Longitude > 180 {
		return fmt.Errorf("%w: (%f, %f)", ErrInvalidCoordinate, c.Latitude, c.Longitude)
	}
	return nil
}

// DistanceMeters calculates great-circle distance between two points using the Haversine formula.
func DistanceMeters(a, b models.Coordinate) float64 {
	if a == b {
		return 0
	}

	lat1 := toRad(a.Latitude)
	lat2 := toRad(b.Latitude)
	dLat := lat2 - lat1
	dLon := toRad(b.Longitude - a.Longitude)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	// rounding can push h just outside [0, 1] for antipodal points
	h = math.Min(1, math.Max(0, h))

	return earthRadiusMeters * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

type geometry struct {
	Type        string          `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
}

// ParseAlertGeometry turns a GeoJSON Polygon or MultiPolygon into outer rings of
// (lat, lng) coordinates. Source positions are [lng, lat]. Inner rings are ignored.
// Anything malformed yields an empty result: many alerts carry no polygon at all.
func ParseAlertGeometry(raw []byte) [][]models.Coordinate {
	if len(raw) == 0 {
		return nil
	}

	var g geometry
	if err := json.Unmarshal(raw, &g); err != nil {
		return nil
	}
	if len(g.Coordinates) == 0 {
		return nil
	}

	switch g.Type {
	case "Polygon":
		var poly [][][]float64
		if err := json.Unmarshal(g.Coordinates, &poly); err != nil || len(poly) == 0 {
			return nil
		}
		ring, ok := toRing(poly[0])
		if !ok {
			return nil
		}
		return [][]models.Coordinate{ring}
	case "MultiPolygon":
		var multi [][][][]float64
		if err := json.Unmarshal(g.Coordinates, &multi); err != nil || len(multi) == 0 {
			return nil
		}
		rings := make([][]models.Coordinate, 0, len(multi))
		for _, poly := range multi {
			if len(poly) == 0 {
				return nil
			}
			ring, ok := toRing(poly[0])
			if !ok {
				return nil
			}
			rings = append(rings, ring)
		}
		return rings
	default:
		return nil
	}
}

func toRing(positions [][]float64) ([]models.Coordinate, bool) {
	if len(positions) == 0 {
		return nil, false
	}
	ring := make([]models.Coordinate, 0, len(positions))
	for _, p := range positions {
		if len(p) < 2 {
			return nil, false
		}
		ring = append(ring, models.Coordinate{Latitude: p[1], Longitude: p[0]})
	}
	return ring, true
}

// Centroid is the vertex mean of the first ring. It is only used to place a marker,
// so it is not an area-weighted centroid.
func Centroid(rings [][]models.Coordinate) *models.Coordinate {
	if len(rings) == 0 || len(rings[0]) == 0 {
		return nil
	}

	var lat, lng float64
	for _, c := range rings[0] {
		lat += c.Latitude
		lng += c.Longitude
	}
	n := float64(len(rings[0]))
	return &models.Coordinate{Latitude: lat / n, Longitude: lng / n}
}

// Quantize returns the grouping key of c at the default precision.
func Quantize(c models.Coordinate) string {
	return QuantizePrecision(c, Precision)
}

func QuantizePrecision(c models.Coordinate, digits int) string {
	return fmt.Sprintf("%.*f,%.*f", digits, c.Latitude, digits, c.Longitude)
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}
