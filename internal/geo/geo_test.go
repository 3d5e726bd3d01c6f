package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mr1hm/go-trip-alerts/internal/models"
)

var (
	bologna  = models.Coordinate{Latitude: 44.4949, Longitude: 11.3426}
	modena   = models.Coordinate{Latitude: 44.6471, Longitude: 10.9252}
	florence = models.Coordinate{Latitude: 43.7696, Longitude: 11.2558}
)

func TestDistanceMeters_Identity(t *testing.T) {
	for _, c := range []models.Coordinate{bologna, modena, {Latitude: 90, Longitude: 180}, {}} {
		assert.Equal(t, 0.0, DistanceMeters(c, c))
	}
}

func TestDistanceMeters_KnownDistance(t *testing.T) {
	// Bologna to Modena is roughly 37 km as the crow flies
	assert.InDelta(t, 37000, DistanceMeters(bologna, modena), 1500)
}

func TestDistanceMeters_Symmetric(t *testing.T) {
	assert.InDelta(t, DistanceMeters(bologna, modena), DistanceMeters(modena, bologna), 1e-6)
	assert.InDelta(t, DistanceMeters(bologna, florence), DistanceMeters(florence, bologna), 1e-6)
}

func TestDistanceMeters_TriangleInequality(t *testing.T) {
	ab := DistanceMeters(bologna, modena)
	bc := DistanceMeters(modena, florence)
	ac := DistanceMeters(bologna, florence)
	assert.LessOrEqual(t, ac, ab+bc+1e-6)
	assert.LessOrEqual(t, ab, ac+bc+1e-6)
	assert.LessOrEqual(t, bc, ab+ac+1e-6)
}

func TestDistanceMeters_Antipodal(t *testing.T) {
	a := models.Coordinate{Latitude: 0, Longitude: 0}
	b := models.Coordinate{Latitude: 0, Longitude: 180}
	d := DistanceMeters(a, b)
	assert.False(t, math.IsNaN(d), "distance must not be NaN")
	assert.InDelta(t, 20015086, d, 1000)
}

func TestValidate(t *testing.T) {
	require.NoError(t, Validate(bologna))
	assert.ErrorIs(t, Validate(models.Coordinate{Latitude: 91}), ErrInvalidCoordinate)
	assert.ErrorIs(t, Validate(models.Coordinate{Longitude: -180.5}), ErrInvalidCoordinate)
}

func TestParseAlertGeometry_Polygon(t *testing.T) {
	raw := []byte(`{"type":"Polygon","coordinates":[[[11.30,44.50],[11.40,44.50],[11.40,44.45],[11.30,44.50]],[[11.33,44.48],[11.34,44.48],[11.33,44.48]]]}`)

	rings := ParseAlertGeometry(raw)
	require.Len(t, rings, 1, "only the outer ring is returned")
	require.Len(t, rings[0], 4)
	assert.Equal(t, models.Coordinate{Latitude: 44.50, Longitude: 11.30}, rings[0][0])
	assert.Equal(t, models.Coordinate{Latitude: 44.45, Longitude: 11.40}, rings[0][2])
}

func TestParseAlertGeometry_MultiPolygon(t *testing.T) {
	raw := []byte(`{
		"type": "MultiPolygon",
		"coordinates": [
			[[[10.0,45.0],[10.1,45.0],[10.1,45.1],[10.0,45.0]], [[10.05,45.05],[10.06,45.05],[10.05,45.05]]],
			[[[12.0,43.0],[12.1,43.0],[12.0,43.0]]],
			[[[13.0,42.0],[13.1,42.0],[13.0,42.0]]]
		],
		"bbox": [10, 42, 13.1, 45.1]
	}`)

	rings := ParseAlertGeometry(raw)
	require.Len(t, rings, 3)
	assert.Len(t, rings[0], 4)
	assert.Equal(t, models.Coordinate{Latitude: 43.0, Longitude: 12.0}, rings[1][0])
}

func TestParseAlertGeometry_Malformed(t *testing.T) {
	cases := map[string]string{
		"empty":          ``,
		"not json":       `polygon please`,
		"point":          `{"type":"Point","coordinates":[11.3,44.5]}`,
		"missing coords": `{"type":"Polygon"}`,
		"empty coords":   `{"type":"Polygon","coordinates":[]}`,
		"empty ring":     `{"type":"Polygon","coordinates":[[]]}`,
		"short position": `{"type":"Polygon","coordinates":[[[11.3]]]}`,
		"wrong nesting":  `{"type":"MultiPolygon","coordinates":[[11.3,44.5]]}`,
		"null":           `null`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Empty(t, ParseAlertGeometry([]byte(raw)))
		})
	}
}

func TestCentroid(t *testing.T) {
	assert.Nil(t, Centroid(nil))
	assert.Nil(t, Centroid([][]models.Coordinate{{}}))

	rings := [][]models.Coordinate{
		{{Latitude: 0, Longitude: 0}, {Latitude: 2, Longitude: 0}, {Latitude: 2, Longitude: 4}, {Latitude: 0, Longitude: 4}},
		{{Latitude: 50, Longitude: 50}},
	}
	c := Centroid(rings)
	require.NotNil(t, c)
	assert.InDelta(t, 1.0, c.Latitude, 1e-9)
	assert.InDelta(t, 2.0, c.Longitude, 1e-9)
}

func TestQuantize(t *testing.T) {
	a := models.Coordinate{Latitude: 44.49491, Longitude: 11.34261}
	b := models.Coordinate{Latitude: 44.49493, Longitude: 11.34263}
	assert.Equal(t, Quantize(a), Quantize(b))
	assert.Equal(t, "44.4949,11.3426", Quantize(a))
	assert.NotEqual(t, Quantize(bologna), Quantize(modena))
	assert.Equal(t, "44.49,11.34", QuantizePrecision(a, 2))
}
