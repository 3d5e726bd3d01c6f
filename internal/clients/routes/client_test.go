package routes

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mr1hm/go-trip-alerts/internal/models"
)

var (
	origin      = models.Coordinate{Latitude: 44.4949, Longitude: 11.3426}
	destination = models.Coordinate{Latitude: 44.5200, Longitude: 11.3000}
)

const bolognaRoute = `{
  "routes": [{
    "distanceMeters": 4210,
    "duration": "734s",
    "polyline": {"encodedPolyline": "_p~iF~ps|U_ulLnnqC_mqNvxq` + "`" + `@"},
    "routeLabels": ["DEFAULT_ROUTE"],
    "legs": [{
      "steps": [
        {
          "distanceMeters": 1200,
          "staticDuration": "210s",
          "endLocation": {"latLng": {"latitude": 44.5021, "longitude": 11.3330}},
          "navigationInstruction": {"maneuver": "DEPART", "instructions": "Head <b>north</b> on Via Indipendenza"}
        },
        {
          "distanceMeters": 1800,
          "staticDuration": "300s",
          "endLocation": {"latLng": {"latitude": 44.5120, "longitude": 11.3150}},
          "navigationInstruction": {"maneuver": "TURN_SLIGHT_LEFT", "instructions": "Slight left onto Via&nbsp;Stalingrado<div>Toll road</div>"}
        }
      ]
    }, {
      "steps": [
        {
          "distanceMeters": 1210,
          "staticDuration": "224s",
          "endLocation": {"latLng": {"latitude": 44.5200, "longitude": 11.3000}},
          "navigationInstruction": {"maneuver": "ROUNDABOUT_RIGHT", "instructions": "At the roundabout, take the 2nd exit"},
          "localizedValues": {"distance": {"text": "1.2 km"}}
        }
      ]
    }]
  }]
}`

func TestFetchRoute_Success(t *testing.T) {
	var got computeRoutesRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/directions/v2:computeRoutes", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-Goog-Api-Key"))
		assert.Contains(t, r.Header.Get("X-Goog-FieldMask"), "routes.legs.steps.navigationInstruction")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(bolognaRoute))
	}))
	defer srv.Close()

	client := NewClient("test-key", srv.URL)
	route, err := client.FetchRoute(context.Background(), origin, destination)
	require.NoError(t, err)

	assert.Equal(t, "DRIVE", got.TravelMode)
	assert.Equal(t, "TRAFFIC_AWARE", got.RoutingPreference)
	assert.Equal(t, origin.Latitude, got.Origin.Location.LatLng.Latitude)
	assert.Equal(t, destination.Longitude, got.Destination.Location.LatLng.Longitude)

	assert.Equal(t, 4210.0, route.Info.TotalDistanceMeters)
	assert.Equal(t, 734.0, route.Info.TotalDurationSeconds)

	require.Len(t, route.Steps, 3, "steps from all legs are flattened")
	assert.Equal(t, "Head north on Via Indipendenza", route.Steps[0].Instruction)
	assert.Equal(t, models.ManeuverStraight, route.Steps[0].Maneuver)
	assert.Equal(t, "Slight left onto Via Stalingrado Toll road", route.Steps[1].Instruction)
	assert.Equal(t, models.ManeuverTurnLeft, route.Steps[1].Maneuver)
	assert.Equal(t, models.ManeuverRoundabout, route.Steps[2].Maneuver)
	assert.Equal(t, 224.0, route.Steps[2].DurationSeconds)
	assert.Equal(t, destination, route.Steps[2].EndLocation)

	require.Len(t, route.Path, 3)
	assert.InDelta(t, 38.5, route.Path[0].Latitude, 1e-5)
	assert.InDelta(t, -120.2, route.Path[0].Longitude, 1e-5)
}

func TestFetchRoute_Failures(t *testing.T) {
	cases := []struct {
		name    string
		status  int
		body    string
		noRoute bool
	}{
		{name: "server error", status: http.StatusInternalServerError, body: `{"error":"boom"}`},
		{name: "rate limited", status: http.StatusTooManyRequests, body: `{}`},
		{name: "bad json", status: http.StatusOK, body: `{"routes": [`},
		{name: "no routes", status: http.StatusOK, body: `{}`, noRoute: true},
		{name: "no steps", status: http.StatusOK, body: `{"routes":[{"distanceMeters":10,"duration":"5s","legs":[]}]}`, noRoute: true},
		{name: "bad duration", status: http.StatusOK, body: `{"routes":[{"duration":"soon","legs":[{"steps":[{}]}]}]}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			route, err := NewClient("k", srv.URL).FetchRoute(context.Background(), origin, destination)
			require.Error(t, err)
			assert.Nil(t, route)

			var routeErr *RouteError
			assert.True(t, errors.As(err, &routeErr))
			assert.Equal(t, tc.noRoute, errors.Is(err, ErrNoRoute))
		})
	}
}

func TestFetchRoute_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := NewClient("k", url).FetchRoute(context.Background(), origin, destination)
	var routeErr *RouteError
	require.True(t, errors.As(err, &routeErr))
	assert.Equal(t, "fetch", routeErr.Op)
}

func TestMapManeuver(t *testing.T) {
	cases := map[string]models.ManeuverKind{
		"TURN_LEFT":        models.ManeuverTurnLeft,
		"turn-sharp-right": models.ManeuverTurnRight,
		"RAMP_RIGHT":       models.ManeuverTurnRight,
		"UTURN_LEFT":       models.ManeuverUTurn,
		"uturn-right":      models.ManeuverUTurn,
		"MERGE":            models.ManeuverMerge,
		"ROUNDABOUT_LEFT":  models.ManeuverRoundabout,
		"DEPART":           models.ManeuverStraight,
		"":                 models.ManeuverStraight,
		"FERRY":            models.ManeuverStraight,
	}
	for in, want := range cases {
		assert.Equal(t, want, MapManeuver(in), in)
	}
}

func TestStripMarkup(t *testing.T) {
	assert.Equal(t, "Turn right onto Via Emilia", StripMarkup("Turn <b>right</b> onto <span class=\"x\">Via Emilia</span>"))
	assert.Equal(t, "Keep left Tom & Jerry", StripMarkup("Keep left <wbr/>Tom &amp; Jerry"))
	assert.Equal(t, "Plain text", StripMarkup("  Plain   text "))
	assert.Equal(t, "", StripMarkup(""))
}
