package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/twpayne/go-polyline"

	"github.com/mr1hm/go-trip-alerts/internal/models"
)

const (
	DefaultBaseURL = "https://routes.googleapis.com"

	fieldMask = "routes.distanceMeters,routes.duration,routes.polyline.encodedPolyline," +
		"routes.legs.steps.distanceMeters,routes.legs.steps.staticDuration," +
		"routes.legs.steps.endLocation,routes.legs.steps.navigationInstruction"
)

var ErrNoRoute = errors.New("no route found")

// RouteError is returned for every failed fetch. No partial route accompanies it.
type RouteError struct {
	Op  string
	Err error
}

func (e *RouteError) Error() string {
	return fmt.Sprintf("route %s: %v", e.Op, e.Err)
}

func (e *RouteError) Unwrap() error {
	return e.Err
}

// HTTPDoer is satisfied by *http.Client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client provides access to the Google Routes API v2.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient HTTPDoer
}

func NewClient(apiKey, baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return NewClientWithHTTPDoer(apiKey, baseURL, &http.Client{Timeout: 30 * time.Second})
}

func NewClientWithHTTPDoer(apiKey, baseURL string, doer HTTPDoer) *Client {
	return &Client{
		apiKey:     apiKey,
		baseURL:    baseURL,
		httpClient: doer,
	}
}

type latLng struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type waypoint struct {
	Location struct {
		LatLng latLng `json:"latLng"`
	} `json:"location"`
}

type computeRoutesRequest struct {
	Origin            waypoint `json:"origin"`
	Destination       waypoint `json:"destination"`
	TravelMode        string   `json:"travelMode"`
	RoutingPreference string   `json:"routingPreference"`
	LanguageCode      string   `json:"languageCode,omitempty"`
}

func newWaypoint(c models.Coordinate) waypoint {
	var w waypoint
	w.Location.LatLng = latLng{Latitude: c.Latitude, Longitude: c.Longitude}
	return w
}

// FetchRoute requests a traffic-aware driving route and normalizes it.
func (c *Client) FetchRoute(ctx context.Context, origin, destination models.Coordinate) (*models.Route, error) {
	body, err := json.Marshal(computeRoutesRequest{
		Origin:            newWaypoint(origin),
		Destination:       newWaypoint(destination),
		TravelMode:        "DRIVE",
		RoutingPreference: "TRAFFIC_AWARE",
	})
	if err != nil {
		return nil, &RouteError{Op: "encode", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/directions/v2:computeRoutes", bytes.NewReader(body))
	if err != nil {
		return nil, &RouteError{Op: "request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Goog-Api-Key", c.apiKey)
	req.Header.Set("X-Goog-FieldMask", fieldMask)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &RouteError{Op: "fetch", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, &RouteError{Op: "fetch", Err: errors.New("rate limit exceeded")}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &RouteError{Op: "fetch", Err: fmt.Errorf("API error %d: %s", resp.StatusCode, bytes.TrimSpace(msg))}
	}

	var data computeRoutesResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, &RouteError{Op: "decode", Err: err}
	}
	if len(data.Routes) == 0 {
		return nil, &RouteError{Op: "parse", Err: ErrNoRoute}
	}

	route, err := normalizeRoute(data.Routes[0])
	if err != nil {
		return nil, &RouteError{Op: "parse", Err: err}
	}
	return route, nil
}

func normalizeRoute(r apiRoute) (*models.Route, error) {
	total, err := parseSeconds(r.Duration)
	if err != nil {
		return nil, fmt.Errorf("route duration: %w", err)
	}

	var steps []models.RouteStep
	for _, leg := range r.Legs {
		for _, s := range leg.Steps {
			dur, err := parseSeconds(s.StaticDuration)
			if err != nil {
				return nil, fmt.Errorf("step %d duration: %w", len(steps), err)
			}
			steps = append(steps, models.RouteStep{
				Instruction:     StripMarkup(s.NavigationInstruction.Instructions),
				Maneuver:        MapManeuver(s.NavigationInstruction.Maneuver),
				DistanceMeters:  s.DistanceMeters,
				DurationSeconds: dur,
				EndLocation: models.Coordinate{
					Latitude:  s.EndLocation.LatLng.Latitude,
					Longitude: s.EndLocation.LatLng.Longitude,
				},
			})
		}
	}
	if len(steps) == 0 {
		return nil, ErrNoRoute
	}

	return &models.Route{
		Info: models.RouteInfo{
			TotalDistanceMeters:  r.DistanceMeters,
			TotalDurationSeconds: total,
		},
		Steps: steps,
		Path:  decodePath(r.Polyline.EncodedPolyline),
	}, nil
}

// parseSeconds parses protobuf-style durations such as "734s" or "12.5s".
// Missing values count as zero.
func parseSeconds(s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("negative duration %q", s)
	}
	return d.Seconds(), nil
}

// decodePath returns nil when the overview polyline is absent or corrupt; the path is
// only used for display.
func decodePath(encoded string) []models.Coordinate {
	if encoded == "" {
		return nil
	}
	coords, _, err := polyline.DecodeCoords([]byte(encoded))
	if err != nil {
		return nil
	}
	path := make([]models.Coordinate, 0, len(coords))
	for _, c := range coords {
		path = append(path, models.Coordinate{Latitude: c[0], Longitude: c[1]})
	}
	return path
}

type computeRoutesResponse struct {
	Routes []apiRoute `json:"routes"`
}

type apiRoute struct {
	DistanceMeters float64 `json:"distanceMeters"`
	Duration       string  `json:"duration"`
	Polyline       struct {
		EncodedPolyline string `json:"encodedPolyline"`
	} `json:"polyline"`
	Legs []apiLeg `json:"legs"`
}

type apiLeg struct {
	Steps []apiStep `json:"steps"`
}

type apiStep struct {
	DistanceMeters float64 `json:"distanceMeters"`
	StaticDuration string  `json:"staticDuration"`
	EndLocation    struct {
		LatLng latLng `json:"latLng"`
	} `json:"endLocation"`
	NavigationInstruction struct {
		Maneuver     string `json:"maneuver"`
		Instructions string `json:"instructions"`
	} `json:"navigationInstruction"`
}
