package hazards

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mr1hm/go-trip-alerts/internal/models"
)

const DefaultBaseURL = "https://weather.googleapis.com"

// HTTPDoer is satisfied by *http.Client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client looks up public hazard alerts (with area polygons) around a coordinate.
type Client struct {
	apiKey     string
	baseURL    string
	language   string
	httpClient HTTPDoer
}

func NewClient(apiKey, baseURL, language string) *Client {
	return NewClientWithHTTPDoer(apiKey, baseURL, language, &http.Client{Timeout: 30 * time.Second})
}

func NewClientWithHTTPDoer(apiKey, baseURL, language string, doer HTTPDoer) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if language == "" {
		language = "en"
	}
	return &Client{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		language:   language,
		httpClient: doer,
	}
}

func (c *Client) FetchAlerts(ctx context.Context, coord models.Coordinate) ([]models.WeatherAlert, error) {
	params := url.Values{}
	params.Set("key", c.apiKey)
	params.Set("location.latitude", strconv.FormatFloat(coord.Latitude, 'f', 6, 64))
	params.Set("location.longitude", strconv.FormatFloat(coord.Longitude, 'f', 6, 64))
	params.Set("languageCode", c.language)

	requestURL := fmt.Sprintf("%s/v1/publicAlerts:lookup?%s", c.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error doing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("unexpected status code: %d - body: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var data lookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("error decoding resp.Body: %w", err)
	}

	alerts := make([]models.WeatherAlert, 0, len(data.WeatherAlerts))
	for _, a := range data.WeatherAlerts {
		alerts = append(alerts, a.normalize())
	}
	return alerts, nil
}

type lookupResponse struct {
	WeatherAlerts []publicAlert `json:"weatherAlerts"`
	RegionCode    string        `json:"regionCode"`
}

type localizedText struct {
	Text         string `json:"text"`
	LanguageCode string `json:"languageCode"`
}

type publicAlert struct {
	AlertID               string           `json:"alertId"`
	AlertTitle            localizedText    `json:"alertTitle"`
	EventType             string           `json:"eventType"`
	AreaName              string           `json:"areaName"`
	Instruction           []string         `json:"instruction"`
	SafetyRecommendations []recommendation `json:"safetyRecommendations"`
	StartTime             string           `json:"startTime"`
	ExpirationTime        string           `json:"expirationTime"`
	Polygon               string           `json:"polygon"`
	Description           string           `json:"description"`
	Severity              string           `json:"severity"`
	Certainty             string           `json:"certainty"`
	Urgency               string           `json:"urgency"`
}

type recommendation struct {
	Directive string `json:"directive"`
	Subtext   string `json:"subtext"`
}

func (a publicAlert) normalize() models.WeatherAlert {
	out := models.WeatherAlert{
		ID:             a.AlertID,
		Source:         models.AlertSourceHazards,
		Title:          a.AlertTitle.Text,
		EventType:      humanizeEventType(a.EventType),
		Severity:       models.ParseSeverity(a.Severity),
		Urgency:        a.Urgency,
		Certainty:      a.Certainty,
		Description:    a.Description,
		AreaName:       a.AreaName,
		StartTime:      parseTime(a.StartTime),
		ExpirationTime: parseTime(a.ExpirationTime),
		Instructions:   a.Instruction,
	}
	if out.Title == "" {
		out.Title = out.EventType
	}
	if out.StartTime.IsZero() {
		out.EffectiveRaw = strings.TrimSpace(a.StartTime)
	}
	// the polygon arrives as a GeoJSON string; anything that is not JSON is dropped here
	// and the alert falls back to the caller's coordinate
	if p := strings.TrimSpace(a.Polygon); p != "" && json.Valid([]byte(p)) {
		out.Polygon = json.RawMessage(p)
	}
	for _, r := range a.SafetyRecommendations {
		out.Recommendations = append(out.Recommendations, models.Recommendation{
			Directive: r.Directive,
			Subtext:   r.Subtext,
		})
	}
	if out.ID == "" {
		out.ID = out.DedupID()
	}
	return out
}

// humanizeEventType turns enum-style names like "FLASH_FLOOD" into "Flash Flood".
func humanizeEventType(s string) string {
	if !strings.Contains(s, "_") && strings.ToUpper(s) != s {
		return s
	}
	words := strings.Fields(strings.ReplaceAll(strings.ToLower(s), "_", " "))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
