package weatherapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mr1hm/go-trip-alerts/internal/models"
)

const DefaultBaseURL = "https://api.weatherapi.com"

// Client reads forecast alerts from weatherapi.com. It feeds the notification
// check, independently of the map-layer hazard feed.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

func NewClient(apiKey, baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (c *Client) FetchAlerts(ctx context.Context, coord models.Coordinate) ([]models.WeatherAlert, error) {
	params := url.Values{}
	params.Set("key", c.apiKey)
	params.Set("q", fmt.Sprintf("%f,%f", coord.Latitude, coord.Longitude))
	params.Set("days", "1")
	params.Set("aqi", "no")
	params.Set("alerts", "yes")

	requestURL := fmt.Sprintf("%s/v1/forecast.json?%s", c.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create alerts request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute alerts request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("alerts API error %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var data forecastResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to decode alerts response: %w", err)
	}

	alerts := make([]models.WeatherAlert, 0, len(data.Alerts.Alert))
	for _, a := range data.Alerts.Alert {
		alerts = append(alerts, a.normalize())
	}
	return alerts, nil
}

type forecastResponse struct {
	Alerts struct {
		Alert []forecastAlert `json:"alert"`
	} `json:"alerts"`
}

type forecastAlert struct {
	Headline    string `json:"headline"`
	MsgType     string `json:"msgtype"`
	Severity    string `json:"severity"`
	Urgency     string `json:"urgency"`
	Areas       string `json:"areas"`
	Category    string `json:"category"`
	Certainty   string `json:"certainty"`
	Event       string `json:"event"`
	Note        string `json:"note"`
	Effective   string `json:"effective"`
	Expires     string `json:"expires"`
	Desc        string `json:"desc"`
	Instruction string `json:"instruction"`
}

func (a forecastAlert) normalize() models.WeatherAlert {
	out := models.WeatherAlert{
		Source:         models.AlertSourceWeather,
		Title:          strings.TrimSpace(a.Headline),
		EventType:      strings.TrimSpace(a.Event),
		Severity:       models.ParseSeverity(a.Severity),
		Urgency:        a.Urgency,
		Certainty:      a.Certainty,
		Description:    strings.TrimSpace(a.Desc),
		AreaName:       a.Areas,
		StartTime:      parseTime(a.Effective),
		ExpirationTime: parseTime(a.Expires),
	}
	if instr := strings.TrimSpace(a.Instruction); instr != "" {
		out.Instructions = []string{instr}
	}
	if out.StartTime.IsZero() {
		out.EffectiveRaw = strings.TrimSpace(a.Effective)
	}
	out.ID = out.DedupID()
	return out
}

func parseTime(s string) time.Time {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05-0700", "2006-01-02 15:04"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
