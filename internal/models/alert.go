package models

import (
	"encoding/json"
	"strings"
	"time"
)

type AlertSeverity string

const (
	AlertSeveritySevere   AlertSeverity = "SEVERE"
	AlertSeverityModerate AlertSeverity = "MODERATE"
	AlertSeverityMinor    AlertSeverity = "MINOR"
	AlertSeverityUnknown  AlertSeverity = "UNKNOWN"
)

// ParseSeverity maps provider severity text onto the four known levels.
// "Extreme" is folded into SEVERE.
func ParseSeverity(s string) AlertSeverity {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "EXTREME", "SEVERE":
		return AlertSeveritySevere
	case "MODERATE":
		return AlertSeverityModerate
	case "MINOR":
		return AlertSeverityMinor
	default:
		return AlertSeverityUnknown
	}
}

// Rank orders severities, higher is worse.
func (s AlertSeverity) Rank() int {
	switch s {
	case AlertSeveritySevere:
		return 3
	case AlertSeverityModerate:
		return 2
	case AlertSeverityMinor:
		return 1
	default:
		return 0
	}
}

type AlertSource string

const (
	AlertSourceHazards AlertSource = "hazards"
	AlertSourceWeather AlertSource = "weather"
	AlertSourceTest    AlertSource = "test"
)

type Recommendation struct {
	Directive string `json:"directive"`
	Subtext   string `json:"subtext,omitempty"`
}

type WeatherAlert struct {
	ID              string           `json:"id"`
	Source          AlertSource      `json:"source"`
	Title           string           `json:"title"`
	EventType       string           `json:"event_type"`
	Severity        AlertSeverity    `json:"severity"`
	Urgency         string           `json:"urgency,omitempty"`
	Certainty       string           `json:"certainty,omitempty"`
	Description     string           `json:"description,omitempty"`
	Polygon         json.RawMessage  `json:"polygon,omitempty"` // GeoJSON Polygon or MultiPolygon
	AreaName        string           `json:"area_name,omitempty"`
	StartTime       time.Time        `json:"start_time"`
	EffectiveRaw    string           `json:"effective_raw,omitempty"` // provider text, kept when it does not parse
	ExpirationTime  time.Time        `json:"expiration_time"`
	Instructions    []string         `json:"instructions,omitempty"`
	Recommendations []Recommendation `json:"recommendations,omitempty"`
}

// DedupID is the identifier used to recognise an alert that was already delivered:
// event type and effective timestamp joined by "-". An effective time the provider
// sent in a format we could not parse is used verbatim.
func (a WeatherAlert) DedupID() string {
	effective := strings.TrimSpace(a.EffectiveRaw)
	if !a.StartTime.IsZero() {
		effective = a.StartTime.UTC().Format(time.RFC3339)
	}
	return a.EventType + "-" + effective
}

type AlertGroup struct {
	Key        string         `json:"key"`
	Coordinate Coordinate     `json:"coordinate"`
	Members    []WeatherAlert `json:"members"`
}
