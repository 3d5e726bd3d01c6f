package models

import (
	"encoding/json"
	"testing"
	"time"
)

func TestSettings_UnmarshalKeepsDefaults(t *testing.T) {
	var s Settings
	if err := json.Unmarshal([]byte(`{"floodAlerts":false,"alertRadius":20}`), &s); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if !s.NotificationsEnabled {
		t.Error("expected notifications to default to enabled")
	}
	if s.Categories.Flood {
		t.Error("expected flood alerts disabled")
	}
	if !s.Categories.Fire || !s.Categories.Weather {
		t.Error("expected missing categories to default to enabled")
	}
	if s.AlertRadiusKm != 20 {
		t.Errorf("expected radius 20, got %f", s.AlertRadiusKm)
	}
}

func TestSettings_RoundTripKeys(t *testing.T) {
	s := DefaultSettings()
	s.Categories.Fire = false

	data, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if raw["fireAlerts"] != false {
		t.Errorf("expected fireAlerts=false in %s", data)
	}
	if raw["alertRadius"] != 50.0 {
		t.Errorf("expected alertRadius=50 in %s", data)
	}
}

func TestParseSeverity(t *testing.T) {
	cases := map[string]AlertSeverity{
		"Extreme":  AlertSeveritySevere,
		"severe":   AlertSeveritySevere,
		"Moderate": AlertSeverityModerate,
		"MINOR":    AlertSeverityMinor,
		"":         AlertSeverityUnknown,
		"whatever": AlertSeverityUnknown,
	}
	for in, want := range cases {
		if got := ParseSeverity(in); got != want {
			t.Errorf("ParseSeverity(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestWeatherAlert_DedupID(t *testing.T) {
	a := WeatherAlert{
		EventType: "Flood Warning",
		StartTime: time.Date(2026, 3, 1, 10, 0, 0, 0, time.FixedZone("CET", 3600)),
	}
	if got := a.DedupID(); got != "Flood Warning-2026-03-01T09:00:00Z" {
		t.Errorf("unexpected dedup id %q", got)
	}
}

func TestWeatherAlert_DedupID_UnparsedEffective(t *testing.T) {
	a := WeatherAlert{EventType: "Heat Advisory", EffectiveRaw: " 19/10/2026 08:00 "}
	if got := a.DedupID(); got != "Heat Advisory-19/10/2026 08:00" {
		t.Errorf("unexpected dedup id %q", got)
	}

	a.StartTime = time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)
	if got := a.DedupID(); got != "Heat Advisory-2026-10-19T08:00:00Z" {
		t.Errorf("parsed start time should win, got %q", got)
	}
}
