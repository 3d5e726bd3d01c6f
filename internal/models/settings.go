package models

import "encoding/json"

type CategorySettings struct {
	Weather bool
	Flood   bool
	Fire    bool
}

type Settings struct {
	NotificationsEnabled bool
	Categories           CategorySettings
	AlertRadiusKm        float64
}

func DefaultSettings() Settings {
	return Settings{
		NotificationsEnabled: true,
		Categories:           CategorySettings{Weather: true, Flood: true, Fire: true},
		AlertRadiusKm:        50,
	}
}

// settingsJSON is the persisted blob layout. Absent keys keep their defaults.
type settingsJSON struct {
	NotificationsEnabled *bool    `json:"notificationsEnabled,omitempty"`
	WeatherAlerts        *bool    `json:"weatherAlerts,omitempty"`
	FloodAlerts          *bool    `json:"floodAlerts,omitempty"`
	FireAlerts           *bool    `json:"fireAlerts,omitempty"`
	AlertRadius          *float64 `json:"alertRadius,omitempty"`
}

func (s Settings) MarshalJSON() ([]byte, error) {
	return json.Marshal(settingsJSON{
		NotificationsEnabled: &s.NotificationsEnabled,
		WeatherAlerts:        &s.Categories.Weather,
		FloodAlerts:          &s.Categories.Flood,
		FireAlerts:           &s.Categories.Fire,
		AlertRadius:          &s.AlertRadiusKm,
	})
}

func (s *Settings) UnmarshalJSON(data []byte) error {
	var raw settingsJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := DefaultSettings()
	if raw.NotificationsEnabled != nil {
		out.NotificationsEnabled = *raw.NotificationsEnabled
	}
	if raw.WeatherAlerts != nil {
		out.Categories.Weather = *raw.WeatherAlerts
	}
	if raw.FloodAlerts != nil {
		out.Categories.Flood = *raw.FloodAlerts
	}
	if raw.FireAlerts != nil {
		out.Categories.Fire = *raw.FireAlerts
	}
	if raw.AlertRadius != nil {
		out.AlertRadiusKm = *raw.AlertRadius
	}
	*s = out
	return nil
}
