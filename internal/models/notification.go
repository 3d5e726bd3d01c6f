package models

import "time"

type Notification struct {
	ID        string       `json:"id"`
	Title     string       `json:"title"`
	Body      string       `json:"body"`
	Alert     WeatherAlert `json:"alert"`
	Test      bool         `json:"test"`
	CreatedAt time.Time    `json:"created_at"`
}
