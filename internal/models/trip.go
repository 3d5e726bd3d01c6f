package models

import "time"

type TripPhase string

const (
	TripPhaseIdle                TripPhase = "IDLE"
	TripPhaseDestinationSelected TripPhase = "DESTINATION_SELECTED"
	TripPhaseRideOptionsShown    TripPhase = "RIDE_OPTIONS_SHOWN"
	TripPhaseNavigating          TripPhase = "NAVIGATING"
)

// RideOptions are the vehicle choices offered once a route is confirmed.
var RideOptions = []string{"car", "motorcycle", "van"}

type Destination struct {
	Coordinate  Coordinate `json:"coordinate"`
	Description string     `json:"description"`
}

// TripSnapshot is the read-only view of the live trip handed to the UI layer.
type TripSnapshot struct {
	ID              string       `json:"id"`
	Phase           TripPhase    `json:"phase"`
	Origin          *Coordinate  `json:"origin,omitempty"`
	Destination     *Destination `json:"destination,omitempty"`
	Route           *Route       `json:"route,omitempty"`
	RouteLoading    bool         `json:"route_loading"`
	RouteError      string       `json:"route_error,omitempty"`
	ActiveStepIndex int          `json:"active_step_index"`
	ActiveStep      *RouteStep   `json:"active_step,omitempty"`
	SelectedOption  string       `json:"selected_option,omitempty"`
	RideOptions     []string     `json:"ride_options,omitempty"`
	UpdatedAt       time.Time    `json:"updated_at"`
}
