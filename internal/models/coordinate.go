package models

type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Position is a single fix from the position source.
type Position struct {
	Coordinate Coordinate `json:"coordinate"`
	Heading    *float64   `json:"heading,omitempty"`
}
