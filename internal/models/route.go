package models

type ManeuverKind string

const (
	ManeuverStraight   ManeuverKind = "STRAIGHT"
	ManeuverTurnLeft   ManeuverKind = "TURN_LEFT"
	ManeuverTurnRight  ManeuverKind = "TURN_RIGHT"
	ManeuverUTurn      ManeuverKind = "U_TURN"
	ManeuverMerge      ManeuverKind = "MERGE"
	ManeuverRoundabout ManeuverKind = "ROUNDABOUT"
)

type RouteStep struct {
	Instruction     string       `json:"instruction"`
	Maneuver        ManeuverKind `json:"maneuver"`
	DistanceMeters  float64      `json:"distance_meters"`
	DurationSeconds float64      `json:"duration_seconds"`
	EndLocation     Coordinate   `json:"end_location"`
}

type RouteInfo struct {
	TotalDistanceMeters  float64 `json:"total_distance_meters"`
	TotalDurationSeconds float64 `json:"total_duration_seconds"`
}

type Route struct {
	Info  RouteInfo    `json:"info"`
	Steps []RouteStep  `json:"steps"`
	Path  []Coordinate `json:"path,omitempty"` // decoded overview polyline
}

// Clone returns a deep copy so callers never share step slices with the trip owner.
func (r *Route) Clone() *Route {
	if r == nil {
		return nil
	}
	c := &Route{Info: r.Info}
	c.Steps = append([]RouteStep(nil), r.Steps...)
	c.Path = append([]Coordinate(nil), r.Path...)
	return c
}
