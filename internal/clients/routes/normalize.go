package routes

import (
	"strings"

	"golang.org/x/net/html"

	"github.com/mr1hm/go-trip-alerts/internal/models"
)

// MapManeuver classifies the provider's free-text maneuver. U-turns are checked
// first since values like "UTURN_LEFT" also name a direction.
func MapManeuver(maneuver string) models.ManeuverKind {
	m := strings.ToLower(maneuver)
	switch {
	case strings.Contains(m, "uturn"), strings.Contains(m, "u-turn"), strings.Contains(m, "u_turn"):
		return models.ManeuverUTurn
	case strings.Contains(m, "roundabout"):
		return models.ManeuverRoundabout
	case strings.Contains(m, "merge"):
		return models.ManeuverMerge
	case strings.Contains(m, "left"):
		return models.ManeuverTurnLeft
	case strings.Contains(m, "right"):
		return models.ManeuverTurnRight
	default:
		return models.ManeuverStraight
	}
}

// StripMarkup drops HTML tags from an instruction, unescapes entities and
// collapses whitespace.
func StripMarkup(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return strings.Join(strings.Fields(s), " ")
	}

	var b strings.Builder
	z := html.NewTokenizer(strings.NewReader(s))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return strings.Join(strings.Fields(b.String()), " ")
		case html.TextToken:
			b.Write(z.Text())
		case html.StartTagToken, html.EndTagToken, html.SelfClosingTagToken:
			// block-level tags separate words, e.g. "Turn left<div>Toll road</div>"
			b.WriteByte(' ')
		}
	}
}
