// Package dispatch renders the driver manifest for a synthesized route and
// delivers it to the dispatch webhook.
package dispatch

import (
	"math"
	"time"

	"riskroute/internal/model"
)

// EventType is sent in X-Event-Type with every delivery.
const EventType = "route.synthesized"

const objective = "Maximize exposure to scored high-complexity segments on an exploratory loop from the depot"

// Render builds the manifest shown to the driver.
func Render(r model.SynthesizedRoute, now time.Time) model.Manifest {
	return model.Manifest{
		RouteID:         r.ID,
		DistanceMiles:   round(r.TotalDistanceMiles, 2),
		DurationMinutes: round(r.EstimatedDurationMinutes, 1),
		NodesTraversed:  r.NodesTraversed,
		Waypoints:       r.WaypointCount,
		Status:          r.Status,
		Objective:       objective,
		GeneratedAt:     now.UTC(),
	}
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
