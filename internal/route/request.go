package route

import (
	"errors"
	"fmt"

	"riskroute/internal/model"
)

const (
	// SpeedMPS is the assumed average driving speed (about 30 mph).
	SpeedMPS = 13.4

	DefaultMaxWaypoints = 15
	DefaultSampleSize   = 50
	DefaultStopFraction = 0.8

	milesPerMeter = 0.000621371
)

// Durations are the route lengths offered to dispatchers, in minutes.
var Durations = []int{30, 60, 120, 240}

var ErrInvalidDuration = errors.New("duration must be one of 30, 60, 120, 240 minutes")

// ValidDuration reports whether minutes is one of Durations.
func ValidDuration(minutes int) bool {
	for _, d := range Durations {
		if d == minutes {
			return true
		}
	}
	return false
}

// TargetDistance is how far a vehicle covers in minutes at SpeedMPS.
func TargetDistance(minutes int) float64 {
	return float64(minutes) * 60 * SpeedMPS
}

// RadiusFor is the road network radius fetched around the depot.
func RadiusFor(minutes int) float64 {
	if minutes <= 60 {
		return 3000
	}
	return 6000
}

// NewRequest builds a synthesis request for a supported duration.
func NewRequest(origin model.NodeID, minutes int) (model.RouteRequest, error) {
	if !ValidDuration(minutes) {
		return model.RouteRequest{}, fmt.Errorf("%d: %w", minutes, ErrInvalidDuration)
	}
	return model.RouteRequest{
		Origin:               origin,
		TargetDistanceMeters: TargetDistance(minutes),
		MaxWaypoints:         DefaultMaxWaypoints,
	}, nil
}

// Miles converts metres to statute miles.
func Miles(meters float64) float64 { return meters * milesPerMeter }
