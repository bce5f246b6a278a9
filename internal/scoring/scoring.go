// Package scoring computes the per-segment complexity score and the solar
// occlusion label from static road attributes and the current weather.
package scoring

import (
	"math"

	"riskroute/internal/model"
)

// ErrNoBaseData is returned when there is no segment table to score.
var ErrNoBaseData = model.ErrNoBaseData

const (
	BaseScore = 20
	MaxScore  = 100

	hinPresenceBonus = 10
	hinRankCap       = 20.0
	hinRankScale     = 1000.0

	floodWetBonus = 25
	floodDryBonus = 10

	glareBonus       = 20
	glareMaxAltitude = 15.0
	glareCone        = 15.0

	// trafficPenalty stays 0 until incidents are spatially joined to segments.
	trafficPenalty = 0
)

var wetConditions = map[string]struct{}{"Rain": {}, "Thunderstorm": {}, "Drizzle": {}}

// Score returns the complexity score in [0,100] and the occlusion label for seg.
// A nil weather snapshot takes the dry, no-glare path.
func Score(seg model.RoadSegment, weather *model.WeatherSnapshot) (int, model.OcclusionLabel) {
	score := float64(BaseScore)
	score += hinBonus(seg)
	score += float64(floodBonus(seg, weather))
	score += float64(glare(seg, weather))
	score += trafficPenalty
	return clamp(score), Occlusion(seg.Bearing)
}

func hinBonus(seg model.RoadSegment) float64 {
	if seg.HINStatus == nil {
		return 0
	}
	bonus := float64(hinPresenceBonus)
	if seg.HINRank != nil && !math.IsNaN(*seg.HINRank) {
		bonus += math.Min(hinRankCap, (*seg.HINRank/hinRankScale)*hinRankCap)
	}
	return bonus
}

func floodBonus(seg model.RoadSegment, weather *model.WeatherSnapshot) int {
	if seg.FloodZone == nil || *seg.FloodZone != model.FloodDesignation {
		return 0
	}
	if weather != nil {
		if _, wet := wetConditions[weather.Conditions]; wet {
			return floodWetBonus
		}
	}
	return floodDryBonus
}

func glare(seg model.RoadSegment, weather *model.WeatherSnapshot) int {
	if seg.Bearing == nil || weather == nil {
		return 0
	}
	if weather.SolarAltitude < 0 || weather.SolarAltitude > glareMaxAltitude {
		return 0
	}
	diff := math.Abs(*seg.Bearing - weather.SolarAzimuth)
	if diff <= glareCone || diff >= 360-glareCone {
		return glareBonus
	}
	return 0
}

func clamp(score float64) int {
	if math.IsNaN(score) {
		return BaseScore
	}
	// bound before converting; float to int is unspecified out of range
	return int(math.Max(0, math.Min(MaxScore, score)))
}

// Occlusion maps a bearing to its fixed glare window.
func Occlusion(bearing *float64) model.OcclusionLabel {
	if bearing == nil || math.IsNaN(*bearing) {
		return model.OcclusionUnknown
	}
	b := *bearing
	switch {
	case b >= 60 && b <= 120:
		return model.OcclusionSunrise
	case b >= 240 && b <= 300:
		return model.OcclusionSunset
	default:
		return model.OcclusionNone
	}
}

// RiskBand buckets a score into the dashboard colour bands.
func RiskBand(score int) string {
	switch {
	case score < 40:
		return "green"
	case score < 70:
		return "orange"
	default:
		return "red"
	}
}
