package scoring

import "riskroute/internal/model"

// ScoreAll enriches every segment against one shared weather snapshot.
func ScoreAll(segments []model.RoadSegment, weather *model.WeatherSnapshot) ([]model.ScoredSegment, error) {
	if len(segments) == 0 {
		return nil, ErrNoBaseData
	}
	out := make([]model.ScoredSegment, len(segments))
	for i, seg := range segments {
		score, label := Score(seg, weather)
		out[i] = model.ScoredSegment{
			RoadSegment:     seg,
			ComplexityScore: score,
			OcclusionLabel:  label,
			RiskBand:        RiskBand(score),
		}
	}
	return out, nil
}

// Filter keeps segments scoring at least minScore.
func Filter(table []model.ScoredSegment, minScore int) []model.ScoredSegment {
	out := make([]model.ScoredSegment, 0, len(table))
	for _, s := range table {
		if s.ComplexityScore >= minScore {
			out = append(out, s)
		}
	}
	return out
}

// Summary counts segments per risk band and per occlusion label.
type Summary struct {
	Total     int                          `json:"total"`
	Bands     map[string]int               `json:"bands"`
	Occlusion map[model.OcclusionLabel]int `json:"occlusion"`
	MaxScore  int                          `json:"maxScore"`
	MeanScore float64                      `json:"meanScore"`
}

func Summarize(table []model.ScoredSegment) Summary {
	s := Summary{Bands: map[string]int{"green": 0, "orange": 0, "red": 0}, Occlusion: map[model.OcclusionLabel]int{}}
	sum := 0
	for _, seg := range table {
		s.Total++
		s.Bands[seg.RiskBand]++
		s.Occlusion[seg.OcclusionLabel]++
		sum += seg.ComplexityScore
		if seg.ComplexityScore > s.MaxScore {
			s.MaxScore = seg.ComplexityScore
		}
	}
	if s.Total > 0 {
		s.MeanScore = float64(sum) / float64(s.Total)
	}
	return s
}
