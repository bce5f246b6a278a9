package route

import (
	"sync"
	"time"

	"riskroute/internal/model"
)

// RunStats summarises one synthesis run for /debug/info.
type RunStats struct {
	Status         model.RouteStatus `json:"status"`
	Waypoints      int               `json:"waypoints"`
	FailedLegs     int               `json:"failedLegs"`
	Attempts       int               `json:"attempts"`
	NodesTraversed int               `json:"nodesTraversed"`
	DistanceMeters float64           `json:"distanceMeters"`
	ElapsedMs      int64             `json:"elapsedMs"`
	At             time.Time         `json:"at"`
}

var (
	runsMu sync.Mutex
	runs   = map[int]RunStats{}
)

// RecordRun keeps the latest run per target duration.
func RecordRun(minutes int, s RunStats) {
	runsMu.Lock()
	runs[minutes] = s
	runsMu.Unlock()
}

// LastRuns returns a copy of the latest run per duration.
func LastRuns() map[int]RunStats {
	runsMu.Lock()
	defer runsMu.Unlock()
	out := make(map[int]RunStats, len(runs))
	for k, v := range runs {
		out[k] = v
	}
	return out
}
