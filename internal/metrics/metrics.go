package metrics

import (
    "sync"
    "github.com/prometheus/client_golang/prometheus"
    "github.com/prometheus/client_golang/prometheus/collectors"
)

var (
    // Registry is the dedicated Prometheus registry for the API
    Registry = prometheus.NewRegistry()
    // HTTPRequests counts requests by method, path, and status
    HTTPRequests = prometheus.NewCounterVec(
        prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests."},
        []string{"method", "path", "status"},
    )
    // HTTPDuration records request durations in seconds
    HTTPDuration = prometheus.NewHistogramVec(
        prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "HTTP request duration in seconds.", Buckets: prometheus.DefBuckets},
        []string{"method", "path", "status"},
    )

    // SynthesisRuns counts route synthesis runs by resulting status (closed, open, degenerate, error)
    SynthesisRuns = prometheus.NewCounterVec(
        prometheus.CounterOpts{Name: "route_synthesis_runs_total", Help: "Route synthesis runs by outcome."},
        []string{"status"},
    )
    // SynthesisFailedLegs counts sub-path searches that found no path
    SynthesisFailedLegs = prometheus.NewCounter(
        prometheus.CounterOpts{Name: "route_synthesis_failed_legs_total", Help: "Waypoint legs skipped because no path existed."},
    )
    // SynthesisDuration records wall time of a synthesis run in seconds
    SynthesisDuration = prometheus.NewHistogram(
        prometheus.HistogramOpts{Name: "route_synthesis_duration_seconds", Help: "Route synthesis wall time in seconds.", Buckets: []float64{.005, .01, .05, .1, .5, 1, 2, 5, 10}},
    )

    // UpstreamRequests counts weather/traffic fetches by source and outcome
    UpstreamRequests = prometheus.NewCounterVec(
        prometheus.CounterOpts{Name: "upstream_requests_total", Help: "Live data fetches by source and outcome."},
        []string{"source", "outcome"},
    )
    // UpstreamLatency tracks upstream latencies in milliseconds
    UpstreamLatency = prometheus.NewHistogramVec(
        prometheus.HistogramOpts{Name: "upstream_latency_ms", Help: "Live data fetch latency in ms.", Buckets: []float64{10, 50, 100, 200, 500, 1000, 2000, 5000, 10000}},
        []string{"source"},
    )
    // LiveCacheLookups counts live condition cache hits and misses
    LiveCacheLookups = prometheus.NewCounterVec(
        prometheus.CounterOpts{Name: "live_cache_lookups_total", Help: "Live conditions cache lookups."},
        []string{"result"},
    )

    // ScoredSegments is the size of the last scored table per risk band
    ScoredSegments = prometheus.NewGaugeVec(
        prometheus.GaugeOpts{Name: "scored_segments", Help: "Segments in the last scored table by risk band."},
        []string{"band"},
    )

    // DispatchDeliveries counts manifest webhook delivery outcomes
    DispatchDeliveries = prometheus.NewCounterVec(
        prometheus.CounterOpts{Name: "dispatch_deliveries_total", Help: "Dispatch manifest deliveries by status."},
        []string{"status"},
    )
    // DispatchLatency tracks manifest delivery latencies in milliseconds
    DispatchLatency = prometheus.NewHistogramVec(
        prometheus.HistogramOpts{Name: "dispatch_delivery_latency_ms", Help: "Dispatch delivery latency in ms.", Buckets: []float64{10, 50, 100, 200, 500, 1000, 2000, 5000}},
        []string{"status"},
    )
)

// RegisterDefault registers collectors to the default registry.
func RegisterDefault() {
    regOnce.Do(func(){
        Registry.MustRegister(HTTPRequests)
        Registry.MustRegister(HTTPDuration)
        Registry.MustRegister(SynthesisRuns)
        Registry.MustRegister(SynthesisFailedLegs)
        Registry.MustRegister(SynthesisDuration)
        Registry.MustRegister(UpstreamRequests)
        Registry.MustRegister(UpstreamLatency)
        Registry.MustRegister(LiveCacheLookups)
        Registry.MustRegister(ScoredSegments)
        Registry.MustRegister(DispatchDeliveries)
        Registry.MustRegister(DispatchLatency)
        // Go/process collectors on our registry
        Registry.MustRegister(collectors.NewGoCollector())
        Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
    })
}

var regOnce sync.Once
