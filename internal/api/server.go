package api

import (
    "context"
    "net/http"
    "time"

    "github.com/go-playground/validator/v10"
    "github.com/prometheus/client_golang/prometheus/promhttp"
    "go.uber.org/zap"

    "riskroute/internal/auth"
    "riskroute/internal/dashboard"
    "riskroute/internal/events"
    "riskroute/internal/layers"
    "riskroute/internal/metrics"
)

// Pinger is the readiness probe of the road store.
type Pinger interface {
    Ping(ctx context.Context) error
}

type Server struct {
    Dashboard *dashboard.Service
    Store     Pinger
    Layers    *layers.Registry
    Broker    events.Broker
    Auth      *auth.Verifier
    Logger    *zap.Logger
    // Settings is echoed by /debug/info. Secrets must not be put here.
    Settings  map[string]any

    validate  *validator.Validate
    heartbeat time.Duration
}

// NewServer wires the HTTP surface over an assembled dashboard. Store and
// Broker may be nil: readiness then always passes and streams stay silent.
// Auth defaults to open access; set it to guard route changes.
func NewServer(d *dashboard.Service, st Pinger, reg *layers.Registry, broker events.Broker, logger *zap.Logger) *Server {
    if logger == nil {
        logger = zap.NewNop()
    }
    if reg == nil {
        reg = layers.NewRegistry()
    }
    return &Server{
        Dashboard: d,
        Store:     st,
        Layers:    reg,
        Broker:    broker,
        Logger:    logger,
        validate:  validator.New(validator.WithRequiredStructEnabled()),
        heartbeat: 15 * time.Second,
    }
}

// Routes registers every endpoint on a fresh mux and wraps it with the
// recovery and access middleware.
func (s *Server) Routes() http.Handler {
    mux := http.NewServeMux()

    // Health
    mux.HandleFunc("/healthz", s.HealthHandler)
    mux.HandleFunc("/readyz", s.ReadyHandler)

    // Live conditions and scoring
    mux.HandleFunc("/v1/conditions", s.ConditionsHandler)
    mux.HandleFunc("/v1/segments", s.SegmentsHandler)
    mux.HandleFunc("/v1/segments/summary", s.SegmentsSummaryHandler)

    // Routes
    mux.HandleFunc("/v1/routes", s.RoutesHandler)
    mux.HandleFunc("/v1/routes/current", s.CurrentRouteHandler)
    mux.HandleFunc("/v1/routes/current/manifest", s.ManifestHandler)
    mux.HandleFunc("/v1/routes/events/stream", s.EventStreamHandler)
    mux.HandleFunc("/v1/ws", s.WSHandler)
    mux.HandleFunc("/v1/options", s.OptionsHandler)

    // Overlays
    mux.HandleFunc("/v1/layers", s.LayersIndexHandler)
    mux.HandleFunc("/v1/layers/", s.LayerHandler)

    // Admin
    mux.HandleFunc("/debug/info", s.DebugJSON)
    mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

    return s.recoverMiddleware(s.accessMiddleware(mux))
}
