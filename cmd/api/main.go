package main

import (
    "context"
    "errors"
    "fmt"
    "net/http"
    "os"
    "os/signal"
    "syscall"
    "time"

    redis "github.com/redis/go-redis/v9"
    "github.com/rs/cors"
    "go.uber.org/zap"

    "riskroute/internal/api"
    "riskroute/internal/auth"
    "riskroute/internal/buildinfo"
    "riskroute/internal/config"
    "riskroute/internal/dashboard"
    "riskroute/internal/dispatch"
    "riskroute/internal/events"
    "riskroute/internal/layers"
    "riskroute/internal/live"
    "riskroute/internal/logging"
    "riskroute/internal/metrics"
    "riskroute/internal/model"
    "riskroute/internal/store"
    "riskroute/internal/tracing"
)

func main() {
    if err := run(); err != nil {
        fmt.Fprintln(os.Stderr, "riskroute:", err)
        os.Exit(1)
    }
}

func run() error {
    cfg, err := config.Load("")
    if err != nil {
        return err
    }
    log, err := logging.New(cfg.LogLevel, cfg.LogFormat)
    if err != nil {
        return err
    }
    defer func() { _ = log.Sync() }()

    ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
    defer stop()

    shutdownTracing, err := tracing.Init(ctx, "riskroute", buildinfo.Version, cfg.OTLPEndpoint)
    if err != nil {
        return fmt.Errorf("tracing: %w", err)
    }
    defer func() {
        sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
        defer cancel()
        _ = shutdownTracing(sctx)
    }()
    metrics.RegisterDefault()

    // Road data: Postgres when DATABASE_URL is set, otherwise GeoJSON files.
    var st store.Store
    if cfg.DatabaseURL == "" {
        mem, err := store.LoadMemory(cfg.RoadsGeoJSON, cfg.NetworkGeoJSON, log)
        if err != nil {
            return fmt.Errorf("load road data: %w", err)
        }
        st = mem
    } else {
        pg, err := store.NewPostgres(cfg.DatabaseURL)
        if err != nil {
            return fmt.Errorf("postgres: %w", err)
        }
        defer func() { _ = pg.Close() }()
        if cfg.MigrateOnStart {
            if err := pg.MigrateDir("db/migrations"); err != nil {
                return fmt.Errorf("migrate: %w", err)
            }
        }
        st = pg
    }

    // Redis backs the live cache and the broker when configured.
    var rdb *redis.Client
    if cfg.RedisURL != "" {
        opt, err := redis.ParseURL(cfg.RedisURL)
        if err != nil {
            return fmt.Errorf("REDIS_URL: %w", err)
        }
        client := redis.NewClient(opt)
        pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
        err = client.Ping(pctx).Err()
        cancel()
        if err != nil {
            log.Warn("redis unreachable, falling back to in-process cache and broker", zap.Error(err))
            _ = client.Close()
        } else {
            rdb = client
            defer func() { _ = client.Close() }()
        }
    }

    var cache live.Cache = live.NewMemoryCache(cfg.LiveCacheTTL)
    var broker events.Broker = events.NewMemory()
    if rdb != nil {
        cache = live.NewRedisCache(rdb, log)
        broker = events.NewRedis(rdb, log)
    }

    weather := live.NewWeatherGateway(live.GatewayConfig{APIKey: cfg.OpenWeatherAPIKey, Timeout: cfg.UpstreamTimeout, Logger: log})
    traffic := live.NewTrafficGateway(live.GatewayConfig{APIKey: cfg.TomTomAPIKey, Timeout: cfg.UpstreamTimeout, Logger: log})
    conditions := live.NewService(weather, traffic, cache, log)
    conditions.TTL = cfg.LiveCacheTTL

    reg := layers.NewRegistry()
    if err := reg.LoadAll(log,
        layers.Roundabouts{Path: cfg.RoundaboutsGeoJSON},
        layers.Disengagements{Path: cfg.DisengagementsCSV},
    ); err != nil {
        return err
    }

    sender := dispatch.NewSender(cfg.DispatchWebhookURL, cfg.DispatchSecret, log)
    worker := dispatch.NewWorker(sender, 32)
    worker.Start(ctx)

    dash := dashboard.New(st, st, conditions, log)
    dash.Depot = model.Depot{Name: cfg.Depot.Name, Lat: cfg.Depot.Lat, Lon: cfg.Depot.Lon}
    dash.Broker = broker
    dash.Dispatch = worker

    verifier, err := auth.NewVerifier(cfg.AuthMode, cfg.AuthHMACSecret)
    if err != nil {
        return err
    }

    srv := api.NewServer(dash, st, reg, broker, log)
    srv.Auth = verifier
    srv.Settings = map[string]any{
        "PORT":             cfg.Port,
        "ALLOW_ORIGINS":    cfg.AllowOrigins,
        "LIVE_CACHE_TTL":   cfg.LiveCacheTTL.String(),
        "HAS_DATABASE_URL": cfg.DatabaseURL != "",
        "HAS_REDIS_URL":    cfg.RedisURL != "",
        "HAS_OPENWEATHER":  cfg.OpenWeatherAPIKey != "",
        "HAS_TOMTOM":       cfg.TomTomAPIKey != "",
        "DISPATCH_ENABLED": sender.Enabled(),
        "TRACING_ENABLED":  cfg.OTLPEndpoint != "",
        "AUTH_MODE":        verifier.Mode,
    }

    handler := cors.New(cors.Options{
        AllowedOrigins: cfg.AllowOrigins,
        AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
        AllowedHeaders: []string{"Content-Type", "Authorization"},
    }).Handler(srv.Routes())

    httpSrv := &http.Server{
        Addr:              cfg.Addr(),
        Handler:           handler,
        ReadHeaderTimeout: 5 * time.Second,
    }

    errc := make(chan error, 1)
    go func() {
        log.Info("API listening", zap.String("addr", httpSrv.Addr), zap.String("version", buildinfo.Version))
        if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
            errc <- err
        }
        close(errc)
    }()

    select {
    case err := <-errc:
        if err != nil {
            return fmt.Errorf("server error: %w", err)
        }
    case <-ctx.Done():
    }

    log.Info("shutting down")
    sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
    defer cancel()
    if err := httpSrv.Shutdown(sctx); err != nil {
        log.Warn("graceful shutdown failed", zap.Error(err))
    }
    stop()
    worker.Wait()
    return nil
}
