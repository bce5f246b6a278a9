// Command roadimport loads the road attribute layer and the drivable network
// from GeoJSON into Postgres so the API can run without local files.
package main

import (
    "context"
    "errors"
    "flag"
    "fmt"
    "os"
    "time"

    "go.uber.org/zap"

    "riskroute/internal/config"
    "riskroute/internal/graph"
    "riskroute/internal/logging"
    "riskroute/internal/store"
)

func main() {
    if err := run(); err != nil {
        fmt.Fprintln(os.Stderr, "roadimport:", err)
        os.Exit(1)
    }
}

func run() error {
    cfg, err := config.Load("")
    if err != nil {
        return err
    }
    roads := flag.String("roads", cfg.RoadsGeoJSON, "road attribute layer (GeoJSON)")
    network := flag.String("network", cfg.NetworkGeoJSON, "drivable network (GeoJSON); defaults to the roads layer")
    dsn := flag.String("dsn", cfg.DatabaseURL, "Postgres DSN")
    migrations := flag.String("migrations", "db/migrations", "migration directory")
    flag.Parse()

    log, err := logging.New(cfg.LogLevel, cfg.LogFormat)
    if err != nil {
        return err
    }
    defer func() { _ = log.Sync() }()

    if *dsn == "" {
        return errors.New("no DSN: pass -dsn or set DATABASE_URL")
    }
    pg, err := store.NewPostgres(*dsn)
    if err != nil {
        return err
    }
    defer func() { _ = pg.Close() }()
    if err := pg.MigrateDir(*migrations); err != nil {
        return fmt.Errorf("migrate: %w", err)
    }

    ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
    defer cancel()

    roadsFC, err := store.LoadFeatureCollection(*roads)
    if err != nil {
        return fmt.Errorf("roads: %w", err)
    }
    n, err := pg.ImportSegments(ctx, store.SegmentsFromFeatures(roadsFC))
    if err != nil {
        return fmt.Errorf("import segments: %w", err)
    }
    log.Info("segments imported", zap.Int("count", n), zap.String("path", *roads))

    netFC := roadsFC
    if *network != "" {
        if netFC, err = store.LoadFeatureCollection(*network); err != nil {
            return fmt.Errorf("network: %w", err)
        }
    }
    // radius 0 keeps the whole network; the depot only anchors the projection
    g, dropped := graph.FromFeatures(netFC, cfg.Depot.Lat, cfg.Depot.Lon, 0)
    if dropped > 0 {
        log.Warn("network edges rejected", zap.Int("dropped", dropped))
    }
    nodes, edges, err := pg.ImportGraph(ctx, g)
    if err != nil {
        return fmt.Errorf("import graph: %w", err)
    }
    log.Info("network imported", zap.Int("nodes", nodes), zap.Int("edges", edges))
    return nil
}
