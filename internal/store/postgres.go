package store

import (
    "context"
    "database/sql"
    "encoding/json"
    "fmt"
    "os"
    "path/filepath"
    "sort"
    "strings"

    _ "github.com/jackc/pgx/v5/stdlib"
    "github.com/paulmach/orb"
    "github.com/paulmach/orb/geo"
    "github.com/paulmach/orb/geojson"

    "riskroute/internal/graph"
    "riskroute/internal/model"
)

const metersPerDegree = 111000.0

type Postgres struct {
    db *sql.DB
}

func NewPostgres(dsn string) (*Postgres, error) {
    db, err := sql.Open("pgx", dsn)
    if err != nil {
        return nil, err
    }
    if err := db.Ping(); err != nil {
        return nil, err
    }
    return &Postgres{db: db}, nil
}

func (p *Postgres) Close() error { return p.db.Close() }

func (p *Postgres) Ping(ctx context.Context) error { return p.db.PingContext(ctx) }

// MigrateDir applies *.sql files from dir in lexical order, once each.
func (p *Postgres) MigrateDir(dir string) error {
    ctx := context.Background()
    if _, err := p.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (version text PRIMARY KEY, applied_at timestamptz NOT NULL DEFAULT now())`); err != nil {
        return fmt.Errorf("create schema_migrations: %w", err)
    }
    files, err := migrationFiles(dir)
    if err != nil { return err }
    for _, f := range files {
        version := filepath.Base(f)
        var exists bool
        if err := p.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version=$1)`, version).Scan(&exists); err != nil {
            return err
        }
        if exists { continue }
        body, err := os.ReadFile(f)
        if err != nil { return err }
        tx, err := p.db.BeginTx(ctx, nil)
        if err != nil { return err }
        if _, err := tx.ExecContext(ctx, string(body)); err != nil {
            _ = tx.Rollback()
            return fmt.Errorf("migration %s: %w", version, err)
        }
        if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations (version) VALUES ($1)`, version); err != nil {
            _ = tx.Rollback()
            return err
        }
        if err := tx.Commit(); err != nil { return err }
    }
    return nil
}

func migrationFiles(dir string) ([]string, error) {
    files, err := filepath.Glob(filepath.Join(dir, "*.sql"))
    if err != nil { return nil, err }
    sort.Strings(files)
    return files, nil
}

// ListSegments returns the full attribute table.
func (p *Postgres) ListSegments(ctx context.Context) ([]model.RoadSegment, error) {
    rows, err := p.db.QueryContext(ctx, `SELECT id, name, bearing, hin_status, hin_rank, flood_zone, geometry::text, attrs::text FROM road_segments ORDER BY id`)
    if err != nil { return nil, err }
    defer rows.Close()
    var out []model.RoadSegment
    for rows.Next() {
        var (
            id                      string
            name, hin, flood        sql.NullString
            bearing, rank           sql.NullFloat64
            geomJSON, attrsJSON     sql.NullString
        )
        if err := rows.Scan(&id, &name, &bearing, &hin, &rank, &flood, &geomJSON, &attrsJSON); err != nil {
            return nil, err
        }
        seg := model.RoadSegment{
            ID:        id,
            Name:      name.String,
            Bearing:   nullFloat(bearing),
            HINStatus: nullString(hin),
            HINRank:   nullFloat(rank),
            FloodZone: nullString(flood),
        }
        if geomJSON.Valid {
            if g, err := geojson.UnmarshalGeometry([]byte(geomJSON.String)); err == nil {
                seg.Geometry = g.Geometry()
            }
        }
        if attrsJSON.Valid {
            _ = json.Unmarshal([]byte(attrsJSON.String), &seg.Attributes)
        }
        out = append(out, seg)
    }
    if err := rows.Err(); err != nil { return nil, err }
    if len(out) == 0 { return nil, ErrNoBaseData }
    return out, nil
}

// BuildGraph loads nodes within radiusMeters of the centre and the edges
// joining them.
func (p *Postgres) BuildGraph(ctx context.Context, centerLat, centerLon, radiusMeters float64) (*graph.Graph, error) {
    minLat, maxLat, minLon, maxLon := bbox(centerLat, centerLon, radiusMeters)
    rows, err := p.db.QueryContext(ctx, `SELECT id, lat, lon FROM road_nodes WHERE lat BETWEEN $1 AND $2 AND lon BETWEEN $3 AND $4`, minLat, maxLat, minLon, maxLon)
    if err != nil { return nil, err }
    g := graph.New()
    proj := graph.NewProjector(centerLat, centerLon)
    center := orb.Point{centerLon, centerLat}
    for rows.Next() {
        var id int64
        var lat, lon float64
        if err := rows.Scan(&id, &lat, &lon); err != nil { rows.Close(); return nil, err }
        pt := orb.Point{lon, lat}
        if radiusMeters > 0 && geo.Distance(center, pt) > radiusMeters { continue }
        g.AddNode(graph.Node{ID: model.NodeID(id), Geo: pt, Planar: proj.Project(pt)})
    }
    rows.Close()
    if err := rows.Err(); err != nil { return nil, err }
    if g.Len() == 0 {
        return nil, fmt.Errorf("no road nodes within %.0f m: %w", radiusMeters, ErrNoBaseData)
    }

    erows, err := p.db.QueryContext(ctx, `
        SELECT e.from_node, e.to_node, e.length_m
        FROM road_edges e
        JOIN road_nodes a ON a.id = e.from_node
        JOIN road_nodes b ON b.id = e.to_node
        WHERE a.lat BETWEEN $1 AND $2 AND a.lon BETWEEN $3 AND $4
          AND b.lat BETWEEN $1 AND $2 AND b.lon BETWEEN $3 AND $4`, minLat, maxLat, minLon, maxLon)
    if err != nil { return nil, err }
    defer erows.Close()
    for erows.Next() {
        var u, v int64
        var length float64
        if err := erows.Scan(&u, &v, &length); err != nil { return nil, err }
        if !g.Has(model.NodeID(u)) || !g.Has(model.NodeID(v)) { continue }
        if err := g.AddEdge(model.NodeID(u), model.NodeID(v), length); err != nil { return nil, err }
    }
    return g, erows.Err()
}

// ImportSegments replaces the attribute table.
func (p *Postgres) ImportSegments(ctx context.Context, segs []model.RoadSegment) (int, error) {
    tx, err := p.db.BeginTx(ctx, nil)
    if err != nil { return 0, err }
    defer func(){ _ = tx.Rollback() }()
    if _, err := tx.ExecContext(ctx, `DELETE FROM road_segments`); err != nil { return 0, err }
    stmt, err := tx.PrepareContext(ctx, `INSERT INTO road_segments (id, name, bearing, hin_status, hin_rank, flood_zone, geometry, attrs) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`)
    if err != nil { return 0, err }
    defer stmt.Close()
    for _, s := range segs {
        var geom any
        if s.Geometry != nil {
            b, err := geojson.NewGeometry(s.Geometry).MarshalJSON()
            if err != nil { return 0, err }
            geom = string(b)
        }
        if _, err := stmt.ExecContext(ctx, s.ID, nullIfEmpty(s.Name), s.Bearing, s.HINStatus, s.HINRank, s.FloodZone, geom, toJSON(s.Attributes)); err != nil {
            return 0, fmt.Errorf("segment %s: %w", s.ID, err)
        }
    }
    return len(segs), tx.Commit()
}

// ImportGraph replaces the network tables with g. Each undirected edge is stored once.
func (p *Postgres) ImportGraph(ctx context.Context, g *graph.Graph) (nodes, edges int, err error) {
    tx, err := p.db.BeginTx(ctx, nil)
    if err != nil { return 0, 0, err }
    defer func(){ _ = tx.Rollback() }()
    if _, err := tx.ExecContext(ctx, `DELETE FROM road_edges`); err != nil { return 0, 0, err }
    if _, err := tx.ExecContext(ctx, `DELETE FROM road_nodes`); err != nil { return 0, 0, err }
    for _, id := range g.NodeIDs() {
        n, _ := g.Node(id)
        if _, err := tx.ExecContext(ctx, `INSERT INTO road_nodes (id, lat, lon) VALUES ($1,$2,$3)`, int64(id), n.Geo.Lat(), n.Geo.Lon()); err != nil {
            return 0, 0, err
        }
        nodes++
    }
    for _, u := range g.NodeIDs() {
        for _, e := range g.Neighbors(u) {
            if e.To < u { continue }
            if _, err := tx.ExecContext(ctx, `INSERT INTO road_edges (from_node, to_node, length_m) VALUES ($1,$2,$3)`, int64(u), int64(e.To), e.Length); err != nil {
                return 0, 0, err
            }
            edges++
        }
    }
    return nodes, edges, tx.Commit()
}

func bbox(lat, lon, radiusMeters float64) (minLat, maxLat, minLon, maxLon float64) {
    off := radiusMeters / metersPerDegree
    return lat - off, lat + off, lon - off, lon + off
}

func nullFloat(v sql.NullFloat64) *float64 { if !v.Valid { return nil }; f := v.Float64; return &f }
func nullString(v sql.NullString) *string {
    if !v.Valid || strings.TrimSpace(v.String) == "" { return nil }
    s := v.String
    return &s
}
func nullIfEmpty(s string) any { if s == "" { return nil }; return s }
func toJSON(m map[string]any) any {
    if m == nil { return nil }
    b, err := json.Marshal(m)
    if err != nil { return nil }
    return string(b)
}
