package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

const roadsFixture = `{"type":"FeatureCollection","features":[
 {"type":"Feature","id":"a","geometry":{"type":"LineString","coordinates":[[-82.4600,28.0543],[-82.4590,28.0543]]},
  "properties":{"NAME":"Fowler Ave","bearing":90,"hinHIN_Status":"HIN","hinRank":500,"fld_FLD":"FLOOD_AE/A"}},
 {"type":"Feature","geometry":{"type":"LineString","coordinates":[[-82.4590,28.0543],[-82.4590,28.0553]]},
  "properties":{"OBJECTID":7,"bearing":"0","hinHIN_Status":null,"fld_FLD":"X"}},
 {"type":"Feature","geometry":{"type":"LineString","coordinates":[[-82.4590,28.0553],[-82.4600,28.0553]]},
  "properties":{"bearing":"n/a","hinHIN_Status":""}}
]}`

func writeFixture(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "roads.geojson")
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoadMemorySegments(t *testing.T) {
	m, err := LoadMemory(writeFixture(t, roadsFixture), "", nil)
	if err != nil {
		t.Fatalf("LoadMemory: %v", err)
	}
	segs, err := m.ListSegments(context.Background())
	if err != nil {
		t.Fatalf("ListSegments: %v", err)
	}
	if len(segs) != 3 {
		t.Fatalf("segments = %d", len(segs))
	}
	a := segs[0]
	if a.ID != "a" || a.Name != "Fowler Ave" || a.Bearing == nil || *a.Bearing != 90 {
		t.Fatalf("unexpected first segment %+v", a)
	}
	if a.HINStatus == nil || *a.HINStatus != "HIN" || a.HINRank == nil || *a.HINRank != 500 {
		t.Fatalf("hin attributes lost: %+v", a)
	}
	if a.FloodZone == nil || *a.FloodZone != "FLOOD_AE/A" {
		t.Fatalf("flood zone lost")
	}
	b := segs[1]
	if b.ID != "7" || b.HINStatus != nil || b.Bearing == nil || *b.Bearing != 0 {
		t.Fatalf("unexpected second segment %+v", b)
	}
	c := segs[2]
	if c.ID != "seg-2" || c.Bearing != nil || c.HINStatus != nil {
		t.Fatalf("unexpected third segment %+v", c)
	}
}

func TestLoadMemoryUsesRoadsAsNetwork(t *testing.T) {
	m, err := LoadMemory(writeFixture(t, roadsFixture), filepath.Join(t.TempDir(), "missing.geojson"), nil)
	if err != nil {
		t.Fatalf("LoadMemory: %v", err)
	}
	g, err := m.BuildGraph(context.Background(), 28.0543, -82.4597, 3000)
	if err != nil {
		t.Fatalf("BuildGraph: %v", err)
	}
	if g.Len() != 4 || g.EdgeCount() != 3 {
		t.Fatalf("graph %d nodes %d edges", g.Len(), g.EdgeCount())
	}
	if _, err := m.BuildGraph(context.Background(), 0, 0, 3000); !errors.Is(err, ErrNoBaseData) {
		t.Fatalf("far away centre: want ErrNoBaseData, got %v", err)
	}
}

func TestLoadMemoryMissingFiles(t *testing.T) {
	m, err := LoadMemory(filepath.Join(t.TempDir(), "nope.geojson"), "", nil)
	if err != nil {
		t.Fatalf("missing files must not fail: %v", err)
	}
	if _, err := m.ListSegments(context.Background()); !errors.Is(err, ErrNoBaseData) {
		t.Fatalf("want ErrNoBaseData, got %v", err)
	}
	if _, err := m.BuildGraph(context.Background(), 28, -82, 3000); !errors.Is(err, ErrNoBaseData) {
		t.Fatalf("want ErrNoBaseData, got %v", err)
	}
}

func TestLoadMemoryMalformed(t *testing.T) {
	if _, err := LoadMemory(writeFixture(t, `{"type":`), "", nil); err == nil {
		t.Fatalf("malformed geojson accepted")
	}
}

func TestListSegmentsReturnsCopy(t *testing.T) {
	m, _ := LoadMemory(writeFixture(t, roadsFixture), "", nil)
	segs, _ := m.ListSegments(context.Background())
	segs[0].ID = "mutated"
	again, _ := m.ListSegments(context.Background())
	if again[0].ID != "a" {
		t.Fatalf("store state leaked")
	}
}
