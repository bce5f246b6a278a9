// Package layers loads the static map overlays shown next to the scored
// road table: roundabouts and historical autonomy disengagements.
package layers

import (
    "fmt"
    "sort"
    "sync"

    "github.com/paulmach/orb/geojson"
    "go.uber.org/zap"
)

// Source loads one overlay as GeoJSON. A missing input yields an empty
// collection, not an error.
type Source interface {
    Name() string
    Load() (*geojson.FeatureCollection, error)
}

// Registry holds the loaded overlays by name.
type Registry struct {
    mu     sync.RWMutex
    layers map[string]*geojson.FeatureCollection
}

func NewRegistry() *Registry { return &Registry{layers: map[string]*geojson.FeatureCollection{}} }

// LoadAll loads every source. The first hard failure aborts.
func (r *Registry) LoadAll(log *zap.Logger, sources ...Source) error {
    if log == nil { log = zap.NewNop() }
    for _, s := range sources {
        fc, err := s.Load()
        if err != nil {
            return fmt.Errorf("layer %s: %w", s.Name(), err)
        }
        r.Put(s.Name(), fc)
        log.Info("layer loaded", zap.String("layer", s.Name()), zap.Int("features", len(fc.Features)))
    }
    return nil
}

func (r *Registry) Put(name string, fc *geojson.FeatureCollection) {
    if fc == nil { fc = geojson.NewFeatureCollection() }
    r.mu.Lock(); defer r.mu.Unlock()
    r.layers[name] = fc
}

// Get returns the named layer; unknown names report false.
func (r *Registry) Get(name string) (*geojson.FeatureCollection, bool) {
    r.mu.RLock(); defer r.mu.RUnlock()
    fc, ok := r.layers[name]
    return fc, ok
}

func (r *Registry) Names() []string {
    r.mu.RLock(); defer r.mu.RUnlock()
    out := make([]string, 0, len(r.layers))
    for k := range r.layers { out = append(out, k) }
    sort.Strings(out)
    return out
}
