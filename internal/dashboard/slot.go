package dashboard

import (
	"sync"

	"riskroute/internal/model"
)

// RouteSlot holds the route currently shown to dispatchers. It is replaced
// only by a successful synthesis and cleared on request.
type RouteSlot struct {
	mu  sync.RWMutex
	cur *model.SynthesizedRoute
}

func NewRouteSlot() *RouteSlot { return &RouteSlot{} }

func (s *RouteSlot) Get() (model.SynthesizedRoute, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.cur == nil {
		return model.SynthesizedRoute{}, false
	}
	return *s.cur, true
}

func (s *RouteSlot) Set(r model.SynthesizedRoute) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cur = &r
}

// Clear empties the slot and reports whether a route was present.
func (s *RouteSlot) Clear() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	had := s.cur != nil
	s.cur = nil
	return had
}
