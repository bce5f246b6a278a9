// Package events fans route and conditions events out to SSE and WebSocket
// subscribers, in process or across replicas via Redis pub/sub.
package events

import (
    "sync"
)

// Topics.
const (
    TopicRoutes = "routes"
)

// Event types.
const (
    RouteSynthesized = "route.synthesized"
    RouteCleared     = "route.cleared"
    RouteFailed      = "route.failed"
)

type Event struct {
    Type string         `json:"type"`
    Data map[string]any `json:"data"`
}

type Broker interface {
    Subscribe(topic string) chan Event
    Unsubscribe(topic string, ch chan Event)
    Publish(topic string, evt Event)
}

// Memory is the in-process broker.
type Memory struct {
    mu   sync.Mutex
    subs map[string]map[chan Event]struct{} // topic -> set of channels
}

func NewMemory() *Memory {
    return &Memory{subs: map[string]map[chan Event]struct{}{}}
}

func (b *Memory) Subscribe(topic string) chan Event {
    ch := make(chan Event, 8)
    b.mu.Lock()
    if b.subs[topic] == nil { b.subs[topic] = map[chan Event]struct{}{} }
    b.subs[topic][ch] = struct{}{}
    b.mu.Unlock()
    return ch
}

func (b *Memory) Unsubscribe(topic string, ch chan Event) {
    b.mu.Lock()
    m := b.subs[topic]
    _, ok := m[ch]
    if ok {
        delete(m, ch)
        if len(m) == 0 { delete(b.subs, topic) }
    }
    b.mu.Unlock()
    if ok { close(ch) }
}

// Publish never blocks; slow subscribers miss events.
func (b *Memory) Publish(topic string, evt Event) {
    b.mu.Lock()
    m := b.subs[topic]
    for ch := range m {
        select { case ch <- evt: default: }
    }
    b.mu.Unlock()
}
