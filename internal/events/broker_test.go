package events

import (
    "testing"
    "time"
)

func TestBrokerPublishSubscribe(t *testing.T) {
    b := NewMemory()
    ch := b.Subscribe(TopicRoutes)

    evt := Event{Type: RouteSynthesized, Data: map[string]any{"x": 1}}
    b.Publish(TopicRoutes, evt)
    b.Publish("other", Event{Type: "ignored"})

    select {
    case got := <-ch:
        if got.Type != evt.Type { t.Fatalf("got type %s, want %s", got.Type, evt.Type) }
        if got.Data["x"].(int) != 1 { t.Fatalf("bad payload: %+v", got.Data) }
    case <-time.After(200 * time.Millisecond):
        t.Fatal("timeout waiting for event")
    }

    b.Unsubscribe(TopicRoutes, ch)
    if _, ok := <-ch; ok { t.Fatal("channel should be closed after unsubscribe") }
    // second unsubscribe must not panic on a closed channel
    b.Unsubscribe(TopicRoutes, ch)
}

func TestBrokerDropsForSlowSubscriber(t *testing.T) {
    b := NewMemory()
    ch := b.Subscribe(TopicRoutes)
    defer b.Unsubscribe(TopicRoutes, ch)
    for i := 0; i < 100; i++ {
        b.Publish(TopicRoutes, Event{Type: RouteSynthesized})
    }
    if len(ch) != cap(ch) { t.Fatalf("buffer should be full, len=%d cap=%d", len(ch), cap(ch)) }
}
