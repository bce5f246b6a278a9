package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"riskroute/internal/events"
)

func writeSSE(w http.ResponseWriter, typ string, data any) {
	b, _ := json.Marshal(data)
	fmt.Fprintf(w, "event: %s\n", typ)
	fmt.Fprintf(w, "data: %s\n\n", b)
}

// EventStreamHandler streams route events as server-sent events with a
// periodic heartbeat until the client goes away.
func (s *Server) EventStreamHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	if s.Broker == nil {
		writeProblem(w, http.StatusServiceUnavailable, "Streaming unavailable", "no event broker configured", r.URL.Path)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeProblem(w, http.StatusInternalServerError, "Streaming unsupported", "", r.URL.Path)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := s.Broker.Subscribe(events.TopicRoutes)
	defer s.Broker.Unsubscribe(events.TopicRoutes, ch)

	heartbeat := func() {
		writeSSE(w, "heartbeat", map[string]string{"ts": time.Now().UTC().Format(time.RFC3339)})
		flusher.Flush()
	}
	heartbeat()

	ticker := time.NewTicker(s.heartbeat)
	defer ticker.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case evt, ok := <-ch:
			if !ok {
				return
			}
			writeSSE(w, evt.Type, evt.Data)
			flusher.Flush()
		case <-ticker.C:
			heartbeat()
		}
	}
}
