// Package main runs a demo WebSocket client: it subscribes to route events,
// asks the API for a new loop and prints what the stream delivers.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"riskroute/internal/logging"
)

type wsMessage struct {
	Type    string          `json:"type"`
	ID      string          `json:"id,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

func main() {
	minutes := flag.Int("minutes", 60, "route duration: 30, 60, 120 or 240")
	wait := flag.Duration("wait", 3*time.Second, "how long to listen after generating")
	flag.Parse()

	log, err := logging.New("info", "console")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	base := fmt.Sprintf("http://localhost:%s", port)

	u := url.URL{Scheme: "ws", Host: "localhost:" + port, Path: "/v1/ws"}
	c, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatal("dial", zap.Error(err))
	}
	defer func() { _ = c.Close() }()

	if err := c.WriteJSON(wsMessage{Type: "connection_init"}); err != nil {
		log.Fatal("init", zap.Error(err))
	}
	if err := c.WriteJSON(wsMessage{Type: "subscribe", ID: "1", Payload: json.RawMessage(`{"topic":"routes"}`)}); err != nil {
		log.Fatal("subscribe", zap.Error(err))
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var m wsMessage
			if err := c.ReadJSON(&m); err != nil {
				log.Info("stream closed", zap.Error(err))
				return
			}
			if m.Type == "ping" {
				continue
			}
			log.Info("ws message", zap.String("type", m.Type), zap.ByteString("payload", m.Payload))
		}
	}()

	time.Sleep(300 * time.Millisecond)
	body, _ := json.Marshal(map[string]int{"durationMinutes": *minutes})
	resp, err := http.Post(base+"/v1/routes", "application/json", bytes.NewReader(body))
	if err != nil {
		log.Fatal("generate", zap.Error(err))
	}
	var rt struct {
		ID                 string  `json:"id"`
		Status             string  `json:"status"`
		TotalDistanceMiles float64 `json:"totalDistanceMiles"`
		Detail             string  `json:"detail"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&rt)
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		log.Fatal("generate rejected", zap.Int("status", resp.StatusCode), zap.String("detail", rt.Detail))
	}
	log.Info("route generated", zap.String("id", rt.ID), zap.String("status", rt.Status), zap.Float64("miles", rt.TotalDistanceMiles))

	select {
	case <-time.After(*wait):
	case <-done:
	}
}
