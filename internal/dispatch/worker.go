package dispatch

import (
    "context"
    "time"

    "go.uber.org/zap"

    "riskroute/internal/model"
)

// Worker delivers manifests in the background so route generation never
// waits on the webhook.
type Worker struct {
    Sender *Sender
    queue  chan model.Manifest
    done   chan struct{}
}

func NewWorker(s *Sender, buffer int) *Worker {
    if buffer <= 0 { buffer = 16 }
    return &Worker{Sender: s, queue: make(chan model.Manifest, buffer), done: make(chan struct{})}
}

// Enqueue schedules m without blocking; a full queue drops it.
func (w *Worker) Enqueue(m model.Manifest) bool {
    if !w.Sender.Enabled() { return false }
    select {
    case w.queue <- m:
        return true
    default:
        w.Sender.Logger.Warn("dispatch queue full, manifest dropped", zap.String("route_id", m.RouteID))
        return false
    }
}

// Start drains the queue until ctx is cancelled.
func (w *Worker) Start(ctx context.Context) {
    go func() {
        defer close(w.done)
        for {
            select {
            case <-ctx.Done():
                return
            case m := <-w.queue:
                sctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
                if err := w.Sender.Send(sctx, m); err != nil {
                    w.Sender.Logger.Error("manifest undeliverable", zap.String("route_id", m.RouteID), zap.Error(err))
                }
                cancel()
            }
        }
    }()
}

// Wait blocks until the worker goroutine has exited.
func (w *Worker) Wait() { <-w.done }
