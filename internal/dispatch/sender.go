package dispatch

import (
    "bytes"
    "context"
    "crypto/hmac"
    "crypto/sha256"
    "encoding/hex"
    "encoding/json"
    "fmt"
    "net/http"
    "strconv"
    "strings"
    "time"

    "go.uber.org/zap"

    "riskroute/internal/metrics"
    "riskroute/internal/model"
)

// Sender POSTs manifests to a webhook with bounded exponential backoff.
type Sender struct {
    URL         string
    Secret      string
    HTTP        *http.Client
    MaxAttempts int
    BaseBackoff time.Duration
    Logger      *zap.Logger

    sleep func(context.Context, time.Duration) error
    now   func() time.Time
}

func NewSender(url, secret string, logger *zap.Logger) *Sender {
    if logger == nil { logger = zap.NewNop() }
    return &Sender{
        URL: url, Secret: secret,
        HTTP: &http.Client{Timeout: 5 * time.Second},
        MaxAttempts: 5,
        BaseBackoff: time.Second,
        Logger: logger,
    }
}

// Enabled reports whether a webhook URL is configured.
func (s *Sender) Enabled() bool { return s != nil && s.URL != "" }

// Send delivers m, retrying on transport errors and non-2xx responses.
func (s *Sender) Send(ctx context.Context, m model.Manifest) error {
    if !s.Enabled() { return nil }
    body, err := json.Marshal(m)
    if err != nil { return err }
    max := s.MaxAttempts
    if max <= 0 { max = 1 }
    var lastErr error
    for attempt := 0; attempt < max; attempt++ {
        if attempt > 0 {
            if err := s.wait(ctx, nextBackoff(s.BaseBackoff, attempt-1)); err != nil { return err }
        }
        code, err := s.post(ctx, body)
        if err == nil { return nil }
        lastErr = err
        s.Logger.Warn("manifest delivery failed", zap.String("route_id", m.RouteID), zap.Int("attempt", attempt+1), zap.Int("status", code), zap.Error(err))
        if code >= 400 && code < 500 && code != http.StatusTooManyRequests { break }
    }
    metrics.DispatchDeliveries.WithLabelValues("dead").Inc()
    return fmt.Errorf("deliver manifest %s: %w", m.RouteID, lastErr)
}

func (s *Sender) post(ctx context.Context, body []byte) (int, error) {
    req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.URL, bytes.NewReader(body))
    if err != nil { return 0, err }
    req.Header.Set("Content-Type", "application/json")
    req.Header.Set("X-Event-Type", EventType)
    if s.Secret != "" {
        ts := strconv.FormatInt(s.clock().Unix(), 10)
        req.Header.Set("X-Signature-Timestamp", ts)
        req.Header.Set("X-Signature", signaturePrefix+signManifest(s.Secret, ts, body))
    }
    client := s.HTTP
    if client == nil { client = http.DefaultClient }
    start := time.Now()
    resp, err := client.Do(req)
    latency := float64(time.Since(start).Milliseconds())
    if err != nil {
        metrics.DispatchDeliveries.WithLabelValues("error").Inc()
        metrics.DispatchLatency.WithLabelValues("error").Observe(latency)
        return 0, err
    }
    _ = resp.Body.Close()
    status := strconv.Itoa(resp.StatusCode)
    metrics.DispatchDeliveries.WithLabelValues(status).Inc()
    metrics.DispatchLatency.WithLabelValues(status).Observe(latency)
    if resp.StatusCode < 200 || resp.StatusCode >= 300 {
        return resp.StatusCode, fmt.Errorf("webhook responded %d", resp.StatusCode)
    }
    return resp.StatusCode, nil
}

func (s *Sender) clock() time.Time {
    if s.now != nil { return s.now() }
    return time.Now()
}

const signaturePrefix = "sha256="

// signManifest is the hex HMAC-SHA256 of "<timestamp>.<body>"; binding the
// timestamp lets receivers reject replays.
func signManifest(secret, ts string, body []byte) string {
    mac := hmac.New(sha256.New, []byte(secret))
    mac.Write([]byte(ts))
    mac.Write([]byte{'.'})
    mac.Write(body)
    return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks the X-Signature and X-Signature-Timestamp headers of
// a received manifest. Receivers should also bound the timestamp's age.
func VerifySignature(secret, ts string, body []byte, header string) bool {
    got, ok := strings.CutPrefix(header, signaturePrefix)
    if !ok || ts == "" { return false }
    want, err := hex.DecodeString(got)
    if err != nil { return false }
    exp, _ := hex.DecodeString(signManifest(secret, ts, body))
    return hmac.Equal(want, exp)
}

func (s *Sender) wait(ctx context.Context, d time.Duration) error {
    if s.sleep != nil { return s.sleep(ctx, d) }
    t := time.NewTimer(d)
    defer t.Stop()
    select {
    case <-ctx.Done():
        return ctx.Err()
    case <-t.C:
        return nil
    }
}

func nextBackoff(base time.Duration, attempts int) time.Duration {
    if base <= 0 { base = time.Second }
    if attempts < 0 { attempts = 0 }
    if attempts > 10 { attempts = 10 }
    d := base * time.Duration(1<<attempts)
    if d > time.Hour { d = time.Hour }
    return d
}
