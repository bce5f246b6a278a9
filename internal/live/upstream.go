// Package live fetches current weather and traffic incidents for the
// dashboard. Gateways never return errors: every failure degrades to an
// empty value and a warning log line.
package live

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"riskroute/internal/metrics"
)

// DefaultTimeout applies to every upstream request.
const DefaultTimeout = 10 * time.Second

var tracer = otel.Tracer("riskroute/live")

// GatewayConfig configures one upstream provider.
type GatewayConfig struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
	// RatePerSecond limits outgoing calls; 0 means 1/s with a burst of 5.
	RatePerSecond float64
	Client        *http.Client
	Logger        *zap.Logger
}

type upstream struct {
	name    string
	client  *http.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
	log     *zap.Logger
}

func newUpstream(name string, cfg GatewayConfig) *upstream {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	rps := cfg.RatePerSecond
	if rps <= 0 {
		rps = 1
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	log = log.With(zap.String("upstream", name))
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state changed", zap.String("from", from.String()), zap.String("to", to.String()))
		},
	})
	return &upstream{
		name:    name,
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(rps), 5),
		breaker: cb,
		log:     log,
	}
}

// getJSON issues a GET and decodes a 200 response into out. Any other
// status, transport error or decode error is a failure.
func (u *upstream) getJSON(ctx context.Context, target string, out any) error {
	ctx, span := tracer.Start(ctx, "live."+u.name)
	defer span.End()
	start := time.Now()
	defer func() {
		metrics.UpstreamLatency.WithLabelValues(u.name).Observe(float64(time.Since(start).Milliseconds()))
	}()

	if err := u.limiter.Wait(ctx); err != nil {
		return u.fail(span, "rate_limited", fmt.Errorf("rate limit: %w", err))
	}
	_, err := u.breaker.Execute(func() (any, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return nil, err
		}
		resp, err := u.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return nil, fmt.Errorf("status %d: %s", resp.StatusCode, snippet)
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return nil, fmt.Errorf("decode: %w", err)
		}
		return nil, nil
	})
	if err != nil {
		var ue *url.Error
		if errors.As(err, &ue) {
			ue.URL = redactURL(ue.URL)
		}
		outcome := "error"
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			outcome = "circuit_open"
		}
		return u.fail(span, outcome, err)
	}
	metrics.UpstreamRequests.WithLabelValues(u.name, "ok").Inc()
	return nil
}

func (u *upstream) fail(span trace.Span, outcome string, err error) error {
	metrics.UpstreamRequests.WithLabelValues(u.name, outcome).Inc()
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	u.log.Warn("upstream unavailable, degrading", zap.String("outcome", outcome), zap.Error(err))
	return err
}

// secretParams are the query parameters that carry provider API keys.
var secretParams = []string{"appid", "key"}

// redactURL masks API keys in raw so transport errors can be logged and traced.
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	q := u.Query()
	for _, p := range secretParams {
		if q.Has(p) {
			q.Set(p, "REDACTED")
		}
	}
	u.RawQuery = q.Encode()
	return u.String()
}
