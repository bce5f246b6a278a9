package live

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"riskroute/internal/metrics"
	"riskroute/internal/model"
)

const (
	// DashboardLat and DashboardLon locate the live-data feed (downtown Tampa).
	DashboardLat = 27.9506
	DashboardLon = -82.4572

	TrafficRadiusMeters = 10000.0
	DefaultTTL          = 5 * time.Minute
	// DefaultFetchTimeout bounds one shared refresh of both feeds.
	DefaultFetchTimeout = 15 * time.Second
)

type WeatherFetcher interface {
	Fetch(ctx context.Context, lat, lon float64) *model.WeatherSnapshot
}

type TrafficFetcher interface {
	Fetch(ctx context.Context, lat, lon, radiusMeters float64) []model.TrafficIncident
}

// Service serves cached live conditions for one fixed location.
type Service struct {
	Weather       WeatherFetcher
	Traffic       TrafficFetcher
	Cache         Cache
	Lat, Lon      float64
	TrafficRadius float64
	TTL           time.Duration
	FetchTimeout  time.Duration
	Now           func() time.Time
	Logger        *zap.Logger

	group singleflight.Group
}

func NewService(w WeatherFetcher, t TrafficFetcher, c Cache, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if c == nil {
		c = NewMemoryCache(DefaultTTL)
	}
	return &Service{
		Weather: w, Traffic: t, Cache: c,
		Lat: DashboardLat, Lon: DashboardLon,
		TrafficRadius: TrafficRadiusMeters,
		TTL:           DefaultTTL,
		FetchTimeout:  DefaultFetchTimeout,
		Now:           time.Now,
		Logger:        logger,
	}
}

func (s *Service) key() string { return fmt.Sprintf("live:%.4f:%.4f", s.Lat, s.Lon) }

// Conditions returns the cached snapshot or fetches both feeds concurrently.
// Concurrent misses share one upstream fetch, which runs detached from the
// caller's cancellation so an abandoned request cannot cache empty feeds.
func (s *Service) Conditions(ctx context.Context) model.LiveConditions {
	key := s.key()
	if lc, ok := s.Cache.Get(ctx, key); ok {
		metrics.LiveCacheLookups.WithLabelValues("hit").Inc()
		return lc
	}
	metrics.LiveCacheLookups.WithLabelValues("miss").Inc()
	v, _, _ := s.group.Do(key, func() (any, error) {
		timeout := s.FetchTimeout
		if timeout <= 0 {
			timeout = DefaultFetchTimeout
		}
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
		defer cancel()
		lc := s.fetch(fctx)
		if fctx.Err() != nil || ctx.Err() != nil {
			s.Logger.Warn("live refresh interrupted, not caching", zap.NamedError("fetch", fctx.Err()), zap.NamedError("caller", ctx.Err()))
			return lc, nil
		}
		s.Cache.Set(fctx, key, lc, s.TTL)
		return lc, nil
	})
	return v.(model.LiveConditions)
}

func (s *Service) fetch(ctx context.Context) model.LiveConditions {
	lc := model.LiveConditions{Incidents: []model.TrafficIncident{}, FetchedAt: s.Now().UTC()}
	g, gctx := errgroup.WithContext(ctx)
	if s.Weather != nil {
		g.Go(func() error {
			lc.Weather = s.Weather.Fetch(gctx, s.Lat, s.Lon)
			return nil
		})
	}
	if s.Traffic != nil {
		g.Go(func() error {
			if inc := s.Traffic.Fetch(gctx, s.Lat, s.Lon, s.TrafficRadius); inc != nil {
				lc.Incidents = inc
			}
			return nil
		})
	}
	_ = g.Wait()
	if lc.Weather == nil {
		s.Logger.Warn("weather unavailable, scoring on the dry path")
	}
	return lc
}
