package live

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"riskroute/internal/model"
)

var fixedNow = time.Date(2024, 6, 20, 11, 30, 0, 0, time.UTC)

func weatherServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "imperial", r.URL.Query().Get("units"))
		assert.Equal(t, "k", r.URL.Query().Get("appid"))
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestWeatherGateway_Parses(t *testing.T) {
	srv := weatherServer(t, 200, `{"main":{"temp":88.5},"weather":[{"main":"Rain"}],"visibility":4000}`)
	g := NewWeatherGateway(GatewayConfig{APIKey: "k", BaseURL: srv.URL})
	g.Now = func() time.Time { return fixedNow }

	w := g.Fetch(context.Background(), DashboardLat, DashboardLon)
	require.NotNil(t, w)
	assert.Equal(t, 88.5, w.TemperatureF)
	assert.Equal(t, "Rain", w.Conditions)
	assert.Equal(t, 4000.0, w.VisibilityMeters)
	alt, az := SolarPosition(DashboardLat, DashboardLon, fixedNow)
	assert.Equal(t, round2(alt), w.SolarAltitude)
	assert.Equal(t, round2(az), w.SolarAzimuth)
}

func TestWeatherGateway_DefaultVisibility(t *testing.T) {
	srv := weatherServer(t, 200, `{"main":{"temp":70},"weather":[{"main":"Clear"}]}`)
	w := NewWeatherGateway(GatewayConfig{APIKey: "k", BaseURL: srv.URL}).Fetch(context.Background(), 0, 0)
	require.NotNil(t, w)
	assert.Equal(t, 10000.0, w.VisibilityMeters)
}

func TestWeatherGateway_Degrades(t *testing.T) {
	cases := map[string]struct {
		status int
		body   string
	}{
		"non-200":       {500, `oops`},
		"not json":      {200, `<html>`},
		"missing main":  {200, `{"weather":[{"main":"Clear"}]}`},
		"empty weather": {200, `{"main":{"temp":70},"weather":[]}`},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			srv := weatherServer(t, tc.status, tc.body)
			assert.Nil(t, NewWeatherGateway(GatewayConfig{APIKey: "k", BaseURL: srv.URL}).Fetch(context.Background(), 0, 0))
		})
	}
	assert.Nil(t, NewWeatherGateway(GatewayConfig{}).Fetch(context.Background(), 0, 0), "missing key")
}

func TestWeatherGateway_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	g := NewWeatherGateway(GatewayConfig{APIKey: "k", BaseURL: srv.URL, Timeout: 50 * time.Millisecond})
	start := time.Now()
	assert.Nil(t, g.Fetch(context.Background(), 0, 0))
	assert.Less(t, time.Since(start), 5*time.Second)
}

const tomtomBody = `{"incidents":[
 {"type":"Feature","geometry":{"type":"LineString","coordinates":[[-82.45,27.95],[-82.46,27.96]]},"properties":{"iconCategory":1,"magnitudeOfDelay":3}},
 {"type":"Feature","geometry":{"type":"Point","coordinates":[-82.40,27.90]},"properties":{"iconCategory":8,"magnitudeOfDelay":4}},
 {"type":"Feature","geometry":{"type":"Point","coordinates":[-82.41,27.91]},"properties":{"iconCategory":6,"magnitudeOfDelay":1}},
 {"type":"Feature","geometry":{"type":"Point","coordinates":[-82.42,27.92]},"properties":{"magnitudeOfDelay":2}}
]}`

func TestTrafficGateway_FiltersSignificant(t *testing.T) {
	var bbox string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		bbox = r.URL.Query().Get("bbox")
		_, _ = w.Write([]byte(tomtomBody))
	}))
	defer srv.Close()

	got := NewTrafficGateway(GatewayConfig{APIKey: "k", BaseURL: srv.URL}).Fetch(context.Background(), 28, -82, 11100)
	require.Len(t, got, 3)
	assert.Equal(t, "Accident", got[0].Category)
	assert.Equal(t, 3, got[0].Magnitude)
	assert.Len(t, got[0].Coordinates, 2)
	assert.Equal(t, "Road Closed", got[1].Category)
	p, ok := got[1].FirstPoint()
	require.True(t, ok)
	assert.Equal(t, -82.40, p.Lon())
	assert.Equal(t, "Unknown", got[2].Category)
	assert.Equal(t, "-82.100000,27.900000,-81.900000,28.100000", bbox)
}

func TestTrafficGateway_Degrades(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	}))
	defer srv.Close()

	got := NewTrafficGateway(GatewayConfig{APIKey: "k", BaseURL: srv.URL}).Fetch(context.Background(), 0, 0, 1000)
	assert.NotNil(t, got)
	assert.Empty(t, got)
	assert.Empty(t, NewTrafficGateway(GatewayConfig{}).Fetch(context.Background(), 0, 0, 1000))
}

func TestSolarPosition(t *testing.T) {
	// equinox, solar noon on the equator: sun nearly overhead
	alt, _ := SolarPosition(0, 0, time.Date(2024, 3, 20, 12, 7, 0, 0, time.UTC))
	assert.Greater(t, alt, 88.0)

	// Tampa, shortly after a June sunrise: low in the east-north-east
	alt, az := SolarPosition(DashboardLat, DashboardLon, fixedNow)
	assert.Greater(t, alt, 0.0)
	assert.Less(t, alt, 20.0)
	assert.Greater(t, az, 55.0)
	assert.Less(t, az, 80.0)

	// Tampa, local midnight
	alt, _ = SolarPosition(DashboardLat, DashboardLon, time.Date(2024, 6, 21, 4, 0, 0, 0, time.UTC))
	assert.Less(t, alt, 0.0)

	// Tampa, late afternoon in winter: sun in the south-west
	_, az = SolarPosition(DashboardLat, DashboardLon, time.Date(2024, 12, 21, 21, 0, 0, 0, time.UTC))
	assert.Greater(t, az, 200.0)
	assert.Less(t, az, 250.0)

	// refraction lifts the horizon by about half a degree and vanishes overhead
	assert.InDelta(t, 0.48, refraction(0), 0.01)
	assert.InDelta(t, 0.0, refraction(89), 1e-9)
	assert.Less(t, refraction(30), refraction(10))
}

type countingWeather struct{ calls atomic.Int32 }

func (c *countingWeather) Fetch(context.Context, float64, float64) *model.WeatherSnapshot {
	c.calls.Add(1)
	return &model.WeatherSnapshot{Conditions: "Clear"}
}

type stubTraffic []model.TrafficIncident

func (s stubTraffic) Fetch(context.Context, float64, float64, float64) []model.TrafficIncident {
	return s
}

func TestService_CachesForTTL(t *testing.T) {
	w := &countingWeather{}
	svc := NewService(w, stubTraffic{{Category: "Jam", Magnitude: 2}}, NewMemoryCache(time.Minute), nil)
	svc.Now = func() time.Time { return fixedNow }

	a := svc.Conditions(context.Background())
	b := svc.Conditions(context.Background())
	assert.Equal(t, int32(1), w.calls.Load())
	assert.Equal(t, a, b)
	require.NotNil(t, a.Weather)
	assert.Equal(t, "Clear", a.Weather.Conditions)
	assert.Len(t, a.Incidents, 1)
	assert.Equal(t, fixedNow, a.FetchedAt)
}

func TestService_ExpiredEntryRefetches(t *testing.T) {
	w := &countingWeather{}
	svc := NewService(w, nil, NewMemoryCache(time.Minute), nil)
	svc.TTL = 10 * time.Millisecond
	svc.Conditions(context.Background())
	time.Sleep(30 * time.Millisecond)
	lc := svc.Conditions(context.Background())
	assert.Equal(t, int32(2), w.calls.Load())
	assert.NotNil(t, lc.Incidents)
}

func TestService_NilFeedsDegrade(t *testing.T) {
	svc := NewService(nil, nil, nil, nil)
	lc := svc.Conditions(context.Background())
	assert.Nil(t, lc.Weather)
	assert.Empty(t, lc.Incidents)
}

func TestService_CancelledCallerDoesNotCacheEmptyFeeds(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"main":{"temp":80},"weather":[{"main":"Rain"}],"visibility":3000}`))
	}))
	defer srv.Close()

	svc := NewService(NewWeatherGateway(GatewayConfig{APIKey: "k", BaseURL: srv.URL}), nil, NewMemoryCache(time.Minute), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	first := svc.Conditions(ctx)
	require.NotNil(t, first.Weather, "shared fetch must not inherit the caller's cancellation")
	assert.Equal(t, "Rain", first.Weather.Conditions)

	next := svc.Conditions(context.Background())
	require.NotNil(t, next.Weather)
	assert.Equal(t, "Rain", next.Weather.Conditions)
	assert.Equal(t, int32(2), calls.Load(), "a cancelled caller's result is not cached")

	svc.Conditions(context.Background())
	assert.Equal(t, int32(2), calls.Load())
}

func TestUpstreamErrorsRedactKeys(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	base := srv.URL
	srv.Close()

	w := NewWeatherGateway(GatewayConfig{APIKey: "SECRET-KEY-123", BaseURL: base, Logger: zap.New(core)})
	assert.Nil(t, w.Fetch(context.Background(), 1, 2))
	tr := NewTrafficGateway(GatewayConfig{APIKey: "SECRET-KEY-456", BaseURL: base, Logger: zap.New(core)})
	assert.Empty(t, tr.Fetch(context.Background(), 1, 2, 1000))

	entries := logs.FilterMessage("upstream unavailable, degrading").All()
	require.Len(t, entries, 2)
	for _, e := range entries {
		msg := e.ContextMap()["error"].(string)
		assert.NotContains(t, msg, "SECRET-KEY")
		assert.Contains(t, msg, "REDACTED")
	}
}

func TestRedactURL(t *testing.T) {
	got := redactURL("https://api.example.com/x?appid=a1&lat=1&key=k2")
	assert.NotContains(t, got, "a1")
	assert.NotContains(t, got, "k2")
	assert.Contains(t, got, "lat=1")
	assert.Equal(t, "%zz", redactURL("%zz"))
}
