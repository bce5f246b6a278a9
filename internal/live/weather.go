package live

import (
	"context"
	"net/url"
	"strconv"
	"time"

	"riskroute/internal/model"
)

const (
	defaultWeatherURL = "https://api.openweathermap.org/data/2.5/weather"
	defaultVisibility = 10000.0
)

// WeatherGateway reads current conditions from OpenWeather.
type WeatherGateway struct {
	apiKey  string
	baseURL string
	up      *upstream
	// Now is the clock used for the solar position.
	Now func() time.Time
}

func NewWeatherGateway(cfg GatewayConfig) *WeatherGateway {
	base := cfg.BaseURL
	if base == "" {
		base = defaultWeatherURL
	}
	return &WeatherGateway{apiKey: cfg.APIKey, baseURL: base, up: newUpstream("openweather", cfg), Now: time.Now}
}

type owmResponse struct {
	Main *struct {
		Temp *float64 `json:"temp"`
	} `json:"main"`
	Weather []struct {
		Main string `json:"main"`
	} `json:"weather"`
	Visibility *float64 `json:"visibility"`
}

// Fetch returns nil when the key is missing or the provider is unavailable.
func (w *WeatherGateway) Fetch(ctx context.Context, lat, lon float64) *model.WeatherSnapshot {
	if w.apiKey == "" {
		w.up.log.Warn("OPENWEATHER_API_KEY missing, weather unavailable")
		return nil
	}
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	q.Set("appid", w.apiKey)
	q.Set("units", "imperial")

	var body owmResponse
	if err := w.up.getJSON(ctx, w.baseURL+"?"+q.Encode(), &body); err != nil {
		return nil
	}
	if body.Main == nil || body.Main.Temp == nil || len(body.Weather) == 0 {
		w.up.log.Warn("malformed weather payload, weather unavailable")
		return nil
	}
	visibility := defaultVisibility
	if body.Visibility != nil {
		visibility = *body.Visibility
	}
	now := w.Now()
	alt, az := SolarPosition(lat, lon, now)
	return &model.WeatherSnapshot{
		TemperatureF:     *body.Main.Temp,
		Conditions:       body.Weather[0].Main,
		VisibilityMeters: visibility,
		SolarAltitude:    round2(alt),
		SolarAzimuth:     round2(az),
		ObservedAt:       now.UTC(),
	}
}
