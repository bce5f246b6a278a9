// Package config loads service settings from defaults, an optional YAML
// file, a .env file and the environment, in increasing priority.
package config

import (
    "errors"
    "fmt"
    "os"
    "strconv"
    "strings"
    "time"

    "github.com/go-playground/validator/v10"
    "github.com/joho/godotenv"
    "gopkg.in/yaml.v3"
)

type Depot struct {
    Name string  `yaml:"name"`
    Lat  float64 `yaml:"lat" validate:"gte=-90,lte=90"`
    Lon  float64 `yaml:"lon" validate:"gte=-180,lte=180"`
}

type Config struct {
    Port           int    `yaml:"port" validate:"min=1,max=65535"`
    DatabaseURL    string `yaml:"databaseUrl"`
    MigrateOnStart bool   `yaml:"migrateOnStart"`
    RedisURL       string `yaml:"redisUrl"`

    OpenWeatherAPIKey string        `yaml:"openWeatherApiKey"`
    TomTomAPIKey      string        `yaml:"tomTomApiKey"`
    LiveCacheTTL      time.Duration `yaml:"liveCacheTtl" validate:"gt=0"`
    UpstreamTimeout   time.Duration `yaml:"upstreamTimeout" validate:"gt=0"`

    RoadsGeoJSON       string `yaml:"roadsGeojson"`
    NetworkGeoJSON     string `yaml:"networkGeojson"`
    RoundaboutsGeoJSON string `yaml:"roundaboutsGeojson"`
    DisengagementsCSV  string `yaml:"disengagementsCsv"`

    DispatchWebhookURL string `yaml:"dispatchWebhookUrl" validate:"omitempty,url"`
    DispatchSecret     string `yaml:"dispatchSecret"`

    AuthMode       string `yaml:"authMode" validate:"omitempty,oneof=none hmac"`
    AuthHMACSecret string `yaml:"authHmacSecret" validate:"required_if=AuthMode hmac"`

    LogLevel     string   `yaml:"logLevel" validate:"omitempty,oneof=debug info warn warning error"`
    LogFormat    string   `yaml:"logFormat" validate:"omitempty,oneof=json console"`
    OTLPEndpoint string   `yaml:"otlpEndpoint"`
    AllowOrigins []string `yaml:"allowOrigins"`

    Depot Depot `yaml:"depot"`
}

// Defaults match a local run with the bundled sample data.
func Defaults() Config {
    return Config{
        Port:               8080,
        MigrateOnStart:     true,
        LiveCacheTTL:       5 * time.Minute,
        UpstreamTimeout:    10 * time.Second,
        RoadsGeoJSON:       "data/tampa_roads_scored.geojson",
        RoundaboutsGeoJSON: "data/median_type_roundabout.geojson",
        DisengagementsCSV:  "data/mock_fsd_disengagements.csv",
        AuthMode:           "none",
        LogLevel:           "info",
        LogFormat:          "json",
        AllowOrigins:       []string{"*"},
        Depot:              Depot{Name: "Tampa depot", Lat: 28.0543, Lon: -82.4597},
    }
}

// Load resolves the configuration. path may be empty; CONFIG_FILE is then
// consulted. A missing .env is not an error, a missing YAML file is.
func Load(path string) (Config, error) {
    cfg := Defaults()
    if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
        return cfg, fmt.Errorf("load .env: %w", err)
    }
    if path == "" { path = os.Getenv("CONFIG_FILE") }
    if path != "" {
        b, err := os.ReadFile(path)
        if err != nil { return cfg, fmt.Errorf("read config: %w", err) }
        if err := yaml.Unmarshal(b, &cfg); err != nil {
            return cfg, fmt.Errorf("parse %s: %w", path, err)
        }
    }
    if err := applyEnv(&cfg); err != nil { return cfg, err }
    if err := cfg.Validate(); err != nil { return cfg, err }
    return cfg, nil
}

var validate = validator.New()

func (c Config) Validate() error {
    if err := validate.Struct(c); err != nil {
        return fmt.Errorf("invalid config: %w", err)
    }
    return nil
}

func applyEnv(c *Config) error {
    str := func(key string, dst *string) {
        if v, ok := os.LookupEnv(key); ok { *dst = strings.TrimSpace(v) }
    }
    str("DATABASE_URL", &c.DatabaseURL)
    str("REDIS_URL", &c.RedisURL)
    str("OPENWEATHER_API_KEY", &c.OpenWeatherAPIKey)
    str("TOMTOM_API_KEY", &c.TomTomAPIKey)
    str("ROADS_GEOJSON", &c.RoadsGeoJSON)
    str("NETWORK_GEOJSON", &c.NetworkGeoJSON)
    str("ROUNDABOUTS_GEOJSON", &c.RoundaboutsGeoJSON)
    str("DISENGAGEMENTS_CSV", &c.DisengagementsCSV)
    str("DISPATCH_WEBHOOK_URL", &c.DispatchWebhookURL)
    str("DISPATCH_SECRET", &c.DispatchSecret)
    str("AUTH_MODE", &c.AuthMode)
    str("AUTH_HMAC_SECRET", &c.AuthHMACSecret)
    str("LOG_LEVEL", &c.LogLevel)
    str("LOG_FORMAT", &c.LogFormat)
    str("OTEL_EXPORTER_OTLP_ENDPOINT", &c.OTLPEndpoint)

    if v := os.Getenv("PORT"); v != "" {
        n, err := strconv.Atoi(v)
        if err != nil { return fmt.Errorf("PORT: %w", err) }
        c.Port = n
    }
    if v := os.Getenv("DB_MIGRATE"); v != "" {
        c.MigrateOnStart = v != "false"
    }
    if v := os.Getenv("LIVE_CACHE_TTL"); v != "" {
        d, err := time.ParseDuration(v)
        if err != nil { return fmt.Errorf("LIVE_CACHE_TTL: %w", err) }
        c.LiveCacheTTL = d
    }
    if v := os.Getenv("ALLOW_ORIGINS"); v != "" {
        var origins []string
        for _, o := range strings.Split(v, ",") {
            if o = strings.TrimSpace(o); o != "" { origins = append(origins, o) }
        }
        c.AllowOrigins = origins
    }
    return nil
}

// Addr is the listen address for the HTTP server.
func (c Config) Addr() string { return ":" + strconv.Itoa(c.Port) }
