package config

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	NATS      NATSConfig      `mapstructure:"nats"`
	Valkey    ValkeyConfig    `mapstructure:"valkey"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Sentry    SentryConfig    `mapstructure:"sentry"`
	OSRM      OSRMConfig      `mapstructure:"osrm"`
	Geocoder  GeocoderConfig  `mapstructure:"geocoder"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Session   SessionConfig   `mapstructure:"session"`
	Log       LogConfig       `mapstructure:"log"`
}

type ServerConfig struct {
	Port         int `mapstructure:"port"`
	ReadTimeout  int `mapstructure:"read_timeout"`
	WriteTimeout int `mapstructure:"write_timeout"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
	MaxConns int32  `mapstructure:"max_conns"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type NATSConfig struct {
	URL string `mapstructure:"url"`
}

type ValkeyConfig struct {
	Addr string `mapstructure:"addr"`
}

type TelemetryConfig struct {
	ServiceName string `mapstructure:"service_name"`
	TempoAddr   string `mapstructure:"tempo_addr"`
	Enabled     bool   `mapstructure:"enabled"`
}

type SentryConfig struct {
	DSN         string `mapstructure:"dsn"`
	Environment string `mapstructure:"environment"`
}

type OSRMConfig struct {
	BaseURL string `mapstructure:"base_url"`
	Profile string `mapstructure:"profile"`
	Timeout int    `mapstructure:"timeout"` // seconds
}

type GeocoderConfig struct {
	BaseURL   string `mapstructure:"base_url"`
	UserAgent string `mapstructure:"user_agent"`
	Language  string `mapstructure:"language"`
	Timeout   int    `mapstructure:"timeout"` // seconds
	CacheSize int    `mapstructure:"cache_size"`
}

type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
	Issuer    string `mapstructure:"issuer"`
}

// SessionConfig tunes the map-session controller.
type SessionConfig struct {
	StationDebounceMs  int     `mapstructure:"station_debounce_ms"`
	LocationDebounceMs int     `mapstructure:"location_debounce_ms"`
	FetchTimeout       int     `mapstructure:"fetch_timeout"` // seconds
	StationLimit       int     `mapstructure:"station_limit"`
	FallbackLat        float64 `mapstructure:"fallback_lat"`
	FallbackLon        float64 `mapstructure:"fallback_lon"`
	FallbackRadius     float64 `mapstructure:"fallback_radius"` // meters
	CenterZoom         float64 `mapstructure:"center_zoom"`
	CenterAnimationMs  int     `mapstructure:"center_animation_ms"`
}

func (s SessionConfig) StationDebounce() time.Duration {
	return time.Duration(s.StationDebounceMs) * time.Millisecond
}

func (s SessionConfig) LocationDebounce() time.Duration {
	return time.Duration(s.LocationDebounceMs) * time.Millisecond
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment variables.
// A .env file in the working directory is loaded first if present.
func Load(service string) (*Config, error) {
	_ = godotenv.Load() // OK if missing

	v := viper.New()

	// Defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 10)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "stationmap")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "stationmap")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 50)
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("valkey.addr", "localhost:6379")
	v.SetDefault("telemetry.service_name", service)
	v.SetDefault("telemetry.tempo_addr", "tempo:4317")
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("sentry.dsn", "")
	v.SetDefault("sentry.environment", "development")
	v.SetDefault("osrm.base_url", "https://router.project-osrm.org")
	v.SetDefault("osrm.profile", "driving")
	v.SetDefault("osrm.timeout", 10)
	v.SetDefault("geocoder.base_url", "https://nominatim.openstreetmap.org")
	v.SetDefault("geocoder.user_agent", "stationmap/1.0")
	v.SetDefault("geocoder.language", "en")
	v.SetDefault("geocoder.timeout", 10)
	v.SetDefault("geocoder.cache_size", 10000)
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.issuer", "stationmap")
	v.SetDefault("session.station_debounce_ms", 400)
	v.SetDefault("session.location_debounce_ms", 500)
	v.SetDefault("session.fetch_timeout", 15)
	v.SetDefault("session.station_limit", 500)
	v.SetDefault("session.fallback_lat", 43.2630)
	v.SetDefault("session.fallback_lon", -2.9350)
	v.SetDefault("session.fallback_radius", 5000)
	v.SetDefault("session.center_zoom", 13)
	v.SetDefault("session.center_animation_ms", 1000)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	_ = v.ReadInConfig() // OK if missing

	// Environment variables: STATIONMAP_DATABASE_HOST → database.host
	v.SetEnvPrefix("STATIONMAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks that required configuration fields are present and sane.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, "server.read_timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, "server.write_timeout must be positive")
	}
	if c.Database.Host == "" {
		errs = append(errs, "database.host is required")
	}
	if c.Database.Port <= 0 || c.Database.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", c.Database.Port))
	}
	if c.Database.User == "" {
		errs = append(errs, "database.user is required")
	}
	if c.Database.DBName == "" {
		errs = append(errs, "database.dbname is required")
	}
	if c.NATS.URL == "" {
		errs = append(errs, "nats.url is required")
	}
	if c.Valkey.Addr == "" {
		errs = append(errs, "valkey.addr is required")
	}
	if c.OSRM.BaseURL == "" {
		errs = append(errs, "osrm.base_url is required")
	}
	if c.Geocoder.BaseURL == "" {
		errs = append(errs, "geocoder.base_url is required")
	}
	if c.Geocoder.CacheSize <= 0 {
		errs = append(errs, "geocoder.cache_size must be positive")
	}
	if c.Session.StationDebounceMs <= 0 {
		errs = append(errs, "session.station_debounce_ms must be positive")
	}
	if c.Session.LocationDebounceMs <= 0 {
		errs = append(errs, "session.location_debounce_ms must be positive")
	}
	if c.Session.FetchTimeout <= 0 {
		errs = append(errs, "session.fetch_timeout must be positive")
	}
	if c.Session.StationLimit <= 0 {
		errs = append(errs, "session.station_limit must be positive")
	}
	if math.Abs(c.Session.FallbackLat) > 90 || math.Abs(c.Session.FallbackLon) > 180 {
		errs = append(errs, "session.fallback_lat/fallback_lon out of range")
	}
	if c.Session.FallbackRadius <= 0 {
		errs = append(errs, "session.fallback_radius must be positive")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
