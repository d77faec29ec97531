package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Guide     GuideConfig     `mapstructure:"guide"`
	Speech    SpeechConfig    `mapstructure:"speech"`
	Weather   WeatherConfig   `mapstructure:"weather"`
	Roam      RoamConfig      `mapstructure:"roam"`
	Proximity ProximityConfig `mapstructure:"proximity"`
	NATS      NATSConfig      `mapstructure:"nats"`
	Valkey    ValkeyConfig    `mapstructure:"valkey"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

type ServerConfig struct {
	Port         int `mapstructure:"port"`
	ReadTimeout  int `mapstructure:"read_timeout"`
	WriteTimeout int `mapstructure:"write_timeout"`
}

// GuideConfig points at the backend that generates routes and roam summaries.
type GuideConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

func (g GuideConfig) Timeout() time.Duration {
	return time.Duration(g.TimeoutSeconds) * time.Second
}

type SpeechConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	Voice          string `mapstructure:"voice"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

func (s SpeechConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutSeconds) * time.Second
}

type WeatherConfig struct {
	BaseURL         string `mapstructure:"base_url"`
	APIKey          string `mapstructure:"api_key"`
	TimeoutSeconds  int    `mapstructure:"timeout_seconds"`
	CacheTTLSeconds int    `mapstructure:"cache_ttl_seconds"`
}

func (w WeatherConfig) Timeout() time.Duration {
	return time.Duration(w.TimeoutSeconds) * time.Second
}

// RoamConfig controls the ambient-commentary poller.
type RoamConfig struct {
	IntervalSeconds int `mapstructure:"interval_seconds"`
}

func (r RoamConfig) Interval() time.Duration {
	return time.Duration(r.IntervalSeconds) * time.Second
}

// ProximityConfig controls waypoint arrival detection.
type ProximityConfig struct {
	RadiusMeters float64 `mapstructure:"radius_meters"`
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

// Load reads configuration from file and environment variables.
func Load(service string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 10)
	v.SetDefault("guide.base_url", "http://localhost:8000")
	v.SetDefault("guide.timeout_seconds", 120)
	v.SetDefault("speech.base_url", "http://localhost:8000")
	v.SetDefault("speech.voice", "alloy")
	v.SetDefault("speech.timeout_seconds", 30)
	v.SetDefault("weather.base_url", "https://api.openweathermap.org/data/2.5")
	v.SetDefault("weather.api_key", "")
	v.SetDefault("weather.timeout_seconds", 10)
	v.SetDefault("weather.cache_ttl_seconds", 300)
	v.SetDefault("roam.interval_seconds", 60)
	v.SetDefault("proximity.radius_meters", 20.0)
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("valkey.addr", "localhost:6379")
	v.SetDefault("telemetry.service_name", service)
	v.SetDefault("telemetry.tempo_addr", "tempo:4317")
	v.SetDefault("telemetry.enabled", true)

	// Config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	_ = v.ReadInConfig() // OK if missing

	// Environment variables: PASSEPARTOUT_GUIDE_BASE_URL → guide.base_url
	v.SetEnvPrefix("PASSEPARTOUT")
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
	if c.Guide.BaseURL == "" {
		errs = append(errs, "guide.base_url is required")
	}
	if c.Guide.TimeoutSeconds <= 0 {
		errs = append(errs, "guide.timeout_seconds must be positive")
	}
	if c.Speech.TimeoutSeconds <= 0 {
		errs = append(errs, "speech.timeout_seconds must be positive")
	}
	if c.Weather.TimeoutSeconds <= 0 {
		errs = append(errs, "weather.timeout_seconds must be positive")
	}
	if c.Roam.IntervalSeconds <= 0 {
		errs = append(errs, "roam.interval_seconds must be positive")
	}
	if c.Proximity.RadiusMeters <= 0 {
		errs = append(errs, "proximity.radius_meters must be positive")
	}
	if c.NATS.URL == "" {
		errs = append(errs, "nats.url is required")
	}
	if c.Valkey.Addr == "" {
		errs = append(errs, "valkey.addr is required")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
