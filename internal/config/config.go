package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type RateLimit struct {
	RPS   float64 `mapstructure:"rps"`
	Burst int     `mapstructure:"burst"`
}

type Config struct {
	Port           string        `mapstructure:"port"`
	LogLevel       string        `mapstructure:"log_level"`
	LogFormat      string        `mapstructure:"log_format"`
	InitDelay      time.Duration `mapstructure:"init_delay"`
	SearchDelay    time.Duration `mapstructure:"search_delay"`
	LocateTimeout  time.Duration `mapstructure:"locate_timeout"`
	SessionIdleTTL time.Duration `mapstructure:"session_idle_ttl"`
	SessionSweep   string        `mapstructure:"session_sweep"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
	OTLPEndpoint   string        `mapstructure:"otlp_endpoint"`
	RateLimit      RateLimit     `mapstructure:"rate_limit"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8095")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("init_delay", "1000ms")
	v.SetDefault("search_delay", "800ms")
	v.SetDefault("locate_timeout", "10s")
	v.SetDefault("session_idle_ttl", "30m")
	v.SetDefault("session_sweep", "@every 1m")
	v.SetDefault("allowed_origins", []string{"*"})
	v.SetDefault("otlp_endpoint", "")
	v.SetDefault("rate_limit.rps", 5)
	v.SetDefault("rate_limit.burst", 10)
}

// Load reads an optional .env file, an optional YAML config file and the
// WEATHER_VIEW_* environment, in increasing order of precedence.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to read .env", "error", err)
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("WEATHER_VIEW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Platform conventions win over the prefixed variables.
	if port := os.Getenv("PORT"); port != "" {
		cfg.Port = port
	}
	if cfg.OTLPEndpoint == "" {
		cfg.OTLPEndpoint = os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	}
	if os.Getenv("LOG_FORMAT") == "json" {
		cfg.LogFormat = "json"
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Port == "" {
		return errors.New("port must not be empty")
	}
	if c.InitDelay <= 0 || c.SearchDelay <= 0 {
		return fmt.Errorf("delays must be positive (init=%s search=%s)", c.InitDelay, c.SearchDelay)
	}
	if c.SessionIdleTTL <= 0 {
		return fmt.Errorf("session_idle_ttl must be positive, got %s", c.SessionIdleTTL)
	}
	if c.RateLimit.RPS <= 0 || c.RateLimit.Burst <= 0 {
		return fmt.Errorf("rate_limit needs positive rps and burst, got %v/%d", c.RateLimit.RPS, c.RateLimit.Burst)
	}
	return nil
}

func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
