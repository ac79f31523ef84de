package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

type AppConfig struct {
	WeatherAPIKey     string `yaml:"weather_api_key"`
	WeatherAPIBaseURL string `yaml:"weather_api_base_url"`

	Port string `yaml:"port"`

	// HTTPTimeout bounds every outbound upstream call.
	HTTPTimeout time.Duration `yaml:"http_timeout"`
	// UpstreamMaxRetries enables retrying 429/5xx/transport failures (0 = never).
	UpstreamMaxRetries int `yaml:"upstream_max_retries"`

	// BucketWidth coarsens request timestamps into cache keys.
	BucketWidth time.Duration `yaml:"bucket_width"`
	// StaleWindow is the freshness window (0 = twice the bucket width).
	StaleWindow time.Duration `yaml:"stale_window"`

	// Cities to keep warm, and how often.
	PrefetchCities   []string      `yaml:"prefetch_cities"`
	PrefetchInterval time.Duration `yaml:"prefetch_interval"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"` // "text" or "json"
}

// Defaults returns the configuration used when nothing is set.
func Defaults() *AppConfig {
	return &AppConfig{
		Port:             "8080",
		HTTPTimeout:      10 * time.Second,
		BucketWidth:      2 * time.Hour,
		PrefetchInterval: 30 * time.Minute,
		LogLevel:         "info",
		LogFormat:        "text",
	}
}

// Load reads configuration: defaults, then the YAML file named by
// WEATHER_PROXY_CONFIG (if any), then environment variables. A .env file in
// the working directory is loaded into the environment first.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		logrus.Debugf("no .env file loaded: %v", err)
	}

	cfg := Defaults()

	if path := os.Getenv("WEATHER_PROXY_CONFIG"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *AppConfig) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config YAML: %w", err)
	}
	return nil
}

func (c *AppConfig) applyEnv() error {
	c.WeatherAPIKey = getenvDefault("WEATHER_API_KEY", c.WeatherAPIKey)
	c.WeatherAPIBaseURL = getenvDefault("WEATHER_API_BASE_URL", c.WeatherAPIBaseURL)
	c.Port = getenvDefault("PORT", c.Port)
	c.LogLevel = getenvDefault("LOG_LEVEL", c.LogLevel)
	c.LogFormat = getenvDefault("LOG_FORMAT", c.LogFormat)

	retries, err := getenvInt("UPSTREAM_MAX_RETRIES", c.UpstreamMaxRetries)
	if err != nil {
		return err
	}
	c.UpstreamMaxRetries = retries

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"HTTP_TIMEOUT", &c.HTTPTimeout},
		{"CACHE_BUCKET_WIDTH", &c.BucketWidth},
		{"CACHE_STALE_WINDOW", &c.StaleWindow},
		{"PREFETCH_INTERVAL", &c.PrefetchInterval},
	}
	for _, d := range durations {
		v, err := getenvDuration(d.key, *d.dst)
		if err != nil {
			return err
		}
		*d.dst = v
	}

	if v := os.Getenv("WEATHER_PREFETCH_CITIES"); v != "" {
		c.PrefetchCities = splitList(v)
	}
	return nil
}

// Window returns the effective freshness window.
func (c *AppConfig) Window() time.Duration {
	if c.StaleWindow > 0 {
		return c.StaleWindow
	}
	return 2 * c.BucketWidth
}

// Validate validates the configuration
func (c *AppConfig) Validate() error {
	if c.WeatherAPIKey == "" {
		return fmt.Errorf("WEATHER_API_KEY is required")
	}

	port, err := strconv.Atoi(c.Port)
	if err != nil || port <= 0 || port > 65535 {
		return fmt.Errorf("invalid port: %q", c.Port)
	}

	if c.BucketWidth < time.Second {
		return fmt.Errorf("bucket width must be at least 1s, got %s", c.BucketWidth)
	}
	if c.StaleWindow < 0 {
		return fmt.Errorf("stale window must not be negative, got %s", c.StaleWindow)
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("http timeout must be positive, got %s", c.HTTPTimeout)
	}
	if c.UpstreamMaxRetries < 0 {
		return fmt.Errorf("upstream max retries must not be negative, got %d", c.UpstreamMaxRetries)
	}
	if len(c.PrefetchCities) > 0 && c.PrefetchInterval < time.Minute {
		return fmt.Errorf("prefetch interval must be at least 1m, got %s", c.PrefetchInterval)
	}

	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("log format must be 'text' or 'json', got: %s", c.LogFormat)
	}

	return nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getenvDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
