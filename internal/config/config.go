package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// USGS event service.
	USGSBaseURL     string
	USGSTimeout     time.Duration
	USGSMaxRetries  int
	USGSRateLimit   float64
	USGSResultLimit int
	FetchCacheSize  int
	FetchCacheTTL   time.Duration

	// USGSFetchDeadline caps one query across every attempt and backoff.
	USGSFetchDeadline time.Duration

	// APIRateLimit is the per-client request budget per minute.
	APIRateLimit int

	// Initial criteria.
	DefaultLookback     time.Duration
	DefaultMinMagnitude float64
	DefaultMaxMagnitude float64
	RegionPresetsFile   string

	// Mapbox geocoding configuration.
	MapboxToken     string
	MapboxEnabled   bool
	MapboxTimeout   time.Duration
	MapboxCacheSize int

	// Publishing is disabled when KafkaBrokers is empty.
	KafkaBrokers []string
	KafkaTopic   string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		HTTPAddr:          sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:          sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:         sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:   shutdownTimeout,
		USGSBaseURL:       sharedcfg.EnvOrDefault("USGS_BASE_URL", "https://earthquake.usgs.gov/fdsnws/event/1/query"),
		RegionPresetsFile: os.Getenv("REGION_PRESETS_FILE"),
		KafkaTopic:        sharedcfg.EnvOrDefault("KAFKA_TOPIC", "earthquake-events"),
	}

	var errs []error
	cfg.USGSTimeout = parsePositiveDuration("USGS_TIMEOUT", "30s", &errs)
	cfg.USGSFetchDeadline = parsePositiveDuration("USGS_FETCH_DEADLINE", "60s", &errs)
	cfg.FetchCacheTTL = parsePositiveDuration("FETCH_CACHE_TTL", "1m", &errs)
	cfg.DefaultLookback = parsePositiveDuration("DEFAULT_LOOKBACK", "48h", &errs)
	cfg.MapboxTimeout = parsePositiveDuration("MAPBOX_TIMEOUT", "5s", &errs)

	cfg.USGSMaxRetries = parseInt("USGS_MAX_RETRIES", 3, 0, 10, &errs)
	cfg.USGSResultLimit = parseInt("USGS_RESULT_LIMIT", 20000, 1, 20000, &errs)
	cfg.FetchCacheSize = parseInt("FETCH_CACHE_SIZE", 100, 0, 100000, &errs)
	cfg.APIRateLimit = parseInt("API_RATE_LIMIT", 60, 0, 100000, &errs)
	cfg.MapboxCacheSize = parseMapboxCacheSize()

	cfg.USGSRateLimit = parseFloat("USGS_RATE_LIMIT", 2, 0, 100, &errs)
	cfg.DefaultMinMagnitude = parseFloat("DEFAULT_MIN_MAGNITUDE", 6.0, 0, 10, &errs)
	cfg.DefaultMaxMagnitude = parseFloat("DEFAULT_MAX_MAGNITUDE", 9.0, 0, 10, &errs)
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	if cfg.DefaultMinMagnitude > cfg.DefaultMaxMagnitude {
		return nil, errors.New("DEFAULT_MIN_MAGNITUDE must not exceed DEFAULT_MAX_MAGNITUDE")
	}

	cfg.MapboxToken = os.Getenv("MAPBOX_TOKEN")
	cfg.MapboxEnabled = cfg.MapboxToken != ""
	if v := os.Getenv("MAPBOX_ENABLED"); v != "" {
		cfg.MapboxEnabled = v == "true"
	}
	if cfg.MapboxEnabled && cfg.MapboxToken == "" {
		return nil, errors.New("MAPBOX_ENABLED is true but MAPBOX_TOKEN is not set")
	}

	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		cfg.KafkaBrokers = sharedcfg.ParseBrokers(v)
		if cfg.KafkaTopic == "" {
			return nil, errors.New("KAFKA_TOPIC is required when KAFKA_BROKERS is set")
		}
	}

	return cfg, nil
}

// writeSlack is the response budget left after the fetch deadline for
// filtering and encoding exports.
const writeSlack = 30 * time.Second

// HTTPWriteTimeout is the server write timeout. It outlasts the fetch
// deadline so a timed-out query still gets its error response.
func (c *Config) HTTPWriteTimeout() time.Duration {
	return c.USGSFetchDeadline + writeSlack
}

// PublishEnabled reports whether filtered events are written to Kafka.
func (c *Config) PublishEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

func parsePositiveDuration(key, def string, errs *[]error) time.Duration {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		*errs = append(*errs, fmt.Errorf("invalid %s", key))
		return 0
	}
	return d
}

func parseInt(key string, def, lo, hi int, errs *[]error) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < lo || n > hi {
		*errs = append(*errs, fmt.Errorf("invalid %s: must be an integer in [%d, %d]", key, lo, hi))
		return def
	}
	return n
}

func parseFloat(key string, def, lo, hi float64, errs *[]error) float64 {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < lo || f > hi {
		*errs = append(*errs, fmt.Errorf("invalid %s: must be a number in [%g, %g]", key, lo, hi))
		return def
	}
	return f
}

func parseMapboxCacheSize() int {
	if s := os.Getenv("MAPBOX_CACHE_SIZE"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return 1000
}
