// Command quakeexplorer serves the earthquake query API.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/couchcryptid/quake-explorer/internal/adapter/httpadapter"
	kafkaadapter "github.com/couchcryptid/quake-explorer/internal/adapter/kafka"
	"github.com/couchcryptid/quake-explorer/internal/adapter/mapbox"
	"github.com/couchcryptid/quake-explorer/internal/adapter/resilience"
	"github.com/couchcryptid/quake-explorer/internal/adapter/usgs"
	"github.com/couchcryptid/quake-explorer/internal/config"
	"github.com/couchcryptid/quake-explorer/internal/domain"
	"github.com/couchcryptid/quake-explorer/internal/observability"
	"github.com/couchcryptid/quake-explorer/internal/pipeline"
	"github.com/couchcryptid/quake-explorer/internal/regions"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	presets, err := regions.Load(cfg.RegionPresetsFile)
	if err != nil {
		logger.Error("failed to load region presets", "error", err)
		os.Exit(1)
	}

	httpClient := resilience.NewClient(resilience.ClientConfig{
		Name:       "usgs",
		Timeout:    cfg.USGSTimeout,
		MaxRetries: uint64(cfg.USGSMaxRetries),
	}, logger)

	var fetcher domain.EventFetcher = usgs.NewClient(httpClient, usgs.Options{
		BaseURL:           cfg.USGSBaseURL,
		RequestsPerSecond: cfg.USGSRateLimit,
		Deadline:          cfg.USGSFetchDeadline,
	}, metrics, logger)
	if cfg.FetchCacheSize > 0 {
		fetcher = usgs.NewCachedFetcher(fetcher, cfg.FetchCacheSize, cfg.FetchCacheTTL, nil, metrics)
	}

	// Place-name lookup is feature-flagged via MAPBOX_ENABLED / MAPBOX_TOKEN.
	var geocoder domain.Geocoder
	if cfg.MapboxEnabled {
		client := mapbox.NewClient(cfg.MapboxToken, cfg.MapboxTimeout, metrics, logger)
		geocoder = mapbox.NewCachedGeocoder(client, cfg.MapboxCacheSize, metrics)
		metrics.GeocodeEnabled.Set(1)
		logger.Info("mapbox geocoding enabled", "cache_size", cfg.MapboxCacheSize, "timeout", cfg.MapboxTimeout)
	} else {
		logger.Info("mapbox geocoding disabled")
	}

	opts := []pipeline.Option{pipeline.WithAvailability(httpClient)}
	var publisher *kafkaadapter.Publisher
	if cfg.PublishEnabled() {
		publisher = kafkaadapter.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
		opts = append(opts, pipeline.WithPublisher(publisher))
		logger.Info("kafka publishing enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}

	explorer := pipeline.New(fetcher, cfg.USGSResultLimit, logger, metrics, opts...)

	api := httpadapter.NewAPI(explorer, presets, geocoder, httpadapter.Defaults{
		Lookback:     cfg.DefaultLookback,
		MinMagnitude: cfg.DefaultMinMagnitude,
		MaxMagnitude: cfg.DefaultMaxMagnitude,
	}, logger)
	srv := httpadapter.NewServer(httpadapter.ServerConfig{
		Addr:         cfg.HTTPAddr,
		RateLimit:    cfg.APIRateLimit,
		WriteTimeout: cfg.HTTPWriteTimeout(),
	}, api, explorer, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if publisher != nil {
		if err := publisher.Close(); err != nil {
			logger.Error("kafka publisher close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
