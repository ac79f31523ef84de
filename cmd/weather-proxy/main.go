package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	httpapi "github.com/i474232898/weather-proxy/internal/api/http"
	"github.com/i474232898/weather-proxy/internal/cache"
	"github.com/i474232898/weather-proxy/internal/config"
	"github.com/i474232898/weather-proxy/internal/scheduler"
	"github.com/i474232898/weather-proxy/internal/store"
	"github.com/i474232898/weather-proxy/internal/weather"
	"github.com/i474232898/weather-proxy/internal/weather/providers"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("failed to load config: %v", err)
	}
	setupLogging(cfg)

	// Shared HTTP client for upstream calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	policy := cache.Policy{BucketWidth: cfg.BucketWidth, Window: cfg.Window()}
	memStore := store.NewMemory[weather.Payload](policy)

	client := providers.NewVisualCrossingProvider(httpClient, cfg.WeatherAPIBaseURL, cfg.WeatherAPIKey, cfg.UpstreamMaxRetries)
	service := weather.NewService(memStore, client)

	sched := scheduler.New(cfg.PrefetchCities, cfg.PrefetchInterval, service)
	if err := sched.Start(); err != nil {
		logrus.Fatalf("failed to start scheduler: %v", err)
	}
	defer sched.Stop()

	app := httpapi.NewApp(service)

	go func() {
		logrus.WithFields(logrus.Fields{
			"port":         cfg.Port,
			"bucket_width": policy.BucketWidth.String(),
			"window":       policy.Window.String(),
		}).Info("weather proxy listening")
		if err := app.Listen(":" + cfg.Port); err != nil {
			logrus.Errorf("fiber server stopped: %v", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logrus.Errorf("error during shutdown: %v", err)
	}
}

func setupLogging(cfg *config.AppConfig) {
	logrus.SetOutput(os.Stdout)
	if cfg.LogFormat == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	// Validated in config.Load.
	level, _ := logrus.ParseLevel(cfg.LogLevel)
	logrus.SetLevel(level)
}
