package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/attrition-dashboard/backend/internal/analytics"
	"github.com/attrition-dashboard/backend/internal/api"
	"github.com/attrition-dashboard/backend/internal/bootstrap"
	"github.com/attrition-dashboard/backend/internal/cache/redis"
	"github.com/attrition-dashboard/backend/internal/employee"
	"github.com/attrition-dashboard/backend/internal/features"
	"github.com/attrition-dashboard/backend/internal/metrics"
	"github.com/attrition-dashboard/backend/internal/middleware/ratelimit"
	"github.com/attrition-dashboard/backend/internal/prediction"
	"github.com/attrition-dashboard/backend/internal/storage/sqlite"
	appLogger "github.com/attrition-dashboard/backend/pkg/logger"
)

func runServe(cmd *cobra.Command, args []string) error {
	appLogger.Info("Starting attrition dashboard API server")

	metrics.Init()

	res, err := loadResources(cmd.Context())
	if err != nil {
		return err
	}

	var history prediction.HistoryStore
	if cfg.SQLite.Enabled {
		sqliteClient, err := sqlite.NewClient(cfg.SQLite.Path)
		if err != nil {
			appLogger.Fatal("Failed to create SQLite client", zap.Error(err))
		}
		defer sqliteClient.Close()

		if err := sqliteClient.InitSchema(); err != nil {
			appLogger.Fatal("Failed to initialize schema", zap.Error(err))
		}
		recordDatasetSnapshot(sqliteClient, res)
		history = sqliteClient
	}

	var cache prediction.Cache
	if cfg.Redis.Enabled {
		redisClient, err := redis.NewClient(cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			appLogger.Warn("Redis unavailable, predictions will not be cached", zap.Error(err))
		} else {
			defer redisClient.Close()
			if err := redisClient.InvalidatePredictions(cmd.Context()); err != nil {
				appLogger.Warn("Failed to clear stale predictions", zap.Error(err))
			}
			cache = redisClient
		}
	}

	options := features.Options{
		Ordinals: cfg.Prediction.Ordinals,
		Defaults: cfg.Prediction.Defaults,
	}
	svc := prediction.NewService(res.Model, options, cache, cfg.Prediction.CacheTTL, history)

	var limiter *ratelimit.RateLimiter
	if cfg.RateLimit.Enabled {
		limiter = ratelimit.New(ratelimit.Config{
			MaxRequests: cfg.RateLimit.MaxRequests,
			Window:      cfg.RateLimit.Window,
			Logger:      appLogger.GetLogger(),
		})
		defer limiter.Stop()
	}

	metrics.HighRiskEmployees.Set(float64(len(analytics.HighRisk(res.Dataset))))

	app := api.NewApp(cfg.Server, api.Deps{
		Resources:   res,
		Predictions: svc,
		RateLimiter: limiter,
	})

	addr := cfg.Address()
	appLogger.Info("Server starting", zap.String("address", addr))

	listenErr := make(chan error, 1)
	go func() {
		listenErr <- app.Listen(addr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-listenErr:
		appLogger.Error("Server failed to start", zap.Error(err))
		return err
	case <-quit:
	}

	appLogger.Info("Server shutting down gracefully...")
	if err := app.ShutdownWithTimeout(time.Duration(cfg.Server.ShutdownTimeout) * time.Second); err != nil {
		appLogger.Error("Server shutdown failed", zap.Error(err))
		return err
	}
	appLogger.Info("Server stopped")
	return nil
}

// recordDatasetSnapshot stores the dataset size so restarts against a changed
// file are visible in the logs.
func recordDatasetSnapshot(store *sqlite.Client, res *bootstrap.Resources) {
	previous, err := store.LatestMetric("dataset_rows")
	if err != nil {
		appLogger.Warn("Failed to read previous dataset snapshot", zap.Error(err))
	} else if previous != nil && int(previous.MetricValue) != res.Dataset.Len() {
		appLogger.Warn("Dataset size changed since last start",
			zap.Int("previous_rows", int(previous.MetricValue)),
			zap.Int("rows", res.Dataset.Len()),
			zap.Time("previous_start", previous.Timestamp),
		)
	}

	tags := map[string]string{
		"source": res.Dataset.Source(),
		"model":  res.Model.Name(),
	}
	if err := store.RecordMetric("dataset_rows", float64(res.Dataset.Len()), tags); err != nil {
		appLogger.Warn("Failed to record dataset snapshot", zap.Error(err))
	}
}

func logStartupFailure(err error) {
	var startupErr *employee.StartupError
	if errors.As(err, &startupErr) {
		appLogger.Error("Startup failed",
			zap.String("source", startupErr.Source),
			zap.Error(startupErr.Err),
		)
		return
	}
	appLogger.Error("Startup failed", zap.Error(err))
}

func loadResources(ctx context.Context) (*bootstrap.Resources, error) {
	res, err := bootstrap.Load(ctx, cfg.Data)
	if err != nil {
		logStartupFailure(err)
		return nil, err
	}
	return res, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
