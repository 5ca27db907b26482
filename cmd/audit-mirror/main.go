package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"

	"github.com/skarvik/fabops-backend/internal/auditmirror"
	"github.com/skarvik/fabops-backend/pkg/config"
	"github.com/skarvik/fabops-backend/pkg/logger"
	"github.com/skarvik/fabops-backend/pkg/outbox/idempotency"
	"github.com/skarvik/fabops-backend/pkg/pubsub"
	"github.com/skarvik/fabops-backend/pkg/redis"
)

// Mirrored events stay marked for a week so redeliveries after long Pub/Sub
// retention gaps still dedupe.
const processedTTL = 7 * 24 * time.Hour

func main() {
	logg := logger.New(logger.Options{ServiceName: "audit-mirror"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "audit-mirror"

	logg = logger.New(logger.Options{
		ServiceName: "audit-mirror",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	pubsubClient, err := pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap pubsub", err)
		os.Exit(1)
	}
	defer func() {
		if err := pubsubClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing pubsub client", err)
		}
	}()

	manager, err := idempotency.NewManager(redisClient, processedTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create idempotency manager", err)
		os.Exit(1)
	}

	consumer, err := auditmirror.NewConsumer(
		pubsubClient.StockSubscription(),
		auditmirror.NewTopicPublisher(pubsubClient.AuditPublisher()),
		manager,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create audit mirror consumer", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting audit mirror consumer")

	if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "audit mirror stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "audit mirror shutting down gracefully")
}
