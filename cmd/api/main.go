package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/skarvik/fabops-backend/api/routes"
	"github.com/skarvik/fabops-backend/internal/audit"
	"github.com/skarvik/fabops-backend/internal/receipts"
	"github.com/skarvik/fabops-backend/internal/stock"
	"github.com/skarvik/fabops-backend/internal/tenants"
	"github.com/skarvik/fabops-backend/pkg/config"
	"github.com/skarvik/fabops-backend/pkg/db"
	"github.com/skarvik/fabops-backend/pkg/logger"
	"github.com/skarvik/fabops-backend/pkg/metrics"
	"github.com/skarvik/fabops-backend/pkg/migrate"
	"github.com/skarvik/fabops-backend/pkg/outbox"
	"github.com/skarvik/fabops-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

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

	stockMetrics := metrics.NewStockMetrics(prometheus.DefaultRegisterer)

	tenantsService, err := tenants.NewService(tenants.NewRepository(dbClient.DB()), cfg.APIKey)
	if err != nil {
		logg.Error(context.Background(), "failed to create tenants service", err)
		os.Exit(1)
	}

	auditService, err := audit.NewService(audit.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create audit service", err)
		os.Exit(1)
	}

	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	stockRepo := stock.NewRepository(dbClient.DB())
	stockService, err := stock.NewService(stockRepo, dbClient, auditService, outboxService, stockMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create stock service", err)
		os.Exit(1)
	}

	receiptsService, err := receipts.NewService(receipts.NewRepository(dbClient.DB()), dbClient, auditService, outboxService, stockRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create receipts service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := os.Getenv("DYNO")
	if id == "" {
		id = "local"
	}
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			promhttp.Handler(),
			tenantsService,
			receiptsService,
			stockService,
			auditService,
		),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
