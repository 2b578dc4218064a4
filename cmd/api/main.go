package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/coffeeworth/coffeeworth-backend/api/routes"
	"github.com/coffeeworth/coffeeworth-backend/internal/creators"
	"github.com/coffeeworth/coffeeworth-backend/internal/fees"
	"github.com/coffeeworth/coffeeworth-backend/internal/payments"
	"github.com/coffeeworth/coffeeworth-backend/internal/payouts"
	"github.com/coffeeworth/coffeeworth-backend/internal/supports"
	"github.com/coffeeworth/coffeeworth-backend/pkg/config"
	"github.com/coffeeworth/coffeeworth-backend/pkg/db"
	"github.com/coffeeworth/coffeeworth-backend/pkg/logger"
	"github.com/coffeeworth/coffeeworth-backend/pkg/metrics"
	"github.com/coffeeworth/coffeeworth-backend/pkg/migrate"
	"github.com/coffeeworth/coffeeworth-backend/pkg/redis"
	"github.com/coffeeworth/coffeeworth-backend/pkg/toss"
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

	tossClient, err := toss.NewClient(context.Background(), cfg.Toss, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create gateway client", err)
		os.Exit(1)
	}

	rates, err := cfg.Fees.Rates()
	if err != nil {
		logg.Error(context.Background(), "invalid fee rates", err)
		os.Exit(1)
	}
	calc, err := fees.NewCalculator(rates.Platform, rates.PG)
	if err != nil {
		logg.Error(context.Background(), "failed to create fee calculator", err)
		os.Exit(1)
	}

	supportRepo := supports.NewRepository(dbClient.DB())
	creatorRepo := creators.NewRepository(dbClient.DB())
	payoutRepo := payouts.NewRepository(dbClient.DB())

	supportService, err := supports.NewService(supportRepo, creatorRepo, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create support service", err)
		os.Exit(1)
	}

	paymentMetrics := metrics.NewPaymentMetrics(prometheus.DefaultRegisterer)
	paymentService, err := payments.NewService(supportRepo, tossClient, calc, paymentMetrics, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create payment service", err)
		os.Exit(1)
	}

	creatorService, err := creators.NewService(creatorRepo, supportRepo, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create creator service", err)
		os.Exit(1)
	}

	payoutService, err := payouts.NewService(payoutRepo, supportRepo, creatorRepo, cfg.Payout, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create payout service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient, supportService, paymentService, creatorService, payoutService),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
