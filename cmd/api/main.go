package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/wjtan-dev/blockwatch-backend/api/routes"
	"github.com/wjtan-dev/blockwatch-backend/internal/accounts"
	"github.com/wjtan-dev/blockwatch-backend/internal/entitlement"
	"github.com/wjtan-dev/blockwatch-backend/internal/incidents"
	"github.com/wjtan-dev/blockwatch-backend/internal/passwordreset"
	"github.com/wjtan-dev/blockwatch-backend/internal/subscriptions"
	"github.com/wjtan-dev/blockwatch-backend/internal/usage"
	stripewebhook "github.com/wjtan-dev/blockwatch-backend/internal/webhooks/stripe"
	"github.com/wjtan-dev/blockwatch-backend/pkg/config"
	"github.com/wjtan-dev/blockwatch-backend/pkg/db"
	"github.com/wjtan-dev/blockwatch-backend/pkg/logger"
	"github.com/wjtan-dev/blockwatch-backend/pkg/metrics"
	"github.com/wjtan-dev/blockwatch-backend/pkg/migrate"
	"github.com/wjtan-dev/blockwatch-backend/pkg/redis"
	"github.com/wjtan-dev/blockwatch-backend/pkg/stripe"
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

	stripeClient, err := stripe.NewClient(context.Background(), cfg.Stripe, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap stripe client", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	lookupMetrics := metrics.NewLookupMetrics(registry)

	accountService, err := accounts.NewService(accounts.ServiceParams{
		Repo:     accounts.NewRepository(dbClient.DB()),
		Tx:       dbClient,
		Password: cfg.Password,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create account service", err)
		os.Exit(1)
	}

	usageService, err := usage.NewService(usage.ServiceParams{
		Repo: usage.NewRepository(dbClient.DB()),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create usage service", err)
		os.Exit(1)
	}

	gateService, err := entitlement.NewService(entitlement.ServiceParams{
		Accounts: accountService,
		Usage:    usageService,
		Quota:    cfg.Quota,
		Metrics:  lookupMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create entitlement service", err)
		os.Exit(1)
	}

	incidentService, err := incidents.NewService(incidents.ServiceParams{
		Repo: incidents.NewRepository(dbClient.DB()),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create incident service", err)
		os.Exit(1)
	}

	passwordResetService, err := passwordreset.NewService(passwordreset.ServiceParams{
		Repo:     passwordreset.NewRepository(dbClient.DB()),
		Accounts: accounts.NewRepository(dbClient.DB()),
		Password: accountService,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create password reset service", err)
		os.Exit(1)
	}

	billingService, err := subscriptions.NewService(subscriptions.ServiceParams{
		Accounts: accountService,
		Stripe:   subscriptions.NewStripeClient(stripeClient),
		Config:   cfg.Stripe,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create billing service", err)
		os.Exit(1)
	}

	webhookService, err := stripewebhook.NewService(stripewebhook.ServiceParams{
		Accounts: accountService,
		Logg:     logg,
		Metrics:  lookupMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook service", err)
		os.Exit(1)
	}

	webhookGuard, err := stripewebhook.NewIdempotencyGuard(redisClient, stripewebhook.DefaultIdempotencyTTL, "stripe")
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook guard", err)
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
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			accountService,
			gateService,
			incidentService,
			usageService,
			passwordResetService,
			billingService,
			stripeClient,
			webhookService,
			webhookGuard,
			registry,
		),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
