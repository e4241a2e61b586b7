package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/velvethaus/storefront-backend/api/routes"
	"github.com/velvethaus/storefront-backend/internal/catalog"
	"github.com/velvethaus/storefront-backend/internal/checkout"
	"github.com/velvethaus/storefront-backend/internal/coupons"
	"github.com/velvethaus/storefront-backend/internal/inventory"
	"github.com/velvethaus/storefront-backend/internal/notifications"
	"github.com/velvethaus/storefront-backend/internal/orders"
	"github.com/velvethaus/storefront-backend/internal/tax"
	"github.com/velvethaus/storefront-backend/internal/users"
	stripewebhook "github.com/velvethaus/storefront-backend/internal/webhooks/stripe"
	"github.com/velvethaus/storefront-backend/pkg/config"
	"github.com/velvethaus/storefront-backend/pkg/db"
	"github.com/velvethaus/storefront-backend/pkg/env"
	"github.com/velvethaus/storefront-backend/pkg/keyedmutex"
	"github.com/velvethaus/storefront-backend/pkg/logger"
	"github.com/velvethaus/storefront-backend/pkg/metrics"
	"github.com/velvethaus/storefront-backend/pkg/migrate"
	"github.com/velvethaus/storefront-backend/pkg/redis"
	pkgstripe "github.com/velvethaus/storefront-backend/pkg/stripe"
)

const shutdownGrace = 15 * time.Second

func main() {
	ctx := context.Background()

	logg := logger.New(logger.Options{ServiceName: "storefront-api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(ctx, "no .env file loaded")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(ctx, "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "storefront-api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	if err := run(ctx, cfg, logg); err != nil {
		logg.Error(ctx, "api exited with error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) error {
	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return err
	}
	defer dbClient.Close()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return err
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	stripeClient, err := pkgstripe.NewClient(ctx, cfg.Stripe, logg)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	pipeline := metrics.NewPipelineMetrics(registry)

	locks := keyedmutex.New()

	catalogRepo := catalog.NewRepository(dbClient.DB())
	resolver, err := catalog.NewResolver(catalogRepo, cfg.Checkout, cfg.App.IsDev(), logg)
	if err != nil {
		return err
	}

	couponSvc, err := coupons.NewService(coupons.NewRepository(dbClient.DB()), locks, logg)
	if err != nil {
		return err
	}

	taxCalc, err := tax.NewCalculator(stripeClient, logg)
	if err != nil {
		return err
	}

	checkoutSvc, err := checkout.NewService(
		resolver,
		couponSvc,
		taxCalc,
		checkout.NewStripeProcessor(),
		users.NewRepository(dbClient.DB()),
		cfg.Checkout,
		logg,
	)
	if err != nil {
		return err
	}

	ordersSvc, err := orders.NewService(orders.NewRepository(dbClient.DB()), dbClient, logg)
	if err != nil {
		return err
	}

	invSvc, err := inventory.NewService(inventory.NewRepository(dbClient.DB()), locks, cfg.Inventory, pipeline, logg)
	if err != nil {
		return err
	}

	notifier, err := notifications.NewNotifier(cfg.Automation, logg)
	if err != nil {
		return err
	}

	webhookSvc, err := stripewebhook.NewService(stripewebhook.ServiceParams{
		Orders:    ordersSvc,
		Inventory: invSvc,
		Coupons:   couponSvc,
		Notifier:  notifier,
		Metrics:   pipeline,
		Logger:    logg,
	})
	if err != nil {
		return err
	}

	webhookGuard, err := redis.NewIdempotencyGuard(redisClient, cfg.Stripe.EventTTL, "stripe")
	if err != nil {
		return err
	}
	deductGuard, err := redis.NewIdempotencyGuard(redisClient, cfg.Automation.DeductGuardTTL, "deduct")
	if err != nil {
		return err
	}

	router := routes.New(routes.Deps{
		Config:       cfg,
		Logger:       logg,
		DB:           dbClient,
		Redis:        redisClient,
		Metrics:      registry,
		Checkout:     checkoutSvc,
		Coupons:      couponSvc,
		Orders:       ordersSvc,
		Inventory:    invSvc,
		Stripe:       stripeClient,
		Webhooks:     webhookSvc,
		WebhookGuard: webhookGuard,
		DeductGuard:  deductGuard,
	})

	port := env.Get("PORT", cfg.App.Port)
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	stopCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logg.Info(ctx, "api listening on :"+port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-stopCtx.Done():
	}

	logg.Info(ctx, "shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
