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
	"google.golang.org/api/option"

	"github.com/angelmondragon/billing-bridge/api/controllers"
	"github.com/angelmondragon/billing-bridge/api/routes"
	"github.com/angelmondragon/billing-bridge/internal/accounts"
	"github.com/angelmondragon/billing-bridge/internal/checkout"
	stripewebhook "github.com/angelmondragon/billing-bridge/internal/webhooks/stripe"
	"github.com/angelmondragon/billing-bridge/pkg/config"
	"github.com/angelmondragon/billing-bridge/pkg/env"
	"github.com/angelmondragon/billing-bridge/pkg/firestore"
	"github.com/angelmondragon/billing-bridge/pkg/instance"
	"github.com/angelmondragon/billing-bridge/pkg/logger"
	"github.com/angelmondragon/billing-bridge/pkg/metrics"
	"github.com/angelmondragon/billing-bridge/pkg/pubsub"
	"github.com/angelmondragon/billing-bridge/pkg/redis"
	"github.com/angelmondragon/billing-bridge/pkg/stripe"
)

const (
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 15 * time.Second
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "billing-api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "billing-api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logg); err != nil {
		logg.Error(context.Background(), "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) error {
	stripeClient, err := stripe.NewClient(ctx, cfg.Stripe, logg)
	if err != nil {
		return err
	}

	store, err := accounts.NewStore(ctx, cfg, logg)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logg.Error(context.Background(), "error closing account store", err)
		}
	}()

	readiness := map[string]controllers.Pinger{"accounts": store}

	var recent checkout.RecentSessions
	if cfg.Redis.Enabled() {
		redisClient, err := redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			return err
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing redis", err)
			}
		}()
		recent = redisClient
		readiness["redis"] = redisClient
	}

	var publisher stripewebhook.Publisher
	if cfg.PubSub.Enabled() {
		var opts []option.ClientOption
		if creds, err := firestore.CredentialsJSON(cfg.Firebase); err == nil {
			opts = append(opts, option.WithCredentialsJSON(creds))
		}
		psClient, err := pubsub.NewClient(ctx, cfg.PubSub, logg, opts...)
		if err != nil {
			return err
		}
		defer func() {
			if err := psClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing pubsub", err)
			}
		}()
		publisher = psClient
		readiness["pubsub"] = psClient
	}

	var obs routes.Observability
	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		obs = routes.Observability{Metrics: metrics.New(reg), Gatherer: reg}
	}

	checkoutService, err := checkout.NewService(checkout.ServiceParams{
		Billing:        stripeClient,
		DefaultPriceID: cfg.Stripe.PriceID,
		DefaultOrigin:  cfg.App.DefaultOrigin,
		Recent:         recent,
		ReuseWindow:    cfg.Redis.CheckoutReuseWindow,
		Metrics:        obs.Metrics,
		Logger:         logg,
	})
	if err != nil {
		return err
	}

	webhookService, err := stripewebhook.NewService(stripewebhook.ServiceParams{
		Accounts:  store,
		Publisher: publisher,
		Metrics:   obs.Metrics,
		Logger:    logg,
	})
	if err != nil {
		return err
	}

	addr := ":" + env.Get("PORT", cfg.App.Port)
	logCtx := logg.WithFields(ctx, map[string]any{
		"env":           cfg.App.Env,
		"stripe_env":    stripeClient.Environment(),
		"account_store": cfg.Accounts.Kind(),
		"addr":          addr,
		"instance":      instance.GetID(),
	})

	server := &http.Server{
		Addr:              addr,
		ReadHeaderTimeout: readHeaderTimeout,
		Handler: routes.NewRouter(
			cfg,
			logg,
			obs,
			readiness,
			checkoutService,
			stripeClient,
			webhookService,
		),
	}

	errCh := make(chan error, 1)
	go func() {
		logg.Info(logCtx, "starting api server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logg.Info(logCtx, "shutting down api server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
