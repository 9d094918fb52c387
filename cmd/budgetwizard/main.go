package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"budgetwizard/internal/amqp"
	"budgetwizard/internal/bot"
	"budgetwizard/internal/cache"
	"budgetwizard/internal/config"
	apphttp "budgetwizard/internal/http"
	applog "budgetwizard/internal/log"
	"budgetwizard/internal/payments"
	"budgetwizard/internal/store"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New(applog.Config{
		Level:     slog.LevelInfo,
		Component: applog.ComponentApp,
	})
	applog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	st := store.New()

	// AMQP is optional; without it paywall records simply aren't archived.
	var events *amqp.Client
	if cfg.AMQPURL != "" {
		var err error
		events, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("AMQP unavailable, archive records disabled", "error", err)
			events = nil
		} else {
			defer events.Close()
		}
	}

	// Checkout is optional too; the unlock shortcut degrades to a notice.
	var checkout bot.CheckoutStarter
	cacheManager := cache.NewManager()
	if cfg.CheckoutBaseURL != "" {
		urls := cache.NewLRUCache[string](cfg.CheckoutCacheSize, cfg.CheckoutCacheTTL)
		cacheManager.Register(urls)
		checkout = payments.NewCheckoutClient(payments.CheckoutConfig{
			BaseURL:         cfg.CheckoutBaseURL,
			APIKey:          cfg.CheckoutAPIKey,
			UnitAmountCents: cfg.UnitAmountCents,
			Currency:        cfg.Currency,
			ProductLabel:    cfg.ProductLabel,
		}, urls)
	}
	cacheManager.StartCleanup(10 * time.Minute)
	defer cacheManager.Stop()

	// A nil *amqp.Client must stay a nil interface for the consumers.
	var botRecords bot.RecordPublisher
	var unlockRecords payments.RecordPublisher
	if events != nil {
		botRecords = events
		unlockRecords = events
	}

	router := bot.New(st, checkout, botRecords)
	reconciler := payments.NewReconciler(st, cfg.WebhookSecret, cfg.ResetPeriodOnUnlock, unlockRecords)

	srv := apphttp.NewServer(":"+cfg.Port, router, reconciler)
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting budgetwizard server", "port", cfg.Port, "checkout", checkout != nil, "amqp", events != nil)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Server error", "error", err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
