package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"levelup-loyalty/internal/config"
	"levelup-loyalty/internal/database"
	"levelup-loyalty/internal/handler"
	"levelup-loyalty/internal/idgen"
	"levelup-loyalty/internal/janitor"
	"levelup-loyalty/internal/metrics"
	"levelup-loyalty/internal/router"
	"levelup-loyalty/internal/service"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Initialize logger
	logger := config.NewLogger(cfg.Logger)
	logger.Info().Msg("starting levelup loyalty API server")

	// Create context for application lifecycle
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database connection pool
	pool, err := database.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer pool.Close()

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(ctx, pool, "up", logger); err != nil {
			return fmt.Errorf("failed to apply migrations: %w", err)
		}
	}

	// Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// Initialize services
	hub := service.NewHub()
	defer hub.Close()

	deps := service.Deps{
		Repos:   service.NewRepositories(pool, logger),
		Hub:     hub,
		IDs:     idgen.New(),
		Loyalty: cfg.Loyalty,
		Metrics: metrics.NewLoyalty(reg),
		Logger:  logger,
	}

	ledgerService := service.NewLedgerService(deps)
	cartService := service.NewCartService(deps)
	checkoutService := service.NewCheckoutService(deps)
	referralService := service.NewReferralService(deps)
	discountService := service.NewDiscountService(deps, nil)
	memberService := service.NewMemberService(deps)

	// Background purge of expired discounts
	if cfg.Janitor.Enabled {
		j := janitor.New(cfg.Janitor.Interval, metrics.NewJobs(reg), logger,
			janitor.NewDiscountPurge(discountService, nil, logger))
		go func() {
			if err := j.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error().Err(err).Msg("janitor stopped unexpectedly")
			}
		}()
	}

	// Initialize router
	mux := router.New(router.Handlers{
		Loyalty:  handler.NewLoyaltyHandler(ledgerService, logger),
		Cart:     handler.NewCartHandler(cartService, logger),
		Checkout: handler.NewCheckoutHandler(checkoutService, logger),
		Referral: handler.NewReferralHandler(referralService, logger),
		Discount: handler.NewDiscountHandler(discountService, logger),
		Member:   handler.NewMemberHandler(memberService, logger),
	}, router.Options{
		APIKey:   cfg.Auth.APIKey,
		Gatherer: reg,
		Metrics:  metrics.NewHTTP(reg),
		Logger:   logger,
	})

	// Create HTTP server. Streams clear their own write deadline.
	server := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second + cfg.Loyalty.PaymentDelay,
		IdleTimeout:  60 * time.Second,
	}

	// Channel to listen for errors from the server
	serverErrors := make(chan error, 1)

	go func() {
		logger.Info().
			Str("address", cfg.Server.Address()).
			Msg("HTTP server started")
		serverErrors <- server.ListenAndServe()
	}()

	// Channel to listen for interrupt signals
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Block until we receive a signal or an error
	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		logger.Info().
			Str("signal", sig.String()).
			Msg("shutdown signal received, starting graceful shutdown")

		// open streams end when their subscriptions close
		hub.Close()
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("failed to shutdown server gracefully")
			if closeErr := server.Close(); closeErr != nil {
				logger.Error().Err(closeErr).Msg("failed to close server")
			}
			return fmt.Errorf("server shutdown failed: %w", err)
		}

		logger.Info().Msg("server shutdown completed")
	}

	return nil
}
