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

	"jobshop/internal/auth"
	"jobshop/internal/config"
	"jobshop/internal/database"
	"jobshop/internal/financehub"
	"jobshop/internal/handler"
	"jobshop/internal/invoice"
	"jobshop/internal/messaging"
	"jobshop/internal/metrics"
	"jobshop/internal/monitor"
	"jobshop/internal/repository"
	"jobshop/internal/router"
	"jobshop/internal/service"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := config.NewLogger(cfg.Logger)
	logger.Info().Msg("starting jobshop API server")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := database.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool, logger); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	// Repositories
	productRepo := repository.NewProductRepository(pool, logger)
	orderRepo := repository.NewOrderRepository(pool, logger)
	userRepo := repository.NewUserRepository(pool, logger)
	searchRepo := repository.NewJobSearchRepository(pool, logger)
	dashboardRepo := repository.NewDashboardRepository(pool, logger)

	invoices, err := newInvoiceStore(ctx, cfg, logger)
	if err != nil {
		return err
	}

	hub := financehub.NewClient(cfg.FinanceHub, logger)
	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	rabbit, err := messaging.Dial(cfg.RabbitMQ.URL, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := rabbit.Close(); err != nil {
			logger.Error().Err(err).Msg("failed to close rabbitmq client")
		}
	}()

	publisher, err := messaging.NewPublisher(rabbit, cfg.RabbitMQ.RequestQueue, logger)
	if err != nil {
		return err
	}

	// Services
	productService := service.NewProductService(productRepo, logger)
	paymentService := service.NewPaymentService(productRepo, hub, cfg.Payment, logger)
	orderService := service.NewOrderService(paymentService, orderRepo, userRepo, invoices, hub, logger)
	authService := service.NewAuthService(userRepo, tokens, logger)
	searchService := service.NewJobSearchService(searchRepo, publisher, logger)
	dashboardService := service.NewDashboardService(dashboardRepo, logger)

	consumer, err := messaging.NewConsumer(
		rabbit,
		cfg.RabbitMQ.ResultQueue,
		cfg.RabbitMQ.Workers,
		messaging.JobSearchResultHandler(searchService),
		logger,
	)
	if err != nil {
		return err
	}

	m := metrics.New()
	stuckMonitor := monitor.NewWorker(orderService, m.StuckOrders, cfg.Monitor.StuckAfter(), cfg.Monitor.Interval, logger)

	handlers := router.Handlers{
		Auth:      handler.NewAuthHandler(authService, logger),
		Product:   handler.NewProductHandler(productService, logger),
		Payment:   handler.NewPaymentHandler(paymentService, orderService, logger),
		Order:     handler.NewOrderHandler(orderService, cfg.Monitor.StuckOrderHours, logger),
		JobSearch: handler.NewJobSearchHandler(searchService, dashboardService, logger),
	}
	mux := router.New(handlers, authService, m, router.Options{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Maintenance:    cfg.Server.Maintenance,
	}, logger)

	server := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info().Str("address", cfg.Server.Address()).Msg("HTTP server started")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		if err := consumer.Run(gctx); err != nil {
			return fmt.Errorf("result consumer stopped: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		stuckMonitor.Run(gctx)
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutdown signal received, starting graceful shutdown")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("failed to shutdown server gracefully")
			if closeErr := server.Close(); closeErr != nil {
				logger.Error().Err(closeErr).Msg("failed to close server")
			}
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}

	logger.Info().Msg("server shutdown completed")
	return nil
}

// newInvoiceStore returns the local file store, fronted by S3 when enabled.
func newInvoiceStore(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (invoice.Store, error) {
	fileStore, err := invoice.NewFileStore(cfg.Invoice.Dir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize invoice storage: %w", err)
	}

	if !cfg.S3.Enabled {
		logger.Info().Msg("using local file system for invoices (S3 disabled)")
		return fileStore, nil
	}

	s3Store, err := invoice.NewS3Store(ctx, cfg.S3.Bucket, cfg.S3.Region, cfg.S3.Prefix, logger)
	if err != nil {
		logger.Warn().
			Err(err).
			Msg("failed to initialise S3 invoice store, falling back to local file system only")
		return fileStore, nil
	}

	return invoice.NewFallbackStore(s3Store, fileStore, true, logger), nil
}
