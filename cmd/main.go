package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httphandler "payment-record-service/internal/adapters/http"
	"payment-record-service/internal/adapters/messaging/kafka"
	mockmessaging "payment-record-service/internal/adapters/messaging/mock"
	"payment-record-service/internal/adapters/storage/postgres"
	redisadapter "payment-record-service/internal/adapters/storage/redis"
	"payment-record-service/internal/adapters/storage/retry"
	"payment-record-service/internal/app"
	"payment-record-service/internal/config"
	"payment-record-service/internal/core/ports"
	"payment-record-service/internal/observability"
)

func main() {
	// --- 1. Configuration and Logging ---
	fallbackLogger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	cfg, err := config.Load("configs/config.yaml")
	if err != nil {
		fallbackLogger.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.SetupLogger(cfg.App.Env)
	logger.Info("Application starting", "env", cfg.App.Env, "port", cfg.Server.Port)

	// --- 2. Validate critical config ---
	jwtSecret := cfg.JWT.Secret
	if jwtSecret == "" {
		logger.Error("JWT secret is not set")
		os.Exit(1)
	}

	// --- 3. Observability ---
	shutdownTracer, err := observability.InitTracer(cfg.Jaeger.Endpoint, "payment-record-service")
	if err != nil {
		logger.Error("Failed to initialize tracing", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			logger.Warn("Failed to shutdown tracer", "error", err)
		}
	}()

	// --- 4. Dependencies ---
	ctx := context.Background()

	repo, err := postgres.NewRepository(ctx, cfg.Postgres.DSN)
	if err != nil {
		logger.Error("Failed to connect to PostgreSQL", "error", err)
		os.Exit(1)
	}
	defer repo.Close()
	logger.Info("Connected to PostgreSQL")

	// Retries apply only here, at the store boundary. The core never retries.
	store := retry.NewRepository(repo, retry.PolicyFromConfig(cfg.StoreRetry))

	rateLimiterRepo, err := redisadapter.NewRateLimiterAdapter(cfg.Redis.Addr)
	if err != nil {
		logger.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := rateLimiterRepo.Close(); err != nil {
			logger.Warn("Failed to close Redis connection", "error", err)
		}
	}()

	var events ports.EventPublisher
	if cfg.Kafka.Enabled {
		publisher, err := kafka.NewPublisher([]string{cfg.Kafka.BootstrapServers}, cfg.Kafka.Topic, logger)
		if err != nil {
			logger.Error("Failed to create Kafka publisher", "error", err)
			os.Exit(1)
		}
		defer publisher.Close()
		logger.Info("Kafka publisher created")
		events = publisher
	} else {
		logger.Info("Kafka disabled, lifecycle events will be logged only")
		events = mockmessaging.NewPublisher(logger)
	}

	// --- 5. Service Layer ---
	paymentService := app.NewPaymentService(store, events, app.SystemClock(), logger)
	paymentHandler := httphandler.NewPaymentHandler(paymentService, logger)
	authHandler := httphandler.NewAuthHandler(logger, jwtSecret)
	rateLimiterMiddleware := httphandler.NewRateLimiterMiddleware(
		rateLimiterRepo,
		cfg.RateLimit.Requests,
		time.Duration(cfg.RateLimit.WindowSeconds)*time.Second,
		logger,
	)

	// --- 6. HTTP Router ---
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		rateLimiterMiddleware.Handler,
		middleware.Logger,
		middleware.Recoverer,
		observability.NewLoggerMiddleware(logger),
		observability.NewMetricsMiddleware("payment-record-service"),
		observability.NewTracingMiddleware("payment-record-service"),
	)

	// Public routes
	r.Post("/login", authHandler.HandleLogin)
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if err := json.NewEncoder(w).Encode(map[string]string{
			"status":  "healthy",
			"service": "payment-record-service",
		}); err != nil {
			logger.Error("Failed to write health response", "error", err)
		}
	})
	r.Handle("/metrics", promhttp.Handler())

	// Protected routes: /api/v1/*
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(httphandler.JWTMiddleware([]byte(jwtSecret), logger))
		r.Post("/payments", paymentHandler.HandleCreatePayment)
		r.Delete("/payments/{id}", paymentHandler.HandleStopPayment)
		r.Get("/payments/{id}", paymentHandler.HandleGetPayment)
		r.Get("/payments/card/{cardNumber}", paymentHandler.HandleListPayments)
		r.Get("/payments/active/{cardNumber}", paymentHandler.HandleListActivePayments)
	})

	// --- 7. HTTP Server ---
	serverAddr := cfg.Server.Port
	if serverAddr == "" {
		serverAddr = ":8080"
	}

	srv := &http.Server{
		Addr:         serverAddr,
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("HTTP server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown failed", "error", err)
		os.Exit(1)
	}

	logger.Info("Server exited properly")
}
