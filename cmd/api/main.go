package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/bmtechlabs/umai-payment-receiver/internal/config"
	"github.com/bmtechlabs/umai-payment-receiver/internal/engine"
	"github.com/bmtechlabs/umai-payment-receiver/internal/events/kafka"
	"github.com/bmtechlabs/umai-payment-receiver/internal/handler"
	"github.com/bmtechlabs/umai-payment-receiver/internal/logging"
	"github.com/bmtechlabs/umai-payment-receiver/internal/middleware"
	"github.com/bmtechlabs/umai-payment-receiver/internal/repository"
	"github.com/bmtechlabs/umai-payment-receiver/internal/service"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logging.Init("umai-payment-receiver", cfg.LogLevel, cfg.AppEnv)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	db, err := repository.NewPostgresDB(ctx, cfg.DatabaseURL, repository.PoolConfig{
		MaxOpenConns:     cfg.DBMaxOpenConns,
		MaxIdleConns:     cfg.DBMaxIdleConns,
		ConnMaxLifetimeS: cfg.DBConnMaxLifetimeS,
		ConnMaxIdleTimeS: cfg.DBConnMaxIdleTimeS,
	})
	cancel()
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	accounts := repository.NewAccountRepository(db)
	entries := repository.NewEntryRepository(db)
	eng := engine.New(db, accounts, entries)

	var svc *service.Service
	if len(cfg.KafkaBrokers) > 0 {
		publisher := kafka.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer publisher.Close()
		svc = service.NewService(accounts, entries, eng, publisher)
	} else {
		slog.Warn("no kafka brokers configured, settlement events disabled")
		svc = service.NewService(accounts, entries, eng, nil)
	}

	payments := handler.NewPaymentHandler(svc)
	health := handler.NewHealthHandler(db)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", health.Check)
	mux.HandleFunc("POST /api/v1/payments/validate", payments.Validate)
	mux.HandleFunc("POST /api/v1/payments", payments.Process)
	mux.HandleFunc("GET /api/v1/payments", payments.List)
	mux.HandleFunc("GET /api/v1/payments/{id}", payments.Get)
	mux.HandleFunc("POST /api/v1/payments/{id}/cancel", payments.Cancel)

	allowlist, err := middleware.Allowlist(cfg.AllowedSources)
	if err != nil {
		slog.Error("invalid ALLOWED_SOURCES", "error", err)
		os.Exit(1)
	}

	var root http.Handler = mux
	root = middleware.Recovery(root)
	root = allowlist(root)
	root = middleware.Logging(root)
	root = middleware.Tracing(root)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           root,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		slog.Info("server started", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}
