// Command mockapi serves a local TrainingSoft backend seeded with demo
// accounts.
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

	"golang.org/x/crypto/bcrypt"

	"github.com/sstasesores/trainingsoft/internal/app"
	"github.com/sstasesores/trainingsoft/internal/mockapi"
	"github.com/sstasesores/trainingsoft/internal/observability"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg, os.Stderr)

	dir, err := mockapi.NewDirectory(bcrypt.DefaultCost)
	if err != nil {
		logger.Error("seed directory", slog.Any("error", err))
		os.Exit(1)
	}
	metrics := observability.NewMetrics()
	tokens := mockapi.NewTokenIssuer(cfg.MockAPITokenSecret, cfg.MockAPITokenTTL)

	router := app.NewRouter(app.RouterParams{
		Logger:  logger,
		Config:  cfg,
		Metrics: metrics,
		MockAPI: mockapi.NewHandler(logger, dir, tokens, metrics),
	})

	server := &http.Server{
		Addr:         cfg.MockAPIAddr,
		Handler:      router,
		ReadTimeout:  cfg.MockAPIReadTimeout,
		WriteTimeout: cfg.MockAPIWriteTimeout,
	}

	go func() {
		logger.Info("starting mock api", slog.String("addr", cfg.MockAPIAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
