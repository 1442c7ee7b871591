package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/AeThex-Foundation/PlatformOS-sub011/internal/app"
	"github.com/AeThex-Foundation/PlatformOS-sub011/internal/config"
	"github.com/AeThex-Foundation/PlatformOS-sub011/internal/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Logger config may itself be broken; stderr is all we have.
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		os.Stderr.WriteString("failed to init logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer stop()

	application, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal("failed to initialize app", zap.Error(err))
	}

	go func() {
		if err := application.Run(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("http server failed", zap.Error(err))
		}
	}()

	log.Info("identity-service started", zap.String("port", cfg.Server.Port))

	<-ctx.Done()

	log.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		cfg.Server.ShutdownTimeout,
	)
	defer cancel()

	if err := application.Shutdown(shutdownCtx); err != nil {
		log.Fatal("graceful shutdown failed", zap.Error(err))
	}

	log.Info("identity-service stopped cleanly")
}
