package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/Tyrowin/gochat-relay/internal/config"
	"github.com/Tyrowin/gochat-relay/internal/logger"
	"github.com/Tyrowin/gochat-relay/internal/server"
)

func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		logger.New("info", "").Fatal("Error loading config", err)
	}

	log := logger.New(cfg.Log.Level, cfg.Log.File)
	log.Info("Starting GoChat relay...", "port", cfg.Port, "retention", cfg.Retention.Window.String())

	srv := server.New(cfg, log)
	srv.Start()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			log.Fatal("Server failed", err)
		}
	case <-ctx.Done():
		log.Info("Shutdown signal received")
	}

	if err := srv.Shutdown(); err != nil {
		log.Error("Shutdown finished with errors", err)
	}
}
