package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/vhl-acmg-classifier/internal/api"
	"github.com/vhl-acmg-classifier/internal/app"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Load configuration and build the classifier
	application, err := app.LoadFromEnv(ctx)
	if err != nil {
		log.Fatalf("Failed to initialize classifier: %v", err)
	}
	defer application.Close()

	cfg := application.Config
	application.Logger.Infof("Starting VHL ACMG/AMP classifier API on %s:%d", cfg.Server.Host, cfg.Server.Port)

	server := api.NewServer(cfg.Server, cfg.Logging, application.Logger, application.Classifier, application.Feedback)

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		application.Logger.Info("Shutdown signal received, gracefully shutting down...")
		cancel()
	}()

	if err := server.Start(ctx); err != nil {
		application.Logger.Fatalf("Server failed: %v", err)
	}

	application.Logger.Info("Server stopped")
}
