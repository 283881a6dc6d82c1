package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/vhl-acmg-classifier/internal/app"
	"github.com/vhl-acmg-classifier/internal/mcp"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// stdout carries the protocol; the logger writes to stderr
	application, err := app.LoadFromEnv(ctx)
	if err != nil {
		log.Fatalf("Failed to initialize classifier: %v", err)
	}
	defer application.Close()

	cfg := application.Config
	application.Logger.WithField("server_name", cfg.MCP.ServerName).Info("Starting VHL ACMG/AMP MCP server")

	mcpServer := mcp.NewServer(cfg.MCP, application.Logger, application.Classifier, application.Feedback)

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		application.Logger.Info("Shutdown signal received, gracefully shutting down MCP server...")
		cancel()
	}()

	if err := mcpServer.Run(ctx); err != nil {
		application.Logger.Fatalf("MCP server failed: %v", err)
	}

	application.Logger.Info("MCP server stopped")
}
