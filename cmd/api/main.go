// Package main provides the entry point for the Guidepost server application.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/samber/do/v2"

	"github.com/guidepostapp/guidepost-server/internal/di"
	"github.com/guidepostapp/guidepost-server/internal/logger"
)

// version is stamped at build time via -ldflags "-X main.version=...".
var version = "0.1.0-dev"

func main() {
	// Create DI container
	injector := di.NewContainer(version)

	// Bootstrap all services
	if err := di.Bootstrap(injector); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap server: %v\n", err)
		os.Exit(1)
	}

	// Get logger for shutdown messages
	log := do.MustInvoke[*logger.Logger](injector)

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server gracefully...")

	// The container stops services in reverse start order: mDNS first, then
	// the HTTP server, then the search index and database.
	if err := injector.Shutdown(); err != nil {
		log.Error("Shutdown error", "error", err)
	}

	log.Info("Server stopped")
}
