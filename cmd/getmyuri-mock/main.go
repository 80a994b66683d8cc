// getmyuri-mock runs a local, in-memory stand-in for the getmyuri
// service so the CLI and its access flow can be exercised offline.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/pflag"

	"github.com/getmyuri/getmyuri-client/internal/config"
	"github.com/getmyuri/getmyuri-client/internal/mockapi"
	"github.com/getmyuri/getmyuri-client/internal/model"
	"github.com/getmyuri/getmyuri-client/internal/observability"
	"github.com/getmyuri/getmyuri-client/internal/server"
)

func main() {
	seed := pflag.Bool("seed", false, "preload a few demonstration links")
	port := pflag.String("port", "", "listen port (overrides PORT)")
	pflag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}
	if *port != "" {
		cfg.Mock.Port = *port
	}

	logger := observability.NewLogger(cfg.App.Environment)

	store := mockapi.NewStore()
	if *seed {
		seedLinks(store, logger)
	}

	registry := prometheus.NewRegistry()
	srv := server.NewServer(cfg, store, logger, registry)

	go func() {
		logger.Info("mock server starting",
			slog.String("port", cfg.Mock.Port),
			slog.String("access_page", cfg.Mock.AccessPage))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed to start", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("server exited gracefully")
}

// seedLinks preloads one link per access policy so every flow path can
// be tried by hand.
func seedLinks(store *mockapi.Store, logger *slog.Logger) {
	fence := &model.Geofence{Lat: 39.7392, Lon: -104.9903, RadiusMeters: 5000}

	links := []*mockapi.Link{
		{AliasPath: "open", Destination: "https://example.com/open"},
		{AliasPath: "locked", Destination: "https://example.com/locked", Passcode: "s3cret"},
		{AliasPath: "fenced", Destination: "https://example.com/fenced", Geofence: fence},
		{AliasPath: "vault", Destination: "https://example.com/vault", Passcode: "s3cret", Geofence: fence},
	}
	for _, l := range links {
		if err := store.Put(l); err != nil {
			logger.Warn("failed to seed link", slog.String("alias", l.AliasPath), slog.Any("error", err))
			continue
		}
		logger.Info("seeded link", slog.String("alias", l.AliasPath))
	}
}
