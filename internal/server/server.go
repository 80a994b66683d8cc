// Package server assembles the local reference server: router,
// middleware and HTTP server settings.
package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/getmyuri/getmyuri-client/internal/config"
	"github.com/getmyuri/getmyuri-client/internal/middleware"
	"github.com/getmyuri/getmyuri-client/internal/mockapi"
)

// NewRouter initializes all dependencies and returns a configured Gin
// router. This is useful for testing where you don't need the full
// HTTP server.
func NewRouter(cfg *config.Config, store *mockapi.Store, logger *slog.Logger, registry *prometheus.Registry) *gin.Engine {
	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logging(logger))
	router.Use(middleware.Metrics(registry))

	baseURL := "http://localhost:" + cfg.Mock.Port
	handler := mockapi.NewHandler(store, baseURL, cfg.Mock.AccessPage, logger)
	handler.RegisterRoutes(router)

	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	return router
}

// NewServer initializes all dependencies and returns a configured HTTP
// server. This includes the router plus HTTP server settings
// (timeouts, address, etc.).
func NewServer(cfg *config.Config, store *mockapi.Store, logger *slog.Logger, registry *prometheus.Registry) *http.Server {
	router := NewRouter(cfg, store, logger, registry)

	return &http.Server{
		Addr:         ":" + cfg.Mock.Port,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}
