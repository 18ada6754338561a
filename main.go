// ABOUTME: Entry point for the ArtFolio web client
// ABOUTME: Serves gallery pages and holds user tokens on behalf of the browser

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

	"github.com/getsentry/sentry-go"
	"github.com/markalston/artfolio-web/cache"
	"github.com/markalston/artfolio-web/config"
	"github.com/markalston/artfolio-web/handlers"
	"github.com/markalston/artfolio-web/logger"
	"github.com/markalston/artfolio-web/services"
	"github.com/markalston/artfolio-web/store"
	"github.com/markalston/artfolio-web/views"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Initialize structured logging
	logger.Init("artfolio-web")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting ArtFolio web client", "environment", cfg.Environment)
	slog.Info("Backend API configured", "url", cfg.APIBaseURL)

	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			Environment:      cfg.SentryEnvironment,
			AttachStacktrace: true,
		}); err != nil {
			slog.Error("Failed to initialize Sentry", "error", err)
			os.Exit(1)
		}
		defer sentry.Flush(2 * time.Second)
		slog.Info("Sentry error reporting enabled")
	}

	// Initialize cache
	cacheTTL := time.Duration(cfg.CacheTTL) * time.Second
	c := cache.New(cacheTTL)
	defer c.Stop()
	slog.Info("Cache initialized", "ttl", cacheTTL)

	provider, closeStore, err := store.Open(cfg, c)
	if err != nil {
		slog.Error("Failed to initialize session store", "store", cfg.SessionStore, "error", err)
		os.Exit(1)
	}
	defer closeStore()
	slog.Info("Session store initialized", "store", cfg.SessionStore)

	renderer, err := views.New()
	if err != nil {
		slog.Error("Failed to parse templates", "error", err)
		os.Exit(1)
	}

	api := services.NewAPIClient(cfg.APIBaseURL, time.Duration(cfg.APITimeout)*time.Second)
	sessions := services.NewSessionManager(api, services.WithProfileCache(c, cacheTTL))
	gallery := services.NewGallery(api, c, cacheTTL)

	h := handlers.NewHandler(cfg, sessions, gallery, renderer)
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           h.Router(handlers.RouterConfig{Provider: provider}),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		slog.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Graceful shutdown failed", "error", err)
		}
	}
}
