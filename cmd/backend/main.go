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

	"github.com/samber/do/v2"

	calltaskimpl "github.com/mindfulvoice/backend/external/calltask"
	configloader "github.com/mindfulvoice/backend/external/config"
	localcacheimpl "github.com/mindfulvoice/backend/external/localcache"
	memorysyncimpl "github.com/mindfulvoice/backend/external/memorysync"
	repositoryimpl "github.com/mindfulvoice/backend/external/repository"
	tokenimpl "github.com/mindfulvoice/backend/external/token"
	"github.com/mindfulvoice/backend/internal/config"
	"github.com/mindfulvoice/backend/internal/dispatch"
	"github.com/mindfulvoice/backend/internal/httpapi"
)

const shutdownTimeout = 10 * time.Second

func main() {
	slog.Info("startup: loading configuration")
	cfg := mustLoadConfig()
	initLogger(cfg)
	slog.Info("startup: configuration loaded", "env", cfg.Env, "port", cfg.Port)

	slog.Info("startup: building dependency graph")
	injector := setupDI(cfg)

	slog.Info("startup: launching http server")
	runServer(cfg, injector)
}

func mustLoadConfig() *config.Config {
	cfg, err := configloader.Load()
	if err != nil {
		slog.Error("config validation failed", "error", err)
		os.Exit(1)
	}
	return cfg
}

func initLogger(cfg *config.Config) {
	logLevel := slog.LevelInfo
	if cfg.IsDevelopment() {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))
}

func setupDI(cfg *config.Config) do.Injector {
	injector := do.New()

	do.ProvideValue(injector, cfg)
	repositoryimpl.RegisterDI(injector)
	localcacheimpl.RegisterDI(injector)
	tokenimpl.RegisterDI(injector)
	calltaskimpl.RegisterDI(injector)
	memorysyncimpl.RegisterDI(injector)
	dispatch.RegisterDI(injector)
	httpapi.RegisterDI(injector)

	return injector
}

func runServer(cfg *config.Config, injector do.Injector) {
	server, err := do.Invoke[*httpapi.Server](injector)
	if err != nil {
		slog.Error("failed to resolve http server", "error", err)
		os.Exit(1)
	}
	registry, err := do.Invoke[*dispatch.Registry](injector)
	if err != nil {
		slog.Error("failed to resolve dispatch registry", "error", err)
		os.Exit(1)
	}
	defer registry.Close()

	httpServer := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: server.Handler(),
	}

	done := make(chan struct{})
	go func() {
		slog.Info("startup: listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server failed", "error", err)
		}
		close(done)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigCh:
		slog.Info("shutting down")
	case <-done:
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		slog.Error("http shutdown failed", "error", err)
	}
}
