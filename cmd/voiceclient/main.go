package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/samber/do/v2"

	apiimpl "github.com/mindfulvoice/backend/external/api"
	configloader "github.com/mindfulvoice/backend/external/config"
	localcacheimpl "github.com/mindfulvoice/backend/external/localcache"
	memorysyncimpl "github.com/mindfulvoice/backend/external/memorysync"
	repositoryimpl "github.com/mindfulvoice/backend/external/repository"
	roomimpl "github.com/mindfulvoice/backend/external/room"
	"github.com/mindfulvoice/backend/internal/config"
	"github.com/mindfulvoice/backend/internal/poller"
	"github.com/mindfulvoice/backend/internal/profile"
	"github.com/mindfulvoice/backend/internal/recorder"
	"github.com/mindfulvoice/backend/internal/session"
)

const startTimeout = 30 * time.Second

func main() {
	identity := flag.String("identity", "", "participant identity for a room session")
	phoneNumber := flag.String("phone", "", "E.164 number for an outbound phone session")
	flag.Parse()

	if (*identity == "") == (*phoneNumber == "") {
		slog.Error("exactly one of -identity or -phone is required")
		os.Exit(2)
	}

	cfg := mustLoadConfig()
	initLogger(cfg)

	injector := setupDI(cfg)
	ctrl, err := do.Invoke[*session.Controller](injector)
	if err != nil {
		slog.Error("failed to resolve session controller", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), startTimeout)
	if *identity != "" {
		err = ctrl.StartRoomSession(ctx, *identity)
	} else {
		_, err = ctrl.StartPhoneSession(ctx, *phoneNumber)
	}
	cancel()
	if err != nil {
		slog.Error("failed to start session", "error", err)
		os.Exit(1)
	}

	waitForEnd(ctrl)

	ctrl.End(context.Background())
	slog.Info("session finished", "state", string(ctrl.State()))
}

// waitForEnd blocks until the user interrupts or the session reaches a
// terminal state on its own.
func waitForEnd(ctrl *session.Controller) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-sigCh:
			slog.Info("ending session")
			return
		case <-ticker.C:
			switch ctrl.State() {
			case session.StateEnded:
				return
			case session.StateError:
				slog.Error("session failed", "error", ctrl.ErrorMessage())
				return
			}
		}
	}
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
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))
}

func setupDI(cfg *config.Config) do.Injector {
	injector := do.New()

	do.ProvideValue(injector, cfg)
	repositoryimpl.RegisterDI(injector)
	localcacheimpl.RegisterDI(injector)
	memorysyncimpl.RegisterDI(injector)
	apiimpl.RegisterDI(injector)
	roomimpl.RegisterDI(injector)
	profile.RegisterDI(injector)
	poller.RegisterDI(injector)
	recorder.RegisterDI(injector)
	session.RegisterDI(injector)

	return injector
}
