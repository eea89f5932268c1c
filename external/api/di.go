package api

import (
	"github.com/samber/do/v2"

	"github.com/mindfulvoice/backend/internal/config"
	"github.com/mindfulvoice/backend/internal/poller"
	"github.com/mindfulvoice/backend/internal/session"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (session.APIClient, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return NewClient(cfg.BackendURL), nil
	})
	do.Provide(injector, func(i do.Injector) (poller.StatusClient, error) {
		return do.MustInvoke[session.APIClient](i), nil
	})
}
