package dispatch

import (
	"github.com/mindfulvoice/backend/internal/calltask"
	"github.com/mindfulvoice/backend/internal/config"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*Registry, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return NewRegistry(cfg.DispatchTTL, cfg.DispatchAbandonTTL), nil
	})
	do.Provide(injector, func(i do.Injector) (*Dispatcher, error) {
		cfg := do.MustInvoke[*config.Config](i)
		runner := do.MustInvoke[calltask.Runner](i)
		registry := do.MustInvoke[*Registry](i)
		return NewDispatcher(runner, registry, cfg.InitiateWaitWindow), nil
	})
}
