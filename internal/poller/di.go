package poller

import (
	"github.com/samber/do/v2"

	"github.com/mindfulvoice/backend/internal/config"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*Poller, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return New(do.MustInvoke[StatusClient](i), cfg.PollInterval), nil
	})
}
