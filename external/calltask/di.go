package calltask

import (
	"github.com/mindfulvoice/backend/internal/calltask"
	"github.com/mindfulvoice/backend/internal/config"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (calltask.Runner, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return NewExecRunner(cfg.CallTaskCommand, cfg.CallTaskArgs), nil
	})
}
