package httpapi

import (
	"github.com/samber/do/v2"

	"github.com/mindfulvoice/backend/internal/dispatch"
	"github.com/mindfulvoice/backend/internal/token"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*Server, error) {
		return NewServer(
			do.MustInvoke[token.Provider](i),
			do.MustInvoke[*dispatch.Dispatcher](i),
			do.MustInvoke[*dispatch.Registry](i),
		), nil
	})
}
