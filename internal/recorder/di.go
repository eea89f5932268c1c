package recorder

import (
	"github.com/mindfulvoice/backend/internal/store"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (Sink, error) {
		sessionStore := do.MustInvoke[store.SessionStore](i)
		cache := do.MustInvoke[store.LocalCache](i)
		return New(sessionStore, cache), nil
	})
}
