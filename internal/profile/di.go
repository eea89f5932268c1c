package profile

import (
	"github.com/samber/do/v2"

	"github.com/mindfulvoice/backend/internal/store"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (Source, error) {
		return NewStoreSource(do.MustInvoke[store.SessionStore](i)), nil
	})
}
