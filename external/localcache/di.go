package localcache

import (
	"github.com/mindfulvoice/backend/internal/config"
	"github.com/mindfulvoice/backend/internal/store"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (store.LocalCache, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return NewFileCache(cfg.LocalCacheDir)
	})
}
