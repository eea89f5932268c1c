package token

import (
	"github.com/mindfulvoice/backend/internal/config"
	"github.com/mindfulvoice/backend/internal/token"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (token.Provider, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return NewJWTProvider(cfg.LiveKitAPIKey, cfg.LiveKitAPISecret, cfg.LiveKitURL, cfg.TokenTTL), nil
	})
}
