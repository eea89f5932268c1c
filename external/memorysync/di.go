package memorysync

import (
	"github.com/mindfulvoice/backend/internal/config"
	"github.com/mindfulvoice/backend/internal/memorysync"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (memorysync.Sender, error) {
		c := do.MustInvoke[*config.Config](i)
		return NewHTTPSender(c.MemoryStoreURL), nil
	})
}
