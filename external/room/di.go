package room

import (
	"github.com/mindfulvoice/backend/internal/room"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(do.Injector) (room.Dialer, error) {
		return NewWSDialer(), nil
	})
}
