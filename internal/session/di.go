package session

import (
	"github.com/samber/do/v2"

	"github.com/mindfulvoice/backend/internal/memorysync"
	"github.com/mindfulvoice/backend/internal/poller"
	"github.com/mindfulvoice/backend/internal/profile"
	"github.com/mindfulvoice/backend/internal/recorder"
	"github.com/mindfulvoice/backend/internal/room"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*Controller, error) {
		return NewController(
			do.MustInvoke[APIClient](i),
			do.MustInvoke[room.Dialer](i),
			do.MustInvoke[*poller.Poller](i),
			do.MustInvoke[profile.Source](i),
			do.MustInvoke[memorysync.Sender](i),
			do.MustInvoke[recorder.Sink](i),
		), nil
	})
}
