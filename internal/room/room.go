package room

import "context"

// DataHandler receives one inbound data message published into the room,
// along with the sender's participant identity when known.
type DataHandler func(payload []byte, senderIdentity string)

// Connection is one participant's live attachment to a room. Every
// subscription returns its own disposer; disposers and Disconnect are
// idempotent.
type Connection interface {
	LocalIdentity() string
	OnData(handler DataHandler) (unsubscribe func())
	OnTrackChange(handler func()) (unsubscribe func())
	RemoteAudioActive() bool
	Disconnect() error
}

type Dialer interface {
	Dial(ctx context.Context, url, token, identity string) (Connection, error)
}
