package token

// Credential is everything a participant needs to join a room.
type Credential struct {
	Token string
	URL   string
}

type Provider interface {
	MintJoinCredential(roomName, identity string) (Credential, error)
}
