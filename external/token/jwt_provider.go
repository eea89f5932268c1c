package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/mindfulvoice/backend/internal/token"
)

var ErrMissingIdentity = errors.New("room name and identity are required")

type videoGrant struct {
	Room           string `json:"room"`
	RoomJoin       bool   `json:"roomJoin"`
	CanPublish     bool   `json:"canPublish"`
	CanSubscribe   bool   `json:"canSubscribe"`
	CanPublishData bool   `json:"canPublishData"`
}

type joinClaims struct {
	jwt.RegisteredClaims
	Name  string     `json:"name"`
	Video videoGrant `json:"video"`
}

// JWTProvider mints room-join access tokens signed with the server's API
// secret, in the shape the real-time transport expects.
type JWTProvider struct {
	apiKey    string
	apiSecret string
	serverURL string
	ttl       time.Duration
}

func NewJWTProvider(apiKey, apiSecret, serverURL string, ttl time.Duration) *JWTProvider {
	return &JWTProvider{
		apiKey:    apiKey,
		apiSecret: apiSecret,
		serverURL: serverURL,
		ttl:       ttl,
	}
}

func (p *JWTProvider) MintJoinCredential(roomName, identity string) (token.Credential, error) {
	if roomName == "" || identity == "" {
		return token.Credential{}, ErrMissingIdentity
	}

	now := time.Now()
	claims := joinClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    p.apiKey,
			Subject:   identity,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(p.ttl)),
		},
		Name: identity,
		Video: videoGrant{
			Room:           roomName,
			RoomJoin:       true,
			CanPublish:     true,
			CanSubscribe:   true,
			CanPublishData: true,
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(p.apiSecret))
	if err != nil {
		return token.Credential{}, fmt.Errorf("failed to sign join token: %w", err)
	}
	return token.Credential{Token: signed, URL: p.serverURL}, nil
}
