package token

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestMintJoinCredential_ClaimsAndSignature(t *testing.T) {
	p := NewJWTProvider("api-key", "api-secret", "wss://example.livekit.cloud", 6*time.Hour)

	cred, err := p.MintJoinCredential("voice-session-1", "alice@example.com")
	if err != nil {
		t.Fatalf("mint failed: %v", err)
	}
	if cred.URL != "wss://example.livekit.cloud" {
		t.Fatalf("unexpected url: %s", cred.URL)
	}

	var claims joinClaims
	parsed, err := jwt.ParseWithClaims(cred.Token, &claims, func(tok *jwt.Token) (any, error) {
		if tok.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return []byte("api-secret"), nil
	})
	if err != nil || !parsed.Valid {
		t.Fatalf("token does not verify: %v", err)
	}
	if claims.Issuer != "api-key" || claims.Subject != "alice@example.com" {
		t.Fatalf("unexpected registered claims: %+v", claims.RegisteredClaims)
	}
	if claims.Video.Room != "voice-session-1" || !claims.Video.RoomJoin {
		t.Fatalf("unexpected video grant: %+v", claims.Video)
	}
	if !claims.Video.CanPublish || !claims.Video.CanSubscribe || !claims.Video.CanPublishData {
		t.Fatalf("missing publish/subscribe grants: %+v", claims.Video)
	}

	expiry, err := claims.GetExpirationTime()
	if err != nil || expiry == nil {
		t.Fatalf("missing expiry: %v", err)
	}
	ttl := time.Until(expiry.Time)
	if ttl < 5*time.Hour || ttl > 7*time.Hour {
		t.Fatalf("unexpected ttl: %s", ttl)
	}
}

func TestMintJoinCredential_RequiresRoomAndIdentity(t *testing.T) {
	p := NewJWTProvider("api-key", "api-secret", "wss://example.livekit.cloud", time.Hour)
	if _, err := p.MintJoinCredential("", "alice"); !errors.Is(err, ErrMissingIdentity) {
		t.Fatalf("expected ErrMissingIdentity, got %v", err)
	}
	if _, err := p.MintJoinCredential("room", ""); !errors.Is(err, ErrMissingIdentity) {
		t.Fatalf("expected ErrMissingIdentity, got %v", err)
	}
}
