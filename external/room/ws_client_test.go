package room

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func newGatewayServer(t *testing.T, serve func(*websocket.Conn)) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.Header.Get("Authorization"), "Bearer ") {
			http.Error(w, "missing token", http.StatusUnauthorized)
			return
		}
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		serve(ws)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestDial_DataAndTrackEvents(t *testing.T) {
	ready := make(chan *websocket.Conn, 1)
	srv := newGatewayServer(t, func(ws *websocket.Conn) {
		ready <- ws
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	})

	conn, err := NewWSDialer().Dial(context.Background(), wsURL(srv), "tok", "alice")
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Disconnect()

	if conn.LocalIdentity() != "alice" {
		t.Fatalf("unexpected identity: %s", conn.LocalIdentity())
	}

	type dataMsg struct {
		payload string
		sender  string
	}
	dataCh := make(chan dataMsg, 4)
	unsubData := conn.OnData(func(payload []byte, sender string) {
		dataCh <- dataMsg{payload: string(payload), sender: sender}
	})
	defer unsubData()

	trackCh := make(chan struct{}, 4)
	unsubTrack := conn.OnTrackChange(func() {
		trackCh <- struct{}{}
	})
	defer unsubTrack()

	server := <-ready
	mustWrite(t, server, websocket.TextMessage, []byte(`{"event":"participant_joined","identity":"agent"}`))
	mustWrite(t, server, websocket.BinaryMessage, []byte(`{"type":"transcript","text":"hi"}`))
	mustWrite(t, server, websocket.TextMessage, []byte(`{"event":"track_update","active":true}`))

	select {
	case got := <-dataCh:
		if got.payload != `{"type":"transcript","text":"hi"}` || got.sender != "agent" {
			t.Fatalf("unexpected data message: %+v", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("data handler never fired")
	}

	select {
	case <-trackCh:
	case <-time.After(2 * time.Second):
		t.Fatal("track handler never fired")
	}
	if !conn.RemoteAudioActive() {
		t.Fatal("remote audio should be active after track_update")
	}

	mustWrite(t, server, websocket.TextMessage, []byte(`{"event":"track_update","active":false}`))
	select {
	case <-trackCh:
	case <-time.After(2 * time.Second):
		t.Fatal("second track handler never fired")
	}
	if conn.RemoteAudioActive() {
		t.Fatal("remote audio should be inactive after mute")
	}
}

func TestOnData_UnsubscribeStopsDelivery(t *testing.T) {
	ready := make(chan *websocket.Conn, 1)
	srv := newGatewayServer(t, func(ws *websocket.Conn) {
		ready <- ws
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	})

	conn, err := NewWSDialer().Dial(context.Background(), wsURL(srv), "tok", "alice")
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Disconnect()

	received := make(chan struct{}, 4)
	unsub := conn.OnData(func([]byte, string) { received <- struct{}{} })
	unsub()
	unsub() // double release is a no-op

	server := <-ready
	mustWrite(t, server, websocket.BinaryMessage, []byte("payload"))

	select {
	case <-received:
		t.Fatal("handler fired after unsubscribe")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestDisconnect_Idempotent(t *testing.T) {
	srv := newGatewayServer(t, func(ws *websocket.Conn) {
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	})

	conn, err := NewWSDialer().Dial(context.Background(), wsURL(srv), "tok", "alice")
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	first := conn.Disconnect()
	second := conn.Disconnect()
	if second != first {
		t.Fatalf("expected same result on repeated disconnect, got %v then %v", first, second)
	}
}

func mustWrite(t *testing.T, ws *websocket.Conn, messageType int, payload []byte) {
	t.Helper()
	if err := ws.WriteMessage(messageType, payload); err != nil {
		t.Fatalf("server write failed: %v", err)
	}
}
