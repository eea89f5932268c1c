package room

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/mindfulvoice/backend/internal/room"
)

// controlFrame is a JSON text frame from the room gateway. Binary frames
// carry raw data-channel payloads and are fanned out untouched.
type controlFrame struct {
	Event    string `json:"event"`
	Identity string `json:"identity"`
	Active   bool   `json:"active"`
}

type WSDialer struct{}

func NewWSDialer() *WSDialer {
	return &WSDialer{}
}

func (d *WSDialer) Dial(ctx context.Context, url, token, identity string) (room.Connection, error) {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)

	ws, _, err := websocket.DefaultDialer.DialContext(ctx, url, header)
	if err != nil {
		return nil, fmt.Errorf("failed to dial room gateway: %w", err)
	}

	c := &WSConnection{
		ws:            ws,
		localIdentity: identity,
		dataHandlers:  make(map[int]room.DataHandler),
		trackHandlers: make(map[int]func()),
	}
	go c.readLoop()
	return c, nil
}

// WSConnection speaks the agent gateway's websocket protocol: binary
// frames are data messages, text frames are control events for
// participant and track state.
type WSConnection struct {
	ws            *websocket.Conn
	localIdentity string

	mu             sync.Mutex
	nextHandlerID  int
	dataHandlers   map[int]room.DataHandler
	trackHandlers  map[int]func()
	remoteIdentity string
	remoteAudio    bool
	closed         bool

	closeOnce sync.Once
	closeErr  error
}

func (c *WSConnection) LocalIdentity() string {
	return c.localIdentity
}

func (c *WSConnection) OnData(handler room.DataHandler) (unsubscribe func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextHandlerID
	c.nextHandlerID++
	c.dataHandlers[id] = handler
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.dataHandlers, id)
	}
}

func (c *WSConnection) OnTrackChange(handler func()) (unsubscribe func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextHandlerID
	c.nextHandlerID++
	c.trackHandlers[id] = handler
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.trackHandlers, id)
	}
}

func (c *WSConnection) RemoteAudioActive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remoteAudio
}

func (c *WSConnection) Disconnect() error {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()
		_ = c.ws.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.closeErr = c.ws.Close()
	})
	return c.closeErr
}

func (c *WSConnection) readLoop() {
	for {
		messageType, payload, err := c.ws.ReadMessage()
		if err != nil {
			c.mu.Lock()
			closed := c.closed
			c.mu.Unlock()
			if !closed {
				slog.Warn("room connection read failed", "error", err, "identity", c.localIdentity)
			}
			return
		}
		switch messageType {
		case websocket.BinaryMessage:
			c.dispatchData(payload)
		case websocket.TextMessage:
			c.handleControl(payload)
		}
	}
}

func (c *WSConnection) dispatchData(payload []byte) {
	c.mu.Lock()
	sender := c.remoteIdentity
	handlers := make([]room.DataHandler, 0, len(c.dataHandlers))
	for _, h := range c.dataHandlers {
		handlers = append(handlers, h)
	}
	c.mu.Unlock()
	for _, h := range handlers {
		h(payload, sender)
	}
}

func (c *WSConnection) handleControl(payload []byte) {
	var frame controlFrame
	if err := json.Unmarshal(payload, &frame); err != nil {
		return
	}
	switch frame.Event {
	case "participant_joined":
		c.mu.Lock()
		if frame.Identity != c.localIdentity {
			c.remoteIdentity = frame.Identity
		}
		c.mu.Unlock()
	case "track_update":
		c.mu.Lock()
		c.remoteAudio = frame.Active
		handlers := make([]func(), 0, len(c.trackHandlers))
		for _, h := range c.trackHandlers {
			handlers = append(handlers, h)
		}
		c.mu.Unlock()
		for _, h := range handlers {
			h()
		}
	}
}
