package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mindfulvoice/backend/internal/dispatch"
	"github.com/mindfulvoice/backend/internal/memorysync"
	"github.com/mindfulvoice/backend/internal/poller"
	"github.com/mindfulvoice/backend/internal/profile"
	"github.com/mindfulvoice/backend/internal/recorder"
	"github.com/mindfulvoice/backend/internal/room"
	"github.com/mindfulvoice/backend/internal/store"
	"github.com/mindfulvoice/backend/internal/token"
	"github.com/mindfulvoice/backend/internal/transcript"
)

type State string

const (
	StateIdle       State = "idle"
	StateConnecting State = "connecting"
	StateConnected  State = "connected"
	StateEnded      State = "ended"
	StateError      State = "error"
)

type Transport string

const (
	TransportRoom  Transport = "room"
	TransportPhone Transport = "phone"
)

var (
	ErrInvalidPhoneNumber = dispatch.ErrInvalidPhoneNumber
	// ErrSuperseded is returned from a start call whose session was torn
	// down by a newer start before it finished connecting.
	ErrSuperseded = errors.New("session superseded by a newer one")
)

// InitiateCallResult is the backend's acknowledgment of a phone call
// request. Pending means the call task had not announced its dispatch id
// within the wait window; there is nothing to poll yet.
type InitiateCallResult struct {
	DispatchID  string
	RoomName    string
	PhoneNumber string
	Message     string
	Pending     bool
}

// APIClient is the backend surface the controller drives.
type APIClient interface {
	JoinToken(ctx context.Context, roomName, identity string) (token.Credential, error)
	InitiateCall(ctx context.Context, phoneNumber string) (*InitiateCallResult, error)
	poller.StatusClient
}

// Controller owns one live session at a time: either a browser audio
// room attachment or a monitored phone dispatch. Starting a new session
// tears down the previous one without recording it; End records.
type Controller struct {
	client   APIClient
	dialer   room.Dialer
	poller   *poller.Poller
	profiles profile.Source
	memory   memorysync.Sender
	sink     recorder.Sink

	mu sync.Mutex
	// generation invalidates callbacks and in-flight connects that
	// belong to a torn-down session.
	generation      uint64
	state           State
	transport       Transport
	errMsg          string
	sessionID       string
	identity        string
	phoneNumber     string
	roomName        string
	dispatchID      string
	startedAt       time.Time
	durationSeconds int64
	stream          *transcript.Stream
	teardown        []func()
}

func NewController(client APIClient, dialer room.Dialer, p *poller.Poller, profiles profile.Source, memory memorysync.Sender, sink recorder.Sink) *Controller {
	return &Controller{
		client:   client,
		dialer:   dialer,
		poller:   p,
		profiles: profiles,
		memory:   memory,
		sink:     sink,
		state:    StateIdle,
	}
}

// StartRoomSession connects the participant to a fresh audio room and
// begins collecting the transcript. Any live session is torn down first.
func (c *Controller) StartRoomSession(ctx context.Context, identity string) error {
	c.mu.Lock()
	c.runTeardownLocked()
	gen := c.generation
	sessionID := uuid.NewString()
	roomName := "voice-session-" + sessionID
	c.state = StateConnecting
	c.transport = TransportRoom
	c.errMsg = ""
	c.sessionID = sessionID
	c.identity = identity
	c.phoneNumber = ""
	c.roomName = roomName
	c.dispatchID = ""
	c.durationSeconds = 0
	c.mu.Unlock()

	c.pushProfile(ctx, identity)

	cred, err := c.client.JoinToken(ctx, roomName, identity)
	if err != nil {
		return c.failConnect(gen, fmt.Errorf("failed to fetch join token: %w", err))
	}

	conn, err := c.dialer.Dial(ctx, cred.URL, cred.Token, identity)
	if err != nil {
		return c.failConnect(gen, fmt.Errorf("failed to join room: %w", err))
	}

	stream := transcript.Attach(conn)

	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		stream.Close()
		_ = conn.Disconnect()
		return ErrSuperseded
	}
	c.state = StateConnected
	c.startedAt = time.Now()
	c.stream = stream
	c.teardown = append(c.teardown,
		func() { _ = conn.Disconnect() },
		stream.Close,
	)
	c.mu.Unlock()

	slog.Info("room session started", "session_id", sessionID, "room", roomName)
	return nil
}

// StartPhoneSession asks the backend to place an outbound call and, once
// a dispatch id is known, follows its status until the call ends.
func (c *Controller) StartPhoneSession(ctx context.Context, phoneNumber string) (*InitiateCallResult, error) {
	if !dispatch.ValidPhoneNumber(phoneNumber) {
		return nil, ErrInvalidPhoneNumber
	}

	c.mu.Lock()
	c.runTeardownLocked()
	gen := c.generation
	c.state = StateConnecting
	c.transport = TransportPhone
	c.errMsg = ""
	c.sessionID = uuid.NewString()
	c.phoneNumber = phoneNumber
	c.roomName = ""
	c.dispatchID = ""
	c.durationSeconds = 0
	c.startedAt = time.Now()
	c.mu.Unlock()

	res, err := c.client.InitiateCall(ctx, phoneNumber)
	if err != nil {
		return nil, c.failConnect(gen, fmt.Errorf("failed to initiate call: %w", err))
	}

	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		return nil, ErrSuperseded
	}
	if res.DispatchID != "" {
		c.dispatchID = res.DispatchID
		c.roomName = res.RoomName
		stop := c.poller.Start(res.DispatchID, c.phoneUpdateHandler(gen))
		c.teardown = append(c.teardown, stop)
	}
	c.mu.Unlock()

	slog.Info("phone session started", "phone_number", phoneNumber, "dispatch_id", res.DispatchID, "pending", res.Pending)
	return res, nil
}

func (c *Controller) phoneUpdateHandler(gen uint64) func(poller.Update) {
	return func(u poller.Update) {
		c.mu.Lock()
		if gen != c.generation {
			c.mu.Unlock()
			return
		}
		if u.Err != nil {
			c.state = StateError
			c.errMsg = u.Err.Error()
			c.runTeardownLocked()
			c.mu.Unlock()
			return
		}
		switch u.Status {
		case dispatch.StatusConnected:
			c.state = StateConnected
			c.durationSeconds = u.DurationSeconds
			c.mu.Unlock()
		case dispatch.StatusEnded:
			c.state = StateEnded
			c.durationSeconds = u.DurationSeconds
			c.runTeardownLocked()
			sess := c.snapshotLocked()
			c.mu.Unlock()
			c.sink.Record(context.Background(), sess)
		case dispatch.StatusError:
			c.state = StateError
			c.errMsg = "Call failed"
			c.runTeardownLocked()
			c.mu.Unlock()
		default:
			c.mu.Unlock()
		}
	}
}

// End finishes the live session and hands it to the recorder. A room
// session with no transcript is discarded rather than recorded.
func (c *Controller) End(ctx context.Context) {
	c.mu.Lock()
	if c.state != StateConnected && c.state != StateConnecting {
		c.mu.Unlock()
		return
	}
	entries := 0
	if c.stream != nil {
		entries = len(c.stream.Entries())
	}
	record := c.transport == TransportPhone || entries > 0
	c.state = StateEnded
	var sess recorder.Session
	if record {
		sess = c.snapshotLocked()
	}
	c.runTeardownLocked()
	c.mu.Unlock()

	if record {
		c.sink.Record(ctx, sess)
	}
}

// Reset returns the controller to Idle from any state, dropping all
// transient session fields.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.runTeardownLocked()
	c.state = StateIdle
	c.transport = ""
	c.errMsg = ""
	c.sessionID = ""
	c.identity = ""
	c.phoneNumber = ""
	c.roomName = ""
	c.dispatchID = ""
	c.durationSeconds = 0
	c.startedAt = time.Time{}
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) ErrorMessage() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.errMsg
}

func (c *Controller) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

func (c *Controller) DurationSeconds() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.durationSeconds
}

// Stream exposes the live transcript stream, or nil when no room session
// is connected.
func (c *Controller) Stream() *transcript.Stream {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stream
}

// pushProfile is best-effort priming of the agent's memory; failures are
// logged and never block the session.
func (c *Controller) pushProfile(ctx context.Context, identity string) {
	text, err := c.profiles.ProfileText(ctx, identity)
	if err != nil {
		slog.Warn("failed to build user profile", "error", err, "identity", identity)
		return
	}
	if text == "" {
		return
	}
	if err := c.memory.StoreProfile(ctx, text); err != nil {
		slog.Warn("failed to push user profile to memory store", "error", err, "identity", identity)
	}
}

func (c *Controller) failConnect(gen uint64, err error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		return ErrSuperseded
	}
	c.state = StateError
	c.errMsg = err.Error()
	return err
}

// snapshotLocked builds the recorder handoff from the current fields.
// Caller holds the mutex.
func (c *Controller) snapshotLocked() recorder.Session {
	sess := recorder.Session{
		ID:          c.sessionID,
		Identity:    c.identity,
		PhoneNumber: c.phoneNumber,
		StartedAt:   c.startedAt,
		EndedAt:     time.Now(),
	}
	if c.transport == TransportPhone {
		sess.Mode = store.ModePhone
		if c.durationSeconds > 0 {
			sess.EndedAt = c.startedAt.Add(time.Duration(c.durationSeconds) * time.Second)
		}
	} else {
		sess.Mode = store.ModeVoice
	}
	if c.stream != nil {
		sess.Transcript = c.stream.Entries()
		sess.Mood = c.stream.Mood()
	}
	return sess
}

// runTeardownLocked runs the teardown stack in reverse order exactly
// once and invalidates outstanding callbacks. Caller holds the mutex.
func (c *Controller) runTeardownLocked() {
	c.generation++
	for i := len(c.teardown) - 1; i >= 0; i-- {
		c.teardown[i]()
	}
	c.teardown = nil
	c.stream = nil
}
