package poller

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mindfulvoice/backend/internal/dispatch"
)

type StatusResponse struct {
	DispatchID      string
	PhoneNumber     string
	RoomName        string
	Status          dispatch.Status
	DurationSeconds int64
}

type StatusClient interface {
	CallStatus(ctx context.Context, dispatchID string) (*StatusResponse, error)
}

// Update is one poll observation: either a status (with elapsed duration
// once the call is connected) or a polling error.
type Update struct {
	Status          dispatch.Status
	DurationSeconds int64
	Err             error
}

// Poller repeatedly queries the status of one dispatch until it reaches a
// terminal state or is cancelled.
type Poller struct {
	client   StatusClient
	interval time.Duration
}

func New(client StatusClient, interval time.Duration) *Poller {
	return &Poller{client: client, interval: interval}
}

// deliveryGuard serializes the stopped check with callback invocation:
// every delivery holds mu from the check through the callback, so once
// the stop handle has set the flag and touched mu, no new callback can
// begin.
type deliveryGuard struct {
	mu      sync.Mutex
	stopped atomic.Bool
}

// Start begins polling and returns a cancellation handle. After the
// handle returns no new callback invocation begins; results of requests
// still in flight are discarded. Calling the handle more than once is a
// no-op, and calling it from inside the callback is safe. The poller
// also stops itself once a terminal status or a polling error has been
// delivered.
func (p *Poller) Start(dispatchID string, onUpdate func(Update)) (stop func()) {
	ctx, cancel := context.WithCancel(context.Background())
	g := &deliveryGuard{}

	go p.loop(ctx, dispatchID, g, onUpdate)

	var once sync.Once
	return func() {
		once.Do(func() {
			g.stopped.Store(true)
			cancel()
			// A delivery already holding mu may be the very callback
			// issuing this stop, or may be blocked on a lock this caller
			// holds, so waiting on mu here can deadlock. TryLock acts as
			// the barrier only when no delivery is in flight; the flag
			// alone suppresses every later one.
			if g.mu.TryLock() {
				g.mu.Unlock()
			}
		})
	}
}

func (p *Poller) loop(ctx context.Context, dispatchID string, g *deliveryGuard, onUpdate func(Update)) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		resp, err := p.client.CallStatus(ctx, dispatchID)

		g.mu.Lock()
		// The stop handle may have been called while the request was in
		// flight; its result is discarded.
		if g.stopped.Load() {
			g.mu.Unlock()
			return
		}
		if err != nil {
			if ctx.Err() != nil {
				g.mu.Unlock()
				return
			}
			slog.Warn("call status poll failed", "error", err, "dispatch_id", dispatchID)
			g.stopped.Store(true)
			onUpdate(Update{Err: err})
			g.mu.Unlock()
			return
		}

		update := Update{Status: resp.Status}
		if resp.Status == dispatch.StatusConnected || resp.Status.Terminal() {
			update.DurationSeconds = resp.DurationSeconds
		}
		if resp.Status.Terminal() {
			g.stopped.Store(true)
		}
		onUpdate(update)
		terminal := g.stopped.Load()
		g.mu.Unlock()

		if terminal {
			return
		}
	}
}
