package dispatch

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"
)

const minJanitorInterval = time.Second

// Registry is the in-memory record of active and recently finished
// dispatches, keyed by dispatchId. Terminal entries are evicted after
// terminalTTL; entries that never reach a terminal status are marked as
// errored once abandonTTL passes and evicted on a later sweep, so the map
// stays bounded even when no status update ever arrives.
type Registry struct {
	terminalTTL time.Duration
	abandonTTL  time.Duration

	mu      sync.Mutex
	entries map[string]*Dispatch

	closeOnce sync.Once
	done      chan struct{}
}

func NewRegistry(terminalTTL, abandonTTL time.Duration) *Registry {
	r := &Registry{
		terminalTTL: terminalTTL,
		abandonTTL:  abandonTTL,
		entries:     make(map[string]*Dispatch),
		done:        make(chan struct{}),
	}
	go r.runJanitor()
	return r
}

func (r *Registry) Put(d Dispatch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[d.DispatchID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateDispatch, d.DispatchID)
	}
	if d.UpdatedAt.IsZero() {
		d.UpdatedAt = d.StartedAt
	}
	stored := d
	r.entries[d.DispatchID] = &stored
	return nil
}

func (r *Registry) Get(dispatchID string) (Dispatch, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.entries[dispatchID]
	if !ok {
		return Dispatch{}, false
	}
	return *d, true
}

// UpdateStatus advances a dispatch along initiated → ringing → connected →
// ended. Error is accepted from any non-terminal state; downgrades and
// updates to terminal entries are rejected.
func (r *Registry) UpdateStatus(dispatchID string, status Status, lastError string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.entries[dispatchID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrDispatchNotFound, dispatchID)
	}
	if d.Status.Terminal() || status.rank() <= d.Status.rank() {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, d.Status, status)
	}
	d.Status = status
	d.UpdatedAt = time.Now()
	if status == StatusError {
		d.LastError = lastError
	}
	return nil
}

// Active returns a snapshot of every registered dispatch, oldest first.
func (r *Registry) Active() []Dispatch {
	r.mu.Lock()
	defer r.mu.Unlock()
	list := make([]Dispatch, 0, len(r.entries))
	for _, d := range r.entries {
		list = append(list, *d)
	}
	sort.Slice(list, func(i, j int) bool {
		if !list[i].StartedAt.Equal(list[j].StartedAt) {
			return list[i].StartedAt.Before(list[j].StartedAt)
		}
		return list[i].DispatchID < list[j].DispatchID
	})
	return list
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

func (r *Registry) Close() {
	r.closeOnce.Do(func() {
		close(r.done)
	})
}

func (r *Registry) runJanitor() {
	interval := r.terminalTTL / 4
	if interval < minJanitorInterval {
		interval = minJanitorInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			r.evict(time.Now())
		case <-r.done:
			return
		}
	}
}

func (r *Registry) evict(now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, d := range r.entries {
		switch {
		case d.Status.Terminal() && now.Sub(d.UpdatedAt) > r.terminalTTL:
			delete(r.entries, id)
			slog.Info("dispatch evicted", "dispatch_id", id, "status", d.Status)
		case !d.Status.Terminal() && now.Sub(d.UpdatedAt) > r.abandonTTL:
			d.Status = StatusError
			d.LastError = "no status update received before abandonment deadline"
			d.UpdatedAt = now
			slog.Warn("dispatch abandoned", "dispatch_id", id, "started_at", d.StartedAt)
		}
	}
}
