package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/mindfulvoice/backend/internal/calltask"
)

var (
	dispatchIDMarker = regexp.MustCompile(`Dispatch ID: (.+)`)
	roomNameMarker   = regexp.MustCompile(`Session Room: (.+)`)
)

// markerLine is the structured form of the task's announcement: one JSON
// object per output line. Tasks still emitting the plain-text markers are
// handled by the regex fallback.
type markerLine struct {
	DispatchID string `json:"dispatch_id"`
	RoomName   string `json:"room_name"`
}

type InitiateResult struct {
	DispatchID  string
	RoomName    string
	PhoneNumber string
	Message     string
	Pending     bool
}

// Dispatcher validates a phone number, spawns the external call-placing
// task and registers the resulting dispatch once the task has announced
// its dispatch id and room name.
type Dispatcher struct {
	runner     calltask.Runner
	registry   *Registry
	waitWindow time.Duration
}

func NewDispatcher(runner calltask.Runner, registry *Registry, waitWindow time.Duration) *Dispatcher {
	return &Dispatcher{
		runner:     runner,
		registry:   registry,
		waitWindow: waitWindow,
	}
}

// Initiate places an outbound call. It waits up to the configured window
// for the task to announce itself; a quiet task yields a pending result so
// the caller can poll for eventual state. The task keeps running after
// Initiate returns.
func (d *Dispatcher) Initiate(ctx context.Context, phoneNumber string) (*InitiateResult, error) {
	if !ValidPhoneNumber(phoneNumber) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidPhoneNumber, phoneNumber)
	}

	slog.Info("initiating call", "phone_number", phoneNumber)

	// The task's lifetime is not bound to the HTTP request that started it.
	events, err := d.runner.Start(context.WithoutCancel(ctx), phoneNumber)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDispatchFailed, err)
	}

	scrape := &scrapeState{}
	registered := make(chan Dispatch, 1)
	failed := make(chan string, 1)
	go d.consumeTask(events, phoneNumber, scrape, registered, failed)

	timer := time.NewTimer(d.waitWindow)
	defer timer.Stop()

	select {
	case dsp := <-registered:
		slog.Info("call dispatched", "dispatch_id", dsp.DispatchID, "room_name", dsp.RoomName)
		return &InitiateResult{
			DispatchID:  dsp.DispatchID,
			RoomName:    dsp.RoomName,
			PhoneNumber: phoneNumber,
			Message:     "Call initiated successfully",
		}, nil
	case msg := <-failed:
		return nil, fmt.Errorf("%w: %s", ErrDispatchFailed, msg)
	case <-timer.C:
		if msg := scrape.stderrText(); msg != "" {
			return nil, fmt.Errorf("%w: %s", ErrDispatchFailed, msg)
		}
		slog.Info("call still initiating after wait window", "phone_number", phoneNumber)
		return &InitiateResult{
			PhoneNumber: phoneNumber,
			Message:     "Call is being initiated...",
			Pending:     true,
		}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// consumeTask owns the task's output for its full lifetime: it scrapes the
// announcement markers, registers the dispatch as soon as both are known,
// and records the exit code.
func (d *Dispatcher) consumeTask(events <-chan calltask.Event, phoneNumber string, scrape *scrapeState, registered chan<- Dispatch, failed chan<- string) {
	for ev := range events {
		switch ev.Type {
		case calltask.EventStdout:
			slog.Debug("call task stdout", "line", ev.Line)
			if scrape.observeStdout(ev.Line) {
				dsp := Dispatch{
					DispatchID:  scrape.dispatchID,
					PhoneNumber: phoneNumber,
					RoomName:    scrape.roomName,
					Status:      StatusInitiated,
					StartedAt:   time.Now(),
				}
				if err := d.registry.Put(dsp); err != nil {
					slog.Error("failed to register dispatch", "error", err, "dispatch_id", dsp.DispatchID)
					continue
				}
				select {
				case registered <- dsp:
				default:
				}
			}
		case calltask.EventStderr:
			slog.Warn("call task stderr", "line", ev.Line)
			scrape.observeStderr(ev.Line)
		case calltask.EventExit:
			slog.Info("call task exited", "exit_code", ev.ExitCode, "phone_number", phoneNumber)
			if ev.ExitCode != 0 && !scrape.announced() {
				msg := scrape.stderrText()
				if msg == "" {
					msg = ev.Err
				}
				if msg == "" {
					msg = fmt.Sprintf("call task exited with code %d", ev.ExitCode)
				}
				select {
				case failed <- msg:
				default:
				}
			}
		}
	}
}

// scrapeState accumulates the marker scraping for one task. Each spawn
// owns its own instance, so concurrent initiations never share state.
type scrapeState struct {
	mu         sync.Mutex
	dispatchID string
	roomName   string
	stderr     strings.Builder
	done       bool
}

// observeStdout reports true exactly once, when the line completes the
// pair of markers.
func (s *scrapeState) observeStdout(line string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done {
		return false
	}

	var structured markerLine
	if err := json.Unmarshal([]byte(line), &structured); err == nil && structured.DispatchID != "" {
		s.dispatchID = strings.TrimSpace(structured.DispatchID)
		if structured.RoomName != "" {
			s.roomName = strings.TrimSpace(structured.RoomName)
		}
	} else {
		if m := dispatchIDMarker.FindStringSubmatch(line); m != nil {
			s.dispatchID = strings.TrimSpace(m[1])
		}
		if m := roomNameMarker.FindStringSubmatch(line); m != nil {
			s.roomName = strings.TrimSpace(m[1])
		}
	}

	if s.dispatchID != "" && s.roomName != "" {
		s.done = true
		return true
	}
	return false
}

func (s *scrapeState) observeStderr(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stderr.Len() > 0 {
		s.stderr.WriteString("\n")
	}
	s.stderr.WriteString(line)
}

func (s *scrapeState) stderrText() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stderr.String()
}

func (s *scrapeState) announced() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}
