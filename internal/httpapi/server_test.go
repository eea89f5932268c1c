package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mindfulvoice/backend/internal/calltask"
	"github.com/mindfulvoice/backend/internal/dispatch"
	"github.com/mindfulvoice/backend/internal/token"
)

type stubTokenProvider struct {
	err error
}

func (s *stubTokenProvider) MintJoinCredential(roomName, identity string) (token.Credential, error) {
	if s.err != nil {
		return token.Credential{}, s.err
	}
	return token.Credential{Token: "jwt-" + roomName + "-" + identity, URL: "wss://rooms.example"}, nil
}

// scriptedRunner replays a fixed event sequence for every started task.
type scriptedRunner struct {
	events []calltask.Event
}

func (s *scriptedRunner) Start(ctx context.Context, phoneNumber string) (<-chan calltask.Event, error) {
	ch := make(chan calltask.Event, len(s.events))
	for _, e := range s.events {
		ch <- e
	}
	close(ch)
	return ch, nil
}

// silentRunner never announces; the task hangs until its channel is
// abandoned.
type silentRunner struct{}

func (silentRunner) Start(ctx context.Context, phoneNumber string) (<-chan calltask.Event, error) {
	return make(chan calltask.Event), nil
}

func newTestServer(t *testing.T, runner calltask.Runner) (*Server, *dispatch.Registry) {
	t.Helper()
	registry := dispatch.NewRegistry(time.Minute, time.Hour)
	t.Cleanup(registry.Close)
	dispatcher := dispatch.NewDispatcher(runner, registry, 200*time.Millisecond)
	return NewServer(&stubTokenProvider{}, dispatcher, registry), registry
}

func doRequest(t *testing.T, srv *Server, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	} else {
		reader = strings.NewReader("")
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	decoded := map[string]any{}
	if err := json.Unmarshal(rec.Body.Bytes(), &decoded); err != nil {
		t.Fatalf("response body %q is not JSON: %v", rec.Body.String(), err)
	}
	return rec, decoded
}

func TestTokenEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, silentRunner{})

	rec, body := doRequest(t, srv, http.MethodPost, "/api/token", `{"roomName":"voice-session-1","participantName":"asha"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if body["token"] != "jwt-voice-session-1-asha" {
		t.Errorf("token = %v", body["token"])
	}
	if body["url"] != "wss://rooms.example" {
		t.Errorf("url = %v", body["url"])
	}
}

func TestTokenEndpointMissingField(t *testing.T) {
	srv, _ := newTestServer(t, silentRunner{})

	rec, body := doRequest(t, srv, http.MethodPost, "/api/token", `{"roomName":"voice-session-1"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if body["error"] != "Missing roomName or participantName" {
		t.Errorf("error = %v", body["error"])
	}
}

func TestInitiateSuccess(t *testing.T) {
	runner := &scriptedRunner{events: []calltask.Event{
		{Type: calltask.EventStdout, Line: "Dispatch ID: abc123"},
		{Type: calltask.EventStdout, Line: "Session Room: room-9"},
	}}
	srv, registry := newTestServer(t, runner)

	rec, body := doRequest(t, srv, http.MethodPost, "/api/phone-call/initiate", `{"phoneNumber":"+919876543210"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body %v", rec.Code, body)
	}
	if body["success"] != true {
		t.Errorf("success = %v", body["success"])
	}
	if body["dispatchId"] != "abc123" || body["roomName"] != "room-9" {
		t.Errorf("dispatchId = %v, roomName = %v", body["dispatchId"], body["roomName"])
	}
	if body["phoneNumber"] != "+919876543210" {
		t.Errorf("phoneNumber = %v", body["phoneNumber"])
	}
	if _, ok := registry.Get("abc123"); !ok {
		t.Error("dispatch not registered")
	}
}

func TestInitiateMissingNumber(t *testing.T) {
	srv, _ := newTestServer(t, silentRunner{})

	rec, body := doRequest(t, srv, http.MethodPost, "/api/phone-call/initiate", `{}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if body["success"] != false || body["error"] != "Phone number is required" {
		t.Errorf("body = %v", body)
	}
}

func TestInitiateInvalidFormat(t *testing.T) {
	srv, _ := newTestServer(t, silentRunner{})

	rec, body := doRequest(t, srv, http.MethodPost, "/api/phone-call/initiate", `{"phoneNumber":"9876543210"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	want := "Invalid phone number format. Must be in E.164 format (e.g., +919876543210)"
	if body["error"] != want {
		t.Errorf("error = %v, want %q", body["error"], want)
	}
}

func TestInitiatePendingWhenTaskQuiet(t *testing.T) {
	srv, _ := newTestServer(t, silentRunner{})

	rec, body := doRequest(t, srv, http.MethodPost, "/api/phone-call/initiate", `{"phoneNumber":"+14155550100"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if body["success"] != true {
		t.Errorf("success = %v", body["success"])
	}
	if _, hasID := body["dispatchId"]; hasID {
		t.Error("pending response must not carry a dispatch id")
	}
	msg, _ := body["message"].(string)
	if !strings.Contains(msg, "initiated") {
		t.Errorf("message = %q", msg)
	}
}

func TestInitiateTaskFailure(t *testing.T) {
	runner := &scriptedRunner{events: []calltask.Event{
		{Type: calltask.EventStderr, Line: "SIP trunk not configured"},
		{Type: calltask.EventExit, ExitCode: 1},
	}}
	srv, _ := newTestServer(t, runner)

	rec, body := doRequest(t, srv, http.MethodPost, "/api/phone-call/initiate", `{"phoneNumber":"+14155550100"}`)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	errText, _ := body["error"].(string)
	if !strings.Contains(errText, "SIP trunk not configured") {
		t.Errorf("error = %q, want the task's stderr preserved", errText)
	}
}

func TestStatusEndpoint(t *testing.T) {
	srv, registry := newTestServer(t, silentRunner{})
	started := time.Now().Add(-42 * time.Second)
	if err := registry.Put(dispatch.Dispatch{
		DispatchID:  "disp-7",
		PhoneNumber: "+14155550100",
		RoomName:    "room-7",
		Status:      dispatch.StatusConnected,
		StartedAt:   started,
		UpdatedAt:   started,
	}); err != nil {
		t.Fatal(err)
	}

	rec, body := doRequest(t, srv, http.MethodGet, "/api/phone-call/status/disp-7", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if body["status"] != "connected" || body["roomName"] != "room-7" {
		t.Errorf("body = %v", body)
	}
	duration, _ := body["duration"].(float64)
	if duration < 41 || duration > 44 {
		t.Errorf("duration = %v, want about 42", duration)
	}
}

func TestStatusNotFound(t *testing.T) {
	srv, _ := newTestServer(t, silentRunner{})

	rec, body := doRequest(t, srv, http.MethodGet, "/api/phone-call/status/missing", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if body["error"] != "Call not found" {
		t.Errorf("error = %v", body["error"])
	}
}

func TestActiveEndpoint(t *testing.T) {
	srv, registry := newTestServer(t, silentRunner{})
	now := time.Now()
	for i, id := range []string{"disp-a", "disp-b"} {
		if err := registry.Put(dispatch.Dispatch{
			DispatchID:  id,
			PhoneNumber: "+1415555010" + string(rune('0'+i)),
			Status:      dispatch.StatusRinging,
			StartedAt:   now.Add(time.Duration(i) * time.Second),
			UpdatedAt:   now,
		}); err != nil {
			t.Fatal(err)
		}
	}

	rec, body := doRequest(t, srv, http.MethodGet, "/api/phone-call/active", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if body["count"] != float64(2) {
		t.Errorf("count = %v, want 2", body["count"])
	}
	calls, _ := body["calls"].([]any)
	if len(calls) != 2 {
		t.Fatalf("calls = %v", body["calls"])
	}
	first, _ := calls[0].(map[string]any)
	if first["dispatchId"] != "disp-a" {
		t.Errorf("first call = %v, want oldest first", first)
	}
}

func TestHealthEndpoints(t *testing.T) {
	srv, _ := newTestServer(t, silentRunner{})

	for _, path := range []string{"/health", "/api/health"} {
		rec, body := doRequest(t, srv, http.MethodGet, path, "")
		if rec.Code != http.StatusOK {
			t.Errorf("%s status = %d, want 200", path, rec.Code)
		}
		if body["status"] != "ok" {
			t.Errorf("%s body = %v", path, body)
		}
	}
}

func TestCORSPreflight(t *testing.T) {
	srv, _ := newTestServer(t, silentRunner{})

	req := httptest.NewRequest(http.MethodOptions, "/api/token", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("missing CORS header")
	}
}
