package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/mindfulvoice/backend/internal/dispatch"
	"github.com/mindfulvoice/backend/internal/token"
)

// Server exposes the token minting and phone-call endpoints consumed by
// the voice client.
type Server struct {
	tokens     token.Provider
	dispatcher *dispatch.Dispatcher
	registry   *dispatch.Registry
}

func NewServer(tokens token.Provider, dispatcher *dispatch.Dispatcher, registry *dispatch.Registry) *Server {
	return &Server{tokens: tokens, dispatcher: dispatcher, registry: registry}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/token", s.handleToken)
	mux.HandleFunc("POST /api/phone-call/initiate", s.handleInitiate)
	mux.HandleFunc("GET /api/phone-call/status/{dispatchId}", s.handleStatus)
	mux.HandleFunc("GET /api/phone-call/active", s.handleActive)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /api/health", s.handleHealth)
	return corsMiddleware(mux)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type tokenRequest struct {
	RoomName        string `json:"roomName"`
	ParticipantName string `json:"participantName"`
}

type tokenResponse struct {
	Token string `json:"token"`
	URL   string `json:"url"`
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RoomName == "" || req.ParticipantName == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Missing roomName or participantName"})
		return
	}
	cred, err := s.tokens.MintJoinCredential(req.RoomName, req.ParticipantName)
	if err != nil {
		slog.Error("failed to mint join token", "error", err, "room", req.RoomName)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to generate token"})
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{Token: cred.Token, URL: cred.URL})
}

type initiateRequest struct {
	PhoneNumber string `json:"phoneNumber"`
}

func (s *Server) handleInitiate(w http.ResponseWriter, r *http.Request) {
	var req initiateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.PhoneNumber == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"success": false,
			"error":   "Phone number is required",
		})
		return
	}

	res, err := s.dispatcher.Initiate(r.Context(), req.PhoneNumber)
	if err != nil {
		if errors.Is(err, dispatch.ErrInvalidPhoneNumber) {
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"success": false,
				"error":   "Invalid phone number format. Must be in E.164 format (e.g., +919876543210)",
			})
			return
		}
		slog.Error("call initiation failed", "error", err, "phone_number", req.PhoneNumber)
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	if res.Pending {
		writeJSON(w, http.StatusOK, map[string]any{
			"success":     true,
			"message":     res.Message,
			"phoneNumber": res.PhoneNumber,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"dispatchId":  res.DispatchID,
		"roomName":    res.RoomName,
		"phoneNumber": res.PhoneNumber,
		"message":     res.Message,
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	dispatchID := r.PathValue("dispatchId")
	d, ok := s.registry.Get(dispatchID)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{
			"success": false,
			"error":   "Call not found",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"dispatchId":  d.DispatchID,
		"phoneNumber": d.PhoneNumber,
		"roomName":    d.RoomName,
		"status":      string(d.Status),
		"duration":    elapsedSeconds(d),
		"startTime":   d.StartedAt.UTC().Format(time.RFC3339),
	})
}

// elapsedSeconds freezes at the final update for terminal dispatches and
// tracks wall-clock time otherwise.
func elapsedSeconds(d dispatch.Dispatch) int64 {
	end := time.Now()
	if d.Status.Terminal() {
		end = d.UpdatedAt
	}
	seconds := int64(end.Sub(d.StartedAt).Seconds())
	if seconds < 0 {
		return 0
	}
	return seconds
}

func (s *Server) handleActive(w http.ResponseWriter, r *http.Request) {
	active := s.registry.Active()
	calls := make([]map[string]any, 0, len(active))
	for _, d := range active {
		calls = append(calls, map[string]any{
			"dispatchId":  d.DispatchID,
			"phoneNumber": d.PhoneNumber,
			"status":      string(d.Status),
			"startTime":   d.StartedAt.UTC().Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"calls":   calls,
		"count":   len(calls),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode response body", "error", err)
	}
}
