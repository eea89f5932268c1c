package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mindfulvoice/backend/internal/dispatch"
	"github.com/mindfulvoice/backend/internal/poller"
	"github.com/mindfulvoice/backend/internal/session"
	"github.com/mindfulvoice/backend/internal/token"
)

// Client talks to the backend's HTTP API on behalf of a voice client.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

type tokenRequest struct {
	RoomName        string `json:"roomName"`
	ParticipantName string `json:"participantName"`
}

type tokenResponse struct {
	Token string `json:"token"`
	URL   string `json:"url"`
	Error string `json:"error"`
}

func (c *Client) JoinToken(ctx context.Context, roomName, identity string) (token.Credential, error) {
	var resp tokenResponse
	status, err := c.postJSON(ctx, "/api/token", tokenRequest{RoomName: roomName, ParticipantName: identity}, &resp)
	if err != nil {
		return token.Credential{}, err
	}
	if status != http.StatusOK {
		return token.Credential{}, fmt.Errorf("token request failed: %s", errorOr(resp.Error, status))
	}
	return token.Credential{Token: resp.Token, URL: resp.URL}, nil
}

type initiateRequest struct {
	PhoneNumber string `json:"phoneNumber"`
}

type initiateResponse struct {
	Success     bool   `json:"success"`
	DispatchID  string `json:"dispatchId"`
	RoomName    string `json:"roomName"`
	PhoneNumber string `json:"phoneNumber"`
	Message     string `json:"message"`
	Error       string `json:"error"`
}

func (c *Client) InitiateCall(ctx context.Context, phoneNumber string) (*session.InitiateCallResult, error) {
	var resp initiateResponse
	status, err := c.postJSON(ctx, "/api/phone-call/initiate", initiateRequest{PhoneNumber: phoneNumber}, &resp)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK || !resp.Success {
		return nil, fmt.Errorf("call initiation failed: %s", errorOr(resp.Error, status))
	}
	return &session.InitiateCallResult{
		DispatchID:  resp.DispatchID,
		RoomName:    resp.RoomName,
		PhoneNumber: resp.PhoneNumber,
		Message:     resp.Message,
		Pending:     resp.DispatchID == "",
	}, nil
}

type statusResponse struct {
	Success     bool   `json:"success"`
	DispatchID  string `json:"dispatchId"`
	PhoneNumber string `json:"phoneNumber"`
	RoomName    string `json:"roomName"`
	Status      string `json:"status"`
	Duration    int64  `json:"duration"`
	Error       string `json:"error"`
}

func (c *Client) CallStatus(ctx context.Context, dispatchID string) (*poller.StatusResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/phone-call/status/"+dispatchID, nil)
	if err != nil {
		return nil, err
	}
	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("status request failed: %w", err)
	}
	defer httpResp.Body.Close()

	var resp statusResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("failed to decode status response: %w", err)
	}
	if httpResp.StatusCode == http.StatusNotFound {
		return nil, dispatch.ErrDispatchNotFound
	}
	if httpResp.StatusCode != http.StatusOK || !resp.Success {
		return nil, fmt.Errorf("status request failed: %s", errorOr(resp.Error, httpResp.StatusCode))
	}
	return &poller.StatusResponse{
		DispatchID:      resp.DispatchID,
		PhoneNumber:     resp.PhoneNumber,
		RoomName:        resp.RoomName,
		Status:          dispatch.Status(resp.Status),
		DurationSeconds: resp.Duration,
	}, nil
}

func (c *Client) postJSON(ctx context.Context, path string, body, out any) (int, error) {
	encoded, err := json.Marshal(body)
	if err != nil {
		return 0, fmt.Errorf("failed to encode request body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(encoded))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("request to %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("failed to read response from %s: %w", path, err)
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return 0, fmt.Errorf("failed to decode response from %s: %w", path, err)
		}
	}
	return resp.StatusCode, nil
}

func errorOr(msg string, status int) string {
	if msg != "" {
		return msg
	}
	return fmt.Sprintf("unexpected status %d", status)
}
