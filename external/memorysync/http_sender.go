package memorysync

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/mindfulvoice/backend/internal/memorysync"
)

const profileSource = "voice-session-init"

type memoryStorePayload struct {
	Source  string `json:"source"`
	Content string `json:"content"`
}

type HTTPSender struct {
	memoryStoreURL string
	client         *http.Client
}

func NewHTTPSender(memoryStoreURL string) memorysync.Sender {
	return &HTTPSender{
		memoryStoreURL: memoryStoreURL,
		client:         &http.Client{},
	}
}

func (s *HTTPSender) StoreProfile(ctx context.Context, content string) error {
	if s.memoryStoreURL == "" {
		return nil
	}

	b, err := json.Marshal(memoryStorePayload{Source: profileSource, Content: content})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.memoryStoreURL, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if !isHTTPSuccessStatus(resp.StatusCode) {
		return fmt.Errorf("memory store returned status %d", resp.StatusCode)
	}
	return nil
}

func isHTTPSuccessStatus(statusCode int) bool {
	return statusCode >= 200 && statusCode < 300
}
