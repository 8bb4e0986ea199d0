// internal/channel/instagram.go

package channel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// InstagramSender delivers Instagram DMs. Instagram messaging rides the same
// Graph Send API endpoint as Messenger but with its own page token.
type InstagramSender struct {
	pageToken string
	client    *http.Client
	baseURL   string
}

func NewInstagramSender(pageToken string) *InstagramSender {
	return &InstagramSender{
		pageToken: pageToken,
		client:    &http.Client{Timeout: 15 * time.Second},
		baseURL:   graphSendURL,
	}
}

var _ Sender = (*InstagramSender)(nil)

func (s *InstagramSender) Send(ctx context.Context, platformID, text string) error {
	payload := map[string]interface{}{
		"recipient": map[string]string{"id": platformID},
		"message":   map[string]string{"text": text},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal instagram payload: %w", err)
	}

	url := fmt.Sprintf("%s?access_token=%s", s.baseURL, s.pageToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("failed to create instagram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("instagram send failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("instagram send returned %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}
