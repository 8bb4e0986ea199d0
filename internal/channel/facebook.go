// internal/channel/facebook.go

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

const graphSendURL = "https://graph.facebook.com/v18.0/me/messages"

// FacebookSender delivers Messenger messages through the Graph Send API.
type FacebookSender struct {
	pageToken string
	client    *http.Client
	baseURL   string
}

func NewFacebookSender(pageToken string) *FacebookSender {
	return &FacebookSender{
		pageToken: pageToken,
		client:    &http.Client{Timeout: 15 * time.Second},
		baseURL:   graphSendURL,
	}
}

var _ Sender = (*FacebookSender)(nil)

func (f *FacebookSender) Send(ctx context.Context, platformID, text string) error {
	payload := map[string]interface{}{
		"recipient": map[string]string{"id": platformID},
		"message":   map[string]string{"text": text},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal facebook payload: %w", err)
	}

	url := fmt.Sprintf("%s?access_token=%s", f.baseURL, f.pageToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("failed to create facebook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("facebook send failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("facebook send returned %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}
