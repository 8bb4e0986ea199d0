// internal/channel/email.go

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

// EmailSender delivers plain-text email through the SendGrid v3 Mail Send API.
type EmailSender struct {
	apiKey     string
	fromSender string
	client     *http.Client
	baseURL    string
}

func NewEmailSender(apiKey, fromSender string) *EmailSender {
	return &EmailSender{
		apiKey:     apiKey,
		fromSender: fromSender,
		client:     &http.Client{Timeout: 15 * time.Second},
		baseURL:    "https://api.sendgrid.com/v3",
	}
}

var _ Sender = (*EmailSender)(nil)

func (e *EmailSender) Send(ctx context.Context, platformID, text string) error {
	payload := map[string]interface{}{
		"personalizations": []map[string]interface{}{
			{"to": []map[string]string{{"email": platformID}}},
		},
		"from":    map[string]string{"email": e.fromSender},
		"subject": "New message",
		"content": []map[string]string{
			{"type": "text/plain", "value": text},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal email payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/mail/send", bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("failed to create email request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.apiKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("email send failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("email send returned %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}
