// internal/handler/webhook_facebook.go
package handler

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/unclebandit/marvo-backend/internal/model"
)

// ReplyIngester receives inbound replies resolved to (channel, platformID).
// Satisfied by *service.ReplyService.
type ReplyIngester interface {
	HandleReply(ctx context.Context, channel, platformID string)
}

// FacebookWebhookHandler serves Messenger webhook verification and events.
type FacebookWebhookHandler struct {
	VerifyToken string
	Ingester    ReplyIngester
}

func NewFacebookWebhookHandler(verifyToken string, ingester ReplyIngester) *FacebookWebhookHandler {
	return &FacebookWebhookHandler{VerifyToken: verifyToken, Ingester: ingester}
}

// Verify answers the Graph API subscription challenge
func (h *FacebookWebhookHandler) Verify(w http.ResponseWriter, r *http.Request) {
	mode := r.URL.Query().Get("hub.mode")
	token := r.URL.Query().Get("hub.verify_token")
	challenge := r.URL.Query().Get("hub.challenge")

	if mode == "subscribe" && token == h.VerifyToken {
		log.Println("[Webhook] ✅ facebook webhook verified")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(challenge))
		return
	}
	http.Error(w, "verification failed", http.StatusForbidden)
}

type graphWebhookBody struct {
	Object string `json:"object"`
	Entry  []struct {
		Messaging []struct {
			Sender struct {
				ID string `json:"id"`
			} `json:"sender"`
			Message *struct {
				Text   string `json:"text"`
				IsEcho bool   `json:"is_echo"`
			} `json:"message"`
			Delivery json.RawMessage `json:"delivery"`
			Read     json.RawMessage `json:"read"`
		} `json:"messaging"`
	} `json:"entry"`
}

// Receive ingests Messenger events. The platform expects a fast 200 no
// matter what, so all processing errors stay on the server side.
func (h *FacebookWebhookHandler) Receive(w http.ResponseWriter, r *http.Request) {
	var body graphWebhookBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	if body.Object != "page" {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	for _, entry := range body.Entry {
		for _, event := range entry.Messaging {
			// delivery receipts, read receipts, and our own echoes are not replies
			if event.Delivery != nil || event.Read != nil {
				continue
			}
			if event.Message == nil || event.Message.IsEcho || event.Message.Text == "" {
				continue
			}
			h.Ingester.HandleReply(r.Context(), model.ChannelFacebook, event.Sender.ID)
		}
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("EVENT_RECEIVED"))
}
