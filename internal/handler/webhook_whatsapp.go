// internal/handler/webhook_whatsapp.go
package handler

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/unclebandit/marvo-backend/internal/model"
)

// WhatsAppWebhookHandler serves WhatsApp Cloud API webhook verification and
// events.
type WhatsAppWebhookHandler struct {
	VerifyToken string
	Ingester    ReplyIngester
}

func NewWhatsAppWebhookHandler(verifyToken string, ingester ReplyIngester) *WhatsAppWebhookHandler {
	return &WhatsAppWebhookHandler{VerifyToken: verifyToken, Ingester: ingester}
}

func (h *WhatsAppWebhookHandler) Verify(w http.ResponseWriter, r *http.Request) {
	mode := r.URL.Query().Get("hub.mode")
	token := r.URL.Query().Get("hub.verify_token")
	challenge := r.URL.Query().Get("hub.challenge")

	if mode == "subscribe" && token == h.VerifyToken {
		log.Println("[Webhook] ✅ whatsapp webhook verified")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(challenge))
		return
	}
	http.Error(w, "verification failed", http.StatusForbidden)
}

type whatsAppWebhookBody struct {
	Entry []struct {
		Changes []struct {
			Value struct {
				Messages []struct {
					From string `json:"from"`
					Type string `json:"type"`
				} `json:"messages"`
				Statuses json.RawMessage `json:"statuses"`
			} `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
}

func (h *WhatsAppWebhookHandler) Receive(w http.ResponseWriter, r *http.Request) {
	var body whatsAppWebhookBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	for _, entry := range body.Entry {
		for _, change := range entry.Changes {
			// status callbacks (sent/delivered/read) carry no messages
			for _, msg := range change.Value.Messages {
				if msg.Type != "text" || msg.From == "" {
					continue
				}
				h.Ingester.HandleReply(r.Context(), model.ChannelWhatsApp, msg.From)
			}
		}
	}

	w.WriteHeader(http.StatusOK)
}
