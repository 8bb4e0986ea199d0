// internal/handler/webhook_instagram.go
package handler

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/unclebandit/marvo-backend/internal/model"
)

// InstagramWebhookHandler serves Instagram DM webhook verification and
// events. Instagram shares the Graph webhook envelope with Messenger but
// reports object "instagram".
type InstagramWebhookHandler struct {
	VerifyToken string
	Ingester    ReplyIngester
}

func NewInstagramWebhookHandler(verifyToken string, ingester ReplyIngester) *InstagramWebhookHandler {
	return &InstagramWebhookHandler{VerifyToken: verifyToken, Ingester: ingester}
}

func (h *InstagramWebhookHandler) Verify(w http.ResponseWriter, r *http.Request) {
	mode := r.URL.Query().Get("hub.mode")
	token := r.URL.Query().Get("hub.verify_token")
	challenge := r.URL.Query().Get("hub.challenge")

	if mode == "subscribe" && token == h.VerifyToken {
		log.Println("[Webhook] ✅ instagram webhook verified")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(challenge))
		return
	}
	http.Error(w, "verification failed", http.StatusForbidden)
}

func (h *InstagramWebhookHandler) Receive(w http.ResponseWriter, r *http.Request) {
	var body graphWebhookBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	if body.Object != "instagram" {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	for _, entry := range body.Entry {
		for _, event := range entry.Messaging {
			if event.Delivery != nil || event.Read != nil {
				continue
			}
			if event.Message == nil || event.Message.IsEcho || event.Message.Text == "" {
				continue
			}
			h.Ingester.HandleReply(r.Context(), model.ChannelInstagram, event.Sender.ID)
		}
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("EVENT_RECEIVED"))
}
