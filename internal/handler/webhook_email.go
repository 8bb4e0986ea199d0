// internal/handler/webhook_email.go
package handler

import (
	"log"
	"net/http"
	"net/mail"

	"github.com/unclebandit/marvo-backend/internal/model"
)

// EmailWebhookHandler receives SendGrid Inbound Parse callbacks. SendGrid
// posts a multipart form; the sender lands in the "from" field, usually as
// "Name <addr@example.com>".
type EmailWebhookHandler struct {
	Ingester ReplyIngester
}

func NewEmailWebhookHandler(ingester ReplyIngester) *EmailWebhookHandler {
	return &EmailWebhookHandler{Ingester: ingester}
}

func (h *EmailWebhookHandler) Receive(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		// some test setups post url-encoded instead
		if err := r.ParseForm(); err != nil {
			http.Error(w, "invalid form", http.StatusBadRequest)
			return
		}
	}

	from := r.PostFormValue("from")
	text := r.PostFormValue("text")
	if from == "" || text == "" {
		w.WriteHeader(http.StatusOK)
		return
	}

	addr, err := mail.ParseAddress(from)
	if err != nil {
		log.Printf("[Webhook] ⚠️ unparseable email sender %q: %v", from, err)
		w.WriteHeader(http.StatusOK)
		return
	}

	h.Ingester.HandleReply(r.Context(), model.ChannelEmail, addr.Address)
	w.WriteHeader(http.StatusOK)
}
