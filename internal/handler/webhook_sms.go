// internal/handler/webhook_sms.go
package handler

import (
	"net/http"

	"github.com/unclebandit/marvo-backend/internal/model"
)

// SMSWebhookHandler receives inbound SMS callbacks from Twilio. Twilio posts
// form-encoded fields and expects TwiML back.
type SMSWebhookHandler struct {
	Ingester ReplyIngester
}

func NewSMSWebhookHandler(ingester ReplyIngester) *SMSWebhookHandler {
	return &SMSWebhookHandler{Ingester: ingester}
}

func (h *SMSWebhookHandler) Receive(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	from := r.PostFormValue("From")
	body := r.PostFormValue("Body")
	if from != "" && body != "" {
		h.Ingester.HandleReply(r.Context(), model.ChannelSMS, from)
	}

	// empty TwiML: no auto-reply, just ack
	w.Header().Set("Content-Type", "text/xml")
	w.Write([]byte("<Response></Response>"))
}
