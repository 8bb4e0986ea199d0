// Package channel contains the per-platform send adapters and the dispatcher
// that routes a recipient's channel tag to one of them.
//
// Adapters are split into individual files:
//   - facebook.go:  Facebook Messenger via the Graph Send API
//   - instagram.go: Instagram DM via the Graph Send API
//   - whatsapp.go:  WhatsApp Cloud API
//   - sms.go:       Twilio Messages API
//   - email.go:     SendGrid v3 Mail Send
package channel

import (
	"context"
	"fmt"

	"github.com/unclebandit/marvo-backend/internal/config"
	"github.com/unclebandit/marvo-backend/internal/model"
)

// Sender is the single contract every channel adapter exposes. A non-nil
// error means the message did not go out and the call had no side effects.
type Sender interface {
	Send(ctx context.Context, platformID, text string) error
}

// Dispatcher routes (channel, platformID, content) to the right adapter.
type Dispatcher struct {
	senders map[string]Sender
}

// NewDispatcher wires one adapter per supported channel from config.
func NewDispatcher(cfg *config.Config) *Dispatcher {
	return &Dispatcher{
		senders: map[string]Sender{
			model.ChannelFacebook:  NewFacebookSender(cfg.Facebook.PageToken),
			model.ChannelInstagram: NewInstagramSender(cfg.Instagram.PageToken),
			model.ChannelWhatsApp:  NewWhatsAppSender(cfg.WhatsApp.Token, cfg.WhatsApp.PhoneNumberID),
			model.ChannelSMS:       NewSMSSender(cfg.Twilio.AccountSID, cfg.Twilio.AuthToken, cfg.Twilio.FromNumber),
			model.ChannelEmail:     NewEmailSender(cfg.SendGrid.APIKey, cfg.SendGrid.FromSender),
		},
	}
}

// Register swaps in an adapter for a channel. Used by tests and by callers
// that stub out channels in development.
func (d *Dispatcher) Register(channel string, s Sender) {
	if d.senders == nil {
		d.senders = map[string]Sender{}
	}
	d.senders[channel] = s
}

// Send dispatches content to the adapter for the record's channel.
func (d *Dispatcher) Send(ctx context.Context, channel, platformID, content string) error {
	s, ok := d.senders[channel]
	if !ok {
		return fmt.Errorf("unsupported channel: %s", channel)
	}
	return s.Send(ctx, platformID, content)
}
