// internal/model/prospect.go
package model

type ProspectList struct {
	ID   int    `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}

// Prospect holds one handle per channel; empty means the prospect is not
// reachable on that channel.
type Prospect struct {
	ID       int    `db:"id" json:"id"`
	ListID   int    `db:"list_id" json:"list_id"`
	Name     string `db:"name" json:"name"`
	FB       string `db:"fb" json:"fb"`
	Insta    string `db:"insta" json:"insta"`
	Mail     string `db:"mail" json:"mail"`
	SMS      string `db:"sms" json:"sms"`
	WhatsApp string `db:"wtsp" json:"wtsp"`
}

// HandleFor returns the prospect's address for a channel, or "" if none.
func (p *Prospect) HandleFor(channel string) string {
	switch channel {
	case ChannelFacebook:
		return p.FB
	case ChannelInstagram:
		return p.Insta
	case ChannelEmail:
		return p.Mail
	case ChannelSMS:
		return p.SMS
	case ChannelWhatsApp:
		return p.WhatsApp
	}
	return ""
}
