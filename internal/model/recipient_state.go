// internal/model/recipient_state.go
package model

import "time"

// Channels a campaign can run on.
const (
	ChannelFacebook  = "facebook"
	ChannelInstagram = "instagram"
	ChannelWhatsApp  = "whatsapp"
	ChannelSMS       = "sms"
	ChannelEmail     = "email"
)

// Derived recipient statuses.
const (
	StatusPending       = "pending"
	StatusInterested    = "interested"
	StatusNotInterested = "not_interested"
)

// ValidChannel reports whether channel is one of the supported channels.
func ValidChannel(channel string) bool {
	switch channel {
	case ChannelFacebook, ChannelInstagram, ChannelWhatsApp, ChannelSMS, ChannelEmail:
		return true
	}
	return false
}

// RecipientState is the per-(prospect, campaign) drip state machine record.
// Send-side flags are owned by the step processors, reply-side flags by
// webhook ingestion. Only one record exists per (prospect, campaign, channel).
type RecipientState struct {
	ID         int    `db:"id" json:"id"`
	ProspectID int    `db:"prospect_id" json:"prospect_id"`
	CampaignID int    `db:"campaign_id" json:"campaign_id"`
	Channel    string `db:"channel" json:"channel"`
	PlatformID string `db:"platform_id" json:"platform_id"`

	BaitSent         bool `db:"bait_sent" json:"bait_sent"`
	RepliedAfterBait bool `db:"replied_after_bait" json:"replied_after_bait"`
	MainSent         bool `db:"main_sent" json:"main_sent"`
	RepliedAfterMain bool `db:"replied_after_main" json:"replied_after_main"`
	FollowUpSent     int  `db:"follow_up_sent" json:"follow_up_sent"`
	TotalFollowUp    int  `db:"total_follow_up" json:"total_follow_up"`

	Status string `db:"status" json:"status"`

	LastMessageSentAt *time.Time `db:"last_message_sent_at" json:"last_message_sent_at,omitempty"`
	NextFollowUpAt    *time.Time `db:"next_follow_up_at" json:"next_follow_up_at,omitempty"`
	CreatedAt         time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time  `db:"updated_at" json:"updated_at"`
}
