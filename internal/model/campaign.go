// internal/model/campaign.go
package model

import "time"

// FollowUp is one reminder message in a campaign's ordered chain.
// DelayMinutes counts from the previous step's send.
type FollowUp struct {
	ID           int    `db:"id" json:"id"`
	CampaignID   int    `db:"campaign_id" json:"campaign_id"`
	Position     int    `db:"position" json:"position"`
	Content      string `db:"content" json:"content"`
	DelayMinutes int    `db:"delay_minutes" json:"delay_minutes"`
}

// Campaign lifecycle statuses.
const (
	CampaignStatusDraft  = "draft"
	CampaignStatusActive = "active"
)

type Campaign struct {
	ID          int        `db:"id" json:"id"`
	Name        string     `db:"name" json:"name"`
	Channel     string     `db:"channel" json:"channel"`
	Status      string     `db:"status" json:"status"` // draft, active
	BaitMessage string     `db:"bait_message" json:"bait_message"`
	MainMessage string     `db:"main_message" json:"main_message"`
	FollowUps   []FollowUp `json:"follow_ups"`
	// ProspectListIDs are the audience lists the campaign is launched against.
	ProspectListIDs []int      `json:"prospect_list_ids"`
	DailyLimit      *int       `db:"daily_limit" json:"daily_limit,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       *time.Time `db:"updated_at" json:"updated_at,omitempty"`
}
