package appErrors

import (
	"errors"
	"fmt"
)

// ErrCampaignNotFound is a sentinel error
type ErrCampaignNotFound struct {
	CampaignID int
}

func (e *ErrCampaignNotFound) Error() string {
	return fmt.Sprintf("campaign with ID %d not found", e.CampaignID)
}

// Helper constructor
func NewCampaignNotFound(id int) error {
	return &ErrCampaignNotFound{CampaignID: id}
}

// ErrRecipientStateNotFound signals a missing recipient_states row.
// Step processors treat it as non-retryable and discard the job.
type ErrRecipientStateNotFound struct {
	RecipientStateID int
}

func (e *ErrRecipientStateNotFound) Error() string {
	return fmt.Sprintf("recipient state with ID %d not found", e.RecipientStateID)
}

func NewRecipientStateNotFound(id int) error {
	return &ErrRecipientStateNotFound{RecipientStateID: id}
}

// IsNotFound reports whether err is one of the not-found sentinels.
func IsNotFound(err error) bool {
	var c *ErrCampaignNotFound
	var rs *ErrRecipientStateNotFound
	return errors.As(err, &c) || errors.As(err, &rs)
}
