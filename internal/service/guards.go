// internal/service/guards.go

package service

import "github.com/unclebandit/marvo-backend/internal/model"

// Queue names for the three drip stages. Jobs keep moving between restarts,
// so these values never change once data is in Redis.
const (
	QueueBait     = "bait"
	QueueMain     = "main"
	QueueFollowUp = "followUp"
)

// CanSendBait reports whether a bait message may still go out. The bait is the
// first touch, so the only condition is that it has not been sent yet.
func CanSendBait(rs *model.RecipientState) bool {
	return !rs.BaitSent
}

// CanSendMain reports whether the main message may go out: the bait must be
// out, the prospect must have replied to it, and the main must not have been
// sent already. The bait check keeps the main from overtaking a bait that is
// still stuck in retry.
func CanSendMain(rs *model.RecipientState) bool {
	return rs.BaitSent && rs.RepliedAfterBait && !rs.MainSent
}

// CanSendFollowUp reports whether follow-up number index (0-based) may go out.
// A reply after the main, an out-of-order index, or an exhausted sequence all
// stop the chain.
func CanSendFollowUp(rs *model.RecipientState, index int) bool {
	if !rs.MainSent || rs.RepliedAfterMain {
		return false
	}
	return index == rs.FollowUpSent && index < rs.TotalFollowUp
}
