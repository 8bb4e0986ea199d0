// internal/service/reply_service.go

package service

import (
	"context"
	"log"
	"strconv"

	appErrors "github.com/unclebandit/marvo-backend/internal/errors"
	"github.com/unclebandit/marvo-backend/internal/queue"
	"github.com/unclebandit/marvo-backend/internal/repository"
)

// ReplyService ingests inbound replies from the webhook handlers and flips
// the reply-side flags. When the reply lands after the bait, the main message
// is enqueued immediately rather than waiting for the next sweep.
type ReplyService struct {
	StateRepo repository.RecipientStateRepositoryInterface
	Queue     Enqueuer
}

func NewReplyService(stateRepo repository.RecipientStateRepositoryInterface, q Enqueuer) *ReplyService {
	return &ReplyService{StateRepo: stateRepo, Queue: q}
}

// HandleReply resolves an inbound message by (channel, platformID) and marks
// the reply. Senders not tracked by any campaign are ignored. Errors stay
// inside: webhook endpoints must always ack the platform.
func (s *ReplyService) HandleReply(ctx context.Context, channel, platformID string) {
	rs, err := s.StateRepo.FindByPlatformID(ctx, channel, platformID)
	if err != nil {
		log.Printf("[Reply] ❌ lookup failed for %s (%s): %v", platformID, channel, err)
		return
	}
	if rs == nil {
		log.Printf("[Reply] sender %s (%s) not tracked, ignoring", platformID, channel)
		return
	}
	s.UpdateReplyFlag(ctx, rs.ID)
}

// UpdateReplyFlag marks a reply on the record. The reply lands on whichever
// stage the record is in: after the main once the main went out, otherwise
// after the bait. A bait reply triggers an immediate main enqueue.
func (s *ReplyService) UpdateReplyFlag(ctx context.Context, id int) {
	outcome, err := s.StateRepo.MarkReplied(ctx, id)
	if err != nil {
		if appErrors.IsNotFound(err) {
			log.Printf("[Reply] recipient state %d no longer exists, ignoring", id)
			return
		}
		log.Printf("[Reply] ❌ failed to mark reply for state %d: %v", id, err)
		return
	}

	if outcome.SetAfterMain {
		log.Printf("[Reply] 🔕 state %d replied after main, follow-ups stop", id)
		return
	}
	if !outcome.SetAfterBait {
		return
	}

	log.Printf("[Reply] 💬 state %d replied after bait, queueing main", id)
	_, err = s.Queue.Enqueue(ctx, QueueMain, map[string]interface{}{
		"recipientStateId": strconv.Itoa(id),
	}, queue.Options{})
	if err != nil {
		// the sweep picks this record up within its next cycle
		log.Printf("[Reply] ⚠️ failed to enqueue main for state %d: %v", id, err)
	}
}
