// internal/service/processor.go

package service

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	appErrors "github.com/unclebandit/marvo-backend/internal/errors"
	"github.com/unclebandit/marvo-backend/internal/model"
	"github.com/unclebandit/marvo-backend/internal/queue"
	"github.com/unclebandit/marvo-backend/internal/repository"
)

// Enqueuer is the slice of the queue fabric the services need. Satisfied by
// *queue.Fabric; replaced with a mock in tests.
type Enqueuer interface {
	Enqueue(ctx context.Context, queueName string, data map[string]interface{}, opts queue.Options) (string, error)
}

// MessageDispatcher routes outbound messages to the channel adapters.
// Satisfied by *channel.Dispatcher.
type MessageDispatcher interface {
	Send(ctx context.Context, channel, platformID, content string) error
}

// DripProcessor consumes bait, main, and follow-up jobs. Each processor
// claims the send flag first with a conditional update, then sends, then
// rolls the claim back if the transport fails. Under concurrent duplicate
// jobs only one worker wins the claim; the rest discard the job.
type DripProcessor struct {
	StateRepo    repository.RecipientStateRepositoryInterface
	CampaignRepo repository.CampaignRepositoryInterface
	Dispatcher   MessageDispatcher
	Queue        Enqueuer
}

func NewDripProcessor(
	stateRepo repository.RecipientStateRepositoryInterface,
	campaignRepo repository.CampaignRepositoryInterface,
	dispatcher MessageDispatcher,
	q Enqueuer,
) *DripProcessor {
	return &DripProcessor{
		StateRepo:    stateRepo,
		CampaignRepo: campaignRepo,
		Dispatcher:   dispatcher,
		Queue:        q,
	}
}

// Register subscribes the three stage processors on the fabric.
func (p *DripProcessor) Register(f *queue.Fabric) {
	f.Subscribe(QueueBait, p.ProcessBait)
	f.Subscribe(QueueMain, p.ProcessMain)
	f.Subscribe(QueueFollowUp, p.ProcessFollowUp)
}

// recipientStateID pulls the recipient state id out of a job payload. The id
// travels as a string on the wire but numbers survive JSON as float64, so
// both are accepted.
func recipientStateID(data map[string]interface{}) (int, error) {
	raw, ok := data["recipientStateId"]
	if !ok {
		return 0, fmt.Errorf("payload missing recipientStateId")
	}
	switch v := raw.(type) {
	case string:
		id, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("invalid recipientStateId %q", v)
		}
		return id, nil
	case float64:
		return int(v), nil
	case int:
		return v, nil
	}
	return 0, fmt.Errorf("invalid recipientStateId type %T", raw)
}

func followUpIndex(data map[string]interface{}) (int, error) {
	raw, ok := data["followUpIndex"]
	if !ok {
		return 0, fmt.Errorf("payload missing followUpIndex")
	}
	switch v := raw.(type) {
	case float64:
		return int(v), nil
	case int:
		return v, nil
	case string:
		idx, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("invalid followUpIndex %q", v)
		}
		return idx, nil
	}
	return 0, fmt.Errorf("invalid followUpIndex type %T", raw)
}

// loadStep fetches the recipient state and its campaign. A missing record is
// reported with (nil, nil, nil) so callers can discard the job instead of
// retrying it forever.
func (p *DripProcessor) loadStep(ctx context.Context, id int) (*model.RecipientState, *model.Campaign, error) {
	rs, err := p.StateRepo.GetByID(ctx, id)
	if err != nil {
		if appErrors.IsNotFound(err) {
			log.Printf("[Drip] ⚠️ recipient state %d no longer exists, discarding job", id)
			return nil, nil, nil
		}
		return nil, nil, err
	}

	campaign, err := p.CampaignRepo.GetByID(ctx, rs.CampaignID)
	if err != nil {
		if appErrors.IsNotFound(err) {
			log.Printf("[Drip] ⚠️ campaign %d no longer exists, discarding job for state %d", rs.CampaignID, id)
			return nil, nil, nil
		}
		return nil, nil, err
	}
	return rs, campaign, nil
}

// ProcessBait handles one bait job: claim bait_sent, send, roll back on
// transport failure.
func (p *DripProcessor) ProcessBait(ctx context.Context, job *queue.Job) error {
	id, err := recipientStateID(job.Data)
	if err != nil {
		log.Printf("[Drip] ⚠️ malformed bait job %s: %v", job.ID, err)
		return nil
	}

	rs, campaign, err := p.loadStep(ctx, id)
	if err != nil {
		return err
	}
	if rs == nil {
		return nil
	}

	if !CanSendBait(rs) {
		log.Printf("[Drip] bait already sent for state %d, skipping", id)
		return nil
	}

	claimed, err := p.StateRepo.ClaimBaitSent(ctx, id)
	if err != nil {
		return err
	}
	if !claimed {
		log.Printf("[Drip] bait claim lost for state %d, skipping", id)
		return nil
	}

	if err := p.Dispatcher.Send(ctx, rs.Channel, rs.PlatformID, campaign.BaitMessage); err != nil {
		if relErr := p.StateRepo.ReleaseBaitSent(ctx, id); relErr != nil {
			log.Printf("[Drip] ❌ failed to release bait claim for state %d: %v", id, relErr)
		}
		return fmt.Errorf("bait send failed for state %d: %w", id, err)
	}

	log.Printf("[Drip] ✅ bait sent to %s (%s) for campaign %d", rs.PlatformID, rs.Channel, rs.CampaignID)
	return nil
}

// ProcessMain handles one main job. On success it schedules follow-up 0.
func (p *DripProcessor) ProcessMain(ctx context.Context, job *queue.Job) error {
	id, err := recipientStateID(job.Data)
	if err != nil {
		log.Printf("[Drip] ⚠️ malformed main job %s: %v", job.ID, err)
		return nil
	}

	rs, campaign, err := p.loadStep(ctx, id)
	if err != nil {
		return err
	}
	if rs == nil {
		return nil
	}

	if !CanSendMain(rs) {
		// A redelivered job after a crash between the send and the enqueue
		// still owes follow-up 0 its schedule. The follow-up claim absorbs
		// the duplicate when the first enqueue did land.
		if rs.MainSent && !rs.RepliedAfterMain && rs.FollowUpSent == 0 &&
			rs.TotalFollowUp > 0 && len(campaign.FollowUps) > 0 {
			if err := p.scheduleFollowUp(ctx, id, 0, campaign.FollowUps[0].DelayMinutes); err != nil {
				return err
			}
		}
		log.Printf("[Drip] main not eligible for state %d (baitSent=%v repliedAfterBait=%v mainSent=%v), skipping",
			id, rs.BaitSent, rs.RepliedAfterBait, rs.MainSent)
		return nil
	}

	claimed, err := p.StateRepo.ClaimMainSent(ctx, id)
	if err != nil {
		return err
	}
	if !claimed {
		log.Printf("[Drip] main claim lost for state %d, skipping", id)
		return nil
	}

	if err := p.Dispatcher.Send(ctx, rs.Channel, rs.PlatformID, campaign.MainMessage); err != nil {
		if relErr := p.StateRepo.ReleaseMainSent(ctx, id); relErr != nil {
			log.Printf("[Drip] ❌ failed to release main claim for state %d: %v", id, relErr)
		}
		return fmt.Errorf("main send failed for state %d: %w", id, err)
	}

	log.Printf("[Drip] ✅ main sent to %s (%s) for campaign %d", rs.PlatformID, rs.Channel, rs.CampaignID)

	if len(campaign.FollowUps) > 0 {
		if err := p.scheduleFollowUp(ctx, id, 0, campaign.FollowUps[0].DelayMinutes); err != nil {
			// main already went out; the redelivered job re-enters through
			// the not-eligible branch above and repeats the enqueue
			return err
		}
	}
	return nil
}

// ProcessFollowUp handles follow-up number followUpIndex, then schedules the
// next one while the sequence has content left.
func (p *DripProcessor) ProcessFollowUp(ctx context.Context, job *queue.Job) error {
	id, err := recipientStateID(job.Data)
	if err != nil {
		log.Printf("[Drip] ⚠️ malformed follow-up job %s: %v", job.ID, err)
		return nil
	}
	index, err := followUpIndex(job.Data)
	if err != nil {
		log.Printf("[Drip] ⚠️ malformed follow-up job %s: %v", job.ID, err)
		return nil
	}

	rs, campaign, err := p.loadStep(ctx, id)
	if err != nil {
		return err
	}
	if rs == nil {
		return nil
	}

	if !CanSendFollowUp(rs, index) {
		// Same crash-recovery shape as the main stage: if the cursor moved
		// past this index but the next step may still be unscheduled,
		// repeat its enqueue before discarding the job.
		if next := index + 1; rs.MainSent && !rs.RepliedAfterMain &&
			rs.FollowUpSent == next && next < rs.TotalFollowUp && next < len(campaign.FollowUps) {
			if err := p.scheduleFollowUp(ctx, id, next, campaign.FollowUps[next].DelayMinutes); err != nil {
				return err
			}
		}
		log.Printf("[Drip] follow-up %d not eligible for state %d (sent=%d total=%d repliedAfterMain=%v), skipping",
			index, id, rs.FollowUpSent, rs.TotalFollowUp, rs.RepliedAfterMain)
		return nil
	}
	if index >= len(campaign.FollowUps) {
		log.Printf("[Drip] ⚠️ follow-up %d has no content in campaign %d, skipping", index, rs.CampaignID)
		return nil
	}

	var nextAt *time.Time
	nextIndex := index + 1
	if nextIndex < len(campaign.FollowUps) && nextIndex < rs.TotalFollowUp {
		t := time.Now().Add(time.Duration(campaign.FollowUps[nextIndex].DelayMinutes) * time.Minute)
		nextAt = &t
	}

	claimed, err := p.StateRepo.ClaimFollowUpSent(ctx, id, index, nextAt)
	if err != nil {
		return err
	}
	if !claimed {
		log.Printf("[Drip] follow-up %d claim lost for state %d, skipping", index, id)
		return nil
	}

	if err := p.Dispatcher.Send(ctx, rs.Channel, rs.PlatformID, campaign.FollowUps[index].Content); err != nil {
		if relErr := p.StateRepo.ReleaseFollowUpSent(ctx, id, index); relErr != nil {
			log.Printf("[Drip] ❌ failed to release follow-up claim for state %d: %v", id, relErr)
		}
		return fmt.Errorf("follow-up %d send failed for state %d: %w", index, id, err)
	}

	log.Printf("[Drip] ✅ follow-up %d sent to %s (%s) for campaign %d", index, rs.PlatformID, rs.Channel, rs.CampaignID)

	if nextAt != nil {
		if err := p.scheduleFollowUp(ctx, id, nextIndex, campaign.FollowUps[nextIndex].DelayMinutes); err != nil {
			return err
		}
	}
	return nil
}

func (p *DripProcessor) scheduleFollowUp(ctx context.Context, stateID, index, delayMinutes int) error {
	_, err := p.Queue.Enqueue(ctx, QueueFollowUp, map[string]interface{}{
		"recipientStateId": strconv.Itoa(stateID),
		"followUpIndex":    index,
	}, queue.Options{Delay: time.Duration(delayMinutes) * time.Minute})
	if err != nil {
		return fmt.Errorf("failed to schedule follow-up %d for state %d: %w", index, stateID, err)
	}
	log.Printf("[Drip] ⏰ follow-up %d scheduled for state %d in %dm", index, stateID, delayMinutes)
	return nil
}
