// internal/service/launch_service.go

package service

import (
	"context"
	"fmt"
	"log"
	"strconv"

	"github.com/unclebandit/marvo-backend/internal/model"
	"github.com/unclebandit/marvo-backend/internal/queue"
	"github.com/unclebandit/marvo-backend/internal/repository"
)

// LaunchResult summarizes one campaign launch.
type LaunchResult struct {
	CampaignID int `json:"campaign_id"`
	Created    int `json:"created"`
	Queued     int `json:"queued"`
	Failed     int `json:"failed"`
}

// LaunchService turns a draft campaign into live recipient state records and
// bait jobs.
type LaunchService struct {
	CampaignRepo repository.CampaignRepositoryInterface
	ProspectRepo repository.ProspectRepositoryInterface
	StateRepo    repository.RecipientStateRepositoryInterface
	Queue        Enqueuer
}

func NewLaunchService(
	campaignRepo repository.CampaignRepositoryInterface,
	prospectRepo repository.ProspectRepositoryInterface,
	stateRepo repository.RecipientStateRepositoryInterface,
	q Enqueuer,
) *LaunchService {
	return &LaunchService{
		CampaignRepo: campaignRepo,
		ProspectRepo: prospectRepo,
		StateRepo:    stateRepo,
		Queue:        q,
	}
}

// RunCampaign loads the campaign's prospect lists, filters prospects down to
// those with a handle on the campaign channel, deduplicates by handle,
// inserts recipient state rows, and enqueues one bait job per inserted row.
// Relaunching is safe: existing (prospect, campaign, channel) rows are
// skipped by the insert.
func (s *LaunchService) RunCampaign(ctx context.Context, campaignID int) (*LaunchResult, error) {
	campaign, err := s.CampaignRepo.GetByID(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	if len(campaign.ProspectListIDs) == 0 {
		return nil, fmt.Errorf("campaign %d has no prospect lists attached", campaignID)
	}

	prospects, err := s.ProspectRepo.ListByListIDs(ctx, campaign.ProspectListIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load prospects for campaign %d: %w", campaignID, err)
	}

	seen := map[string]bool{}
	var states []model.RecipientState
	for _, prospect := range prospects {
		handle := prospect.HandleFor(campaign.Channel)
		if handle == "" {
			continue
		}
		if seen[handle] {
			continue
		}
		seen[handle] = true
		states = append(states, model.RecipientState{
			ProspectID:    prospect.ID,
			CampaignID:    campaign.ID,
			Channel:       campaign.Channel,
			PlatformID:    handle,
			TotalFollowUp: len(campaign.FollowUps),
			Status:        model.StatusPending,
		})
	}

	if campaign.DailyLimit != nil && *campaign.DailyLimit > 0 && len(states) > *campaign.DailyLimit {
		log.Printf("[Launch] daily limit %d caps %d eligible prospects for campaign %d",
			*campaign.DailyLimit, len(states), campaignID)
		states = states[:*campaign.DailyLimit]
	}

	created, err := s.StateRepo.CreateMany(ctx, states)
	if err != nil {
		return nil, fmt.Errorf("failed to create recipient states for campaign %d: %w", campaignID, err)
	}

	result := &LaunchResult{CampaignID: campaignID, Created: len(created)}
	for _, rs := range created {
		_, err := s.Queue.Enqueue(ctx, QueueBait, map[string]interface{}{
			"recipientStateId": strconv.Itoa(rs.ID),
			"campaignId":       strconv.Itoa(campaignID),
		}, queue.Options{})
		if err != nil {
			log.Printf("[Launch] ❌ failed to enqueue bait for state %d: %v", rs.ID, err)
			result.Failed++
			continue
		}
		result.Queued++
	}

	if err := s.CampaignRepo.UpdateStatus(ctx, campaignID, model.CampaignStatusActive); err != nil {
		return result, fmt.Errorf("campaign %d launched but status update failed: %w", campaignID, err)
	}

	log.Printf("[Launch] 🚀 campaign %d launched: %d created, %d queued, %d failed",
		campaignID, result.Created, result.Queued, result.Failed)
	return result, nil
}
