package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/unclebandit/marvo-backend/internal/model"
	"github.com/unclebandit/marvo-backend/internal/service"
)

func launchFixture() (*mockCampaignRepo, *mockProspectRepo) {
	campaign := testCampaign()
	campaign.ProspectListIDs = []int{1}
	campaigns := newMockCampaignRepo(campaign)

	prospects := &mockProspectRepo{prospects: []model.Prospect{
		{ID: 1, ListID: 1, Name: "Alice", FB: "psid-alice"},
		{ID: 2, ListID: 1, Name: "Ben", FB: "psid-ben"},
		{ID: 3, ListID: 1, Name: "No Facebook", Insta: "ig-only"},
		{ID: 4, ListID: 1, Name: "Alice duplicate", FB: "psid-alice"},
	}}
	return campaigns, prospects
}

func TestRunCampaignCreatesAndQueues(t *testing.T) {
	campaigns, prospects := launchFixture()
	store := newMemStateStore()
	q := &mockQueue{}
	svc := service.NewLaunchService(campaigns, prospects, store, q)

	result, err := svc.RunCampaign(context.Background(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// 4 prospects: one has no facebook handle, one is a duplicate handle
	if result.Created != 2 {
		t.Errorf("created = %d, want 2", result.Created)
	}
	if result.Queued != 2 || result.Failed != 0 {
		t.Errorf("queued = %d failed = %d, want 2/0", result.Queued, result.Failed)
	}

	for _, job := range q.enqueued() {
		if job.Queue != service.QueueBait {
			t.Errorf("queued to %s, want bait", job.Queue)
		}
		if job.Opts.Delay != 0 {
			t.Errorf("bait delayed by %s, want immediate", job.Opts.Delay)
		}
	}

	if campaigns.statuses[1] != model.CampaignStatusActive {
		t.Errorf("campaign status = %q, want active", campaigns.statuses[1])
	}
}

func TestRunCampaignSetsTotalFollowUp(t *testing.T) {
	campaigns, prospects := launchFixture()
	store := newMemStateStore()
	svc := service.NewLaunchService(campaigns, prospects, store, &mockQueue{})

	if _, err := svc.RunCampaign(context.Background(), 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rs, err := store.FindByPlatformID(context.Background(), model.ChannelFacebook, "psid-alice")
	if err != nil || rs == nil {
		t.Fatalf("state not created: rs=%v err=%v", rs, err)
	}
	if rs.TotalFollowUp != 2 {
		t.Errorf("total_follow_up = %d, want 2", rs.TotalFollowUp)
	}
	if rs.Status != model.StatusPending {
		t.Errorf("status = %s, want pending", rs.Status)
	}
}

func TestRunCampaignRelaunchSkipsExisting(t *testing.T) {
	campaigns, prospects := launchFixture()
	store := newMemStateStore()
	q := &mockQueue{}
	svc := service.NewLaunchService(campaigns, prospects, store, q)

	if _, err := svc.RunCampaign(context.Background(), 1); err != nil {
		t.Fatalf("first launch: %v", err)
	}
	result, err := svc.RunCampaign(context.Background(), 1)
	if err != nil {
		t.Fatalf("relaunch: %v", err)
	}

	if result.Created != 0 || result.Queued != 0 {
		t.Errorf("relaunch created %d queued %d, want 0/0", result.Created, result.Queued)
	}
	if n := len(q.enqueued()); n != 2 {
		t.Errorf("total queued jobs = %d, want 2 from the first launch only", n)
	}
}

func TestRunCampaignDailyLimitCaps(t *testing.T) {
	campaigns, prospects := launchFixture()
	limit := 1
	campaigns.campaigns[1].DailyLimit = &limit
	store := newMemStateStore()
	svc := service.NewLaunchService(campaigns, prospects, store, &mockQueue{})

	result, err := svc.RunCampaign(context.Background(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Created != 1 {
		t.Errorf("created = %d, want daily limit of 1", result.Created)
	}
}

func TestRunCampaignCountsEnqueueFailures(t *testing.T) {
	campaigns, prospects := launchFixture()
	store := newMemStateStore()
	q := &mockQueue{err: errors.New("redis down")}
	svc := service.NewLaunchService(campaigns, prospects, store, q)

	result, err := svc.RunCampaign(context.Background(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Created != 2 || result.Queued != 0 || result.Failed != 2 {
		t.Errorf("result = %+v, want 2 created, 0 queued, 2 failed", result)
	}
}

func TestRunCampaignUnknownCampaign(t *testing.T) {
	svc := service.NewLaunchService(newMockCampaignRepo(), &mockProspectRepo{}, newMemStateStore(), &mockQueue{})

	if _, err := svc.RunCampaign(context.Background(), 42); err == nil {
		t.Fatal("expected not-found error")
	}
}

func TestRunCampaignWithoutListsFails(t *testing.T) {
	campaign := testCampaign()
	campaign.ProspectListIDs = nil
	svc := service.NewLaunchService(newMockCampaignRepo(campaign), &mockProspectRepo{}, newMemStateStore(), &mockQueue{})

	if _, err := svc.RunCampaign(context.Background(), 1); err == nil {
		t.Fatal("expected error for a campaign with no lists")
	}
}
