package service_test

// Shared in-memory fakes for the service tests. The state store applies the
// same conditional-update rules as the SQL repository, guarded by a mutex,
// so concurrency tests exercise real claim races.

import (
	"context"
	"fmt"
	"sync"
	"time"

	appErrors "github.com/unclebandit/marvo-backend/internal/errors"
	"github.com/unclebandit/marvo-backend/internal/model"
	"github.com/unclebandit/marvo-backend/internal/queue"
	"github.com/unclebandit/marvo-backend/internal/repository"
)

type memStateStore struct {
	mu     sync.Mutex
	states map[int]*model.RecipientState
	nextID int

	failWith error // when set, every call errors
}

func newMemStateStore(states ...*model.RecipientState) *memStateStore {
	s := &memStateStore{states: map[int]*model.RecipientState{}, nextID: 1}
	for _, rs := range states {
		if rs.ID == 0 {
			rs.ID = s.nextID
		}
		if rs.ID >= s.nextID {
			s.nextID = rs.ID + 1
		}
		s.states[rs.ID] = rs
	}
	return s
}

var _ repository.RecipientStateRepositoryInterface = (*memStateStore)(nil)

func (s *memStateStore) get(id int) (*model.RecipientState, error) {
	if s.failWith != nil {
		return nil, s.failWith
	}
	rs, ok := s.states[id]
	if !ok {
		return nil, appErrors.NewRecipientStateNotFound(id)
	}
	return rs, nil
}

func (s *memStateStore) GetByID(ctx context.Context, id int) (*model.RecipientState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rs, err := s.get(id)
	if err != nil {
		return nil, err
	}
	copied := *rs
	return &copied, nil
}

func (s *memStateStore) FindByPlatformID(ctx context.Context, channel, platformID string) (*model.RecipientState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return nil, s.failWith
	}
	for _, rs := range s.states {
		if rs.Channel == channel && rs.PlatformID == platformID {
			copied := *rs
			return &copied, nil
		}
	}
	return nil, nil
}

func (s *memStateStore) CreateMany(ctx context.Context, states []model.RecipientState) ([]model.RecipientState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return nil, s.failWith
	}
	var created []model.RecipientState
	for _, rs := range states {
		dupe := false
		for _, existing := range s.states {
			if existing.ProspectID == rs.ProspectID && existing.CampaignID == rs.CampaignID && existing.Channel == rs.Channel {
				dupe = true
				break
			}
		}
		if dupe {
			continue
		}
		rs.ID = s.nextID
		s.nextID++
		stored := rs
		s.states[rs.ID] = &stored
		created = append(created, rs)
	}
	return created, nil
}

func (s *memStateStore) ClaimBaitSent(ctx context.Context, id int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rs, err := s.get(id)
	if err != nil {
		return false, err
	}
	if rs.BaitSent {
		return false, nil
	}
	rs.BaitSent = true
	now := time.Now()
	rs.LastMessageSentAt = &now
	return true, nil
}

func (s *memStateStore) ClaimMainSent(ctx context.Context, id int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rs, err := s.get(id)
	if err != nil {
		return false, err
	}
	if !rs.BaitSent || !rs.RepliedAfterBait || rs.MainSent {
		return false, nil
	}
	rs.MainSent = true
	now := time.Now()
	rs.LastMessageSentAt = &now
	return true, nil
}

func (s *memStateStore) ClaimFollowUpSent(ctx context.Context, id, index int, nextFollowUpAt *time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rs, err := s.get(id)
	if err != nil {
		return false, err
	}
	if !rs.MainSent || rs.RepliedAfterMain || rs.FollowUpSent != index || index >= rs.TotalFollowUp {
		return false, nil
	}
	rs.FollowUpSent = index + 1
	now := time.Now()
	rs.LastMessageSentAt = &now
	rs.NextFollowUpAt = nextFollowUpAt
	return true, nil
}

func (s *memStateStore) ReleaseBaitSent(ctx context.Context, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rs, err := s.get(id)
	if err != nil {
		return err
	}
	rs.BaitSent = false
	return nil
}

func (s *memStateStore) ReleaseMainSent(ctx context.Context, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rs, err := s.get(id)
	if err != nil {
		return err
	}
	if rs.MainSent && rs.FollowUpSent == 0 {
		rs.MainSent = false
	}
	return nil
}

func (s *memStateStore) ReleaseFollowUpSent(ctx context.Context, id, index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rs, err := s.get(id)
	if err != nil {
		return err
	}
	if rs.FollowUpSent == index+1 {
		rs.FollowUpSent = index
	}
	return nil
}

func (s *memStateStore) MarkReplied(ctx context.Context, id int) (*repository.ReplyOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rs, err := s.get(id)
	if err != nil {
		return nil, err
	}
	out := &repository.ReplyOutcome{RecipientStateID: id}
	if rs.MainSent {
		if !rs.RepliedAfterMain {
			rs.RepliedAfterMain = true
			rs.Status = model.StatusInterested
			out.SetAfterMain = true
		}
	} else if rs.BaitSent {
		if !rs.RepliedAfterBait {
			rs.RepliedAfterBait = true
			out.SetAfterBait = true
		}
	}
	return out, nil
}

func (s *memStateStore) FindAwaitingMain(ctx context.Context, limit int) ([]model.RecipientState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return nil, s.failWith
	}
	var out []model.RecipientState
	for _, rs := range s.states {
		if rs.RepliedAfterBait && !rs.MainSent {
			out = append(out, *rs)
		}
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (s *memStateStore) GetCampaignStats(ctx context.Context, campaignID int) (map[string]int, error) {
	return map[string]int{}, nil
}

// mockCampaignRepo serves a fixed set of campaigns.
type mockCampaignRepo struct {
	campaigns map[int]*model.Campaign
	statuses  map[int]string
	statusErr error
}

func newMockCampaignRepo(campaigns ...*model.Campaign) *mockCampaignRepo {
	m := &mockCampaignRepo{campaigns: map[int]*model.Campaign{}, statuses: map[int]string{}}
	for _, c := range campaigns {
		m.campaigns[c.ID] = c
	}
	return m
}

var _ repository.CampaignRepositoryInterface = (*mockCampaignRepo)(nil)

func (m *mockCampaignRepo) Create(ctx context.Context, c *model.Campaign) error { return nil }

func (m *mockCampaignRepo) GetByID(ctx context.Context, id int) (*model.Campaign, error) {
	c, ok := m.campaigns[id]
	if !ok {
		return nil, appErrors.NewCampaignNotFound(id)
	}
	return c, nil
}

func (m *mockCampaignRepo) ListCampaigns(ctx context.Context, offset, limit int, channel, status string) ([]*model.Campaign, int, error) {
	return nil, 0, nil
}

func (m *mockCampaignRepo) UpdateStatus(ctx context.Context, campaignID int, status string) error {
	if m.statusErr != nil {
		return m.statusErr
	}
	m.statuses[campaignID] = status
	return nil
}

// mockProspectRepo serves a fixed prospect slice.
type mockProspectRepo struct {
	prospects []model.Prospect
	err       error
}

var _ repository.ProspectRepositoryInterface = (*mockProspectRepo)(nil)

func (m *mockProspectRepo) ListByListIDs(ctx context.Context, listIDs []int) ([]model.Prospect, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.prospects, nil
}

type sentMessage struct {
	Channel    string
	PlatformID string
	Content    string
}

// mockDispatcher records sends and can be told to fail.
type mockDispatcher struct {
	mu   sync.Mutex
	sent []sentMessage
	err  error
}

func (m *mockDispatcher) Send(ctx context.Context, channel, platformID, content string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMessage{Channel: channel, PlatformID: platformID, Content: content})
	return nil
}

func (m *mockDispatcher) sentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

type enqueuedJob struct {
	Queue string
	Data  map[string]interface{}
	Opts  queue.Options
}

// mockQueue records enqueues and can be told to fail.
type mockQueue struct {
	mu   sync.Mutex
	jobs []enqueuedJob
	err  error
	n    int
}

func (m *mockQueue) Enqueue(ctx context.Context, queueName string, data map[string]interface{}, opts queue.Options) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", m.err
	}
	m.jobs = append(m.jobs, enqueuedJob{Queue: queueName, Data: data, Opts: opts})
	m.n++
	return fmt.Sprintf("job-%d", m.n), nil
}

func (m *mockQueue) enqueued() []enqueuedJob {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]enqueuedJob, len(m.jobs))
	copy(out, m.jobs)
	return out
}
