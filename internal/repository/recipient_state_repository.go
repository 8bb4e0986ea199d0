package repository

import (
	"context"
	"database/sql"
	"time"

	appErrors "github.com/unclebandit/marvo-backend/internal/errors"
	"github.com/unclebandit/marvo-backend/internal/model"
)

// ReplyOutcome reports which reply flag an ingestion call transitioned.
type ReplyOutcome struct {
	RecipientStateID int
	SetAfterBait     bool
	SetAfterMain     bool
}

// RecipientStateRepositoryInterface is everything the processors, webhooks
// and the sweep need. All flag transitions are conditional single-statement
// updates: concurrent writers race on the WHERE clause, exactly one wins.
type RecipientStateRepositoryInterface interface {
	GetByID(ctx context.Context, id int) (*model.RecipientState, error)
	FindByPlatformID(ctx context.Context, channel, platformID string) (*model.RecipientState, error)
	CreateMany(ctx context.Context, states []model.RecipientState) ([]model.RecipientState, error)

	// Claim* set a send-side flag only if the step's guard still holds.
	// They return false when another writer got there first (or the guard
	// never held), which the caller treats as a silent discard.
	ClaimBaitSent(ctx context.Context, id int) (bool, error)
	ClaimMainSent(ctx context.Context, id int) (bool, error)
	ClaimFollowUpSent(ctx context.Context, id, index int, nextFollowUpAt *time.Time) (bool, error)

	// Release* undo a claim after a failed send so the redelivered job sees
	// an unmutated record.
	ReleaseBaitSent(ctx context.Context, id int) error
	ReleaseMainSent(ctx context.Context, id int) error
	ReleaseFollowUpSent(ctx context.Context, id, index int) error

	MarkReplied(ctx context.Context, id int) (*ReplyOutcome, error)

	// FindAwaitingMain returns records stuck between "replied to bait" and
	// "main sent", for the reconciliation sweep.
	FindAwaitingMain(ctx context.Context, limit int) ([]model.RecipientState, error)

	GetCampaignStats(ctx context.Context, campaignID int) (map[string]int, error)
}

type RecipientStateRepository struct {
	DB *sql.DB
}

const recipientStateColumns = `id, prospect_id, campaign_id, channel, platform_id,
        bait_sent, replied_after_bait, main_sent, replied_after_main,
        follow_up_sent, total_follow_up, status,
        last_message_sent_at, next_follow_up_at, created_at, updated_at`

func scanRecipientState(row interface{ Scan(...interface{}) error }) (*model.RecipientState, error) {
	var rs model.RecipientState
	err := row.Scan(
		&rs.ID, &rs.ProspectID, &rs.CampaignID, &rs.Channel, &rs.PlatformID,
		&rs.BaitSent, &rs.RepliedAfterBait, &rs.MainSent, &rs.RepliedAfterMain,
		&rs.FollowUpSent, &rs.TotalFollowUp, &rs.Status,
		&rs.LastMessageSentAt, &rs.NextFollowUpAt, &rs.CreatedAt, &rs.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rs, nil
}

func (r *RecipientStateRepository) GetByID(ctx context.Context, id int) (*model.RecipientState, error) {
	rs, err := scanRecipientState(r.DB.QueryRowContext(ctx,
		`SELECT `+recipientStateColumns+` FROM recipient_states WHERE id=$1`, id))
	if err == sql.ErrNoRows {
		return nil, appErrors.NewRecipientStateNotFound(id)
	}
	return rs, err
}

// FindByPlatformID resolves the newest record for a channel address. Webhooks
// only know the sender's handle, not our ids. Returns (nil, nil) for senders
// no campaign tracks.
func (r *RecipientStateRepository) FindByPlatformID(ctx context.Context, channel, platformID string) (*model.RecipientState, error) {
	rs, err := scanRecipientState(r.DB.QueryRowContext(ctx, `
        SELECT `+recipientStateColumns+`
        FROM recipient_states
        WHERE channel=$1 AND platform_id=$2
        ORDER BY created_at DESC
        LIMIT 1
    `, channel, platformID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return rs, err
}

// CreateMany inserts recipient states idempotently. The unique index on
// (prospect_id, campaign_id, channel) plus ON CONFLICT DO NOTHING means
// relaunching a campaign never duplicates a record; only freshly inserted
// rows are returned.
func (r *RecipientStateRepository) CreateMany(ctx context.Context, states []model.RecipientState) ([]model.RecipientState, error) {
	created := []model.RecipientState{}
	for i := range states {
		s := states[i]
		err := r.DB.QueryRowContext(ctx, `
            INSERT INTO recipient_states
                (prospect_id, campaign_id, channel, platform_id, total_follow_up, status, created_at, updated_at)
            VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
            ON CONFLICT (prospect_id, campaign_id, channel) DO NOTHING
            RETURNING id, created_at, updated_at
        `, s.ProspectID, s.CampaignID, s.Channel, s.PlatformID, s.TotalFollowUp, model.StatusPending).
			Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
		if err == sql.ErrNoRows {
			continue // already exists
		}
		if err != nil {
			return created, err
		}
		s.Status = model.StatusPending
		created = append(created, s)
	}
	return created, nil
}

// ====================== Send-side claims ======================

func (r *RecipientStateRepository) ClaimBaitSent(ctx context.Context, id int) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `
        UPDATE recipient_states
        SET bait_sent=true, last_message_sent_at=NOW(), updated_at=NOW()
        WHERE id=$1 AND bait_sent=false
    `, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// ClaimMainSent requires bait_sent as well: the main must never overtake a
// bait that is still pending.
func (r *RecipientStateRepository) ClaimMainSent(ctx context.Context, id int) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `
        UPDATE recipient_states
        SET main_sent=true, last_message_sent_at=NOW(), updated_at=NOW()
        WHERE id=$1 AND bait_sent=true AND replied_after_bait=true AND main_sent=false
    `, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

func (r *RecipientStateRepository) ClaimFollowUpSent(ctx context.Context, id, index int, nextFollowUpAt *time.Time) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `
        UPDATE recipient_states
        SET follow_up_sent=$2+1, last_message_sent_at=NOW(), next_follow_up_at=$3, updated_at=NOW()
        WHERE id=$1
          AND main_sent=true AND replied_after_main=false
          AND follow_up_sent=$2 AND follow_up_sent < total_follow_up
    `, id, index, nextFollowUpAt)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// ====================== Claim rollbacks ======================

func (r *RecipientStateRepository) ReleaseBaitSent(ctx context.Context, id int) error {
	_, err := r.DB.ExecContext(ctx, `
        UPDATE recipient_states
        SET bait_sent=false, updated_at=NOW()
        WHERE id=$1 AND bait_sent=true AND main_sent=false
    `, id)
	return err
}

func (r *RecipientStateRepository) ReleaseMainSent(ctx context.Context, id int) error {
	_, err := r.DB.ExecContext(ctx, `
        UPDATE recipient_states
        SET main_sent=false, updated_at=NOW()
        WHERE id=$1 AND main_sent=true AND follow_up_sent=0
    `, id)
	return err
}

func (r *RecipientStateRepository) ReleaseFollowUpSent(ctx context.Context, id, index int) error {
	_, err := r.DB.ExecContext(ctx, `
        UPDATE recipient_states
        SET follow_up_sent=$2, updated_at=NOW()
        WHERE id=$1 AND follow_up_sent=$2+1
    `, id, index)
	return err
}

// ====================== Reply ingestion ======================

// MarkReplied applies the bait-before-main gating rule in one atomic
// statement: a reply lands on replied_after_main when main already went out,
// on replied_after_bait when the bait went out but the main has not, and
// changes nothing otherwise. A message arriving before the bait is out
// (unsolicited contact, bait still in retry) must not start the chain:
// replied_after_bait=true on a bait_sent=false record would let the main go
// out first.
func (r *RecipientStateRepository) MarkReplied(ctx context.Context, id int) (*ReplyOutcome, error) {
	var beforeBait, beforeMain, afterBait, afterMain bool
	err := r.DB.QueryRowContext(ctx, `
        UPDATE recipient_states rs
        SET replied_after_main = rs.replied_after_main OR rs.main_sent,
            replied_after_bait = rs.replied_after_bait OR (rs.bait_sent AND NOT rs.main_sent),
            status = CASE WHEN rs.main_sent AND NOT rs.replied_after_main
                          THEN 'interested' ELSE rs.status END,
            updated_at = NOW()
        FROM (SELECT replied_after_bait AS b, replied_after_main AS m
              FROM recipient_states WHERE id=$1 FOR UPDATE) prev
        WHERE rs.id=$1
        RETURNING prev.b, prev.m, rs.replied_after_bait, rs.replied_after_main
    `, id).Scan(&beforeBait, &beforeMain, &afterBait, &afterMain)
	if err == sql.ErrNoRows {
		return nil, appErrors.NewRecipientStateNotFound(id)
	}
	if err != nil {
		return nil, err
	}

	return &ReplyOutcome{
		RecipientStateID: id,
		SetAfterBait:     afterBait && !beforeBait,
		SetAfterMain:     afterMain && !beforeMain,
	}, nil
}

// ====================== Sweep + stats ======================

func (r *RecipientStateRepository) FindAwaitingMain(ctx context.Context, limit int) ([]model.RecipientState, error) {
	if limit <= 0 {
		limit = 500
	}
	rows, err := r.DB.QueryContext(ctx, `
        SELECT `+recipientStateColumns+`
        FROM recipient_states
        WHERE replied_after_bait=true AND main_sent=false
        ORDER BY updated_at ASC
        LIMIT $1
    `, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	states := []model.RecipientState{}
	for rows.Next() {
		rs, err := scanRecipientState(rows)
		if err != nil {
			return nil, err
		}
		states = append(states, *rs)
	}
	return states, rows.Err()
}

func (r *RecipientStateRepository) GetCampaignStats(ctx context.Context, campaignID int) (map[string]int, error) {
	rows, err := r.DB.QueryContext(ctx, `
        SELECT status, COUNT(*) FROM recipient_states WHERE campaign_id=$1 GROUP BY status
    `, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := map[string]int{
		model.StatusPending:       0,
		model.StatusInterested:    0,
		model.StatusNotInterested: 0,
	}
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

var _ RecipientStateRepositoryInterface = (*RecipientStateRepository)(nil)
