package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	appErrors "github.com/unclebandit/marvo-backend/internal/errors"
	"github.com/unclebandit/marvo-backend/internal/model"
)

type CampaignRepositoryInterface interface {
	Create(ctx context.Context, c *model.Campaign) error
	GetByID(ctx context.Context, id int) (*model.Campaign, error)
	ListCampaigns(ctx context.Context, offset, limit int, channel, status string) ([]*model.Campaign, int, error)
	UpdateStatus(ctx context.Context, campaignID int, status string) error
}

type CampaignRepository struct {
	DB *sql.DB
}

// Create inserts a campaign with its follow-up chain in one transaction so a
// half-written chain can never be launched.
func (r *CampaignRepository) Create(ctx context.Context, c *model.Campaign) error {
	c.CreatedAt = time.Now()
	if c.Status == "" {
		c.Status = "draft"
	}

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	err = tx.QueryRowContext(ctx, `
        INSERT INTO campaigns (name, channel, status, bait_message, main_message, daily_limit, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING id
    `, c.Name, c.Channel, c.Status, c.BaitMessage, c.MainMessage, c.DailyLimit, c.CreatedAt).Scan(&c.ID)
	if err != nil {
		return err
	}

	for i := range c.FollowUps {
		f := &c.FollowUps[i]
		f.CampaignID = c.ID
		f.Position = i
		if f.DelayMinutes < 0 {
			return fmt.Errorf("follow-up %d has negative delay", i)
		}
		err = tx.QueryRowContext(ctx, `
            INSERT INTO campaign_follow_ups (campaign_id, position, content, delay_minutes)
            VALUES ($1, $2, $3, $4)
            RETURNING id
        `, f.CampaignID, f.Position, f.Content, f.DelayMinutes).Scan(&f.ID)
		if err != nil {
			return err
		}
	}

	for _, listID := range c.ProspectListIDs {
		_, err = tx.ExecContext(ctx, `
            INSERT INTO campaign_prospect_lists (campaign_id, list_id)
            VALUES ($1, $2)
            ON CONFLICT DO NOTHING
        `, c.ID, listID)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (r *CampaignRepository) GetByID(ctx context.Context, id int) (*model.Campaign, error) {
	var c model.Campaign
	err := r.DB.QueryRowContext(ctx, `
        SELECT id, name, channel, status, bait_message, main_message, daily_limit, created_at, updated_at
        FROM campaigns WHERE id=$1
    `, id).Scan(&c.ID, &c.Name, &c.Channel, &c.Status, &c.BaitMessage, &c.MainMessage, &c.DailyLimit, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.NewCampaignNotFound(id)
		}
		return nil, err
	}

	rows, err := r.DB.QueryContext(ctx, `
        SELECT id, campaign_id, position, content, delay_minutes
        FROM campaign_follow_ups
        WHERE campaign_id=$1
        ORDER BY position ASC
    `, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var f model.FollowUp
		if err := rows.Scan(&f.ID, &f.CampaignID, &f.Position, &f.Content, &f.DelayMinutes); err != nil {
			return nil, err
		}
		c.FollowUps = append(c.FollowUps, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	listRows, err := r.DB.QueryContext(ctx, `
        SELECT list_id FROM campaign_prospect_lists WHERE campaign_id=$1 ORDER BY list_id
    `, id)
	if err != nil {
		return nil, err
	}
	defer listRows.Close()

	for listRows.Next() {
		var listID int
		if err := listRows.Scan(&listID); err != nil {
			return nil, err
		}
		c.ProspectListIDs = append(c.ProspectListIDs, listID)
	}

	return &c, listRows.Err()
}

func (r *CampaignRepository) ListCampaigns(ctx context.Context, offset, limit int, channel, status string) ([]*model.Campaign, int, error) {
	campaigns := []*model.Campaign{}
	query := `SELECT id, name, channel, status, bait_message, main_message, daily_limit, created_at, updated_at FROM campaigns WHERE 1=1`
	args := []interface{}{}
	argPos := 1

	if channel != "" {
		query += fmt.Sprintf(" AND channel=$%d", argPos)
		args = append(args, channel)
		argPos++
	}
	if status != "" {
		query += fmt.Sprintf(" AND status=$%d", argPos)
		args = append(args, status)
		argPos++
	}

	query += fmt.Sprintf(" ORDER BY id DESC LIMIT $%d OFFSET $%d", argPos, argPos+1)
	args = append(args, limit, offset)

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	for rows.Next() {
		c := &model.Campaign{}
		if err := rows.Scan(&c.ID, &c.Name, &c.Channel, &c.Status, &c.BaitMessage, &c.MainMessage, &c.DailyLimit, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, 0, err
		}
		campaigns = append(campaigns, c)
	}

	countQuery := `SELECT COUNT(*) FROM campaigns WHERE 1=1`
	argsCount := []interface{}{}
	argPosCount := 1
	if channel != "" {
		countQuery += fmt.Sprintf(" AND channel=$%d", argPosCount)
		argsCount = append(argsCount, channel)
		argPosCount++
	}
	if status != "" {
		countQuery += fmt.Sprintf(" AND status=$%d", argPosCount)
		argsCount = append(argsCount, status)
	}

	var total int
	if err := r.DB.QueryRowContext(ctx, countQuery, argsCount...).Scan(&total); err != nil {
		return nil, 0, err
	}

	return campaigns, total, nil
}

func (r *CampaignRepository) UpdateStatus(ctx context.Context, campaignID int, status string) error {
	_, err := r.DB.ExecContext(ctx, `UPDATE campaigns SET status=$1, updated_at=NOW() WHERE id=$2`, status, campaignID)
	return err
}

var _ CampaignRepositoryInterface = (*CampaignRepository)(nil)
