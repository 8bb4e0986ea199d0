package repository

import (
	"context"
	"database/sql"

	"github.com/lib/pq"
	"github.com/unclebandit/marvo-backend/internal/model"
)

// ProspectRepositoryInterface defines methods used by the launch service
type ProspectRepositoryInterface interface {
	ListByListIDs(ctx context.Context, listIDs []int) ([]model.Prospect, error)
}

type ProspectRepository struct {
	DB *sql.DB
}

// ListByListIDs fetches all prospects belonging to any of the given lists.
func (r *ProspectRepository) ListByListIDs(ctx context.Context, listIDs []int) ([]model.Prospect, error) {
	rows, err := r.DB.QueryContext(ctx, `
        SELECT id, list_id, name, COALESCE(fb,''), COALESCE(insta,''), COALESCE(mail,''), COALESCE(sms,''), COALESCE(wtsp,'')
        FROM prospects
        WHERE list_id = ANY($1)
    `, pq.Array(listIDs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	prospects := []model.Prospect{}
	for rows.Next() {
		var p model.Prospect
		if err := rows.Scan(&p.ID, &p.ListID, &p.Name, &p.FB, &p.Insta, &p.Mail, &p.SMS, &p.WhatsApp); err != nil {
			return nil, err
		}
		prospects = append(prospects, p)
	}
	return prospects, rows.Err()
}

var _ ProspectRepositoryInterface = (*ProspectRepository)(nil)
