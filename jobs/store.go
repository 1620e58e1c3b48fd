package jobs

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// CompanySource lists the tenants a scheduled run fans out to.
type CompanySource interface {
	ActiveCompanyIDs(ctx context.Context) ([]int64, error)
}

// SubscriptionSource lists the webhook endpoints subscribed to an event.
type SubscriptionSource interface {
	Endpoints(ctx context.Context, companyID int64, event string) ([]string, error)
}

// Store is the pgx-backed source for companies and webhook subscriptions.
type Store struct {
	db *pgxpool.Pool
}

// NewStore constructs the job store.
func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

func (s *Store) ActiveCompanyIDs(ctx context.Context) ([]int64, error) {
	rows, err := s.db.Query(ctx, `SELECT id FROM companies WHERE is_active ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Endpoints returns URLs subscribed to the event, or to all events when the
// subscription row carries an empty event filter.
func (s *Store) Endpoints(ctx context.Context, companyID int64, event string) ([]string, error) {
	rows, err := s.db.Query(ctx, `SELECT url FROM webhook_subscriptions
WHERE company_id=$1 AND is_active AND (event=$2 OR event='') ORDER BY id`, companyID, event)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var urls []string
	for rows.Next() {
		var url string
		if err := rows.Scan(&url); err != nil {
			return nil, err
		}
		urls = append(urls, url)
	}
	return urls, rows.Err()
}
