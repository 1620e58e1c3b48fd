package auditor

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clearbooks/clearbooks/internal/ledger"
	"github.com/clearbooks/clearbooks/internal/mapping"
)

// RecentEntry carries an entry's lines so the auditor can recompute the
// balance itself instead of trusting the stored header totals.
type RecentEntry struct {
	ID     int64
	Number int64
	Lines  []ledger.JournalLine
}

// Repository reads the ledger and related state for audits. All methods are
// read-only.
type Repository interface {
	TrialBalanceTotals(ctx context.Context, companyID int64) (debit, credit float64, err error)
	MappingSnapshot(ctx context.Context, companyID int64) (map[mapping.AccountRole]int64, error)
	NegativeStockCount(ctx context.Context, companyID int64) (int, error)
	RecentEntries(ctx context.Context, companyID int64, limit int) ([]RecentEntry, error)
	HasYearCovering(ctx context.Context, companyID int64, date time.Time) (bool, error)
	PendingDepreciationCount(ctx context.Context, companyID int64, monthStart time.Time) (int, error)
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository returns the pgx-backed auditor repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

func (r *repository) TrialBalanceTotals(ctx context.Context, companyID int64) (float64, float64, error) {
	var debit, credit float64
	err := r.db.QueryRow(ctx, `SELECT COALESCE(SUM(debit),0), COALESCE(SUM(credit),0)
FROM account_balances WHERE company_id=$1`, companyID).Scan(&debit, &credit)
	return debit, credit, err
}

func (r *repository) MappingSnapshot(ctx context.Context, companyID int64) (map[mapping.AccountRole]int64, error) {
	rows, err := r.db.Query(ctx, `SELECT role, account_id FROM account_mappings WHERE company_id=$1`, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	snapshot := make(map[mapping.AccountRole]int64)
	for rows.Next() {
		var role mapping.AccountRole
		var accountID int64
		if err := rows.Scan(&role, &accountID); err != nil {
			return nil, err
		}
		snapshot[role] = accountID
	}
	return snapshot, rows.Err()
}

func (r *repository) NegativeStockCount(ctx context.Context, companyID int64) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM stock_levels WHERE company_id=$1 AND quantity < 0`, companyID).Scan(&count)
	return count, err
}

func (r *repository) RecentEntries(ctx context.Context, companyID int64, limit int) ([]RecentEntry, error) {
	if limit <= 0 {
		limit = defaultEntryScanWindow
	}
	rows, err := r.db.Query(ctx, `SELECT e.id, e.number, l.account_id, l.debit, l.credit
FROM (SELECT id, number FROM journal_entries WHERE company_id=$1 AND total_debit > 0 ORDER BY number DESC LIMIT $2) e
JOIN journal_lines l ON l.entry_id = e.id
ORDER BY e.number DESC, l.id ASC`, companyID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []RecentEntry
	index := make(map[int64]int)
	for rows.Next() {
		var entryID, number int64
		var line ledger.JournalLine
		if err := rows.Scan(&entryID, &number, &line.AccountID, &line.Debit, &line.Credit); err != nil {
			return nil, err
		}
		line.EntryID = entryID
		pos, ok := index[entryID]
		if !ok {
			entries = append(entries, RecentEntry{ID: entryID, Number: number})
			pos = len(entries) - 1
			index[entryID] = pos
		}
		entries[pos].Lines = append(entries[pos].Lines, line)
	}
	return entries, rows.Err()
}

func (r *repository) HasYearCovering(ctx context.Context, companyID int64, date time.Time) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM fiscal_years
WHERE company_id=$1 AND start_date <= $2 AND end_date >= $2)`, companyID, date).Scan(&exists)
	return exists, err
}

func (r *repository) PendingDepreciationCount(ctx context.Context, companyID int64, monthStart time.Time) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM fixed_assets
WHERE company_id=$1 AND status='ACTIVE'
AND (last_depreciation_at IS NULL OR last_depreciation_at < $2)
AND book_value - salvage_value > 0.01`, companyID, monthStart).Scan(&count)
	return count, err
}
