package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository encapsulates DB operations for the ledger.
type Repository interface {
	Get(ctx context.Context, companyID, entryID int64) (JournalEntry, error)
	List(ctx context.Context, companyID int64, limit int) ([]JournalEntry, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes methods available within a posting transaction.
type TxRepository interface {
	LoadAccounts(ctx context.Context, companyID int64, ids []int64) (map[int64]AccountInfo, error)
	InsertEntry(ctx context.Context, in PostingInput) (JournalEntry, error)
	InsertLines(ctx context.Context, entryID int64, lines []PostingLineInput) error
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository returns the pgx-backed ledger repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

func (r *repository) Get(ctx context.Context, companyID, entryID int64) (JournalEntry, error) {
	var entry JournalEntry
	err := r.db.QueryRow(ctx, `SELECT id, company_id, number, date, description, reference_type, reference_id, created_by, total_debit, total_credit, created_at
FROM journal_entries WHERE company_id=$1 AND id=$2`, companyID, entryID).
		Scan(&entry.ID, &entry.CompanyID, &entry.Number, &entry.Date, &entry.Description, &entry.ReferenceType, &entry.ReferenceID, &entry.CreatedBy, &entry.TotalDebit, &entry.TotalCredit, &entry.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return JournalEntry{}, ErrEntryNotFound
		}
		return JournalEntry{}, err
	}
	rows, err := r.db.Query(ctx, `SELECT id, entry_id, account_id, debit, credit, note, created_at
FROM journal_lines WHERE entry_id=$1 ORDER BY id ASC`, entryID)
	if err != nil {
		return JournalEntry{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var line JournalLine
		if err := rows.Scan(&line.ID, &line.EntryID, &line.AccountID, &line.Debit, &line.Credit, &line.Note, &line.CreatedAt); err != nil {
			return JournalEntry{}, err
		}
		entry.Lines = append(entry.Lines, line)
	}
	return entry, rows.Err()
}

func (r *repository) List(ctx context.Context, companyID int64, limit int) ([]JournalEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.Query(ctx, `SELECT id, company_id, number, date, description, reference_type, reference_id, created_by, total_debit, total_credit, created_at
FROM journal_entries WHERE company_id=$1 ORDER BY number DESC LIMIT $2`, companyID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []JournalEntry
	for rows.Next() {
		var e JournalEntry
		err := rows.Scan(&e.ID, &e.CompanyID, &e.Number, &e.Date, &e.Description, &e.ReferenceType, &e.ReferenceID, &e.CreatedBy, &e.TotalDebit, &e.TotalCredit, &e.CreatedAt)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return err
	}
	wrapper := &txRepository{tx: tx}
	if err := fn(ctx, wrapper); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			return fmt.Errorf("%w: %v (while handling: %v)", ErrRollbackFailed, rbErr, err)
		}
		return err
	}
	return tx.Commit(ctx)
}

type txRepository struct {
	tx pgx.Tx
}

func (r *txRepository) LoadAccounts(ctx context.Context, companyID int64, ids []int64) (map[int64]AccountInfo, error) {
	rows, err := r.tx.Query(ctx, `SELECT id, code, name, is_placeholder, is_active, currency
FROM accounts WHERE company_id=$1 AND id = ANY($2)`, companyID, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	result := make(map[int64]AccountInfo, len(ids))
	for rows.Next() {
		var info AccountInfo
		if err := rows.Scan(&info.ID, &info.Code, &info.Name, &info.IsPlaceholder, &info.IsActive, &info.Currency); err != nil {
			return nil, err
		}
		result[info.ID] = info
	}
	return result, rows.Err()
}

func (r *txRepository) InsertEntry(ctx context.Context, in PostingInput) (JournalEntry, error) {
	debit, credit := in.Totals()
	row := r.tx.QueryRow(ctx, `INSERT INTO journal_entries (company_id, date, description, reference_type, reference_id, created_by, total_debit, total_credit)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8) RETURNING id, number, created_at`,
		in.CompanyID, in.Date, in.Description, in.ReferenceType, in.ReferenceID, nullInt(in.CreatedBy), toNumeric(debit), toNumeric(credit))
	entry := JournalEntry{
		CompanyID:     in.CompanyID,
		Date:          in.Date,
		Description:   in.Description,
		ReferenceType: in.ReferenceType,
		ReferenceID:   in.ReferenceID,
		CreatedBy:     in.CreatedBy,
		TotalDebit:    debit,
		TotalCredit:   credit,
	}
	if err := row.Scan(&entry.ID, &entry.Number, &entry.CreatedAt); err != nil {
		return JournalEntry{}, err
	}
	return entry, nil
}

func (r *txRepository) InsertLines(ctx context.Context, entryID int64, lines []PostingLineInput) error {
	for _, line := range lines {
		if _, err := r.tx.Exec(ctx, `INSERT INTO journal_lines (entry_id, account_id, debit, credit, note)
VALUES ($1,$2,$3,$4,$5)`, entryID, line.AccountID, toNumeric(line.Debit), toNumeric(line.Credit), line.Note); err != nil {
			return err
		}
	}
	return nil
}

// Helpers
func nullInt(val int64) any {
	if val == 0 {
		return nil
	}
	return val
}

func toNumeric(v float64) any {
	return fmt.Sprintf("%.2f", v)
}
