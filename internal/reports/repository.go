package reports

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository reads the pre-aggregated reporting projections. The views are
// maintained by the database from the same journal lines the posting engine
// writes; the engine never recomputes them from raw lines.
type Repository interface {
	AccountBalances(ctx context.Context, companyID int64) ([]AccountBalance, error)
	IncomeStatement(ctx context.Context, companyID int64, from, to time.Time) ([]AccountBalance, error)
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository returns the pgx-backed reports repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

func (r *repository) AccountBalances(ctx context.Context, companyID int64) ([]AccountBalance, error) {
	rows, err := r.db.Query(ctx, `SELECT account_id, code, name, type, 0, debit, credit
FROM account_balances WHERE company_id=$1 ORDER BY code`, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var balances []AccountBalance
	for rows.Next() {
		var b AccountBalance
		if err := rows.Scan(&b.AccountID, &b.Code, &b.Name, &b.Type, &b.Opening, &b.Debit, &b.Credit); err != nil {
			return nil, err
		}
		balances = append(balances, b)
	}
	return balances, rows.Err()
}

func (r *repository) IncomeStatement(ctx context.Context, companyID int64, from, to time.Time) ([]AccountBalance, error) {
	rows, err := r.db.Query(ctx, `SELECT account_id, code, name, type, debit, credit
FROM income_statement_lines WHERE company_id=$1 AND date >= $2 AND date <= $3 ORDER BY code`, companyID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var balances []AccountBalance
	for rows.Next() {
		var b AccountBalance
		if err := rows.Scan(&b.AccountID, &b.Code, &b.Name, &b.Type, &b.Debit, &b.Credit); err != nil {
			return nil, err
		}
		balances = append(balances, b)
	}
	return balances, rows.Err()
}
