package accounts

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clearbooks/clearbooks/internal/shared"
)

// Repository encapsulates DB operations for the chart of accounts.
type Repository interface {
	List(ctx context.Context, companyID int64) ([]Account, error)
	Get(ctx context.Context, companyID, id int64) (Account, error)
	Create(ctx context.Context, account Account) (Account, error)
	FindByNameLike(ctx context.Context, companyID int64, fragment string) ([]Account, error)
	Balance(ctx context.Context, companyID, accountID int64) (Balance, error)
	Balances(ctx context.Context, companyID int64) ([]Balance, error)
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository returns the pgx-backed accounts repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const accountColumns = `id, company_id, code, name, type, parent_id, is_placeholder, currency, is_active, created_at, updated_at`

func scanAccount(row pgx.Row) (Account, error) {
	var a Account
	err := row.Scan(&a.ID, &a.CompanyID, &a.Code, &a.Name, &a.Type, &a.ParentID, &a.IsPlaceholder, &a.Currency, &a.IsActive, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

func (r *repository) List(ctx context.Context, companyID int64) ([]Account, error) {
	rows, err := r.db.Query(ctx, `SELECT `+accountColumns+` FROM accounts WHERE company_id=$1 ORDER BY code`, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var accounts []Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func (r *repository) Get(ctx context.Context, companyID, id int64) (Account, error) {
	a, err := scanAccount(r.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE company_id=$1 AND id=$2`, companyID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, shared.ErrNotFound
		}
		return Account{}, err
	}
	return a, nil
}

func (r *repository) Create(ctx context.Context, account Account) (Account, error) {
	row := r.db.QueryRow(ctx, `INSERT INTO accounts (company_id, code, name, type, parent_id, is_placeholder, currency, is_active)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8) RETURNING id, created_at, updated_at`,
		account.CompanyID, account.Code, account.Name, account.Type, account.ParentID, account.IsPlaceholder, account.Currency, account.IsActive)
	if err := row.Scan(&account.ID, &account.CreatedAt, &account.UpdatedAt); err != nil {
		return Account{}, err
	}
	return account, nil
}

func (r *repository) FindByNameLike(ctx context.Context, companyID int64, fragment string) ([]Account, error) {
	rows, err := r.db.Query(ctx, `SELECT `+accountColumns+` FROM accounts WHERE company_id=$1 AND name ILIKE '%' || $2 || '%' ORDER BY code`, companyID, fragment)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var accounts []Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// Balance reads one row from the account_balances projection, which the
// reporting layer maintains from the same journal lines with no
// double-counting.
func (r *repository) Balance(ctx context.Context, companyID, accountID int64) (Balance, error) {
	var b Balance
	err := r.db.QueryRow(ctx, `SELECT account_id, code, name, type, currency, debit, credit, foreign_debit, foreign_credit
FROM account_balances WHERE company_id=$1 AND account_id=$2`, companyID, accountID).
		Scan(&b.AccountID, &b.Code, &b.Name, &b.Type, &b.Currency, &b.Debit, &b.Credit, &b.ForeignDebit, &b.ForeignCredit)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Balance{}, shared.ErrNotFound
		}
		return Balance{}, err
	}
	return b, nil
}

func (r *repository) Balances(ctx context.Context, companyID int64) ([]Balance, error) {
	rows, err := r.db.Query(ctx, `SELECT account_id, code, name, type, currency, debit, credit, foreign_debit, foreign_credit
FROM account_balances WHERE company_id=$1 ORDER BY code`, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var balances []Balance
	for rows.Next() {
		var b Balance
		if err := rows.Scan(&b.AccountID, &b.Code, &b.Name, &b.Type, &b.Currency, &b.Debit, &b.Credit, &b.ForeignDebit, &b.ForeignCredit); err != nil {
			return nil, err
		}
		balances = append(balances, b)
	}
	return balances, rows.Err()
}
