package mapping

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrMappingNotFound indicates the role has no account assigned. Callers
// that auto-post must abort the whole operation on this error.
var ErrMappingNotFound = errors.New("mapping: account mapping not found")

// Repository persists role to account assignments.
type Repository interface {
	Get(ctx context.Context, companyID int64, role AccountRole) (AccountMapping, error)
	GetAll(ctx context.Context, companyID int64) ([]AccountMapping, error)
	Set(ctx context.Context, companyID int64, role AccountRole, accountID int64) error
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository returns the pgx-backed mapping repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

func (r *repository) Get(ctx context.Context, companyID int64, role AccountRole) (AccountMapping, error) {
	if !role.Valid() {
		return AccountMapping{}, errors.New("mapping: unknown role")
	}
	var m AccountMapping
	err := r.db.QueryRow(ctx, `SELECT company_id, role, account_id, created_at, updated_at
FROM account_mappings WHERE company_id=$1 AND role=$2`, companyID, role).
		Scan(&m.CompanyID, &m.Role, &m.AccountID, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return AccountMapping{}, ErrMappingNotFound
		}
		return AccountMapping{}, err
	}
	return m, nil
}

func (r *repository) GetAll(ctx context.Context, companyID int64) ([]AccountMapping, error) {
	rows, err := r.db.Query(ctx, `SELECT company_id, role, account_id, created_at, updated_at
FROM account_mappings WHERE company_id=$1`, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var mappings []AccountMapping
	for rows.Next() {
		var m AccountMapping
		if err := rows.Scan(&m.CompanyID, &m.Role, &m.AccountID, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, err
		}
		mappings = append(mappings, m)
	}
	return mappings, rows.Err()
}

func (r *repository) Set(ctx context.Context, companyID int64, role AccountRole, accountID int64) error {
	if !role.Valid() {
		return errors.New("mapping: unknown role")
	}
	if accountID == 0 {
		return errors.New("mapping: account id required")
	}
	_, err := r.db.Exec(ctx, `INSERT INTO account_mappings (company_id, role, account_id)
VALUES ($1,$2,$3)
ON CONFLICT (company_id, role) DO UPDATE SET account_id=EXCLUDED.account_id, updated_at=NOW()`,
		companyID, role, accountID)
	return err
}
