package assets

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository encapsulates DB operations for fixed assets.
type Repository interface {
	Get(ctx context.Context, companyID, assetID int64) (FixedAsset, error)
	ListActive(ctx context.Context, companyID int64) ([]FixedAsset, error)
	ApplyDepreciation(ctx context.Context, companyID, assetID int64, amount float64, asOf time.Time) error
	UpdateStatus(ctx context.Context, companyID, assetID int64, status AssetStatus) error
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository returns the pgx-backed assets repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const assetColumns = `id, company_id, name, tag, purchase_date, cost, salvage_value, useful_life_months, method, status,
asset_account_id, accum_dep_account_id, expense_account_id, book_value, total_depreciated, last_depreciation_at, created_at, updated_at`

func scanAsset(row pgx.Row) (FixedAsset, error) {
	var a FixedAsset
	err := row.Scan(&a.ID, &a.CompanyID, &a.Name, &a.Tag, &a.PurchaseDate, &a.Cost, &a.SalvageValue, &a.UsefulLifeMonths,
		&a.Method, &a.Status, &a.AssetAccountID, &a.AccumDepAccountID, &a.ExpenseAccountID,
		&a.BookValue, &a.TotalDepreciated, &a.LastDepreciationAt, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

func (r *repository) Get(ctx context.Context, companyID, assetID int64) (FixedAsset, error) {
	a, err := scanAsset(r.db.QueryRow(ctx, `SELECT `+assetColumns+` FROM fixed_assets WHERE company_id=$1 AND id=$2`, companyID, assetID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return FixedAsset{}, ErrAssetNotFound
		}
		return FixedAsset{}, err
	}
	return a, nil
}

func (r *repository) ListActive(ctx context.Context, companyID int64) ([]FixedAsset, error) {
	rows, err := r.db.Query(ctx, `SELECT `+assetColumns+` FROM fixed_assets WHERE company_id=$1 AND status='ACTIVE' ORDER BY id`, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var result []FixedAsset
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, a)
	}
	return result, rows.Err()
}

func (r *repository) ApplyDepreciation(ctx context.Context, companyID, assetID int64, amount float64, asOf time.Time) error {
	cmd, err := r.db.Exec(ctx, `UPDATE fixed_assets
SET book_value = book_value - $3, total_depreciated = total_depreciated + $3, last_depreciation_at = $4, updated_at = NOW()
WHERE company_id=$1 AND id=$2`, companyID, assetID, amount, asOf)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrAssetNotFound
	}
	return nil
}

func (r *repository) UpdateStatus(ctx context.Context, companyID, assetID int64, status AssetStatus) error {
	cmd, err := r.db.Exec(ctx, `UPDATE fixed_assets SET status=$3, updated_at=NOW() WHERE company_id=$1 AND id=$2`, companyID, assetID, status)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrAssetNotFound
	}
	return nil
}
