package fiscal

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository encapsulates DB operations for fiscal years.
type Repository interface {
	Get(ctx context.Context, companyID, yearID int64) (FiscalYear, error)
	List(ctx context.Context, companyID int64) ([]FiscalYear, error)
	FindByDate(ctx context.Context, companyID int64, date time.Time) (FiscalYear, error)
	RangeConflict(ctx context.Context, companyID int64, start, end time.Time) (bool, error)
	Insert(ctx context.Context, in CreateYearInput) (FiscalYear, error)
	UpdateStatus(ctx context.Context, companyID, yearID int64, status YearStatus) error
	MarkClosed(ctx context.Context, companyID, yearID int64, closedAt time.Time, closedBy int64, netIncome float64) error
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository returns the pgx-backed fiscal repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const yearColumns = `id, company_id, name, start_date, end_date, status, closed_at, closed_by, net_income, created_at, updated_at`

func scanYear(row pgx.Row) (FiscalYear, error) {
	var y FiscalYear
	err := row.Scan(&y.ID, &y.CompanyID, &y.Name, &y.StartDate, &y.EndDate, &y.Status, &y.ClosedAt, &y.ClosedBy, &y.NetIncome, &y.CreatedAt, &y.UpdatedAt)
	return y, err
}

func (r *repository) Get(ctx context.Context, companyID, yearID int64) (FiscalYear, error) {
	y, err := scanYear(r.db.QueryRow(ctx, `SELECT `+yearColumns+` FROM fiscal_years WHERE company_id=$1 AND id=$2`, companyID, yearID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return FiscalYear{}, ErrYearNotFound
		}
		return FiscalYear{}, err
	}
	return y, nil
}

func (r *repository) List(ctx context.Context, companyID int64) ([]FiscalYear, error) {
	rows, err := r.db.Query(ctx, `SELECT `+yearColumns+` FROM fiscal_years WHERE company_id=$1 ORDER BY start_date DESC`, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var years []FiscalYear
	for rows.Next() {
		y, err := scanYear(rows)
		if err != nil {
			return nil, err
		}
		years = append(years, y)
	}
	return years, rows.Err()
}

func (r *repository) FindByDate(ctx context.Context, companyID int64, date time.Time) (FiscalYear, error) {
	y, err := scanYear(r.db.QueryRow(ctx, `SELECT `+yearColumns+` FROM fiscal_years
WHERE company_id=$1 AND $2 BETWEEN start_date AND end_date ORDER BY start_date LIMIT 1`, companyID, date))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return FiscalYear{}, ErrYearNotFound
		}
		return FiscalYear{}, err
	}
	return y, nil
}

func (r *repository) RangeConflict(ctx context.Context, companyID int64, start, end time.Time) (bool, error) {
	var conflict bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM fiscal_years
WHERE company_id=$1 AND start_date <= $3 AND end_date >= $2)`, companyID, start, end).Scan(&conflict)
	return conflict, err
}

func (r *repository) Insert(ctx context.Context, in CreateYearInput) (FiscalYear, error) {
	y := FiscalYear{
		CompanyID: in.CompanyID,
		Name:      in.Name,
		StartDate: in.StartDate,
		EndDate:   in.EndDate,
		Status:    YearStatusOpen,
	}
	row := r.db.QueryRow(ctx, `INSERT INTO fiscal_years (company_id, name, start_date, end_date, status)
VALUES ($1,$2,$3,$4,'OPEN') RETURNING id, created_at, updated_at`, in.CompanyID, in.Name, in.StartDate, in.EndDate)
	if err := row.Scan(&y.ID, &y.CreatedAt, &y.UpdatedAt); err != nil {
		return FiscalYear{}, err
	}
	return y, nil
}

func (r *repository) UpdateStatus(ctx context.Context, companyID, yearID int64, status YearStatus) error {
	cmd, err := r.db.Exec(ctx, `UPDATE fiscal_years SET status=$3, updated_at=NOW() WHERE company_id=$1 AND id=$2`, companyID, yearID, status)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrYearNotFound
	}
	return nil
}

func (r *repository) MarkClosed(ctx context.Context, companyID, yearID int64, closedAt time.Time, closedBy int64, netIncome float64) error {
	cmd, err := r.db.Exec(ctx, `UPDATE fiscal_years
SET status='CLOSED', closed_at=$3, closed_by=$4, net_income=$5, updated_at=NOW()
WHERE company_id=$1 AND id=$2`, companyID, yearID, closedAt, closedBy, netIncome)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrYearNotFound
	}
	return nil
}
