// Package inventory exposes a read-only view over current stock levels.
// Inventory state is owned by an external service; the consistency auditor
// only reads quantities to flag negative stock.
package inventory

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// StockLevel is the current quantity for one product.
type StockLevel struct {
	ProductID int64
	Name      string
	Quantity  float64
}

// Reader lists stock levels for a company.
type Reader interface {
	Levels(ctx context.Context, companyID int64) ([]StockLevel, error)
	CountNegative(ctx context.Context, companyID int64) (int, error)
}

type reader struct {
	db *pgxpool.Pool
}

// NewReader returns the pgx-backed stock level reader.
func NewReader(db *pgxpool.Pool) Reader {
	return &reader{db: db}
}

func (r *reader) Levels(ctx context.Context, companyID int64) ([]StockLevel, error) {
	rows, err := r.db.Query(ctx, `SELECT product_id, name, quantity FROM stock_levels WHERE company_id=$1 ORDER BY product_id`, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var levels []StockLevel
	for rows.Next() {
		var level StockLevel
		if err := rows.Scan(&level.ProductID, &level.Name, &level.Quantity); err != nil {
			return nil, err
		}
		levels = append(levels, level)
	}
	return levels, rows.Err()
}

func (r *reader) CountNegative(ctx context.Context, companyID int64) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM stock_levels WHERE company_id=$1 AND quantity < 0`, companyID).Scan(&count)
	return count, err
}
