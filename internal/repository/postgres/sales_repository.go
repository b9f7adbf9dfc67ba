package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/andresuchdata/stockcast/backend-go/internal/domain"
)

type salesRepository struct {
	db *DB
}

func NewSalesRepository(db *DB) *salesRepository {
	return &salesRepository{db: db}
}

// GetSalesByProduct returns every sales record for a product ordered by
// move date. An empty result is not an error here; the normalizer
// decides whether the history is usable.
func (r *salesRepository) GetSalesByProduct(ctx context.Context, productCode string) ([]domain.SalesObservation, error) {
	query := `
		SELECT product_code, move_date, qty_sold
		FROM sales_history
		WHERE product_code = $1
		ORDER BY move_date ASC
	`

	var observations []domain.SalesObservation
	if err := r.db.SelectContext(ctx, &observations, query, productCode); err != nil {
		return nil, fmt.Errorf("failed to query sales history: %w", err)
	}
	return observations, nil
}

// ListProductCodes returns the distinct product codes that have any
// sales history, for batch evaluation.
func (r *salesRepository) ListProductCodes(ctx context.Context) ([]string, error) {
	var codes []string
	query := `SELECT DISTINCT product_code FROM sales_history ORDER BY product_code`
	if err := r.db.SelectContext(ctx, &codes, query); err != nil {
		return nil, fmt.Errorf("failed to list product codes: %w", err)
	}
	return codes, nil
}

// InsertSalesBatch loads observations inside one transaction. Existing
// rows for the same product and date are overwritten so re-running a
// seed is idempotent.
func (r *salesRepository) InsertSalesBatch(ctx context.Context, observations []domain.SalesObservation) error {
	if len(observations) == 0 {
		return nil
	}

	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		query := `
			INSERT INTO sales_history (product_code, move_date, qty_sold, created_at)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (product_code, move_date)
			DO UPDATE SET
				qty_sold = EXCLUDED.qty_sold,
				updated_at = NOW()
		`

		stmt, err := tx.PrepareContext(ctx, query)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer stmt.Close()

		now := time.Now()
		for _, obs := range observations {
			if _, err := stmt.ExecContext(ctx, obs.ProductCode, obs.MoveDate, obs.QtySold, now); err != nil {
				return fmt.Errorf("failed to insert sales row for %s: %w", obs.ProductCode, err)
			}
		}
		return nil
	})
}
