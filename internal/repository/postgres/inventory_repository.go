package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/andresuchdata/stockcast/backend-go/internal/domain"
)

type inventoryRepository struct {
	db *DB
}

func NewInventoryRepository(db *DB) *inventoryRepository {
	return &inventoryRepository{db: db}
}

// GetCurrentStock returns the latest available stock for a product, or
// nil when no snapshot exists. Stock coverage is simply unknown in that
// case, never zero.
func (r *inventoryRepository) GetCurrentStock(ctx context.Context, productCode string) (*float64, error) {
	query := `
		SELECT available_stock
		FROM inventory_snapshots
		WHERE product_code = $1
		ORDER BY snapshot_date DESC
		LIMIT 1
	`

	var stock float64
	err := r.db.GetContext(ctx, &stock, query, productCode)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query stock snapshot: %w", err)
	}
	return &stock, nil
}

// UpsertSnapshots replaces the stored snapshot for each product and
// location pair.
func (r *inventoryRepository) UpsertSnapshots(ctx context.Context, snapshots []domain.InventorySnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}

	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		query := `
			INSERT INTO inventory_snapshots (product_code, location, available_stock, snapshot_date, created_at)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (product_code, location, snapshot_date)
			DO UPDATE SET
				available_stock = EXCLUDED.available_stock,
				updated_at = NOW()
		`

		stmt, err := tx.PrepareContext(ctx, query)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer stmt.Close()

		now := time.Now()
		for _, snap := range snapshots {
			_, err := stmt.ExecContext(ctx, snap.ProductCode, snap.Location, snap.AvailableStock, snap.SnapshotDate, now)
			if err != nil {
				return fmt.Errorf("failed to insert snapshot for %s: %w", snap.ProductCode, err)
			}
		}
		return nil
	})
}
