package repository

import (
	"context"

	"github.com/andresuchdata/stockcast/backend-go/internal/domain"
)

type SalesRepository interface {
	GetSalesByProduct(ctx context.Context, productCode string) ([]domain.SalesObservation, error)
	ListProductCodes(ctx context.Context) ([]string, error)
	InsertSalesBatch(ctx context.Context, observations []domain.SalesObservation) error
}

type InventoryRepository interface {
	// GetCurrentStock returns nil when no snapshot exists for the
	// product. Unknown stock and zero stock are different things.
	GetCurrentStock(ctx context.Context, productCode string) (*float64, error)
	UpsertSnapshots(ctx context.Context, snapshots []domain.InventorySnapshot) error
}
