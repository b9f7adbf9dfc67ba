package service

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/andresuchdata/stockcast/backend-go/internal/domain"
	"github.com/andresuchdata/stockcast/backend-go/internal/repository"
)

// BatchItem is one product's outcome in a batch evaluation. Err is set
// when the product failed; its other fields are then empty.
type BatchItem struct {
	ProductCode string          `json:"product_code"`
	KPI         domain.KPISet   `json:"kpi,omitempty"`
	Decision    domain.Decision `json:"decision,omitempty"`
	Err         string          `json:"error,omitempty"`
}

// BatchSummary is the aggregate of one batch run.
type BatchSummary struct {
	Total     int         `json:"total"`
	Succeeded int         `json:"succeeded"`
	Failed    int         `json:"failed"`
	Items     []BatchItem `json:"items"`
}

// BatchService evaluates every known product concurrently. One
// product's failure is logged and isolated: it never aborts the batch.
type BatchService struct {
	sales    repository.SalesRepository
	forecast *ForecastService
	workers  int
}

func NewBatchService(sales repository.SalesRepository, forecast *ForecastService, workers int) *BatchService {
	if workers < 1 {
		workers = 1
	}
	return &BatchService{sales: sales, forecast: forecast, workers: workers}
}

// EvaluateAll runs the decision pipeline for every product with sales
// history. Items come back in the repository's product order.
func (s *BatchService) EvaluateAll(ctx context.Context, cadence domain.Cadence, overrides PolicyOverrides) (*BatchSummary, error) {
	codes, err := s.sales.ListProductCodes(ctx)
	if err != nil {
		return nil, err
	}

	items := make([]BatchItem, len(codes))
	var mu sync.Mutex
	succeeded := 0

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	for i, code := range codes {
		i, code := i, code
		g.Go(func() error {
			resp, err := s.forecast.Decision(ctx, code, cadence, overrides)
			if err != nil {
				log.Warn().Err(err).Str("product", code).Msg("batch evaluation failed for product")
				items[i] = BatchItem{ProductCode: code, Err: err.Error()}
				return nil
			}

			items[i] = BatchItem{ProductCode: code, KPI: resp.KPI, Decision: resp.Decision}
			mu.Lock()
			succeeded++
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &BatchSummary{
		Total:     len(codes),
		Succeeded: succeeded,
		Failed:    len(codes) - succeeded,
		Items:     items,
	}, nil
}
