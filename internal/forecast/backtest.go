package forecast

import (
	"context"
	"fmt"
	"math"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/andresuchdata/stockcast/backend-go/internal/domain"
	"github.com/andresuchdata/stockcast/backend-go/pkg/logger"
)

// Harness runs rolling-origin backtests. Every window trains on an
// immutable prefix of the series and writes only its own slot of the
// results slice, so windows run concurrently without locking.
type Harness struct {
	Workers int
}

// NewHarness returns a harness with the given worker-pool size.
func NewHarness(workers int) *Harness {
	if workers < 1 {
		workers = 1
	}
	return &Harness{Workers: workers}
}

// Evaluate fits the engine on every prefix [0:i) for i in
// [minTrain, len-horizon), forecasts horizon buckets, and averages the
// per-window mean absolute error. A window whose engine run fails or
// whose forecast comes back with the wrong length is skipped, not
// fatal. Zero usable windows is ErrNoValidWindows, carrying the last
// engine error so a uniformly failing engine is diagnosable.
func (h *Harness) Evaluate(ctx context.Context, series domain.TimeSeries, engine Engine, horizon, minTrain int) (domain.BacktestResult, error) {
	if horizon <= 0 || minTrain <= 0 {
		return domain.BacktestResult{}, fmt.Errorf("backtest %s: horizon and minTrain must be positive", series.ProductCode)
	}

	maxSplit := len(series.Points) - horizon
	if maxSplit <= minTrain {
		return domain.BacktestResult{}, fmt.Errorf("backtest %s/%s: %d buckets, need more than %d: %w",
			series.ProductCode, engine.Name(), len(series.Points), minTrain+horizon, domain.ErrNoValidWindows)
	}

	maes := make([]float64, maxSplit-minTrain)
	for i := range maes {
		maes[i] = math.NaN()
	}

	var (
		mu         sync.Mutex
		skipped    int
		lastRunErr error
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(h.Workers)

	for split := minTrain; split < maxSplit; split++ {
		split := split
		slot := split - minTrain
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			train := series.Prefix(split)
			fc, err := engine.Run(train, horizon)
			if err != nil {
				logger.Log.Debug().Err(err).
					Str("product", series.ProductCode).
					Str("engine", engine.Name()).
					Int("split", split).
					Msg("backtest window skipped")
				mu.Lock()
				skipped++
				lastRunErr = err
				mu.Unlock()
				return nil
			}
			if len(fc.Points) != horizon {
				// Shape mismatch skips the window; the averaging loop
				// must keep going.
				logger.Log.Debug().
					Str("product", series.ProductCode).
					Str("engine", engine.Name()).
					Int("split", split).
					Int("got", len(fc.Points)).
					Int("want", horizon).
					Msg("backtest window skipped: " + domain.ErrShapeMismatch.Error())
				mu.Lock()
				skipped++
				lastRunErr = domain.ErrShapeMismatch
				mu.Unlock()
				return nil
			}

			var sum float64
			for j := 0; j < horizon; j++ {
				sum += math.Abs(series.Points[split+j].Qty - fc.Points[j].Qty)
			}
			maes[slot] = sum / float64(horizon)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return domain.BacktestResult{}, fmt.Errorf("backtest %s/%s: %w", series.ProductCode, engine.Name(), err)
	}

	var total float64
	windows := 0
	for _, mae := range maes {
		if !math.IsNaN(mae) {
			total += mae
			windows++
		}
	}
	if windows == 0 {
		return domain.BacktestResult{}, fmt.Errorf("backtest %s/%s: all %d windows skipped, last: %v: %w",
			series.ProductCode, engine.Name(), skipped, lastRunErr, domain.ErrNoValidWindows)
	}

	return domain.BacktestResult{
		ProductCode: series.ProductCode,
		Engine:      engine.Name(),
		Horizon:     horizon,
		Windows:     windows,
		MAE:         total / float64(windows),
	}, nil
}
