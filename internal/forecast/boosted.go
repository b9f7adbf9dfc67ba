package forecast

import (
	"fmt"
	"math"

	"github.com/andresuchdata/stockcast/backend-go/internal/domain"
	"github.com/andresuchdata/stockcast/backend-go/internal/gbrt"
)

// BoostedEngine trains a gradient-boosted regression model on the full
// lag/rolling feature table and forecasts recursively: each predicted
// bucket is clamped to >= 0 and appended to a private copy of the
// history before the next step's features are computed. The model is
// retrained from scratch on every Run call.
type BoostedEngine struct {
	Params gbrt.Params
}

func (e *BoostedEngine) Name() string { return string(KindBoosted) }

func (e *BoostedEngine) Run(series domain.TimeSeries, horizon int) (domain.Forecast, error) {
	if len(series.Points) == 0 {
		return domain.Forecast{}, fmt.Errorf("boosted %s: %w", series.ProductCode, domain.ErrEmptyHistory)
	}
	if horizon <= 0 {
		return domain.Forecast{}, fmt.Errorf("boosted %s: horizon must be positive, got %d", series.ProductCode, horizon)
	}

	if min := series.Cadence.MinBuckets(); len(series.Points) < min {
		return domain.Forecast{}, fmt.Errorf("boosted %s: %d of %d required %s buckets: %w",
			series.ProductCode, len(series.Points), min, series.Cadence, domain.ErrInsufficientHistory)
	}
	if zr, max := series.ZeroRatio(), series.Cadence.MaxZeroRatio(); zr > max {
		return domain.Forecast{}, fmt.Errorf("boosted %s: zero ratio %.2f above %.2f, intermittent demand: %w",
			series.ProductCode, zr, max, domain.ErrInsufficientHistory)
	}

	rows := BuildFeatures(series)
	if len(rows) == 0 {
		return domain.Forecast{}, fmt.Errorf("boosted %s: %w", series.ProductCode, domain.ErrInsufficientHistory)
	}

	x := make([][]float64, len(rows))
	y := make([]float64, len(rows))
	for i, r := range rows {
		x[i] = r.Vector()
		y[i] = r.Target
	}

	model, err := gbrt.Fit(x, y, e.Params)
	if err != nil {
		return domain.Forecast{}, fmt.Errorf("boosted %s: fit: %w", series.ProductCode, err)
	}

	// Recursive one-step forecasting over a private extended history.
	// The caller's series is read-only; every iteration appends to this
	// copy only.
	lag := series.Cadence.SeasonalLag()
	history := append(make([]float64, 0, len(series.Points)+horizon), series.Quantities()...)

	points := make([]domain.Point, 0, horizon)
	period := series.Points[len(series.Points)-1].Period
	for step := 0; step < horizon; step++ {
		features := nextFeatureVector(history, lag, len(history))
		pred := math.Max(0, model.Predict(features))

		period = series.Cadence.Next(period)
		points = append(points, domain.Point{Period: period, Qty: pred})
		history = append(history, pred)
	}

	return domain.Forecast{
		ProductCode: series.ProductCode,
		Cadence:     series.Cadence,
		Engine:      e.Name(),
		Horizon:     horizon,
		Points:      points,
	}, nil
}
