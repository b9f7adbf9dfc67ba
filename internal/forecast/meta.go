package forecast

import (
	"fmt"

	"github.com/andresuchdata/stockcast/backend-go/internal/domain"
)

// MetaEngine serves a flat forecast from a persisted model metadata
// artifact instead of fitting anything in-process. This is the degraded
// path for products whose model lives in the offline training job: the
// artifact's average demand is repeated across the horizon.
type MetaEngine struct {
	Meta domain.ModelMeta
}

func (e *MetaEngine) Name() string { return string(KindMeta) }

func (e *MetaEngine) Run(series domain.TimeSeries, horizon int) (domain.Forecast, error) {
	if len(series.Points) == 0 {
		return domain.Forecast{}, fmt.Errorf("meta %s: %w", series.ProductCode, domain.ErrEmptyHistory)
	}
	if horizon <= 0 {
		return domain.Forecast{}, fmt.Errorf("meta %s: horizon must be positive, got %d", series.ProductCode, horizon)
	}

	qty := e.Meta.AvgDemand
	if qty < 0 {
		qty = 0
	}

	points := make([]domain.Point, 0, horizon)
	period := series.Points[len(series.Points)-1].Period
	for i := 0; i < horizon; i++ {
		period = series.Cadence.Next(period)
		points = append(points, domain.Point{Period: period, Qty: qty})
	}

	return domain.Forecast{
		ProductCode: series.ProductCode,
		Cadence:     series.Cadence,
		Engine:      e.Name(),
		Horizon:     horizon,
		Points:      points,
	}, nil
}
