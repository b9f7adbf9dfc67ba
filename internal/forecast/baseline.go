package forecast

import (
	"fmt"

	"github.com/andresuchdata/stockcast/backend-go/internal/domain"
)

// BaselineEngine repeats the last observed value for every step of the
// horizon. It costs nothing to fit and serves as the MAE floor every
// trained engine has to beat.
type BaselineEngine struct{}

func (e *BaselineEngine) Name() string { return string(KindBaseline) }

func (e *BaselineEngine) Run(series domain.TimeSeries, horizon int) (domain.Forecast, error) {
	if len(series.Points) == 0 {
		return domain.Forecast{}, fmt.Errorf("baseline %s: %w", series.ProductCode, domain.ErrEmptyHistory)
	}
	if horizon <= 0 {
		return domain.Forecast{}, fmt.Errorf("baseline %s: horizon must be positive, got %d", series.ProductCode, horizon)
	}

	last := series.Points[len(series.Points)-1]
	points := make([]domain.Point, 0, horizon)
	period := last.Period
	for i := 0; i < horizon; i++ {
		period = series.Cadence.Next(period)
		points = append(points, domain.Point{Period: period, Qty: last.Qty})
	}

	return domain.Forecast{
		ProductCode: series.ProductCode,
		Cadence:     series.Cadence,
		Engine:      e.Name(),
		Horizon:     horizon,
		Points:      points,
	}, nil
}
