package forecast

import (
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/andresuchdata/stockcast/backend-go/internal/domain"
)

// FeatureRow is one training row for the boosted engine: lag-1, the
// cadence-specific seasonal lag, a rolling mean over the seasonal
// window, and a monotonically increasing time index.
type FeatureRow struct {
	Period  time.Time
	Lag1    float64
	LagN    float64
	Rolling float64
	TimeIdx float64
	Target  float64
}

// Vector returns the row in the fixed feature order the model expects.
func (r FeatureRow) Vector() []float64 {
	return []float64{r.Lag1, r.LagN, r.Rolling, r.TimeIdx}
}

// BuildFeatures derives the full feature table for a normalized series.
// Buckets inside the warm-up window (the first SeasonalLag buckets)
// lack at least one lag and are dropped entirely rather than
// zero-filled: synthetic zeros in the warm-up rows would bias the model
// toward zero demand on exactly the products that have the least data.
func BuildFeatures(series domain.TimeSeries) []FeatureRow {
	lag := series.Cadence.SeasonalLag()
	qty := series.Quantities()
	if len(qty) <= lag {
		return nil
	}

	rows := make([]FeatureRow, 0, len(qty)-lag)
	for i := lag; i < len(qty); i++ {
		rows = append(rows, FeatureRow{
			Period:  series.Points[i].Period,
			Lag1:    qty[i-1],
			LagN:    qty[i-lag],
			Rolling: stat.Mean(qty[i-lag:i], nil),
			TimeIdx: float64(i),
			Target:  qty[i],
		})
	}
	return rows
}

// nextFeatureVector builds the feature vector for the bucket following
// an extended history, used during recursive forecasting. history must
// hold at least SeasonalLag values, which the boosted engine's minimum
// history guard guarantees.
func nextFeatureVector(history []float64, lag int, timeIdx int) []float64 {
	n := len(history)
	return []float64{
		history[n-1],
		history[n-lag],
		stat.Mean(history[n-lag:], nil),
		float64(timeIdx),
	}
}
