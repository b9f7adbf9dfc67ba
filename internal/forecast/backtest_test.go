package forecast

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/stockcast/backend-go/internal/domain"
)

// shortEngine always returns one point fewer than asked, to exercise
// the harness's shape-mismatch skip path.
type shortEngine struct{}

func (shortEngine) Name() string { return "short" }

func (shortEngine) Run(series domain.TimeSeries, horizon int) (domain.Forecast, error) {
	base := BaselineEngine{}
	fc, err := base.Run(series, horizon)
	if err != nil {
		return domain.Forecast{}, err
	}
	fc.Points = fc.Points[:horizon-1]
	return fc, nil
}

func TestBacktestConstantSeriesBaselineMAEZero(t *testing.T) {
	qty := make([]float64, 60)
	for i := range qty {
		qty[i] = 5
	}
	series := dailySeries("SKU-1", "2025-01-01", qty)

	result, err := NewHarness(4).Evaluate(context.Background(), series, &BaselineEngine{}, 7, 30)
	require.NoError(t, err)

	assert.Equal(t, "baseline", result.Engine)
	assert.Equal(t, 0.0, result.MAE)
	assert.Equal(t, (60-7)-30, result.Windows)
}

func TestBacktestKnownError(t *testing.T) {
	// Alternating 0/10 demand: one-step-behind baseline is always off
	// by 10 at every horizon-1 window.
	qty := make([]float64, 40)
	for i := range qty {
		if i%2 == 0 {
			qty[i] = 10
		}
	}
	series := dailySeries("SKU-1", "2025-01-01", qty)

	result, err := NewHarness(2).Evaluate(context.Background(), series, &BaselineEngine{}, 1, 10)
	require.NoError(t, err)
	assert.InDelta(t, 10.0, result.MAE, 1e-9)
}

func TestBacktestHistoryTooShort(t *testing.T) {
	series := dailySeries("SKU-1", "2025-01-01", []float64{1, 2, 3, 4, 5})
	_, err := NewHarness(1).Evaluate(context.Background(), series, &BaselineEngine{}, 7, 30)
	assert.ErrorIs(t, err, domain.ErrNoValidWindows)
}

func TestBacktestSkipsShapeMismatchedWindows(t *testing.T) {
	qty := make([]float64, 50)
	for i := range qty {
		qty[i] = 5
	}
	series := dailySeries("SKU-1", "2025-01-01", qty)

	// Every window returns the wrong length, so the harness must end
	// with no usable windows instead of crashing mid-average.
	_, err := NewHarness(4).Evaluate(context.Background(), series, shortEngine{}, 7, 20)
	assert.ErrorIs(t, err, domain.ErrNoValidWindows)
}

// brokenEngine fails every run with the same error.
type brokenEngine struct{ err error }

func (brokenEngine) Name() string { return "broken" }

func (e brokenEngine) Run(domain.TimeSeries, int) (domain.Forecast, error) {
	return domain.Forecast{}, e.err
}

func TestBacktestAllWindowsFailingSurfacesEngineError(t *testing.T) {
	qty := make([]float64, 50)
	for i := range qty {
		qty[i] = 5
	}
	series := dailySeries("SKU-1", "2025-01-01", qty)

	runErr := errors.New("model load failed")
	_, err := NewHarness(4).Evaluate(context.Background(), series, brokenEngine{err: runErr}, 7, 20)
	require.Error(t, err)

	// The no-valid-windows wrap must carry the engine's own error so a
	// uniformly failing engine is diagnosable from the message.
	assert.ErrorIs(t, err, domain.ErrNoValidWindows)
	assert.Contains(t, err.Error(), "model load failed")
	assert.Contains(t, err.Error(), "23 windows skipped")
}

func TestBacktestParallelMatchesSerial(t *testing.T) {
	qty := make([]float64, 80)
	for i := range qty {
		qty[i] = float64(i % 9)
	}
	series := dailySeries("SKU-1", "2025-01-01", qty)

	serial, err := NewHarness(1).Evaluate(context.Background(), series, &BaselineEngine{}, 5, 20)
	require.NoError(t, err)
	parallel, err := NewHarness(8).Evaluate(context.Background(), series, &BaselineEngine{}, 5, 20)
	require.NoError(t, err)

	assert.Equal(t, serial.MAE, parallel.MAE)
	assert.Equal(t, serial.Windows, parallel.Windows)
}
