package forecast

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/stockcast/backend-go/internal/domain"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestNormalizeFillsGapsAndPreservesSum(t *testing.T) {
	obs := []domain.SalesObservation{
		{ProductCode: "SKU-1", MoveDate: day("2025-01-05"), QtySold: 4},
		{ProductCode: "SKU-1", MoveDate: day("2025-01-01"), QtySold: 3},
		{ProductCode: "SKU-1", MoveDate: day("2025-01-03"), QtySold: 2},
	}

	series, err := Normalize("SKU-1", domain.CadenceDay, obs)
	require.NoError(t, err)

	require.Len(t, series.Points, 5)
	assert.Equal(t, day("2025-01-01"), series.Points[0].Period)
	assert.Equal(t, day("2025-01-05"), series.Points[4].Period)

	var sum float64
	for i, p := range series.Points {
		sum += p.Qty
		if i > 0 {
			assert.True(t, p.Period.After(series.Points[i-1].Period), "buckets must be strictly increasing")
		}
	}
	assert.Equal(t, 9.0, sum, "total demand must survive normalization")
	assert.Equal(t, 0.0, series.Points[1].Qty)
	assert.Equal(t, 0.0, series.Points[3].Qty)
}

func TestNormalizeAggregatesSameBucket(t *testing.T) {
	obs := []domain.SalesObservation{
		{MoveDate: day("2025-03-10"), QtySold: 1},
		{MoveDate: day("2025-03-10"), QtySold: 2.5},
	}

	series, err := Normalize("SKU-1", domain.CadenceDay, obs)
	require.NoError(t, err)
	require.Len(t, series.Points, 1)
	assert.Equal(t, 3.5, series.Points[0].Qty)
}

func TestNormalizeWeeklyBucketsStartMonday(t *testing.T) {
	// 2025-01-08 is a Wednesday, 2025-01-20 a Monday.
	obs := []domain.SalesObservation{
		{MoveDate: day("2025-01-08"), QtySold: 5},
		{MoveDate: day("2025-01-20"), QtySold: 7},
	}

	series, err := Normalize("SKU-1", domain.CadenceWeek, obs)
	require.NoError(t, err)

	require.Len(t, series.Points, 3)
	assert.Equal(t, day("2025-01-06"), series.Points[0].Period)
	assert.Equal(t, day("2025-01-13"), series.Points[1].Period)
	assert.Equal(t, day("2025-01-20"), series.Points[2].Period)
	assert.Equal(t, 0.0, series.Points[1].Qty)
}

func TestNormalizeMonthlyAcrossYearBoundary(t *testing.T) {
	obs := []domain.SalesObservation{
		{MoveDate: day("2024-11-15"), QtySold: 10},
		{MoveDate: day("2025-02-02"), QtySold: 20},
	}

	series, err := Normalize("SKU-1", domain.CadenceMonth, obs)
	require.NoError(t, err)

	require.Len(t, series.Points, 4)
	assert.Equal(t, day("2024-11-01"), series.Points[0].Period)
	assert.Equal(t, day("2025-02-01"), series.Points[3].Period)
}

func TestNormalizeEmptyHistory(t *testing.T) {
	_, err := Normalize("SKU-1", domain.CadenceDay, nil)
	assert.ErrorIs(t, err, domain.ErrEmptyHistory)
}

func TestNormalizeRejectsNegativeQuantity(t *testing.T) {
	obs := []domain.SalesObservation{{MoveDate: day("2025-01-01"), QtySold: -1}}
	_, err := Normalize("SKU-1", domain.CadenceDay, obs)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrEmptyHistory)
}
