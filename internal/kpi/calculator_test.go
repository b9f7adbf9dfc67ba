package kpi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stock(v float64) *float64 { return &v }

func TestCalculateWorkedExample(t *testing.T) {
	// Constant history forces the sigma fallback: 0.3 * 10 = 3.0, then
	// safety stock round(1.65 * 3.0 * sqrt(7)) = 13 and reorder point
	// 10*7 + 13 = 83.
	history := []float64{10, 10, 10, 10, 10, 10, 10}

	calc := NewCalculator(0.3)
	set := calc.Calculate(Input{
		History:      history,
		CurrentStock: stock(50),
		LeadTime:     7,
		ServiceLevel: 0.95,
	})

	require.False(t, set.IsZero())
	assert.Equal(t, 10.0, set.AvgDailyDemand)
	assert.Equal(t, 70.0, set.AvgWeeklyDemand)
	assert.Equal(t, 3.0, set.DemandStd)
	assert.Equal(t, 13.0, set.SafetyStock)
	assert.Equal(t, 83.0, set.ReorderPoint)
	require.NotNil(t, set.StockCoverageDays)
	assert.Equal(t, 5.0, *set.StockCoverageDays)
	assert.Equal(t, 7, set.LeadTimeDays)
}

func TestCalculatePrefersForecastMean(t *testing.T) {
	calc := NewCalculator(0.3)
	set := calc.Calculate(Input{
		History:      []float64{100, 100, 100},
		Forecast:     []float64{4, 6},
		LeadTime:     7,
		ServiceLevel: 0.95,
	})

	assert.Equal(t, 5.0, set.AvgDailyDemand)
}

func TestCalculateEmptyOnDegenerateDemand(t *testing.T) {
	calc := NewCalculator(0.3)

	assert.True(t, calc.Calculate(Input{LeadTime: 7}).IsZero())
	assert.True(t, calc.Calculate(Input{History: []float64{0, 0, 0}, LeadTime: 7}).IsZero())

	// An empty set must be fully empty, never partial.
	set := calc.Calculate(Input{History: []float64{0, 0}, CurrentStock: stock(50), LeadTime: 7})
	assert.Zero(t, set.SafetyStock)
	assert.Zero(t, set.ReorderPoint)
	assert.Nil(t, set.StockCoverageDays)
}

func TestCalculateUsesSampleStdWhenAvailable(t *testing.T) {
	calc := NewCalculator(0.3)
	set := calc.Calculate(Input{
		History:      []float64{8, 12, 8, 12},
		LeadTime:     4,
		ServiceLevel: 0.95,
	})

	// Sample std of {8,12,8,12} is sqrt(16/3) ~ 2.31.
	assert.InDelta(t, 2.31, set.DemandStd, 0.01)
}

func TestCalculateUnknownServiceLevelDefaults(t *testing.T) {
	calc := NewCalculator(0.3)
	history := []float64{10, 10, 10}

	at95 := calc.Calculate(Input{History: history, LeadTime: 7, ServiceLevel: 0.95})
	at97 := calc.Calculate(Input{History: history, LeadTime: 7, ServiceLevel: 0.97})
	assert.Equal(t, at95.SafetyStock, at97.SafetyStock)

	at99 := calc.Calculate(Input{History: history, LeadTime: 7, ServiceLevel: 0.99})
	assert.Greater(t, at99.SafetyStock, at95.SafetyStock)
}

func TestCalculateSkipsCoverageWithoutStock(t *testing.T) {
	calc := NewCalculator(0.3)
	set := calc.Calculate(Input{History: []float64{5, 5, 5}, LeadTime: 7, ServiceLevel: 0.95})
	assert.Nil(t, set.StockCoverageDays)
}

func TestReorderPointCoversLeadTimeDemand(t *testing.T) {
	calc := NewCalculator(0.3)
	for _, history := range [][]float64{
		{3, 7, 5, 9, 4, 6},
		{1, 1, 2, 1, 3},
		{20, 25, 30, 15},
	} {
		set := calc.Calculate(Input{History: history, LeadTime: 7, ServiceLevel: 0.95})
		require.False(t, set.IsZero())
		assert.GreaterOrEqual(t, set.ReorderPoint, set.AvgDailyDemand*7)
		assert.GreaterOrEqual(t, set.SafetyStock, 0.0)
	}
}

func TestFromDemandMatchesCalculate(t *testing.T) {
	// Scenario analysis at delta = 0 must reproduce the base KPI set
	// exactly.
	calc := NewCalculator(0.3)
	history := []float64{4, 8, 6, 2, 10, 6}

	base := calc.Calculate(Input{History: history, CurrentStock: stock(40), LeadTime: 7, ServiceLevel: 0.95})
	fromDemand := calc.FromDemand(base.AvgDailyDemand, history, stock(40), 7, 0.95)

	assert.Equal(t, base, fromDemand)
}
