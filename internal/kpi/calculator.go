// Package kpi converts demand statistics and current stock into
// inventory-control figures: safety stock, reorder point, and stock
// coverage.
package kpi

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/andresuchdata/stockcast/backend-go/internal/domain"
)

// Calculator derives a KPISet from demand history and, when available,
// a forecast. It never returns an error: when average demand is
// non-positive or undefined the result is an empty KPISet, which
// callers must treat as "cannot decide".
type Calculator struct {
	// ZTable maps service level to its safety factor. Unknown levels
	// fall back to DefaultZ.
	ZTable             map[float64]float64
	DefaultZ           float64
	SigmaFallbackRatio float64
}

// NewCalculator returns a calculator with the standard service-level
// table and the configured sigma fallback ratio.
func NewCalculator(sigmaFallbackRatio float64) Calculator {
	if sigmaFallbackRatio <= 0 {
		sigmaFallbackRatio = 0.3
	}
	return Calculator{
		ZTable: map[float64]float64{
			0.90: 1.28,
			0.95: 1.65,
			0.99: 2.33,
		},
		DefaultZ:           1.65,
		SigmaFallbackRatio: sigmaFallbackRatio,
	}
}

// Input carries everything Calculate needs for one product.
type Input struct {
	// History is the per-bucket historical demand, used for the mean
	// fallback and for sigma.
	History []float64
	// Forecast is the per-bucket forecasted demand; preferred over
	// History for the demand mean when present.
	Forecast []float64
	// CurrentStock is nil when no real stock figure is known.
	CurrentStock *float64
	LeadTime     int
	ServiceLevel float64
}

// Calculate derives the full KPISet. Demand mean comes from the
// forecast when one is supplied, otherwise from history; sigma is the
// sample standard deviation of history with a ratio-of-mean fallback
// for degenerate histories.
func (c Calculator) Calculate(in Input) domain.KPISet {
	avg := demandMean(in.Forecast, in.History)
	if avg <= 0 || math.IsNaN(avg) {
		return domain.KPISet{}
	}

	// Round before deriving anything so scenario analysis, which starts
	// from the reported average, reproduces the base KPI set exactly at
	// delta zero.
	avg = round2(avg)
	sigma := c.sigma(in.History, avg)
	return c.build(avg, sigma, in.CurrentStock, in.LeadTime, in.ServiceLevel)
}

// FromDemand derives the minimal KPISet for a known average demand, as
// scenario and sensitivity analysis needs: same formulas, no forecast.
func (c Calculator) FromDemand(avgDemand float64, history []float64, currentStock *float64, leadTime int, serviceLevel float64) domain.KPISet {
	if avgDemand <= 0 || math.IsNaN(avgDemand) {
		return domain.KPISet{}
	}
	sigma := c.sigma(history, avgDemand)
	return c.build(avgDemand, sigma, currentStock, leadTime, serviceLevel)
}

func (c Calculator) build(avg, sigma float64, currentStock *float64, leadTime int, serviceLevel float64) domain.KPISet {
	z := c.zScore(serviceLevel)

	safetyStock := math.Round(z * sigma * math.Sqrt(float64(max(leadTime, 1))))
	// avg arrives already rounded to 2dp, so the pre-Round reorder
	// point carries at most 0.005*leadTime of rounding drift versus an
	// unrounded mean.
	reorderPoint := math.Round(avg*float64(leadTime) + z*sigma*math.Sqrt(float64(max(leadTime, 1))))

	set := domain.KPISet{
		AvgDailyDemand:  round2(avg),
		AvgWeeklyDemand: round2(avg * 7),
		DemandStd:       round2(sigma),
		SafetyStock:     safetyStock,
		ReorderPoint:    reorderPoint,
		LeadTimeDays:    leadTime,
	}

	if currentStock != nil && *currentStock >= 0 {
		coverage := round1(*currentStock / avg)
		set.StockCoverageDays = &coverage
	}

	return set
}

// zScore looks up the safety factor for a service level; unknown levels
// default to the 0.95 factor.
func (c Calculator) zScore(serviceLevel float64) float64 {
	if z, ok := c.ZTable[serviceLevel]; ok {
		return z
	}
	return c.DefaultZ
}

// sigma is the sample standard deviation of history; degenerate values
// fall back to a fixed ratio of average demand as a variability proxy.
func (c Calculator) sigma(history []float64, avg float64) float64 {
	if len(history) >= 2 {
		if sd := stat.StdDev(history, nil); sd > 0 && !math.IsNaN(sd) {
			return sd
		}
	}
	return avg * c.SigmaFallbackRatio
}

func demandMean(forecast, history []float64) float64 {
	if len(forecast) > 0 {
		return stat.Mean(forecast, nil)
	}
	if len(history) > 0 {
		return stat.Mean(history, nil)
	}
	return 0
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
func round1(v float64) float64 { return math.Round(v*10) / 10 }
