// Package scenario stress-tests a reorder decision against synthetic
// demand perturbations: named what-if scenarios, a sensitivity sweep
// over a delta grid, and a rule-based interpreter that classifies the
// outcome as stable or sensitive.
package scenario

import (
	"sort"

	"github.com/andresuchdata/stockcast/backend-go/internal/decision"
	"github.com/andresuchdata/stockcast/backend-go/internal/domain"
	"github.com/andresuchdata/stockcast/backend-go/internal/kpi"
	"github.com/andresuchdata/stockcast/backend-go/pkg/logger"
)

// Engine re-evaluates the decision under fractional demand changes.
// Each scenario is a cheap pure-function pass over the KPI calculator
// and decision engine; the forecast itself is never retrained.
type Engine struct {
	calc         kpi.Calculator
	dec          decision.Engine
	serviceLevel float64
}

// NewEngine wires the calculator and decision engine a scenario pass
// reuses.
func NewEngine(calc kpi.Calculator, dec decision.Engine, serviceLevel float64) Engine {
	return Engine{calc: calc, dec: dec, serviceLevel: serviceLevel}
}

// Input is shared by scenario and sensitivity runs.
type Input struct {
	// BaseDemand is the average per-bucket demand of the base case.
	BaseDemand float64
	// History is the normalized per-bucket demand, used for sigma.
	History      []float64
	CurrentStock *float64
	LeadTime     int
	// ServiceLevel overrides the engine default for this run. It must
	// match the level the base KPI set was computed with, or a delta of
	// zero would not reproduce the base. Zero means the default.
	ServiceLevel float64
}

// RunScenarios evaluates every named delta. Deltas that drive demand to
// zero or below are skipped; an empty KPI set or failed decision skips
// the scenario rather than fabricating a result.
func (e Engine) RunScenarios(in Input, deltas map[string]float64) map[string]domain.ScenarioResult {
	results := make(map[string]domain.ScenarioResult, len(deltas))

	for name, delta := range deltas {
		if r, ok := e.evaluate(in, delta); ok {
			results[name] = r
		}
	}

	return results
}

// RunSensitivity evaluates an ordered grid of deltas and returns the
// sweep sorted by delta ascending.
func (e Engine) RunSensitivity(in Input, grid []float64) domain.SensitivitySweep {
	ordered := append([]float64(nil), grid...)
	sort.Float64s(ordered)

	sweep := domain.SensitivitySweep{}
	for _, delta := range ordered {
		r, ok := e.evaluate(in, delta)
		if !ok {
			continue
		}
		sweep.Points = append(sweep.Points, domain.SensitivityPoint{
			Delta:          delta,
			AvgDailyDemand: r.AvgDailyDemand,
			Action:         r.Decision.Action,
			Urgency:        r.Decision.Urgency,
		})
	}
	return sweep
}

func (e Engine) evaluate(in Input, delta float64) (domain.ScenarioResult, bool) {
	demand := in.BaseDemand * (1 + delta)
	if demand <= 0 {
		return domain.ScenarioResult{}, false
	}

	serviceLevel := in.ServiceLevel
	if serviceLevel <= 0 {
		serviceLevel = e.serviceLevel
	}

	set := e.calc.FromDemand(demand, in.History, in.CurrentStock, in.LeadTime, serviceLevel)
	if set.IsZero() {
		return domain.ScenarioResult{}, false
	}

	dec, err := e.dec.Evaluate(set)
	if err != nil {
		logger.Log.Debug().Err(err).Float64("delta", delta).Msg("scenario skipped")
		return domain.ScenarioResult{}, false
	}

	return domain.ScenarioResult{
		Delta:          delta,
		AvgDailyDemand: set.AvgDailyDemand,
		KPI:            set,
		Decision:       dec,
	}, true
}
