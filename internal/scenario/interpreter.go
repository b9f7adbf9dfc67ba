package scenario

import (
	"fmt"

	"github.com/andresuchdata/stockcast/backend-go/internal/domain"
)

// Interpreter turns scenario and sensitivity output into a short,
// deterministic narrative for the chat and dashboard layers.
type Interpreter struct {
	// HighCoverageDays marks the coverage above which a stable outcome
	// gets the extra "stock is very comfortable" note.
	HighCoverageDays float64
}

// NewInterpreter returns an interpreter using the given coverage bar.
func NewInterpreter(highCoverageDays float64) Interpreter {
	if highCoverageDays <= 0 {
		highCoverageDays = 30
	}
	return Interpreter{HighCoverageDays: highCoverageDays}
}

// InterpretScenarios summarizes named what-if results. All scenarios
// agreeing on one action reads as stable; any disagreement reads as
// sensitive.
func (i Interpreter) InterpretScenarios(results map[string]domain.ScenarioResult) string {
	if len(results) == 0 {
		return ""
	}

	var first domain.Action
	stable := true
	minCoverage := -1.0
	n := 0
	for _, r := range results {
		if n == 0 {
			first = r.Decision.Action
		} else if r.Decision.Action != first {
			stable = false
		}
		n++
		if r.KPI.StockCoverageDays != nil {
			if minCoverage < 0 || *r.KPI.StockCoverageDays < minCoverage {
				minCoverage = *r.KPI.StockCoverageDays
			}
		}
	}

	if !stable {
		return "recommendation changes across scenarios: the decision is sensitive to demand shifts, monitor closely"
	}
	if minCoverage > i.HighCoverageDays {
		return fmt.Sprintf("recommendation stays %s across all scenarios: the decision is stable, and stock coverage is comfortable even in the worst case", first)
	}
	return fmt.Sprintf("recommendation stays %s across all scenarios: the decision is stable", first)
}

// InterpretSweep summarizes a sensitivity sweep. When any action on the
// grid differs from the base case (delta zero, or the smallest absolute
// delta present), the first flip delta is reported as a percentage.
func (i Interpreter) InterpretSweep(sweep domain.SensitivitySweep) string {
	if len(sweep.Points) == 0 {
		return ""
	}

	base := basePoint(sweep.Points)
	for _, p := range sweep.Points {
		if p.Action != base.Action {
			return fmt.Sprintf(
				"the decision is sensitive to demand shifts, monitor closely: action flips from %s to %s at %+.0f%% demand",
				base.Action, p.Action, p.Delta*100)
		}
	}

	return fmt.Sprintf("recommendation stays %s across the whole demand range: the decision is stable", base.Action)
}

// basePoint prefers the delta-zero row and falls back to the smallest
// absolute delta.
func basePoint(points []domain.SensitivityPoint) domain.SensitivityPoint {
	base := points[0]
	for _, p := range points {
		if p.Delta == 0 {
			return p
		}
		if abs(p.Delta) < abs(base.Delta) {
			base = p
		}
	}
	return base
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
