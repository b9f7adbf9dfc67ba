package decision

import (
	"fmt"
	"math"

	"github.com/andresuchdata/stockcast/backend-go/internal/domain"
)

const (
	reasonCoverageShort = "stock coverage shorter than lead time"
	reasonSafetyStock   = "safety stock computed to protect service level"
)

// Engine evaluates a KPISet into a Decision. Evaluate is a pure
// function: identical input always yields an identical Decision, and
// nothing is stored between calls.
type Engine struct {
	policy Policy
}

// NewEngine builds an engine with the given policy.
func NewEngine(policy Policy) Engine {
	return Engine{policy: policy}
}

// Evaluate applies the action rules in order, first match wins:
//
//  1. coverage < lead time            -> REORDER_NOW / HIGH
//  2. coverage < lead time + grace    -> REORDER_SOON / MEDIUM
//  3. overstock risk > cutoff         -> DELAY / LOW
//  4. otherwise                       -> HOLD / LOW
//
// All thresholds are strict: coverage exactly equal to lead time lands
// in REORDER_SOON, not REORDER_NOW. An empty KPISet or one without
// stock coverage cannot produce a decision and returns ErrNoDecision.
func (e Engine) Evaluate(kpi domain.KPISet) (domain.Decision, error) {
	if kpi.IsZero() {
		return domain.Decision{}, fmt.Errorf("evaluate: empty kpi set: %w", domain.ErrNoDecision)
	}
	if kpi.StockCoverageDays == nil {
		return domain.Decision{}, fmt.Errorf("evaluate: stock coverage unknown: %w", domain.ErrNoDecision)
	}

	coverage := *kpi.StockCoverageDays
	leadTime := float64(kpi.LeadTimeDays)

	stockoutRisk := math.Min(1.0, leadTime/math.Max(coverage, 1))
	overstockRisk := math.Min(1.0, coverage/e.policy.OverstockWindowDays)

	var action domain.Action
	var urgency domain.Urgency
	switch {
	case coverage < leadTime:
		action, urgency = domain.ActionReorderNow, domain.UrgencyHigh
	case coverage < leadTime+e.policy.GraceWindowDays:
		action, urgency = domain.ActionReorderSoon, domain.UrgencyMedium
	case overstockRisk > e.policy.OverstockCutoff:
		action, urgency = domain.ActionDelay, domain.UrgencyLow
	default:
		action, urgency = domain.ActionHold, domain.UrgencyLow
	}

	var reasons []string
	if coverage < leadTime {
		reasons = append(reasons, reasonCoverageShort)
	}
	if kpi.SafetyStock > 0 {
		reasons = append(reasons, reasonSafetyStock)
	}

	confidence := math.Min(1.0, e.policy.ConfidenceBase+stockoutRisk*e.policy.ConfidenceSlope)

	return domain.Decision{
		Action:  action,
		Urgency: urgency,
		Risk: domain.Risk{
			Stockout:  round2(stockoutRisk),
			Overstock: round2(overstockRisk),
		},
		Reasons:    reasons,
		Confidence: round2(confidence),
	}, nil
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
