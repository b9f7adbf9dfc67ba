// Package decision maps inventory KPIs onto a deterministic reorder
// recommendation.
package decision

// Policy bundles the business assumptions behind the action rules.
// None of these are physical constants: the 3-day grace window, the
// 30-day overstock normalization window, and the 0.8 overstock cutoff
// are inherited operational defaults that domain owners may retune.
type Policy struct {
	// GraceWindowDays widens the reorder-soon band past lead time.
	GraceWindowDays float64
	// OverstockWindowDays is the coverage horizon that counts as one
	// full unit of overstock risk.
	OverstockWindowDays float64
	// OverstockCutoff is the overstock risk above which reordering is
	// actively delayed.
	OverstockCutoff float64
	// ConfidenceBase and ConfidenceSlope shape confidence as
	// base + stockout_risk * slope, capped at 1.
	ConfidenceBase  float64
	ConfidenceSlope float64
}

// DefaultPolicy returns the inherited operational defaults.
func DefaultPolicy() Policy {
	return Policy{
		GraceWindowDays:     3,
		OverstockWindowDays: 30,
		OverstockCutoff:     0.8,
		ConfidenceBase:      0.55,
		ConfidenceSlope:     0.45,
	}
}
