// backend-go/internal/domain/models.go
package domain

import "time"

// SalesObservation is a single raw sales record at the ingestion boundary.
type SalesObservation struct {
	ProductCode string    `json:"product_code" db:"product_code"`
	MoveDate    time.Time `json:"move_date" db:"move_date"`
	QtySold     float64   `json:"qty_sold" db:"qty_sold"`
}

// InventorySnapshot is the current stock for a product at a location.
type InventorySnapshot struct {
	ProductCode    string    `json:"product_code" db:"product_code"`
	Location       string    `json:"location" db:"location"`
	AvailableStock float64   `json:"available_stock" db:"available_stock"`
	SnapshotDate   time.Time `json:"snapshot_date" db:"snapshot_date"`
}

// Point is one bucket of a demand series: the bucket start and the
// quantity observed (or predicted) for that bucket.
type Point struct {
	Period time.Time `json:"period"`
	Qty    float64   `json:"qty"`
}

// TimeSeries is a gap-free, strictly increasing demand series for one
// product at one cadence. Produced by forecast.Normalize; quantities
// are never negative.
type TimeSeries struct {
	ProductCode string  `json:"product_code"`
	Cadence     Cadence `json:"cadence"`
	Points      []Point `json:"points"`
}

// Quantities returns the per-bucket demand values in bucket order.
func (s TimeSeries) Quantities() []float64 {
	qty := make([]float64, len(s.Points))
	for i, p := range s.Points {
		qty[i] = p.Qty
	}
	return qty
}

// ZeroRatio is the fraction of zero-demand buckets.
func (s TimeSeries) ZeroRatio() float64 {
	if len(s.Points) == 0 {
		return 0
	}
	zeros := 0
	for _, p := range s.Points {
		if p.Qty == 0 {
			zeros++
		}
	}
	return float64(zeros) / float64(len(s.Points))
}

// Prefix returns a view of the first n buckets. The returned series
// shares the underlying array; callers must treat it as read-only.
func (s TimeSeries) Prefix(n int) TimeSeries {
	return TimeSeries{
		ProductCode: s.ProductCode,
		Cadence:     s.Cadence,
		Points:      s.Points[:n:n],
	}
}

// Forecast is an N-step-ahead prediction. Immutable once returned by an
// engine; predicted quantities are clamped to >= 0.
type Forecast struct {
	ProductCode string  `json:"product_code"`
	Cadence     Cadence `json:"cadence"`
	Engine      string  `json:"engine"`
	Horizon     int     `json:"horizon"`
	Points      []Point `json:"points"`
}

// Mean returns the average predicted quantity, or 0 for an empty forecast.
func (f Forecast) Mean() float64 {
	if len(f.Points) == 0 {
		return 0
	}
	total := 0.0
	for _, p := range f.Points {
		total += p.Qty
	}
	return total / float64(len(f.Points))
}

// KPISet holds the inventory-control statistics derived from demand.
// A zero-value KPISet means "cannot decide": the calculator returns it
// whenever average demand is non-positive or undefined.
type KPISet struct {
	AvgDailyDemand    float64  `json:"avg_daily_demand"`
	AvgWeeklyDemand   float64  `json:"avg_weekly_demand"`
	DemandStd         float64  `json:"demand_std"`
	SafetyStock       float64  `json:"safety_stock"`
	ReorderPoint      float64  `json:"reorder_point"`
	StockCoverageDays *float64 `json:"stock_coverage_days,omitempty"`
	LeadTimeDays      int      `json:"lead_time_days"`
}

// IsZero reports whether the KPISet is empty, i.e. no usable demand.
func (k KPISet) IsZero() bool {
	return k.AvgDailyDemand <= 0
}

// Action is the reorder recommendation.
type Action string

const (
	ActionReorderNow  Action = "REORDER_NOW"
	ActionReorderSoon Action = "REORDER_SOON"
	ActionDelay       Action = "DELAY"
	ActionHold        Action = "HOLD"
)

// Urgency qualifies how quickly an action should be taken.
type Urgency string

const (
	UrgencyHigh   Urgency = "HIGH"
	UrgencyMedium Urgency = "MEDIUM"
	UrgencyLow    Urgency = "LOW"
)

// Risk is the stockout/overstock risk pair, both in [0,1].
type Risk struct {
	Stockout  float64 `json:"stockout"`
	Overstock float64 `json:"overstock"`
}

// Decision is the output of the decision engine: a pure function of a
// KPISet, with no hidden state.
type Decision struct {
	Action     Action   `json:"action"`
	Urgency    Urgency  `json:"urgency"`
	Risk       Risk     `json:"risk"`
	Reasons    []string `json:"reasons"`
	Confidence float64  `json:"confidence"`
}

// ScenarioResult is the outcome of re-evaluating the decision under a
// named fractional demand change.
type ScenarioResult struct {
	Delta          float64  `json:"delta"`
	AvgDailyDemand float64  `json:"avg_daily_demand"`
	KPI            KPISet   `json:"kpi"`
	Decision       Decision `json:"decision"`
}

// SensitivityPoint is one row of a sensitivity sweep.
type SensitivityPoint struct {
	Delta          float64 `json:"delta"`
	AvgDailyDemand float64 `json:"avg_daily_demand"`
	Action         Action  `json:"action"`
	Urgency        Urgency `json:"urgency"`
}

// SensitivitySweep holds sweep rows ordered by delta ascending.
type SensitivitySweep struct {
	Points []SensitivityPoint `json:"points"`
}

// BacktestResult is the rolling-origin evaluation of one engine on one
// product's history.
type BacktestResult struct {
	ProductCode string  `json:"product_code"`
	Engine      string  `json:"engine"`
	Horizon     int     `json:"horizon"`
	Windows     int     `json:"windows"`
	MAE         float64 `json:"mae"`
}

// ModelMeta is the per-product, per-cadence artifact written by the
// external training job. This service only ever reads it.
type ModelMeta struct {
	ProductCode   string    `json:"product_code"`
	Cadence       Cadence   `json:"cadence"`
	AvgDemand     float64   `json:"avg_demand"`
	MAEValidation float64   `json:"mae_validation"`
	ZeroRatio     float64   `json:"zero_ratio"`
	ModelRef      string    `json:"model_ref"`
	TrainedAt     time.Time `json:"trained_at"`
}
