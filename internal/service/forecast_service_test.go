package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/stockcast/backend-go/internal/cache"
	"github.com/andresuchdata/stockcast/backend-go/internal/config"
	"github.com/andresuchdata/stockcast/backend-go/internal/domain"
)

type fakeSalesRepo struct {
	sales map[string][]domain.SalesObservation
}

func (r *fakeSalesRepo) GetSalesByProduct(ctx context.Context, productCode string) ([]domain.SalesObservation, error) {
	return r.sales[productCode], nil
}

func (r *fakeSalesRepo) ListProductCodes(ctx context.Context) ([]string, error) {
	codes := make([]string, 0, len(r.sales))
	for code := range r.sales {
		codes = append(codes, code)
	}
	return codes, nil
}

func (r *fakeSalesRepo) InsertSalesBatch(ctx context.Context, observations []domain.SalesObservation) error {
	return nil
}

type fakeInventoryRepo struct {
	stock map[string]float64
}

func (r *fakeInventoryRepo) GetCurrentStock(ctx context.Context, productCode string) (*float64, error) {
	if s, ok := r.stock[productCode]; ok {
		return &s, nil
	}
	return nil, nil
}

func (r *fakeInventoryRepo) UpsertSnapshots(ctx context.Context, snapshots []domain.InventorySnapshot) error {
	return nil
}

type fakeMetaStore struct {
	meta map[string]*domain.ModelMeta
}

func (s *fakeMetaStore) GetModelMeta(ctx context.Context, cadence domain.Cadence, productCode string) (*domain.ModelMeta, error) {
	return s.meta[productCode], nil
}

type fakeCache struct {
	entries map[cache.ForecastKey]domain.Forecast
	sets    int
}

func (c *fakeCache) Get(ctx context.Context, key cache.ForecastKey) (*domain.Forecast, bool, error) {
	if fc, ok := c.entries[key]; ok {
		return &fc, true, nil
	}
	return nil, false, nil
}

func (c *fakeCache) Set(ctx context.Context, key cache.ForecastKey, forecast *domain.Forecast) error {
	c.entries[key] = *forecast
	c.sets++
	return nil
}

func (c *fakeCache) InvalidateAll(ctx context.Context) error {
	c.entries = map[cache.ForecastKey]domain.Forecast{}
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		Forecast: config.ForecastConfig{
			DefaultEngine:   "boosted",
			BacktestWorkers: 2,
			BatchWorkers:    2,
		},
		Policy: config.PolicyConfig{
			ServiceLevel:        0.95,
			LeadTimeDays:        7,
			GraceWindowDays:     3,
			OverstockWindowDays: 30,
			OverstockCutoff:     0.8,
			SigmaFallbackRatio:  0.3,
		},
		Scenario: config.ScenarioConfig{
			NamedDeltas: map[string]float64{"worst": -0.2, "best": 0.2},
			Grid:        []float64{-0.4, -0.2, 0, 0.2, 0.4, 0.6},
		},
	}
}

func constantSales(productCode string, days int, qty float64) []domain.SalesObservation {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	obs := make([]domain.SalesObservation, 0, days)
	for i := 0; i < days; i++ {
		obs = append(obs, domain.SalesObservation{
			ProductCode: productCode,
			MoveDate:    start.AddDate(0, 0, i),
			QtySold:     qty,
		})
	}
	return obs
}

func newTestService(sales *fakeSalesRepo, inventory *fakeInventoryRepo, meta *fakeMetaStore, fc *fakeCache) *ForecastService {
	if inventory == nil {
		inventory = &fakeInventoryRepo{stock: map[string]float64{}}
	}
	if meta == nil {
		meta = &fakeMetaStore{meta: map[string]*domain.ModelMeta{}}
	}
	if fc == nil {
		fc = &fakeCache{entries: map[cache.ForecastKey]domain.Forecast{}}
	}
	return NewForecastService(sales, inventory, fc, meta, testConfig())
}

func TestForecastHappyPath(t *testing.T) {
	sales := &fakeSalesRepo{sales: map[string][]domain.SalesObservation{
		"SKU-1": constantSales("SKU-1", 120, 10),
	}}
	svc := newTestService(sales, nil, nil, nil)

	resp, err := svc.Forecast(context.Background(), "SKU-1", domain.CadenceDay, "", 0)
	require.NoError(t, err)

	assert.Equal(t, "SKU-1", resp.ProductCode)
	assert.Equal(t, "boosted", resp.Engine)
	assert.Len(t, resp.History, 120)
	assert.Len(t, resp.Forecast, 7)
	for _, p := range resp.Forecast {
		assert.InDelta(t, 10.0, p.Qty, 1e-9)
	}
	assert.InDelta(t, 70.0, resp.Summary.TotalForecast, 1e-9)
	assert.InDelta(t, 10.0, resp.Summary.AvgDaily, 1e-9)
}

func TestForecastUnknownProduct(t *testing.T) {
	svc := newTestService(&fakeSalesRepo{sales: map[string][]domain.SalesObservation{}}, nil, nil, nil)

	_, err := svc.Forecast(context.Background(), "MISSING", domain.CadenceDay, "", 0)
	assert.ErrorIs(t, err, domain.ErrProductNotFound)
}

func TestForecastUnknownEngine(t *testing.T) {
	sales := &fakeSalesRepo{sales: map[string][]domain.SalesObservation{
		"SKU-1": constantSales("SKU-1", 120, 10),
	}}
	svc := newTestService(sales, nil, nil, nil)

	_, err := svc.Forecast(context.Background(), "SKU-1", domain.CadenceDay, "prophet", 0)
	assert.ErrorIs(t, err, domain.ErrUnknownEngine)
}

func TestForecastFallsBackToBaselineOnThinHistory(t *testing.T) {
	// 30 daily buckets cannot support boosted training; the request
	// still succeeds through the baseline.
	sales := &fakeSalesRepo{sales: map[string][]domain.SalesObservation{
		"SKU-1": constantSales("SKU-1", 30, 4),
	}}
	svc := newTestService(sales, nil, nil, nil)

	resp, err := svc.Forecast(context.Background(), "SKU-1", domain.CadenceDay, "boosted", 0)
	require.NoError(t, err)
	assert.Equal(t, "baseline", resp.Engine)
	assert.Len(t, resp.Forecast, 7)
	assert.Equal(t, 4.0, resp.Forecast[0].Qty)
}

func TestForecastMetaEngine(t *testing.T) {
	sales := &fakeSalesRepo{sales: map[string][]domain.SalesObservation{
		"SKU-1": constantSales("SKU-1", 30, 4),
	}}
	meta := &fakeMetaStore{meta: map[string]*domain.ModelMeta{
		"SKU-1": {ProductCode: "SKU-1", Cadence: domain.CadenceDay, AvgDemand: 6.5},
	}}
	svc := newTestService(sales, nil, meta, nil)

	resp, err := svc.Forecast(context.Background(), "SKU-1", domain.CadenceDay, "meta", 3)
	require.NoError(t, err)
	assert.Equal(t, "meta", resp.Engine)
	require.Len(t, resp.Forecast, 3)
	for _, p := range resp.Forecast {
		assert.Equal(t, 6.5, p.Qty)
	}
}

func TestForecastMetaFallsBackWithoutArtifact(t *testing.T) {
	sales := &fakeSalesRepo{sales: map[string][]domain.SalesObservation{
		"SKU-1": constantSales("SKU-1", 120, 10),
	}}
	svc := newTestService(sales, nil, nil, nil)

	resp, err := svc.Forecast(context.Background(), "SKU-1", domain.CadenceDay, "meta", 0)
	require.NoError(t, err)
	assert.Equal(t, "boosted", resp.Engine)
}

func TestForecastServedFromCache(t *testing.T) {
	sales := &fakeSalesRepo{sales: map[string][]domain.SalesObservation{
		"SKU-1": constantSales("SKU-1", 120, 10),
	}}
	fc := &fakeCache{entries: map[cache.ForecastKey]domain.Forecast{}}
	svc := newTestService(sales, nil, nil, fc)

	first, err := svc.Forecast(context.Background(), "SKU-1", domain.CadenceDay, "baseline", 7)
	require.NoError(t, err)
	require.Equal(t, 1, fc.sets)

	second, err := svc.Forecast(context.Background(), "SKU-1", domain.CadenceDay, "baseline", 7)
	require.NoError(t, err)

	assert.Equal(t, 1, fc.sets, "second request must hit the cache")
	assert.Equal(t, first.Forecast, second.Forecast)
}

func TestDecisionWorkedExample(t *testing.T) {
	// Constant demand of 10/day, 50 on hand, 7-day lead time at the
	// 0.95 service level: safety 13, reorder point 83, coverage 5.0,
	// reorder now.
	stock := 50.0
	sales := &fakeSalesRepo{sales: map[string][]domain.SalesObservation{
		"SKU-1": constantSales("SKU-1", 120, 10),
	}}
	svc := newTestService(sales, nil, nil, nil)

	resp, err := svc.Decision(context.Background(), "SKU-1", domain.CadenceDay, PolicyOverrides{CurrentStock: &stock})
	require.NoError(t, err)

	assert.Equal(t, 10.0, resp.KPI.AvgDailyDemand)
	assert.Equal(t, 13.0, resp.KPI.SafetyStock)
	assert.Equal(t, 83.0, resp.KPI.ReorderPoint)
	require.NotNil(t, resp.KPI.StockCoverageDays)
	assert.Equal(t, 5.0, *resp.KPI.StockCoverageDays)

	assert.Equal(t, domain.ActionReorderNow, resp.Decision.Action)
	assert.Equal(t, domain.UrgencyHigh, resp.Decision.Urgency)
	assert.Equal(t, 1.0, resp.Decision.Risk.Stockout)
	assert.Equal(t, 0.17, resp.Decision.Risk.Overstock)
	assert.Equal(t, 1.0, resp.Decision.Confidence)
}

func TestDecisionUsesSnapshotStock(t *testing.T) {
	sales := &fakeSalesRepo{sales: map[string][]domain.SalesObservation{
		"SKU-1": constantSales("SKU-1", 120, 10),
	}}
	inventory := &fakeInventoryRepo{stock: map[string]float64{"SKU-1": 200}}
	svc := newTestService(sales, inventory, nil, nil)

	resp, err := svc.Decision(context.Background(), "SKU-1", domain.CadenceDay, PolicyOverrides{})
	require.NoError(t, err)
	require.NotNil(t, resp.KPI.StockCoverageDays)
	assert.Equal(t, 20.0, *resp.KPI.StockCoverageDays)
	assert.Equal(t, domain.ActionHold, resp.Decision.Action)
}

func TestDecisionWithoutStockFails(t *testing.T) {
	// No snapshot and no override: coverage is unknown, so there is
	// nothing to decide on.
	sales := &fakeSalesRepo{sales: map[string][]domain.SalesObservation{
		"SKU-1": constantSales("SKU-1", 120, 10),
	}}
	svc := newTestService(sales, nil, nil, nil)

	_, err := svc.Decision(context.Background(), "SKU-1", domain.CadenceDay, PolicyOverrides{})
	assert.ErrorIs(t, err, domain.ErrNoDecision)
}

func TestScenariosReproduceBaseAtDeltaZero(t *testing.T) {
	stock := 50.0
	sales := &fakeSalesRepo{sales: map[string][]domain.SalesObservation{
		"SKU-1": constantSales("SKU-1", 120, 10),
	}}
	svc := newTestService(sales, nil, nil, nil)

	resp, err := svc.Scenarios(context.Background(), "SKU-1", domain.CadenceDay, PolicyOverrides{CurrentStock: &stock})
	require.NoError(t, err)

	require.Contains(t, resp.Scenarios, "worst")
	require.Contains(t, resp.Scenarios, "best")
	assert.Equal(t, 10.0, resp.Base.AvgDailyDemand)
	assert.Equal(t, domain.ActionReorderNow, resp.Base.Decision.Action)
	assert.NotEmpty(t, resp.Interpretation)
}

func TestScenariosHonorServiceLevelOverride(t *testing.T) {
	// A request at the 0.99 service level must carry that level into
	// every scenario row, not just the base KPI set.
	stock := 50.0
	sales := &fakeSalesRepo{sales: map[string][]domain.SalesObservation{
		"SKU-1": constantSales("SKU-1", 120, 10),
	}}
	svc := newTestService(sales, nil, nil, nil)

	resp, err := svc.Scenarios(context.Background(), "SKU-1", domain.CadenceDay, PolicyOverrides{
		CurrentStock: &stock,
		ServiceLevel: 0.99,
	})
	require.NoError(t, err)

	// Base: z=2.33, sigma 3.0 -> safety 18, reorder point 88.
	assert.Equal(t, 18.0, resp.Base.KPI.SafetyStock)
	assert.Equal(t, 88.0, resp.Base.KPI.ReorderPoint)

	// Worst case (-20%): demand 8, sigma fallback 2.4, still z=2.33:
	// safety round(2.33*2.4*sqrt(7)) = 15. At the default 0.95 level
	// this would be 10.
	require.Contains(t, resp.Scenarios, "worst")
	assert.Equal(t, 15.0, resp.Scenarios["worst"].KPI.SafetyStock)
}

func TestSensitivitySweepOrdered(t *testing.T) {
	stock := 50.0
	sales := &fakeSalesRepo{sales: map[string][]domain.SalesObservation{
		"SKU-1": constantSales("SKU-1", 120, 10),
	}}
	svc := newTestService(sales, nil, nil, nil)

	resp, err := svc.Sensitivity(context.Background(), "SKU-1", domain.CadenceDay, PolicyOverrides{CurrentStock: &stock})
	require.NoError(t, err)
	require.Len(t, resp.Sweep.Points, 6)
	for i := 1; i < len(resp.Sweep.Points); i++ {
		assert.Less(t, resp.Sweep.Points[i-1].Delta, resp.Sweep.Points[i].Delta)
	}
	assert.NotEmpty(t, resp.Interpretation)
}

func TestBacktestConstantSeries(t *testing.T) {
	sales := &fakeSalesRepo{sales: map[string][]domain.SalesObservation{
		"SKU-1": constantSales("SKU-1", 150, 10),
	}}
	svc := newTestService(sales, nil, nil, nil)

	result, err := svc.Backtest(context.Background(), "SKU-1", domain.CadenceDay, "baseline", 7)
	require.NoError(t, err)
	assert.Equal(t, "baseline", result.Engine)
	assert.Equal(t, 0.0, result.MAE)
	assert.Greater(t, result.Windows, 0)
}

func TestBacktestRejectsMetaEngine(t *testing.T) {
	sales := &fakeSalesRepo{sales: map[string][]domain.SalesObservation{
		"SKU-1": constantSales("SKU-1", 150, 10),
	}}
	svc := newTestService(sales, nil, nil, nil)

	_, err := svc.Backtest(context.Background(), "SKU-1", domain.CadenceDay, "meta", 7)
	assert.ErrorIs(t, err, domain.ErrUnknownEngine)
}

func TestChooseEngineShortHistory(t *testing.T) {
	sales := &fakeSalesRepo{sales: map[string][]domain.SalesObservation{
		"SKU-1": constantSales("SKU-1", 40, 10),
	}}
	svc := newTestService(sales, nil, nil, nil)

	kind, err := svc.ChooseEngine(context.Background(), "SKU-1", domain.CadenceDay, 7)
	require.NoError(t, err)
	assert.Equal(t, "baseline", string(kind))
}

func TestBatchIsolatesFailures(t *testing.T) {
	stock := 50.0
	sales := &fakeSalesRepo{sales: map[string][]domain.SalesObservation{
		"GOOD": constantSales("GOOD", 120, 10),
		"BAD":  nil, // no history at all
	}}
	svc := newTestService(sales, nil, nil, nil)
	batch := NewBatchService(sales, svc, 2)

	summary, err := batch.EvaluateAll(context.Background(), domain.CadenceDay, PolicyOverrides{CurrentStock: &stock})
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Total)
	assert.Equal(t, 1, summary.Succeeded)
	assert.Equal(t, 1, summary.Failed)

	byCode := map[string]BatchItem{}
	for _, item := range summary.Items {
		byCode[item.ProductCode] = item
	}
	assert.Empty(t, byCode["GOOD"].Err)
	assert.Equal(t, domain.ActionReorderNow, byCode["GOOD"].Decision.Action)
	assert.NotEmpty(t, byCode["BAD"].Err)
}
