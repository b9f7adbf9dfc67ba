package service

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/stockcast/backend-go/internal/artifacts"
	"github.com/andresuchdata/stockcast/backend-go/internal/cache"
	"github.com/andresuchdata/stockcast/backend-go/internal/config"
	"github.com/andresuchdata/stockcast/backend-go/internal/decision"
	"github.com/andresuchdata/stockcast/backend-go/internal/domain"
	"github.com/andresuchdata/stockcast/backend-go/internal/forecast"
	"github.com/andresuchdata/stockcast/backend-go/internal/kpi"
	"github.com/andresuchdata/stockcast/backend-go/internal/repository"
	"github.com/andresuchdata/stockcast/backend-go/internal/scenario"
)

// ForecastSummary aggregates a forecast for the response payload.
type ForecastSummary struct {
	TotalForecast float64 `json:"total_forecast"`
	AvgDaily      float64 `json:"avg_daily"`
}

// ForecastResponse is the full forecast payload: observed history,
// predicted points, and the summary.
type ForecastResponse struct {
	ProductCode string          `json:"product_code"`
	Cadence     domain.Cadence  `json:"cadence"`
	Engine      string          `json:"engine"`
	History     []domain.Point  `json:"history"`
	Forecast    []domain.Point  `json:"forecast"`
	Summary     ForecastSummary `json:"summary"`
}

// DecisionResponse pairs the decision with the KPI set it came from.
type DecisionResponse struct {
	ProductCode string          `json:"product_code"`
	KPI         domain.KPISet   `json:"kpi"`
	Decision    domain.Decision `json:"decision"`
}

// ScenarioResponse carries the named what-if outcomes plus the
// rule-based interpretation.
type ScenarioResponse struct {
	ProductCode    string                           `json:"product_code"`
	Base           domain.ScenarioResult            `json:"base"`
	Scenarios      map[string]domain.ScenarioResult `json:"scenarios"`
	Interpretation string                           `json:"interpretation"`
}

// SensitivityResponse carries the sweep plus its interpretation.
type SensitivityResponse struct {
	ProductCode    string                  `json:"product_code"`
	Sweep          domain.SensitivitySweep `json:"sweep"`
	Interpretation string                  `json:"interpretation"`
}

// PolicyOverrides are the per-request knobs a caller may set. Zero
// values mean "use the configured default"; CurrentStock nil means
// "read the latest snapshot".
type PolicyOverrides struct {
	LeadTimeDays int
	ServiceLevel float64
	CurrentStock *float64
}

// ForecastService is the orchestration layer: it loads history,
// normalizes it once per request, runs the selected engine, and feeds
// the downstream KPI, decision, and scenario passes from that single
// forecast.
type ForecastService struct {
	sales     repository.SalesRepository
	inventory repository.InventoryRepository
	cache     cache.ForecastCache
	meta      artifacts.ModelMetaStore

	calc        kpi.Calculator
	dec         decision.Engine
	scenarios   scenario.Engine
	interpreter scenario.Interpreter
	harness     *forecast.Harness

	policy        config.PolicyConfig
	scenarioCfg   config.ScenarioConfig
	defaultEngine forecast.EngineKind
}

// NewForecastService wires the service from its dependencies and the
// loaded configuration.
func NewForecastService(
	sales repository.SalesRepository,
	inventory repository.InventoryRepository,
	forecastCache cache.ForecastCache,
	meta artifacts.ModelMetaStore,
	cfg *config.Config,
) *ForecastService {
	calc := kpi.NewCalculator(cfg.Policy.SigmaFallbackRatio)
	dec := decision.NewEngine(decision.Policy{
		GraceWindowDays:     cfg.Policy.GraceWindowDays,
		OverstockWindowDays: cfg.Policy.OverstockWindowDays,
		OverstockCutoff:     cfg.Policy.OverstockCutoff,
		ConfidenceBase:      decision.DefaultPolicy().ConfidenceBase,
		ConfidenceSlope:     decision.DefaultPolicy().ConfidenceSlope,
	})

	defaultEngine, err := forecast.ParseEngineKind(cfg.Forecast.DefaultEngine)
	if err != nil {
		log.Warn().Str("engine", cfg.Forecast.DefaultEngine).Msg("unknown default engine, using boosted")
		defaultEngine = forecast.KindBoosted
	}

	return &ForecastService{
		sales:         sales,
		inventory:     inventory,
		cache:         forecastCache,
		meta:          meta,
		calc:          calc,
		dec:           dec,
		scenarios:     scenario.NewEngine(calc, dec, cfg.Policy.ServiceLevel),
		interpreter:   scenario.NewInterpreter(cfg.Policy.OverstockWindowDays),
		harness:       forecast.NewHarness(cfg.Forecast.BacktestWorkers),
		policy:        cfg.Policy,
		scenarioCfg:   cfg.Scenario,
		defaultEngine: defaultEngine,
	}
}

// loadSeries fetches and normalizes one product's history. A product
// with no sales rows at all maps to ErrProductNotFound.
func (s *ForecastService) loadSeries(ctx context.Context, productCode string, cadence domain.Cadence) (domain.TimeSeries, error) {
	observations, err := s.sales.GetSalesByProduct(ctx, productCode)
	if err != nil {
		return domain.TimeSeries{}, err
	}
	if len(observations) == 0 {
		return domain.TimeSeries{}, fmt.Errorf("product %s: %w", productCode, domain.ErrProductNotFound)
	}
	return forecast.Normalize(productCode, cadence, observations)
}

// runEngine executes the requested engine with the fallback ladder:
// the meta engine falls back to the in-process default when no artifact
// exists, and the boosted engine falls back to baseline when the
// history cannot support training.
func (s *ForecastService) runEngine(ctx context.Context, series domain.TimeSeries, kind forecast.EngineKind, horizon int) (domain.Forecast, error) {
	if kind == forecast.KindMeta {
		meta, err := s.meta.GetModelMeta(ctx, series.Cadence, series.ProductCode)
		if err != nil {
			log.Warn().Err(err).Str("product", series.ProductCode).Msg("artifact store unavailable, using in-process engine")
		}
		if meta != nil {
			engine := &forecast.MetaEngine{Meta: *meta}
			return engine.Run(series, horizon)
		}
		if err == nil {
			log.Warn().Str("product", series.ProductCode).Msg("no model artifact, using in-process engine")
		}
		kind = s.defaultEngine
		if kind == forecast.KindMeta {
			kind = forecast.KindBoosted
		}
	}

	engine, err := forecast.NewEngine(kind)
	if err != nil {
		return domain.Forecast{}, err
	}

	fc, err := engine.Run(series, horizon)
	if errors.Is(err, domain.ErrInsufficientHistory) && kind == forecast.KindBoosted {
		log.Warn().
			Str("product", series.ProductCode).
			Str("cadence", string(series.Cadence)).
			Int("buckets", len(series.Points)).
			Msg("history too thin for boosted engine, falling back to baseline")
		baseline := &forecast.BaselineEngine{}
		return baseline.Run(series, horizon)
	}
	return fc, err
}

// Forecast serves the forecast payload for one product, consulting the
// cache first. Cache failures degrade to recompute.
func (s *ForecastService) Forecast(ctx context.Context, productCode string, cadence domain.Cadence, engineName string, horizon int) (*ForecastResponse, error) {
	kind := s.defaultEngine
	if engineName != "" {
		var err error
		kind, err = forecast.ParseEngineKind(engineName)
		if err != nil {
			return nil, err
		}
	}
	if horizon <= 0 {
		horizon = cadence.DefaultHorizon()
	}

	series, err := s.loadSeries(ctx, productCode, cadence)
	if err != nil {
		return nil, err
	}

	key := cache.ForecastKey{
		ProductCode: productCode,
		Cadence:     string(cadence),
		Engine:      string(kind),
		Horizon:     horizon,
	}

	fc, err := s.cachedForecast(ctx, key, series, kind, horizon)
	if err != nil {
		return nil, err
	}

	return &ForecastResponse{
		ProductCode: productCode,
		Cadence:     cadence,
		Engine:      fc.Engine,
		History:     series.Points,
		Forecast:    fc.Points,
		Summary:     summarize(fc),
	}, nil
}

func (s *ForecastService) cachedForecast(ctx context.Context, key cache.ForecastKey, series domain.TimeSeries, kind forecast.EngineKind, horizon int) (domain.Forecast, error) {
	if cached, ok, err := s.cache.Get(ctx, key); err != nil {
		log.Warn().Err(err).Str("product", key.ProductCode).Msg("forecast cache read failed")
	} else if ok {
		return *cached, nil
	}

	fc, err := s.runEngine(ctx, series, kind, horizon)
	if err != nil {
		return domain.Forecast{}, err
	}

	if err := s.cache.Set(ctx, key, &fc); err != nil {
		log.Warn().Err(err).Str("product", key.ProductCode).Msg("forecast cache write failed")
	}
	return fc, nil
}

func summarize(fc domain.Forecast) ForecastSummary {
	total := 0.0
	for _, p := range fc.Points {
		total += p.Qty
	}
	return ForecastSummary{
		TotalForecast: math.Round(total*100) / 100,
		AvgDaily:      math.Round(fc.Mean()*100) / 100,
	}
}

// resolveStock prefers the caller's override, then the latest snapshot.
// Both absent leaves stock unknown, which suppresses coverage and the
// decision downstream.
func (s *ForecastService) resolveStock(ctx context.Context, productCode string, override *float64) *float64 {
	if override != nil {
		return override
	}
	stock, err := s.inventory.GetCurrentStock(ctx, productCode)
	if err != nil {
		log.Warn().Err(err).Str("product", productCode).Msg("stock lookup failed, coverage will be unknown")
		return nil
	}
	return stock
}

func (s *ForecastService) resolvePolicy(o PolicyOverrides) (leadTime int, serviceLevel float64) {
	leadTime = o.LeadTimeDays
	if leadTime <= 0 {
		leadTime = s.policy.LeadTimeDays
	}
	serviceLevel = o.ServiceLevel
	if serviceLevel <= 0 {
		serviceLevel = s.policy.ServiceLevel
	}
	return leadTime, serviceLevel
}

// KPIs computes the KPI set for a product from one forecast pass.
func (s *ForecastService) KPIs(ctx context.Context, productCode string, cadence domain.Cadence, overrides PolicyOverrides) (domain.KPISet, error) {
	series, err := s.loadSeries(ctx, productCode, cadence)
	if err != nil {
		return domain.KPISet{}, err
	}

	fc, err := s.runEngine(ctx, series, s.defaultEngine, cadence.DefaultHorizon())
	if err != nil {
		return domain.KPISet{}, err
	}

	leadTime, serviceLevel := s.resolvePolicy(overrides)
	return s.calc.Calculate(kpi.Input{
		History:      series.Quantities(),
		Forecast:     forecastQuantities(fc),
		CurrentStock: s.resolveStock(ctx, productCode, overrides.CurrentStock),
		LeadTime:     leadTime,
		ServiceLevel: serviceLevel,
	}), nil
}

// Decision computes the KPI set and evaluates it into a recommendation.
func (s *ForecastService) Decision(ctx context.Context, productCode string, cadence domain.Cadence, overrides PolicyOverrides) (*DecisionResponse, error) {
	kpiSet, err := s.KPIs(ctx, productCode, cadence, overrides)
	if err != nil {
		return nil, err
	}

	d, err := s.dec.Evaluate(kpiSet)
	if err != nil {
		return nil, err
	}

	return &DecisionResponse{
		ProductCode: productCode,
		KPI:         kpiSet,
		Decision:    d,
	}, nil
}

// scenarioInput builds the shared base case for scenario and
// sensitivity runs from one forecast pass.
func (s *ForecastService) scenarioInput(ctx context.Context, productCode string, cadence domain.Cadence, overrides PolicyOverrides) (scenario.Input, domain.KPISet, domain.Decision, error) {
	series, err := s.loadSeries(ctx, productCode, cadence)
	if err != nil {
		return scenario.Input{}, domain.KPISet{}, domain.Decision{}, err
	}

	fc, err := s.runEngine(ctx, series, s.defaultEngine, cadence.DefaultHorizon())
	if err != nil {
		return scenario.Input{}, domain.KPISet{}, domain.Decision{}, err
	}

	leadTime, serviceLevel := s.resolvePolicy(overrides)
	stock := s.resolveStock(ctx, productCode, overrides.CurrentStock)

	kpiSet := s.calc.Calculate(kpi.Input{
		History:      series.Quantities(),
		Forecast:     forecastQuantities(fc),
		CurrentStock: stock,
		LeadTime:     leadTime,
		ServiceLevel: serviceLevel,
	})
	d, err := s.dec.Evaluate(kpiSet)
	if err != nil {
		return scenario.Input{}, domain.KPISet{}, domain.Decision{}, err
	}

	in := scenario.Input{
		BaseDemand:   kpiSet.AvgDailyDemand,
		History:      series.Quantities(),
		CurrentStock: stock,
		LeadTime:     leadTime,
		ServiceLevel: serviceLevel,
	}
	return in, kpiSet, d, nil
}

// Scenarios runs the configured named what-ifs for a product.
func (s *ForecastService) Scenarios(ctx context.Context, productCode string, cadence domain.Cadence, overrides PolicyOverrides) (*ScenarioResponse, error) {
	in, kpiSet, d, err := s.scenarioInput(ctx, productCode, cadence, overrides)
	if err != nil {
		return nil, err
	}

	results := s.scenarios.RunScenarios(in, s.scenarioCfg.NamedDeltas)
	return &ScenarioResponse{
		ProductCode: productCode,
		Base: domain.ScenarioResult{
			Delta:          0,
			AvgDailyDemand: kpiSet.AvgDailyDemand,
			KPI:            kpiSet,
			Decision:       d,
		},
		Scenarios:      results,
		Interpretation: s.interpreter.InterpretScenarios(results),
	}, nil
}

// Sensitivity runs the configured delta sweep for a product.
func (s *ForecastService) Sensitivity(ctx context.Context, productCode string, cadence domain.Cadence, overrides PolicyOverrides) (*SensitivityResponse, error) {
	in, _, _, err := s.scenarioInput(ctx, productCode, cadence, overrides)
	if err != nil {
		return nil, err
	}

	sweep := s.scenarios.RunSensitivity(in, s.scenarioCfg.Grid)
	return &SensitivityResponse{
		ProductCode:    productCode,
		Sweep:          sweep,
		Interpretation: s.interpreter.InterpretSweep(sweep),
	}, nil
}

// Backtest runs the rolling-origin evaluation for one product and
// engine.
func (s *ForecastService) Backtest(ctx context.Context, productCode string, cadence domain.Cadence, engineName string, horizon int) (domain.BacktestResult, error) {
	kind := s.defaultEngine
	if engineName != "" {
		var err error
		kind, err = forecast.ParseEngineKind(engineName)
		if err != nil {
			return domain.BacktestResult{}, err
		}
	}
	if kind == forecast.KindMeta {
		return domain.BacktestResult{}, fmt.Errorf("meta engine cannot be backtested: %w", domain.ErrUnknownEngine)
	}
	if horizon <= 0 {
		horizon = cadence.DefaultHorizon()
	}

	series, err := s.loadSeries(ctx, productCode, cadence)
	if err != nil {
		return domain.BacktestResult{}, err
	}

	engine, err := forecast.NewEngine(kind)
	if err != nil {
		return domain.BacktestResult{}, err
	}
	return s.harness.Evaluate(ctx, series, engine, horizon, cadence.MinBuckets())
}

// ChooseEngine backtests both in-process engines and picks boosted
// unless its error exceeds the baseline's. Products whose history
// cannot support a backtest get the baseline.
func (s *ForecastService) ChooseEngine(ctx context.Context, productCode string, cadence domain.Cadence, horizon int) (forecast.EngineKind, error) {
	if horizon <= 0 {
		horizon = cadence.DefaultHorizon()
	}

	series, err := s.loadSeries(ctx, productCode, cadence)
	if err != nil {
		return "", err
	}

	baselineResult, err := s.harness.Evaluate(ctx, series, &forecast.BaselineEngine{}, horizon, cadence.MinBuckets())
	if errors.Is(err, domain.ErrNoValidWindows) {
		return forecast.KindBaseline, nil
	}
	if err != nil {
		return "", err
	}

	boosted, err := forecast.NewEngine(forecast.KindBoosted)
	if err != nil {
		return "", err
	}
	boostedResult, err := s.harness.Evaluate(ctx, series, boosted, horizon, cadence.MinBuckets())
	if errors.Is(err, domain.ErrNoValidWindows) {
		return forecast.KindBaseline, nil
	}
	if err != nil {
		return "", err
	}

	if boostedResult.MAE > baselineResult.MAE {
		log.Info().
			Str("product", productCode).
			Float64("baseline_mae", baselineResult.MAE).
			Float64("boosted_mae", boostedResult.MAE).
			Msg("baseline beats boosted on backtest")
		return forecast.KindBaseline, nil
	}
	return forecast.KindBoosted, nil
}

func forecastQuantities(fc domain.Forecast) []float64 {
	qty := make([]float64, len(fc.Points))
	for i, p := range fc.Points {
		qty[i] = p.Qty
	}
	return qty
}
