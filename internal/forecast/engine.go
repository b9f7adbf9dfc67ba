// Package forecast contains the demand forecasting core: series
// normalization, feature engineering, the pluggable forecast engines,
// and the rolling-origin backtest harness that validates them.
package forecast

import (
	"fmt"

	"github.com/andresuchdata/stockcast/backend-go/internal/domain"
	"github.com/andresuchdata/stockcast/backend-go/internal/gbrt"
)

// Engine produces an N-step-ahead forecast for a normalized series.
// Implementations hold no cross-request state and must never mutate the
// caller's series.
type Engine interface {
	Name() string
	Run(series domain.TimeSeries, horizon int) (domain.Forecast, error)
}

// EngineKind selects a concrete engine implementation.
type EngineKind string

const (
	KindBaseline EngineKind = "baseline"
	KindBoosted  EngineKind = "boosted"
	KindMeta     EngineKind = "meta"
)

// ParseEngineKind normalizes a user-supplied engine name.
func ParseEngineKind(s string) (EngineKind, error) {
	switch EngineKind(s) {
	case KindBaseline:
		return KindBaseline, nil
	case KindBoosted, "xgb", "gbrt":
		return KindBoosted, nil
	case KindMeta:
		return KindMeta, nil
	}
	return "", fmt.Errorf("%w: %q", domain.ErrUnknownEngine, s)
}

// NewEngine is the factory for the in-process engines. The meta engine
// needs a loaded artifact and is built by the caller that holds one.
func NewEngine(kind EngineKind) (Engine, error) {
	switch kind {
	case KindBaseline:
		return &BaselineEngine{}, nil
	case KindBoosted:
		return &BoostedEngine{Params: gbrt.DefaultParams()}, nil
	}
	return nil, fmt.Errorf("%w: %q", domain.ErrUnknownEngine, kind)
}
