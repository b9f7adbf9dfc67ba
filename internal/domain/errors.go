package domain

import "errors"

var (
	// ErrEmptyHistory is returned when a product has no sales
	// observations at all.
	ErrEmptyHistory = errors.New("no sales history")

	// ErrInsufficientHistory is returned when history is too short or
	// too sparse (intermittent demand) for the boosted engine.
	ErrInsufficientHistory = errors.New("insufficient sales history")

	// ErrNoValidWindows is returned when a backtest produced no usable
	// comparison window for an engine/product pair.
	ErrNoValidWindows = errors.New("backtest produced no valid windows")

	// ErrMissingColumn marks malformed input at the ingestion boundary;
	// the whole batch is rejected, rows are never silently dropped.
	ErrMissingColumn = errors.New("required column missing")

	// ErrNoDecision is returned when the KPI set is empty and no
	// decision can be fabricated from it.
	ErrNoDecision = errors.New("no decision possible")

	// ErrShapeMismatch marks an engine forecast whose length does not
	// match the requested horizon.
	ErrShapeMismatch = errors.New("forecast length does not match horizon")

	// ErrUnknownEngine is returned by the engine factory for an
	// unrecognized engine kind.
	ErrUnknownEngine = errors.New("unknown forecast engine")

	// ErrProductNotFound is returned when a product has no rows in the
	// sales repository.
	ErrProductNotFound = errors.New("product not found")
)
