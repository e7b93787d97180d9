package strategy

import (
	"errors"
	"fmt"
)

var (
	// ErrStrategyExists is returned when registering a name twice.
	ErrStrategyExists = errors.New("strategy already registered")
	// ErrStrategyNotFound is returned for operations on unknown names.
	ErrStrategyNotFound = errors.New("strategy not found")
	// ErrStrategyTerminated is returned for operations on a handle whose
	// Shutdown hook has already run.
	ErrStrategyTerminated = errors.New("strategy terminated")
	// ErrStrategyNotInitialized is returned when starting a strategy whose
	// Initialize hook has not completed.
	ErrStrategyNotInitialized = errors.New("strategy not initialized")
)

// ConfigError reports an invalid or missing strategy configuration option.
type ConfigError struct {
	Strategy string
	Option   string
	Reason   string
}

func (e ConfigError) Error() string {
	return fmt.Sprintf("strategy %s: option %q: %s", e.Strategy, e.Option, e.Reason)
}

// EvaluationError wraps a single strategy's evaluate failure. One strategy
// failing never aborts the cycle; the engine collects these per cycle.
type EvaluationError struct {
	Strategy string
	Err      error
}

func (e EvaluationError) Error() string {
	return fmt.Sprintf("strategy %s: evaluate: %v", e.Strategy, e.Err)
}

func (e EvaluationError) Unwrap() error { return e.Err }
