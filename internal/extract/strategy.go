// Package extract implements the extraction engine: two interchangeable
// strategies populating the same typed record, and a coordinator that falls
// back from the generative strategy to the pattern strategy on failure.
package extract

import (
	"context"
	"fmt"

	"github.com/sells-group/cre-extract/internal/model"
)

// Strategy mines a document's text into a fully populated record. Strategies
// are mutually unaware; only the coordinator knows both.
type Strategy interface {
	Name() string
	Extract(ctx context.Context, doc model.Document) (*model.Record, error)
}

// StrategyError is a whole-attempt failure: the strategy produced no usable
// record and the coordinator should fall back (or surface it).
type StrategyError struct {
	Strategy string
	Reason   string
	Err      error
}

func (e *StrategyError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s strategy: %s: %v", e.Strategy, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s strategy: %s", e.Strategy, e.Reason)
}

func (e *StrategyError) Unwrap() error {
	return e.Err
}

func strategyFailure(strategy, reason string, err error) *StrategyError {
	return &StrategyError{Strategy: strategy, Reason: reason, Err: err}
}
