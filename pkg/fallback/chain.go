// Package fallback runs an ordered list of strategies and stops at the first one that succeeds.
package fallback

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrExhausted is returned when every strategy failed.
var ErrExhausted = errors.New("all strategies failed")

type Strategy[In, Out any] struct {
	Name string
	Try  func(ctx context.Context, in In) (Out, error)
}

type Failure struct {
	Strategy string
	Reason   string
}

type Outcome[Out any] struct {
	Value    Out
	Strategy string
	Failures []Failure
}

// Skipped reports the reasons of every strategy that ran before the winner.
func (o Outcome[Out]) Skipped() []string {
	reasons := make([]string, 0, len(o.Failures))
	for _, f := range o.Failures {
		reasons = append(reasons, f.Strategy+": "+f.Reason)
	}
	return reasons
}

type Chain[In, Out any] struct {
	strategies []Strategy[In, Out]
}

func New[In, Out any](strategies ...Strategy[In, Out]) *Chain[In, Out] {
	return &Chain[In, Out]{strategies: strategies}
}

func (c *Chain[In, Out]) Run(ctx context.Context, in In) (Outcome[Out], error) {
	var outcome Outcome[Out]
	for _, s := range c.strategies {
		if err := ctx.Err(); err != nil {
			return outcome, err
		}
		v, err := s.Try(ctx, in)
		if err == nil {
			outcome.Value = v
			outcome.Strategy = s.Name
			return outcome, nil
		}
		outcome.Failures = append(outcome.Failures, Failure{Strategy: s.Name, Reason: err.Error()})
	}
	return outcome, fmt.Errorf("%w: %s", ErrExhausted, strings.Join(outcome.Skipped(), "; "))
}
