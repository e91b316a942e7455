package resilience

import (
	"context"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
)

// Op is one independent operation run by Gather. Required sources fail
// the whole aggregate when they fail; optional sources only count toward
// the minimum-success threshold.
type Op[T any] struct {
	Name     string
	Required bool
	Run      func(ctx context.Context) (T, error)
}

// GatherResult is the aggregate outcome of running a set of operations.
// PartialFailure is set when at least one optional operation failed but
// the aggregate still met its success threshold.
type GatherResult[T any] struct {
	Values         []T
	Succeeded      []string
	Failed         []string
	PartialFailure bool
}

// GatherError is returned when the aggregate cannot be salvaged: a
// required source failed or fewer than MinSuccesses operations succeeded.
type GatherError struct {
	Failed []string
	Errs   []error
}

func (e *GatherError) Error() string {
	return "gather: sources failed: " + strings.Join(e.Failed, ", ")
}

// Gather runs ops concurrently and collects their results with
// partial-results semantics: individual failures are tolerated and logged
// by the caller, and only a required-source failure or missing the
// minSuccesses floor turns the aggregate into a hard error.
func Gather[T any](ctx context.Context, minSuccesses int, ops []Op[T]) (*GatherResult[T], error) {
	if len(ops) == 0 {
		return &GatherResult[T]{}, nil
	}
	if minSuccesses <= 0 {
		minSuccesses = 1
	}

	type outcome struct {
		name     string
		required bool
		val      T
		err      error
	}

	results := make([]outcome, len(ops))
	var wg sync.WaitGroup
	for i, op := range ops {
		wg.Add(1)
		go func() {
			defer wg.Done()
			val, err := op.Run(ctx)
			results[i] = outcome{name: op.Name, required: op.Required, val: val, err: err}
		}()
	}
	wg.Wait()

	agg := &GatherResult[T]{}
	var errs []error
	requiredFailed := false
	for _, r := range results {
		if r.err != nil {
			agg.Failed = append(agg.Failed, r.name)
			errs = append(errs, eris.Wrapf(r.err, "gather: %s", r.name))
			if r.required {
				requiredFailed = true
			}
			continue
		}
		agg.Succeeded = append(agg.Succeeded, r.name)
		agg.Values = append(agg.Values, r.val)
	}

	if requiredFailed || len(agg.Succeeded) < minSuccesses {
		return nil, &GatherError{Failed: agg.Failed, Errs: errs}
	}

	agg.PartialFailure = len(agg.Failed) > 0
	return agg, nil
}
