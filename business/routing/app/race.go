package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/fd1az/omniroute/internal/apperror"
	"github.com/fd1az/omniroute/internal/asset"
)

// Mode selects how a race picks its winner.
type Mode int

const (
	// BestOf waits for every candidate and keeps the greatest output.
	BestOf Mode = iota
	// FirstSuccess keeps the first candidate to succeed, by completion order.
	FirstSuccess
)

func (m Mode) String() string {
	if m == FirstSuccess {
		return "first-success"
	}
	return "best-of"
}

// Outcome is anything a race can rank by output.
type Outcome interface {
	Output() asset.Amount
}

// Candidate is one contender of a race.
type Candidate[T Outcome] struct {
	Name string
	Run  func(ctx context.Context) (T, error)
}

// RaceOptions configures a race.
type RaceOptions struct {
	Mode Mode
	// Timeout bounds each candidate; zero means only the caller's context.
	Timeout time.Duration
	// Observe, when set, is called once per candidate as it finishes.
	Observe func(candidate string, elapsed time.Duration, err error)
}

type result[T Outcome] struct {
	value   T
	out     asset.Amount
	err     error
	timeout bool
}

// Race runs every candidate concurrently and waits for all of them; losers
// are never cancelled. In BestOf mode the winner is the
// strictly greatest output, ties going to the earlier candidate; outputs in
// different assets are a caller bug and fail the race at once. When every
// candidate fails the error is an *apperror.AggregateError with one failure
// per candidate, in candidate order.
func Race[T Outcome](ctx context.Context, opts RaceOptions, candidates ...Candidate[T]) (T, error) {
	var zero T
	if len(candidates) == 0 {
		return zero, apperror.New(apperror.CodeNoRoute, apperror.WithContext("no candidates"))
	}
	if opts.Mode == FirstSuccess {
		return firstSuccess(ctx, opts, candidates)
	}
	return bestOf(ctx, opts, candidates)
}

func bestOf[T Outcome](ctx context.Context, opts RaceOptions, candidates []Candidate[T]) (T, error) {
	var zero T
	results := make([]result[T], len(candidates))

	g, gctx := errgroup.WithContext(ctx)
	for i, c := range candidates {
		g.Go(func() error {
			results[i] = runCandidate(gctx, opts, c)
			return nil
		})
	}
	_ = g.Wait()

	best := -1
	for i := range results {
		if results[i].err != nil {
			continue
		}
		if best < 0 {
			best = i
			continue
		}
		cmp, err := results[i].out.Cmp(results[best].out)
		if err != nil {
			return zero, apperror.New(apperror.CodeAssetMismatch,
				apperror.WithContext(fmt.Sprintf("%s vs %s", candidates[best].Name, candidates[i].Name)),
				apperror.WithCause(err))
		}
		if cmp > 0 {
			best = i
		}
	}
	if best < 0 {
		return zero, aggregate(candidates, results)
	}
	return results[best].value, nil
}

func firstSuccess[T Outcome](ctx context.Context, opts RaceOptions, candidates []Candidate[T]) (T, error) {
	var zero T
	type indexed struct {
		i int
		r result[T]
	}
	ch := make(chan indexed, len(candidates))
	for i, c := range candidates {
		go func() {
			ch <- indexed{i, runCandidate(ctx, opts, c)}
		}()
	}

	results := make([]result[T], len(candidates))
	winner := -1
	for range candidates {
		got := <-ch
		results[got.i] = got.r
		if got.r.err == nil && winner < 0 {
			winner = got.i
		}
	}
	if winner < 0 {
		return zero, aggregate(candidates, results)
	}
	return results[winner].value, nil
}

func runCandidate[T Outcome](ctx context.Context, opts RaceOptions, c Candidate[T]) (r result[T]) {
	cctx := ctx
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		cctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	start := time.Now()
	defer func() {
		if p := recover(); p != nil {
			r = result[T]{err: fmt.Errorf("candidate %s panicked: %v", c.Name, p)}
		}
		if opts.Observe != nil {
			opts.Observe(c.Name, time.Since(start), r.err)
		}
	}()

	v, err := c.Run(cctx)
	if err != nil {
		timedOut := errors.Is(cctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded)
		return result[T]{err: err, timeout: timedOut}
	}
	out := v.Output()
	if !out.IsSet() {
		return result[T]{err: fmt.Errorf("candidate %s returned no output", c.Name)}
	}
	return result[T]{value: v, out: out}
}

func aggregate[T Outcome](candidates []Candidate[T], results []result[T]) *apperror.AggregateError {
	failures := make([]apperror.Failure, 0, len(results))
	for i, r := range results {
		if r.err == nil {
			continue
		}
		f := apperror.Failure{Candidate: candidates[i].Name, Err: r.err}
		if r.timeout {
			f.Code = apperror.CodeProviderTimeout
			f.Timeout = true
		}
		failures = append(failures, f)
	}
	return apperror.NewAggregate(failures)
}
