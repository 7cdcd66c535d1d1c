package apperror

import (
	"fmt"
	"strings"
)

// Failure is the outcome of one failed candidate of a race.
type Failure struct {
	Candidate string
	Code      Code
	Timeout   bool
	Err       error
}

// AggregateError reports that every candidate of a race failed. It keeps
// each candidate's error so the most specific cause can be surfaced.
type AggregateError struct {
	Failures []Failure
}

// NewAggregate builds an AggregateError, classifying failures whose code
// was left empty.
func NewAggregate(failures []Failure) *AggregateError {
	out := make([]Failure, len(failures))
	for i, f := range failures {
		if f.Code == "" {
			f.Code = ClassifyProvider(f.Err)
		}
		if f.Code == CodeProviderTimeout {
			f.Timeout = true
		}
		out[i] = f
	}
	return &AggregateError{Failures: out}
}

func (e *AggregateError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s: %d candidates failed", CodeAggregateFailure, len(e.Failures))
	for i, f := range e.Failures {
		if i == 0 {
			sb.WriteString(": ")
		} else {
			sb.WriteString("; ")
		}
		fmt.Fprintf(&sb, "%s: %s", f.Candidate, f.Code)
		if f.Err != nil {
			fmt.Fprintf(&sb, " (%v)", f.Err)
		}
	}
	return sb.String()
}

// Errors returns the member errors in candidate order.
func (e *AggregateError) Errors() []error {
	out := make([]error, 0, len(e.Failures))
	for _, f := range e.Failures {
		out = append(out, f.Err)
	}
	return out
}

// Codes returns the member codes in candidate order.
func (e *AggregateError) Codes() []Code {
	out := make([]Code, 0, len(e.Failures))
	for _, f := range e.Failures {
		out = append(out, f.Code)
	}
	return out
}

// Preferred returns the most actionable code among the members.
func (e *AggregateError) Preferred() Code {
	return Preferred(e.Codes()...)
}

func (e *AggregateError) response() []FailureResponse {
	out := make([]FailureResponse, 0, len(e.Failures))
	for _, f := range e.Failures {
		item := FailureResponse{Candidate: f.Candidate, Code: f.Code}
		if f.Timeout {
			item.Tag = "timeout"
		}
		if f.Err != nil {
			item.Message = f.Err.Error()
		}
		out = append(out, item)
	}
	return out
}

// preference orders codes from most to least specific.
var preference = []Code{
	CodeAmountLessThanFee,
	CodeAmountTooLow,
	CodeInvalidRequest,
	CodeProviderInvalidToken,
	CodeProviderNoLiquidity,
	CodeProviderRateLimited,
	CodeFeeOracleError,
	CodeFeeNotConverged,
	CodeProviderTimeout,
	CodeCircuitOpen,
	CodeProviderUnknown,
	CodeAggregateFailure,
	CodeNoRoute,
}

// Preferred picks the most specific code. Codes outside the ranking lose to
// every ranked code; with no codes it returns CodeNoRoute.
func Preferred(codes ...Code) Code {
	best, bestRank := Code(""), len(preference)+1
	for _, c := range codes {
		rank := len(preference)
		for i, p := range preference {
			if p == c {
				rank = i
				break
			}
		}
		if rank < bestRank {
			best, bestRank = c, rank
		}
	}
	if best == "" {
		return CodeNoRoute
	}
	return best
}

// Surface turns a race failure into the single error a caller should see.
// An aggregate whose members agree on an actionable kind (amount too low,
// invalid request, no route) is reported as that kind, keeping the
// aggregate as cause. Anything else stays an aggregate failure.
func Surface(err error) error {
	agg, ok := err.(*AggregateError)
	if !ok {
		return err
	}
	code := agg.Preferred()
	switch KindOf(code) {
	case KindAmountTooLow, KindInvalidRequest, KindNoRoute:
		return New(code, WithCause(agg))
	}
	return New(CodeAggregateFailure, WithCause(agg), WithContext(string(code)))
}
