package apperror

import (
	"context"
	"errors"
	"strings"
)

// Providers report failures as free text. The patterns below are matched
// case-insensitively against the whole error chain's message.
var providerPatterns = []struct {
	code    Code
	needles []string
}{
	{CodeAmountLessThanFee, []string{"less than fee", "lower than fee", "amount is less than"}},
	{CodeAmountTooLow, []string{"amount too low", "amount is too low", "amount too small", "amount is too small", "dust", "below minimum", "not enough to pay"}},
	{CodeProviderRateLimited, []string{"rate limit", "too many requests", "status 429", "quota"}},
	{CodeProviderNoLiquidity, []string{"insufficient liquidity", "no liquidity", "not enough liquidity", "liquidity", "no route", "cannot find", "swap path"}},
	{CodeProviderInvalidToken, []string{"invalid token", "unknown token", "token not supported", "unsupported token", "invalid asset", "unknown asset", "not supported"}},
}

// ClassifyProvider maps a provider failure to a routing code. Errors that
// already carry a routing code keep it.
func ClassifyProvider(err error) Code {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return CodeProviderTimeout
	}
	var agg *AggregateError
	if errors.As(err, &agg) {
		return agg.Preferred()
	}
	if code := GetCode(err); isRoutingCode(code) {
		return code
	}

	text := chainText(err)
	for _, p := range providerPatterns {
		for _, n := range p.needles {
			if strings.Contains(text, n) {
				return p.code
			}
		}
	}
	return CodeProviderUnknown
}

// Provider wraps a failure of the named provider with its classified code.
func Provider(provider string, err error) *AppError {
	if err == nil {
		return nil
	}
	return New(ClassifyProvider(err), WithContext(provider), WithCause(err))
}

func isRoutingCode(code Code) bool {
	switch KindOf(code) {
	case KindInvalidRequest, KindNoRoute, KindAmountTooLow, KindProviderError, KindAggregateFailure:
		return true
	}
	return false
}

// chainText joins the messages of err and every error it wraps, since
// AppError.Error does not repeat its cause.
func chainText(err error) string {
	var sb strings.Builder
	for e := err; e != nil; e = errors.Unwrap(e) {
		sb.WriteString(strings.ToLower(e.Error()))
		sb.WriteByte('\n')
	}
	return sb.String()
}
