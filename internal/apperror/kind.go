package apperror

// Kind is the coarse failure taxonomy callers branch on. Codes refine it.
type Kind string

const (
	KindInvalidRequest   Kind = "InvalidRequest"
	KindNoRoute          Kind = "NoRoute"
	KindAmountTooLow     Kind = "AmountTooLow"
	KindProviderError    Kind = "ProviderError"
	KindAggregateFailure Kind = "AggregateFailure"
	KindInternal         Kind = "Internal"
)

// KindOf maps a code onto its kind.
func KindOf(code Code) Kind {
	switch code {
	case CodeInvalidRequest, CodeUnsupportedLedger, CodeAssetMismatch,
		CodeInvalidInput, CodeValidationError:
		return KindInvalidRequest
	case CodeNoRoute:
		return KindNoRoute
	case CodeAmountTooLow, CodeAmountLessThanFee:
		return KindAmountTooLow
	case CodeProviderRateLimited, CodeProviderNoLiquidity, CodeProviderInvalidToken,
		CodeFeeOracleError, CodeProviderTimeout, CodeProviderUnknown, CodeFeeNotConverged,
		CodeCircuitOpen:
		return KindProviderError
	case CodeAggregateFailure:
		return KindAggregateFailure
	}
	return KindInternal
}

// Kind returns the kind of the error's code.
func (e *AppError) Kind() Kind {
	return KindOf(e.Code)
}

// GetKind extracts the kind from any error.
func GetKind(err error) Kind {
	return KindOf(GetCode(err))
}
