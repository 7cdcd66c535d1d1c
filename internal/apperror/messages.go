package apperror

// messages maps error codes to human-readable messages
var messages = map[Code]string{
	CodeInvalidInput:    "Invalid input provided",
	CodeInvalidState:    "Invalid state for this operation",
	CodeNotFound:        "Resource not found",
	CodeValidationError: "Validation error",

	CodeConfigurationError: "Configuration error",

	CodeExternalServiceError: "External service error",
	CodeServiceTimeout:       "Service request timeout",
	CodeServiceUnavailable:   "Service temporarily unavailable",
	CodeRateLimitExceeded:    "Rate limit exceeded",

	CodeInternalError: "Internal server error",
	CodeUnknownError:  "An unknown error occurred",

	CodeInvalidRequest:    "Invalid routing request",
	CodeUnsupportedLedger: "Ledger is not supported",
	CodeAssetMismatch:     "Amounts are denominated in different assets",

	CodeNoRoute:           "No route found",
	CodeAmountTooLow:      "Amount is too low",
	CodeAmountLessThanFee: "Amount is less than the fee",
	CodeFeeNotConverged:   "Bridging fee did not converge",

	CodeProviderRateLimited:  "Provider rate limit exceeded",
	CodeProviderNoLiquidity:  "Provider has insufficient liquidity",
	CodeProviderInvalidToken: "Provider does not support the token",
	CodeFeeOracleError:       "Fee oracle failed",
	CodeProviderTimeout:      "Provider timed out",
	CodeProviderUnknown:      "Provider failed",
	CodeAggregateFailure:     "All route candidates failed",

	CodeLedgerConnectionFailed: "Failed to connect to ledger node",
	CodeLedgerRPCError:         "Ledger RPC call failed",
	CodeGasEstimationFailed:    "Gas estimation failed",
	CodeBroadcastFailed:        "Transaction broadcast failed",
	CodeConfirmationTimeout:    "Transaction was not confirmed in time",
	CodeTransactionReverted:    "Transaction reverted",
	CodeCompletionTimeout:      "Cross-ledger completion was not observed in time",
	CodeContractCallFailed:     "Smart contract call failed",

	CodeWebSocketConnectionError: "WebSocket connection error",
	CodeWebSocketClosed:          "WebSocket connection closed",
	CodeWebSocketSendError:       "Failed to send WebSocket message",

	CodeBinanceAPIError:    "Binance API error",
	CodeBinanceRateLimited: "Binance rate limit exceeded",
	CodePriceUnavailable:   "USD price unavailable",

	CodeTopologyInvalid: "Routing topology is invalid",

	CodeCircuitOpen: "Circuit breaker is open",
}
