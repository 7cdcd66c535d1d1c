package apperror

// Code represents a unique error code for the application
type Code string

// General error codes
const (
	CodeInvalidInput    Code = "INVALID_INPUT"
	CodeInvalidState    Code = "INVALID_STATE"
	CodeNotFound        Code = "NOT_FOUND"
	CodeValidationError Code = "VALIDATION_ERROR"

	CodeConfigurationError Code = "CONFIGURATION_ERROR"

	CodeExternalServiceError Code = "EXTERNAL_SERVICE_ERROR"
	CodeServiceTimeout       Code = "SERVICE_TIMEOUT"
	CodeServiceUnavailable   Code = "SERVICE_UNAVAILABLE"
	CodeRateLimitExceeded    Code = "RATE_LIMIT_EXCEEDED"

	CodeInternalError Code = "INTERNAL_ERROR"
	CodeUnknownError  Code = "UNKNOWN_ERROR"
)

// Routing error codes. Every routing failure maps to exactly one of these.
const (
	// Request validation
	CodeInvalidRequest    Code = "INVALID_REQUEST"
	CodeUnsupportedLedger Code = "UNSUPPORTED_LEDGER"
	CodeAssetMismatch     Code = "ASSET_MISMATCH"

	// Routing outcome
	CodeNoRoute           Code = "NO_ROUTE"
	CodeAmountTooLow      Code = "AMOUNT_TOO_LOW"
	CodeAmountLessThanFee Code = "AMOUNT_LESS_THAN_FEE"
	CodeFeeNotConverged   Code = "FEE_NOT_CONVERGED"

	// Provider failures
	CodeProviderRateLimited  Code = "PROVIDER_RATE_LIMITED"
	CodeProviderNoLiquidity  Code = "PROVIDER_NO_LIQUIDITY"
	CodeProviderInvalidToken Code = "PROVIDER_INVALID_TOKEN"
	CodeFeeOracleError       Code = "PROVIDER_ORACLE_ERROR"
	CodeProviderTimeout      Code = "PROVIDER_TIMEOUT"
	CodeProviderUnknown      Code = "PROVIDER_UNKNOWN"
	CodeAggregateFailure     Code = "AGGREGATE_FAILURE"
)

// Infrastructure error codes
const (
	// Ledger RPC
	CodeLedgerConnectionFailed Code = "LEDGER_CONNECTION_FAILED"
	CodeLedgerRPCError         Code = "LEDGER_RPC_ERROR"
	CodeGasEstimationFailed    Code = "GAS_ESTIMATION_FAILED"
	CodeBroadcastFailed        Code = "BROADCAST_FAILED"
	CodeConfirmationTimeout    Code = "CONFIRMATION_TIMEOUT"
	CodeTransactionReverted    Code = "TRANSACTION_REVERTED"
	CodeCompletionTimeout      Code = "COMPLETION_TIMEOUT"
	CodeContractCallFailed     Code = "CONTRACT_CALL_FAILED"

	// WebSocket
	CodeWebSocketConnectionError Code = "WEBSOCKET_CONNECTION_ERROR"
	CodeWebSocketClosed          Code = "WEBSOCKET_CLOSED"
	CodeWebSocketSendError       Code = "WEBSOCKET_SEND_ERROR"

	// Price reference
	CodeBinanceAPIError    Code = "BINANCE_API_ERROR"
	CodeBinanceRateLimited Code = "BINANCE_RATE_LIMITED"
	CodePriceUnavailable   Code = "PRICE_UNAVAILABLE"

	// Topology
	CodeTopologyInvalid Code = "TOPOLOGY_INVALID"

	// Circuit breaker
	CodeCircuitOpen Code = "CIRCUIT_OPEN"
)
