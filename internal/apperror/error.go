package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"runtime"
	"strings"
	"time"
)

// AppError is a coded failure. Message comes from the messages table,
// Context says what was being done, and the cause is kept for errors.Is/As
// but never rendered to API clients.
type AppError struct {
	Code       Code
	Message    string
	StatusCode int
	Context    string
	TraceID    string
	Timestamp  time.Time
	cause      error
	stack      []uintptr
}

func (e *AppError) Error() string {
	if e.Context != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Context)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.cause
}

// Is matches any AppError with the same code.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithTraceID sets the trace ID for distributed tracing
func (e *AppError) WithTraceID(traceID string) *AppError {
	e.TraceID = traceID
	return e
}

// Response is the JSON body of a failed API call.
type Response struct {
	Error ResponseError `json:"error"`
}

type ResponseError struct {
	Code      Code              `json:"code"`
	Kind      Kind              `json:"kind"`
	Message   string            `json:"message"`
	Context   string            `json:"context,omitempty"`
	TraceID   string            `json:"traceId,omitempty"`
	Timestamp string            `json:"timestamp"`
	Failures  []FailureResponse `json:"failures,omitempty"`
}

// FailureResponse describes one failed race candidate.
type FailureResponse struct {
	Candidate string `json:"candidate"`
	Code      Code   `json:"code"`
	Tag       string `json:"tag,omitempty"`
	Message   string `json:"message,omitempty"`
}

// ToResponse renders the error for API clients. Race failures list every
// candidate.
func (e *AppError) ToResponse() Response {
	body := ResponseError{
		Code:      e.Code,
		Kind:      KindOf(e.Code),
		Message:   e.Message,
		Context:   e.Context,
		TraceID:   e.TraceID,
		Timestamp: e.Timestamp.Format(time.RFC3339),
	}
	var agg *AggregateError
	if errors.As(e.cause, &agg) {
		body.Failures = agg.response()
	}
	return Response{Error: body}
}

// ToLog flattens the error, its cause and stack for structured logs.
func (e *AppError) ToLog() map[string]any {
	out := map[string]any{
		"code":       e.Code,
		"kind":       KindOf(e.Code),
		"statusCode": e.StatusCode,
	}
	if e.Context != "" {
		out["context"] = e.Context
	}
	if e.TraceID != "" {
		out["traceId"] = e.TraceID
	}
	if e.cause != nil {
		out["cause"] = e.cause.Error()
	}
	if len(e.stack) > 0 {
		out["stack"] = e.formatStack()
	}
	return out
}

func (e *AppError) formatStack() string {
	var sb strings.Builder
	frames := runtime.CallersFrames(e.stack)
	for {
		frame, more := frames.Next()
		if !strings.Contains(frame.File, "runtime/") {
			fmt.Fprintf(&sb, "\n\t%s:%d %s", frame.File, frame.Line, frame.Function)
		}
		if !more {
			break
		}
	}
	return sb.String()
}

func captureStack() []uintptr {
	var pcs [32]uintptr
	n := runtime.Callers(3, pcs[:])
	return pcs[:n]
}

// New creates an AppError for code.
func New(code Code, opts ...Option) *AppError {
	err := &AppError{
		Code:       code,
		Message:    messages[code],
		StatusCode: StatusOf(code),
		Timestamp:  time.Now(),
		stack:      captureStack(),
	}
	for _, opt := range opts {
		opt(err)
	}
	if err.Message == "" {
		err.Message = string(code)
	}
	return err
}

// Option is a functional option for AppError
type Option func(*AppError)

// WithContext adds context information
func WithContext(context string) Option {
	return func(e *AppError) {
		e.Context = context
	}
}

// WithStatusCode overrides the code's HTTP status.
func WithStatusCode(statusCode int) Option {
	return func(e *AppError) {
		e.StatusCode = statusCode
	}
}

// WithCause wraps an underlying error
func WithCause(cause error) Option {
	return func(e *AppError) {
		e.cause = cause
	}
}

// Validation reports a request the caller must change.
func Validation(code Code, context string) *AppError {
	return New(code, WithContext(context), WithStatusCode(http.StatusBadRequest))
}

// Internal reports a failure of the router itself.
func Internal(code Code, context string, cause error) *AppError {
	return New(code, WithContext(context), WithCause(cause), WithStatusCode(http.StatusInternalServerError))
}

// GetCode extracts the code from err. Bare race failures report
// AGGREGATE_FAILURE.
func GetCode(err error) Code {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	var agg *AggregateError
	if errors.As(err, &agg) {
		return CodeAggregateFailure
	}
	return CodeUnknownError
}

// StatusOf returns the HTTP status of code: an explicit entry first, then
// its kind.
func StatusOf(code Code) int {
	if status, ok := statusCodes[code]; ok {
		return status
	}
	switch KindOf(code) {
	case KindInvalidRequest:
		return http.StatusBadRequest
	case KindNoRoute, KindAmountTooLow:
		return http.StatusUnprocessableEntity
	case KindProviderError, KindAggregateFailure:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

var statusCodes = map[Code]int{
	CodeNotFound:             http.StatusNotFound,
	CodeProviderNoLiquidity:  http.StatusUnprocessableEntity,
	CodeProviderInvalidToken: http.StatusUnprocessableEntity,
	CodeProviderRateLimited:  http.StatusTooManyRequests,
	CodeRateLimitExceeded:    http.StatusTooManyRequests,
	CodeBinanceRateLimited:   http.StatusTooManyRequests,
	CodeProviderTimeout:      http.StatusGatewayTimeout,
	CodeConfirmationTimeout:  http.StatusGatewayTimeout,
	CodeCompletionTimeout:    http.StatusGatewayTimeout,
	CodeTransactionReverted:  http.StatusUnprocessableEntity,
	CodeBroadcastFailed:      http.StatusBadGateway,
	CodeLedgerRPCError:       http.StatusBadGateway,
	CodeCircuitOpen:          http.StatusServiceUnavailable,
	CodeServiceUnavailable:   http.StatusServiceUnavailable,
	CodeServiceTimeout:       http.StatusServiceUnavailable,

	CodeLedgerConnectionFailed:   http.StatusServiceUnavailable,
	CodeWebSocketConnectionError: http.StatusServiceUnavailable,
}
