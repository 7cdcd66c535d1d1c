package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/omniroute/internal/apperror"
	"github.com/fd1az/omniroute/internal/httpclient"
	"github.com/fd1az/omniroute/internal/logger"
	"github.com/fd1az/omniroute/internal/ratelimit"
)

const (
	// Binance REST API endpoints
	BaseAPIURL   = "https://api.binance.com"
	BaseAPIURLUS = "https://api.binance.us"

	tickerPriceEndpoint = "/api/v3/ticker/price"

	httpTimeout = 10 * time.Second
	// well under the 6000 request weight per minute Binance allows
	restRequestsPerSecond = 10
)

// HTTPClientConfig holds configuration for the Binance HTTP client.
type HTTPClientConfig struct {
	BaseURL string        // API base URL (empty = default)
	Timeout time.Duration // Request timeout
}

// HTTPClient provides Binance REST access for fallback prices.
type HTTPClient struct {
	client httpclient.Client
	logger logger.LoggerInterface
	tracer trace.Tracer
}

// NewHTTPClient creates a new Binance HTTP client.
func NewHTTPClient(cfg HTTPClientConfig, log logger.LoggerInterface) (*HTTPClient, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = BaseAPIURL
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = httpTimeout
	}

	client, err := httpclient.New(
		httpclient.WithProviderName("binance"),
		httpclient.WithBaseURL(baseURL),
		httpclient.WithRequestTimeout(timeout),
		httpclient.WithRateLimiter(ratelimit.New("binance", restRequestsPerSecond, restRequestsPerSecond)),
		httpclient.WithErrorHandler(binanceErrorHandler),
		httpclient.WithHeaders(map[string]string{
			"Accept": "application/json",
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP client: %w", err)
	}

	return &HTTPClient{
		client: client,
		logger: log,
		tracer: otel.Tracer(tracerName),
	}, nil
}

// LastPrice fetches the last trade price of symbol.
func (c *HTTPClient) LastPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	ctx, span := c.tracer.Start(ctx, "binance.http.ticker_price",
		trace.WithAttributes(attribute.String("symbol", symbol)),
	)
	defer span.End()

	var result TickerPriceResponse
	_, err := c.client.NewRequest(
		httpclient.WithLabels(httpclient.NewLabel("endpoint", "ticker_price")),
	).
		SetQueryParam("symbol", symbol).
		SetResult(&result).
		Get(ctx, tickerPriceEndpoint)
	if err != nil {
		span.RecordError(err)
		return decimal.Zero, apperror.New(apperror.GetCode(err),
			apperror.WithCause(err),
			apperror.WithContext("ticker price "+symbol))
	}

	price, err := decimal.NewFromString(result.Price)
	if err != nil {
		return decimal.Zero, apperror.New(apperror.CodeBinanceAPIError,
			apperror.WithCause(err),
			apperror.WithContext(fmt.Sprintf("malformed price %q for %s", result.Price, symbol)))
	}

	span.SetAttributes(attribute.String("price", price.String()))
	c.logger.Debug(ctx, "fetched price via HTTP", "symbol", symbol, "price", price.String())
	return price, nil
}

// BinanceAPIError represents an error response from Binance API.
type BinanceAPIError struct {
	Code    int    `json:"code"`
	Message string `json:"msg"`
}

func (e *BinanceAPIError) Error() string {
	return fmt.Sprintf("binance API error %d: %s", e.Code, e.Message)
}

// binanceErrorHandler maps Binance error bodies onto app errors.
func binanceErrorHandler(statusCode int, body []byte) error {
	if statusCode < 400 {
		return nil
	}
	code := apperror.CodeBinanceAPIError
	if statusCode == 429 || statusCode == 418 {
		code = apperror.CodeBinanceRateLimited
	}
	var apiErr BinanceAPIError
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Code != 0 {
		return apperror.New(code, apperror.WithCause(&apiErr))
	}
	return apperror.New(code, apperror.WithContext(fmt.Sprintf("HTTP %d: %s", statusCode, string(body))))
}
