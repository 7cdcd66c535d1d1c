package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/omniroute/business/pricing/domain"
	"github.com/fd1az/omniroute/internal/apperror"
	"github.com/fd1az/omniroute/internal/logger"
	"github.com/fd1az/omniroute/internal/wsconn"
)

const (
	tracerName = "binance"
	meterName  = "binance"

	// Binance WebSocket endpoints
	BaseWSURL     = "wss://stream.binance.com:9443"
	DataStreamURL = "wss://data-stream.binance.vision"
	// Binance US endpoint (for users in USA)
	BaseWSURLUS = "wss://stream.binance.us:9443"
)

// ClientConfig holds configuration for the Binance stream client.
type ClientConfig struct {
	BaseURL      string        // WebSocket base URL
	Symbols      []string      // Markets to subscribe (e.g., "ETHUSDT")
	ReadTimeout  time.Duration // Read timeout
	WriteTimeout time.Duration // Write timeout
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig(symbols []string) ClientConfig {
	return ClientConfig{
		BaseURL:      BaseWSURL,
		Symbols:      symbols,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
}

// clientMetrics holds OTEL metric instruments.
type clientMetrics struct {
	messagesReceived metric.Int64Counter
	tickerUpdates    metric.Int64Counter
	parseErrors      metric.Int64Counter
}

// Client keeps the latest bookTicker of every configured market.
type Client struct {
	config ClientConfig
	logger logger.LoggerInterface

	conn   *wsconn.Client
	connMu sync.RWMutex

	tickersMu sync.RWMutex
	tickers   map[string]domain.Ticker

	now     func() time.Time
	tracer  trace.Tracer
	metrics *clientMetrics
}

// NewClient creates a new Binance stream client. It does not dial.
func NewClient(cfg ClientConfig, log logger.LoggerInterface) (*Client, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = BaseWSURL
	}
	c := &Client{
		config:  cfg,
		logger:  log,
		tickers: make(map[string]domain.Ticker, len(cfg.Symbols)),
		now:     time.Now,
		tracer:  otel.Tracer(tracerName),
	}

	if err := c.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	return c, nil
}

func (c *Client) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	c.metrics = &clientMetrics{}

	c.metrics.messagesReceived, err = meter.Int64Counter(
		"binance_messages_total",
		metric.WithDescription("Total messages received"),
	)
	if err != nil {
		return err
	}

	c.metrics.tickerUpdates, err = meter.Int64Counter(
		"binance_ticker_updates_total",
		metric.WithDescription("Book ticker updates applied"),
	)
	if err != nil {
		return err
	}

	c.metrics.parseErrors, err = meter.Int64Counter(
		"binance_parse_errors_total",
		metric.WithDescription("Message parse errors"),
	)
	return err
}

// Connect dials the combined bookTicker stream, retrying until ctx ends.
// Drops after a successful dial are redialed in the background.
func (c *Client) Connect(ctx context.Context) error {
	ctx, span := c.tracer.Start(ctx, "binance.connect",
		trace.WithAttributes(
			attribute.StringSlice("symbols", c.config.Symbols),
		),
	)
	defer span.End()

	wsURL, err := c.buildStreamURL()
	if err != nil {
		return err
	}

	wsCfg := wsconn.DefaultConfig(wsURL, "binance")
	wsCfg.ReadTimeout = c.config.ReadTimeout
	wsCfg.WriteTimeout = c.config.WriteTimeout

	conn, err := wsconn.New(wsCfg)
	if err != nil {
		return apperror.New(apperror.CodeWebSocketConnectionError,
			apperror.WithCause(err),
			apperror.WithContext("failed to create wsconn"))
	}
	conn.OnMessage(c.handleMessage)
	conn.OnStateChange(func(state wsconn.State, err error) {
		if err != nil {
			c.logger.Warn(context.Background(), "binance stream state changed", "state", string(state), "error", err)
			return
		}
		c.logger.Debug(context.Background(), "binance stream state changed", "state", string(state))
	})

	c.connMu.Lock()
	c.conn = conn
	c.connMu.Unlock()

	if err := conn.ConnectWithRetry(ctx); err != nil {
		span.RecordError(err)
		return apperror.New(apperror.CodeWebSocketConnectionError,
			apperror.WithCause(err),
			apperror.WithContext("failed to connect to Binance"))
	}

	c.logger.Info(ctx, "binance client connected",
		"url", wsURL,
		"symbols", c.config.Symbols)
	return nil
}

// buildStreamURL constructs the combined streams WebSocket URL. The
// subscription lives in the URL, so redials resubscribe on their own.
func (c *Client) buildStreamURL() (string, error) {
	if len(c.config.Symbols) == 0 {
		return "", apperror.New(apperror.CodeConfigurationError,
			apperror.WithContext("no symbols configured"))
	}

	streams := make([]string, 0, len(c.config.Symbols))
	for _, sym := range c.config.Symbols {
		streams = append(streams, BookTickerStream(sym))
	}

	// Combined streams URL: /stream?streams=stream1/stream2/...
	u, err := url.Parse(c.config.BaseURL)
	if err != nil {
		return "", apperror.New(apperror.CodeConfigurationError, apperror.WithCause(err))
	}
	u.Path = "/stream"
	u.RawQuery = "streams=" + strings.Join(streams, "/")
	return u.String(), nil
}

// handleMessage applies one combined-stream frame.
func (c *Client) handleMessage(ctx context.Context, data []byte) {
	c.metrics.messagesReceived.Add(ctx, 1)

	var event StreamEvent
	if err := json.Unmarshal(data, &event); err != nil || event.Stream == "" {
		var resp WSResponse
		if json.Unmarshal(data, &resp) == nil && resp.ID != 0 {
			return
		}
		c.metrics.parseErrors.Add(ctx, 1)
		c.logger.Debug(ctx, "failed to parse message", "data", string(data[:min(len(data), 500)]))
		return
	}

	if !strings.HasSuffix(event.Stream, "@bookTicker") {
		return
	}

	var bt BookTickerEvent
	if err := json.Unmarshal(event.Data, &bt); err != nil {
		c.metrics.parseErrors.Add(ctx, 1)
		return
	}
	bid, err := bt.ParseBidPrice()
	if err != nil {
		c.metrics.parseErrors.Add(ctx, 1)
		return
	}
	ask, err := bt.ParseAskPrice()
	if err != nil {
		c.metrics.parseErrors.Add(ctx, 1)
		return
	}

	symbol := strings.ToUpper(bt.Symbol)
	if symbol == "" {
		symbol = symbolFromStream(event.Stream)
	}
	c.tickersMu.Lock()
	c.tickers[symbol] = domain.Ticker{Symbol: symbol, Bid: bid, Ask: ask, UpdatedAt: c.now()}
	c.tickersMu.Unlock()

	c.metrics.tickerUpdates.Add(ctx, 1, metric.WithAttributes(attribute.String("symbol", symbol)))
}

// Ticker returns the latest ticker of market.
func (c *Client) Ticker(market string) (domain.Ticker, bool) {
	c.tickersMu.RLock()
	defer c.tickersMu.RUnlock()
	t, ok := c.tickers[strings.ToUpper(market)]
	return t, ok
}

// Connected reports whether the stream is currently open.
func (c *Client) Connected() bool {
	c.connMu.RLock()
	defer c.connMu.RUnlock()
	return c.conn != nil && c.conn.IsConnected()
}

// Close closes the stream.
func (c *Client) Close() error {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
