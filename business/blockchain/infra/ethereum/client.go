package ethereum

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/omniroute/business/blockchain/app"
	"github.com/fd1az/omniroute/business/blockchain/domain"
	"github.com/fd1az/omniroute/internal/apperror"
	"github.com/fd1az/omniroute/internal/cache"
	"github.com/fd1az/omniroute/internal/circuitbreaker"
	"github.com/fd1az/omniroute/internal/config"
	"github.com/fd1az/omniroute/internal/logger"
)

var _ app.Ledger = (*Client)(nil)

// ClientConfig holds the settings of one ledger connection.
type ClientConfig struct {
	ChainID            uint64
	URL                string
	Confirmations      uint64
	PollInterval       time.Duration
	GasCacheTTL        time.Duration
	MaxGasPrice        *big.Int // nil disables the cap
	GasMarginPercent   uint64
	CompletionLookback uint64
	ConfirmTimeout     time.Duration
	CompletionTimeout  time.Duration
}

// ConfigFrom maps a ledger section onto a ClientConfig. The websocket URL
// is preferred when both are set.
func ConfigFrom(l config.LedgerConfig) ClientConfig {
	cfg := ClientConfig{
		ChainID:            l.ChainID,
		URL:                l.RPCURL,
		Confirmations:      l.Confirmations,
		PollInterval:       l.PollInterval,
		GasCacheTTL:        l.GasCacheTTL,
		GasMarginPercent:   10,
		CompletionLookback: l.CompletionLookback,
		ConfirmTimeout:     l.ConfirmTimeout,
		CompletionTimeout:  l.CompletionTimeout,
	}
	if l.WSURL != "" {
		cfg.URL = l.WSURL
	}
	if l.MaxGasPriceGwei > 0 {
		cfg.MaxGasPrice = new(big.Int).Mul(big.NewInt(l.MaxGasPriceGwei), big.NewInt(1e9))
	}
	return cfg.withDefaults()
}

func (c ClientConfig) withDefaults() ClientConfig {
	if c.Confirmations == 0 {
		c.Confirmations = 1
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 4 * time.Second
	}
	if c.GasCacheTTL <= 0 {
		c.GasCacheTTL = 12 * time.Second
	}
	if c.CompletionLookback == 0 {
		c.CompletionLookback = 1000
	}
	return c
}

// clientMetrics holds OTEL metric instruments.
type clientMetrics struct {
	gasPriceGwei  metric.Float64Gauge
	estimates     metric.Int64Counter
	cacheHits     metric.Int64Counter
	broadcasts    metric.Int64Counter
	confirmations metric.Float64Histogram
	completions   metric.Int64Counter
}

// Client implements app.Ledger over JSON-RPC.
type Client struct {
	config ClientConfig
	logger logger.LoggerInterface

	node   Node
	nodeMu sync.RWMutex
	state  domain.ConnectionState

	priceCache *cache.Cache[uint64, *domain.GasPrice]
	cb         *circuitbreaker.CircuitBreaker[*big.Int]

	tracer  trace.Tracer
	metrics *clientMetrics
}

// NewClient creates a client; Connect dials the node.
func NewClient(cfg ClientConfig, log logger.LoggerInterface) (*Client, error) {
	c := &Client{
		config:     cfg.withDefaults(),
		logger:     log,
		state:      domain.StateDisconnected,
		priceCache: cache.New[uint64, *domain.GasPrice](5 * time.Minute),
		cb:         circuitbreaker.New[*big.Int](circuitbreaker.DefaultConfig(fmt.Sprintf("ledger-%d", cfg.ChainID))),
		tracer:     otel.Tracer(tracerName),
	}
	if err := c.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}
	return c, nil
}

// NewClientWithNode creates a client over an already connected node.
func NewClientWithNode(cfg ClientConfig, node Node, log logger.LoggerInterface) (*Client, error) {
	c, err := NewClient(cfg, log)
	if err != nil {
		return nil, err
	}
	c.node = node
	c.state = domain.StateConnected
	return c, nil
}

func (c *Client) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error
	c.metrics = &clientMetrics{}

	c.metrics.gasPriceGwei, err = meter.Float64Gauge(
		"ledger_gas_price_gwei",
		metric.WithDescription("Current gas price in gwei"),
		metric.WithUnit("gwei"),
	)
	if err != nil {
		return err
	}

	c.metrics.estimates, err = meter.Int64Counter(
		"ledger_gas_estimates_total",
		metric.WithDescription("Total gas estimation calls"),
		metric.WithUnit("{estimate}"),
	)
	if err != nil {
		return err
	}

	c.metrics.cacheHits, err = meter.Int64Counter(
		"ledger_gas_cache_hits_total",
		metric.WithDescription("Gas price cache hits"),
		metric.WithUnit("{hit}"),
	)
	if err != nil {
		return err
	}

	c.metrics.broadcasts, err = meter.Int64Counter(
		"ledger_broadcasts_total",
		metric.WithDescription("Raw transactions submitted"),
		metric.WithUnit("{tx}"),
	)
	if err != nil {
		return err
	}

	c.metrics.confirmations, err = meter.Float64Histogram(
		"ledger_confirmation_seconds",
		metric.WithDescription("Time from broadcast to required confirmations"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return err
	}

	c.metrics.completions, err = meter.Int64Counter(
		"ledger_completions_total",
		metric.WithDescription("Observed bridge completions by status"),
		metric.WithUnit("{completion}"),
	)
	return err
}

// Connect dials the node.
func (c *Client) Connect(ctx context.Context) error {
	ctx, span := c.tracer.Start(ctx, "ledger.connect",
		trace.WithAttributes(attribute.Int64("chain_id", int64(c.config.ChainID))),
	)
	defer span.End()

	c.nodeMu.Lock()
	c.state = domain.StateConnecting
	c.nodeMu.Unlock()

	node, err := ethclient.DialContext(ctx, c.config.URL)
	if err != nil {
		c.nodeMu.Lock()
		c.state = domain.StateDisconnected
		c.nodeMu.Unlock()
		span.RecordError(err)
		span.SetStatus(codes.Error, "dial failed")
		return apperror.New(apperror.CodeLedgerConnectionFailed,
			apperror.WithCause(err),
			apperror.WithContext(fmt.Sprintf("dial ledger %d", c.config.ChainID)))
	}

	c.nodeMu.Lock()
	c.node = node
	c.state = domain.StateConnected
	c.nodeMu.Unlock()

	span.SetStatus(codes.Ok, "connected")
	c.logger.Info(ctx, "ledger connected", "chain_id", c.config.ChainID)
	return nil
}

func (c *Client) ChainID() uint64 { return c.config.ChainID }

// Caller returns the client itself, so adapters built before Connect
// reach whatever node is current.
func (c *Client) Caller() ethereum.ContractCaller { return c }

// CallContract forwards a read-only call to the node.
func (c *Client) CallContract(ctx context.Context, msg ethereum.CallMsg, block *big.Int) ([]byte, error) {
	node, err := c.connected()
	if err != nil {
		return nil, err
	}
	return node.CallContract(ctx, msg, block)
}

func (c *Client) State() domain.ConnectionState {
	c.nodeMu.RLock()
	defer c.nodeMu.RUnlock()
	return c.state
}

// Healthy reports a connected node behind a closed circuit.
func (c *Client) Healthy() bool {
	return c.State() == domain.StateConnected && c.cb.Healthy()
}

func (c *Client) connected() (Node, error) {
	c.nodeMu.RLock()
	defer c.nodeMu.RUnlock()
	if c.node == nil {
		return nil, apperror.New(apperror.CodeLedgerConnectionFailed,
			apperror.WithContext(fmt.Sprintf("ledger %d not connected", c.config.ChainID)))
	}
	return c.node, nil
}

// GasPrice returns the suggested gas price, cached for about a block and
// capped at MaxGasPrice.
func (c *Client) GasPrice(ctx context.Context) (*domain.GasPrice, error) {
	ctx, span := c.tracer.Start(ctx, "ledger.gas_price")
	defer span.End()

	if price, found := c.priceCache.Get(ctx, c.config.ChainID); found {
		c.metrics.cacheHits.Add(ctx, 1)
		span.AddEvent("cache_hit")
		return price, nil
	}

	node, err := c.connected()
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	wei, err := c.cb.Execute(func() (*big.Int, error) {
		return node.SuggestGasPrice(ctx)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch failed")
		return nil, apperror.New(apperror.CodeLedgerRPCError,
			apperror.WithCause(err),
			apperror.WithContext("failed to get gas price"))
	}

	if c.config.MaxGasPrice != nil && wei.Cmp(c.config.MaxGasPrice) > 0 {
		span.AddEvent("gas_price_exceeded_max",
			trace.WithAttributes(attribute.String("wei", wei.String())))
		c.logger.Warn(ctx, "gas price exceeds max", "chain_id", c.config.ChainID, "wei", wei.String())
		wei = c.config.MaxGasPrice
	}

	price := domain.NewGasPrice(wei)
	c.priceCache.Set(ctx, c.config.ChainID, price, c.config.GasCacheTTL)
	c.metrics.gasPriceGwei.Record(ctx, price.Gwei(),
		metric.WithAttributes(attribute.Int64("chain_id", int64(c.config.ChainID))))

	span.SetAttributes(attribute.Float64("gwei", price.Gwei()))
	return price, nil
}

// Estimate returns gas limit (with the safety margin) and gas price.
func (c *Client) Estimate(ctx context.Context, from, to common.Address, value *big.Int, data []byte) (*domain.GasEstimate, error) {
	ctx, span := c.tracer.Start(ctx, "ledger.estimate",
		trace.WithAttributes(
			attribute.Int64("chain_id", int64(c.config.ChainID)),
			attribute.String("to", to.Hex()),
			attribute.Int("data_len", len(data)),
		),
	)
	defer span.End()

	c.metrics.estimates.Add(ctx, 1)

	node, err := c.connected()
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	price, err := c.GasPrice(ctx)
	if err != nil {
		return nil, err
	}

	gas, err := node.EstimateGas(ctx, ethereum.CallMsg{From: from, To: &to, Value: value, Data: data})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "estimate failed")
		return nil, apperror.New(apperror.CodeGasEstimationFailed,
			apperror.WithCause(err),
			apperror.WithContext(fmt.Sprintf("failed to estimate gas for %s", to.Hex())))
	}
	gas += gas * c.config.GasMarginPercent / 100

	estimate := domain.NewGasEstimate(gas, price)
	span.SetAttributes(
		attribute.Int64("gas_limit", int64(gas)),
		attribute.String("total_wei", estimate.TotalWei().String()),
	)
	return estimate, nil
}

// Broadcast decodes and submits a signed transaction.
func (c *Client) Broadcast(ctx context.Context, raw []byte) (common.Hash, error) {
	ctx, span := c.tracer.Start(ctx, "ledger.broadcast",
		trace.WithAttributes(attribute.Int64("chain_id", int64(c.config.ChainID))),
	)
	defer span.End()

	tx := new(types.Transaction)
	if err := tx.UnmarshalBinary(raw); err != nil {
		return common.Hash{}, apperror.New(apperror.CodeInvalidRequest,
			apperror.WithCause(err),
			apperror.WithContext("undecodable signed transaction"))
	}
	if id := tx.ChainId(); id != nil && id.Sign() > 0 && id.Uint64() != c.config.ChainID {
		return common.Hash{}, apperror.New(apperror.CodeInvalidRequest,
			apperror.WithContext(fmt.Sprintf("transaction signed for chain %s, not %d", id, c.config.ChainID)))
	}

	node, err := c.connected()
	if err != nil {
		span.RecordError(err)
		return common.Hash{}, err
	}

	c.metrics.broadcasts.Add(ctx, 1, metric.WithAttributes(attribute.Int64("chain_id", int64(c.config.ChainID))))
	if err := node.SendTransaction(ctx, tx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "send failed")
		return common.Hash{}, apperror.New(apperror.CodeBroadcastFailed,
			apperror.WithCause(err),
			apperror.WithContext(tx.Hash().Hex()))
	}

	span.SetAttributes(attribute.String("tx_hash", tx.Hash().Hex()))
	c.logger.Info(ctx, "transaction broadcast", "chain_id", c.config.ChainID, "tx_hash", tx.Hash().Hex())
	return tx.Hash(), nil
}

// AwaitConfirmation polls until the receipt is Confirmations blocks deep.
// A reverted receipt is returned together with a TRANSACTION_REVERTED error.
func (c *Client) AwaitConfirmation(ctx context.Context, hash common.Hash) (*domain.Confirmation, error) {
	ctx, span := c.tracer.Start(ctx, "ledger.await_confirmation",
		trace.WithAttributes(
			attribute.Int64("chain_id", int64(c.config.ChainID)),
			attribute.String("tx_hash", hash.Hex()),
		),
	)
	defer span.End()

	if c.config.ConfirmTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.ConfirmTimeout)
		defer cancel()
	}

	node, err := c.connected()
	if err != nil {
		return nil, err
	}

	start := time.Now()
	ticker := time.NewTicker(c.config.PollInterval)
	defer ticker.Stop()

	for {
		conf, err := c.checkConfirmation(ctx, node, hash)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
		if conf != nil {
			c.metrics.confirmations.Record(ctx, time.Since(start).Seconds(),
				metric.WithAttributes(attribute.Int64("chain_id", int64(c.config.ChainID))))
			span.SetAttributes(attribute.String("status", string(conf.Status)))
			if conf.Status == domain.TxReverted {
				return conf, apperror.New(apperror.CodeTransactionReverted, apperror.WithContext(hash.Hex()))
			}
			return conf, nil
		}

		select {
		case <-ctx.Done():
			return nil, apperror.New(apperror.CodeConfirmationTimeout,
				apperror.WithCause(ctx.Err()),
				apperror.WithContext(hash.Hex()))
		case <-ticker.C:
		}
	}
}

// checkConfirmation returns nil until the transaction is deep enough.
func (c *Client) checkConfirmation(ctx context.Context, node Node, hash common.Hash) (*domain.Confirmation, error) {
	receipt, err := node.TransactionReceipt(ctx, hash)
	switch {
	case errors.Is(err, ethereum.NotFound):
		return nil, nil
	case err != nil:
		if ctx.Err() != nil {
			return nil, apperror.New(apperror.CodeConfirmationTimeout, apperror.WithCause(err), apperror.WithContext(hash.Hex()))
		}
		c.logger.Warn(ctx, "receipt lookup failed", "chain_id", c.config.ChainID, "error", err)
		return nil, nil
	}

	head, err := node.BlockNumber(ctx)
	if err != nil {
		c.logger.Warn(ctx, "head lookup failed", "chain_id", c.config.ChainID, "error", err)
		return nil, nil
	}
	mined := receipt.BlockNumber.Uint64()
	if head < mined {
		return nil, nil
	}
	depth := head - mined + 1

	status := domain.TxConfirmed
	if receipt.Status == types.ReceiptStatusFailed {
		status = domain.TxReverted
	} else if depth < c.config.Confirmations {
		return nil, nil
	}
	return &domain.Confirmation{
		ChainID:       c.config.ChainID,
		TxHash:        hash,
		BlockNumber:   mined,
		Confirmations: depth,
		GasUsed:       receipt.GasUsed,
		Status:        status,
	}, nil
}

// Close releases the node connection.
func (c *Client) Close() error {
	c.nodeMu.Lock()
	defer c.nodeMu.Unlock()

	if c.node != nil {
		c.node.Close()
		c.node = nil
	}
	c.state = domain.StateDisconnected
	c.priceCache.Close()
	return nil
}
