// Package omnipool prices swaps inside the hub ledger's stable pools.
package omnipool

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/omniroute/business/routing/app"
	"github.com/fd1az/omniroute/business/routing/domain"
	"github.com/fd1az/omniroute/business/routing/infra/gateway"
	"github.com/fd1az/omniroute/internal/apperror"
	"github.com/fd1az/omniroute/internal/asset"
	"github.com/fd1az/omniroute/internal/circuitbreaker"
	"github.com/fd1az/omniroute/internal/logger"
)

const instrumentationName = "github.com/fd1az/omniroute/business/routing/infra/omnipool"

var _ app.PoolQuoter = (*Quoter)(nil)

// Quoter implements app.PoolQuoter with calculateSwap view calls.
type Quoter struct {
	callers map[uint64]ethereum.ContractCaller
	pool    abi.ABI
	callGas uint64
	cb      *circuitbreaker.CircuitBreaker[[]byte]
	logger  logger.LoggerInterface
	tracer  trace.Tracer
	latency metric.Float64Histogram
}

// NewQuoter creates a quoter over the hub ledgers' nodes. callGas caps each
// view call; zero leaves it to the node.
func NewQuoter(callers map[uint64]ethereum.ContractCaller, callGas uint64, log logger.LoggerInterface) (*Quoter, error) {
	parsed, err := abi.JSON(strings.NewReader(gateway.OmniPoolABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse omni-pool ABI: %w", err)
	}
	latency, err := otel.Meter(instrumentationName).Float64Histogram(
		"omnipool_quote_latency_ms",
		metric.WithDescription("calculateSwap latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}
	return &Quoter{
		callers: callers,
		pool:    parsed,
		callGas: callGas,
		cb:      circuitbreaker.New[[]byte](circuitbreaker.DefaultConfig("omnipool")),
		logger:  log,
		tracer:  otel.Tracer(instrumentationName),
		latency: latency,
	}, nil
}

// QuotePool returns what swapping amountIn for tokenOut in pool yields.
func (q *Quoter) QuotePool(ctx context.Context, pool *domain.OmniPool, amountIn asset.Amount, tokenOut *asset.Asset) (asset.Amount, error) {
	ctx, span := q.tracer.Start(ctx, "omnipool.calculate_swap",
		trace.WithAttributes(
			attribute.String("pool", pool.ID),
			attribute.String("token_in", amountIn.Asset().Symbol()),
			attribute.String("token_out", tokenOut.Symbol()),
			attribute.String("amount_in", amountIn.Raw().String()),
		),
	)
	defer span.End()

	from, ok := pool.IndexOf(amountIn.Asset())
	if !ok {
		return asset.Amount{}, apperror.New(apperror.CodeProviderInvalidToken,
			apperror.WithContext(fmt.Sprintf("%s is not in pool %s", amountIn.Asset(), pool.ID)))
	}
	to, ok := pool.IndexOf(tokenOut)
	if !ok {
		return asset.Amount{}, apperror.New(apperror.CodeProviderInvalidToken,
			apperror.WithContext(fmt.Sprintf("%s is not in pool %s", tokenOut, pool.ID)))
	}
	caller, ok := q.callers[pool.ChainID]
	if !ok {
		return asset.Amount{}, apperror.New(apperror.CodeLedgerConnectionFailed,
			apperror.WithContext(fmt.Sprintf("no client for pool ledger %d", pool.ChainID)))
	}

	data, err := q.pool.Pack("calculateSwap", uint8(from), uint8(to), amountIn.Raw())
	if err != nil {
		return asset.Amount{}, fmt.Errorf("pack calculateSwap: %w", err)
	}

	start := time.Now()
	res, err := q.cb.Execute(func() ([]byte, error) {
		return caller.CallContract(ctx, ethereum.CallMsg{To: &pool.Address, Gas: q.callGas, Data: data}, nil)
	})
	q.latency.Record(ctx, float64(time.Since(start).Milliseconds()),
		metric.WithAttributes(attribute.String("pool", pool.ID), attribute.Bool("success", err == nil)))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "calculateSwap failed")
		var appErr *apperror.AppError
		if errors.As(err, &appErr) {
			return asset.Amount{}, err
		}
		return asset.Amount{}, apperror.New(apperror.CodeContractCallFailed,
			apperror.WithContext(fmt.Sprintf("calculateSwap on %s", pool.ID)),
			apperror.WithCause(err))
	}

	values, err := q.pool.Unpack("calculateSwap", res)
	if err != nil || len(values) != 1 {
		return asset.Amount{}, fmt.Errorf("unpack calculateSwap: %w", err)
	}
	out := values[0].(*big.Int)

	span.SetAttributes(attribute.String("amount_out", out.String()))
	q.logger.Debug(ctx, "omni-pool quote",
		"pool", pool.ID,
		"amount_in", amountIn.String(),
		"amount_out", out.String(),
		"token_out", tokenOut.Symbol(),
	)
	return asset.NewAmount(tokenOut, out), nil
}

// Healthy reports whether the pool circuit is closed.
func (q *Quoter) Healthy() bool {
	return q.cb.Healthy()
}
