// Package uniswap quotes on-ledger swaps against Uniswap V3 deployments and
// builds SwapRouter02 calldata for them.
package uniswap

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/omniroute/business/routing/app"
	"github.com/fd1az/omniroute/business/routing/domain"
	"github.com/fd1az/omniroute/internal/apperror"
	"github.com/fd1az/omniroute/internal/asset"
	"github.com/fd1az/omniroute/internal/circuitbreaker"
	"github.com/fd1az/omniroute/internal/config"
	"github.com/fd1az/omniroute/internal/logger"
)

const (
	// ProviderName identifies Uniswap legs and race candidates.
	ProviderName = "uniswap-v3"

	tracerName = "github.com/fd1az/omniroute/business/routing/infra/uniswap"
	meterName  = "github.com/fd1az/omniroute/business/routing/infra/uniswap"
)

// Ensure Provider implements QuoteProvider.
var _ app.QuoteProvider = (*Provider)(nil)

// providerMetrics holds OTEL metric instruments.
type providerMetrics struct {
	quotesTotal  metric.Int64Counter
	quoteLatency metric.Float64Histogram
	quoteErrors  metric.Int64Counter
}

// deployment is one chain's quoter and router behind its own breaker.
type deployment struct {
	chainID  uint64
	caller   ethereum.ContractCaller
	quoter   common.Address
	router   common.Address
	feeTiers []int
	cb       *circuitbreaker.CircuitBreaker[[]byte]
}

// Provider implements QuoteProvider for Uniswap V3.
type Provider struct {
	deployments map[uint64]*deployment
	quoterABI   abi.ABI
	routerABI   abi.ABI

	logger  logger.LoggerInterface
	tracer  trace.Tracer
	metrics *providerMetrics
}

// NewProvider creates the provider. callers maps a chain id to its node;
// deployments without a node are skipped.
func NewProvider(cfg config.UniswapConfig, callers map[uint64]ethereum.ContractCaller, log logger.LoggerInterface) (*Provider, error) {
	quoterABI, err := abi.JSON(strings.NewReader(QuoterV2ABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse quoter ABI: %w", err)
	}
	routerABI, err := abi.JSON(strings.NewReader(SwapRouter02ABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse router ABI: %w", err)
	}

	p := &Provider{
		deployments: make(map[uint64]*deployment),
		quoterABI:   quoterABI,
		routerABI:   routerABI,
		logger:      log,
		tracer:      otel.Tracer(tracerName),
	}

	for _, d := range cfg.Deployments {
		caller, ok := callers[d.ChainID]
		if !ok {
			log.Warn(context.Background(), "uniswap deployment has no ledger client, skipping", "chain_id", d.ChainID)
			continue
		}
		tiers := d.FeeTiers
		if len(tiers) == 0 {
			tiers = DefaultFeeTiers
		}
		p.deployments[d.ChainID] = &deployment{
			chainID:  d.ChainID,
			caller:   caller,
			quoter:   d.QuoterAddressHex(),
			router:   d.RouterAddressHex(),
			feeTiers: tiers,
			cb:       circuitbreaker.New[[]byte](breakerConfig(d.ChainID)),
		}
	}

	if err := p.initMetrics(); err != nil {
		return nil, fmt.Errorf("failed to init metrics: %w", err)
	}
	return p, nil
}

// breakerConfig counts reverts as answers: the quoter reverts for fee
// tiers without a pool.
func breakerConfig(chainID uint64) circuitbreaker.Config {
	cfg := circuitbreaker.DefaultConfig(fmt.Sprintf("uniswap-quoter-%d", chainID))
	cfg.IsSuccessful = func(err error) bool {
		return err == nil || isRevert(err)
	}
	return cfg
}

func isRevert(err error) bool {
	return strings.Contains(err.Error(), "execution reverted")
}

func (p *Provider) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	p.metrics = &providerMetrics{}

	p.metrics.quotesTotal, err = meter.Int64Counter(
		"uniswap_quotes_total",
		metric.WithDescription("Total quote requests"),
	)
	if err != nil {
		return err
	}

	p.metrics.quoteLatency, err = meter.Float64Histogram(
		"uniswap_quote_latency_ms",
		metric.WithDescription("Quote request latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return err
	}

	p.metrics.quoteErrors, err = meter.Int64Counter(
		"uniswap_quote_errors_total",
		metric.WithDescription("Total quote errors"),
	)
	return err
}

func (p *Provider) Name() string { return ProviderName }

func (p *Provider) Supports(chainID uint64) bool {
	_, ok := p.deployments[chainID]
	return ok
}

// Healthy reports whether every quoter's circuit is closed.
func (p *Provider) Healthy() bool {
	for _, d := range p.deployments {
		if !d.cb.Healthy() {
			return false
		}
	}
	return true
}

// Quote tries every fee tier and keeps the best output, then encodes
// exactInputSingle for that tier.
func (p *Provider) Quote(ctx context.Context, lp app.LegParams) (*domain.Leg, error) {
	tokenIn, tokenOut := lp.AmountIn.Asset(), lp.TokenOut
	ctx, span := p.tracer.Start(ctx, "uniswap.quote",
		trace.WithAttributes(
			attribute.Int64("chain_id", int64(tokenIn.ChainID())),
			attribute.String("token_in", tokenIn.Address().Hex()),
			attribute.String("token_out", tokenOut.Address().Hex()),
			attribute.String("amount_in", lp.AmountIn.Raw().String()),
		),
	)
	defer span.End()

	chainAttr := metric.WithAttributes(attribute.Int64("chain_id", int64(tokenIn.ChainID())))
	start := time.Now()
	p.metrics.quotesTotal.Add(ctx, 1, chainAttr)
	defer func() {
		p.metrics.quoteLatency.Record(ctx, float64(time.Since(start).Milliseconds()), chainAttr)
	}()

	d, ok := p.deployments[tokenIn.ChainID()]
	if !ok {
		return nil, apperror.New(apperror.CodeNoRoute,
			apperror.WithContext(fmt.Sprintf("uniswap: no deployment on chain %d", tokenIn.ChainID())))
	}
	if tokenIn.IsNative() || tokenOut.IsNative() {
		return nil, apperror.New(apperror.CodeProviderInvalidToken,
			apperror.WithContext("uniswap: native assets are not supported, use the wrapped token"))
	}

	var best *QuoteResult
	var lastErr error
	for _, feeTier := range d.feeTiers {
		quote, err := p.quoteFeeTier(ctx, d, tokenIn.Address(), tokenOut.Address(), lp.AmountIn.Raw(), feeTier)
		if err != nil {
			lastErr = err
			span.AddEvent("fee_tier_failed",
				trace.WithAttributes(
					attribute.Int("fee_tier", feeTier),
					attribute.String("error", err.Error()),
				),
			)
			continue
		}
		if quote.AmountOut.Sign() == 0 {
			continue
		}
		if best == nil || quote.AmountOut.Cmp(best.AmountOut) > 0 {
			best = quote
		}
	}

	if best == nil {
		p.metrics.quoteErrors.Add(ctx, 1, chainAttr)
		span.SetStatus(codes.Error, "no valid quote")
		// transport failures and open circuits say nothing about liquidity
		if lastErr != nil && apperror.GetCode(lastErr) != apperror.CodeProviderNoLiquidity {
			return nil, lastErr
		}
		return nil, apperror.New(apperror.CodeProviderNoLiquidity,
			apperror.WithContext("uniswap: no pool found for token pair"),
			apperror.WithCause(lastErr))
	}

	out := asset.NewAmount(tokenOut, best.AmountOut)
	leg, err := p.buildLeg(d, lp, out, best.FeeTier)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "encode failed")
		return nil, err
	}

	span.SetAttributes(
		attribute.String("amount_out", best.AmountOut.String()),
		attribute.Int("fee_tier", best.FeeTier),
		attribute.Int64("gas_estimate", best.GasEstimate.Int64()),
	)
	span.SetStatus(codes.Ok, "quote received")

	p.logger.Debug(ctx, "uniswap quote",
		"chain_id", d.chainID,
		"token_in", tokenIn.Symbol(),
		"token_out", tokenOut.Symbol(),
		"amount_in", lp.AmountIn.Raw().String(),
		"amount_out", best.AmountOut.String(),
		"fee_tier", best.FeeTier,
	)
	return leg, nil
}

// quoteFeeTier calls QuoterV2.quoteExactInputSingle for one fee tier.
func (p *Provider) quoteFeeTier(ctx context.Context, d *deployment, tokenIn, tokenOut common.Address, amountIn *big.Int, feeTier int) (*QuoteResult, error) {
	callData, err := p.quoterABI.Pack("quoteExactInputSingle", QuoteExactInputSingleParams{
		TokenIn:           tokenIn,
		TokenOut:          tokenOut,
		AmountIn:          amountIn,
		Fee:               big.NewInt(int64(feeTier)),
		SqrtPriceLimitX96: new(big.Int),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode call: %w", err)
	}

	result, err := d.cb.Execute(func() ([]byte, error) {
		return d.caller.CallContract(ctx, ethereum.CallMsg{To: &d.quoter, Data: callData}, nil)
	})
	if err != nil {
		var appErr *apperror.AppError
		if errors.As(err, &appErr) {
			return nil, err
		}
		if isRevert(err) {
			return nil, apperror.New(apperror.CodeProviderNoLiquidity,
				apperror.WithCause(err),
				apperror.WithContext(fmt.Sprintf("no pool for fee tier %d", feeTier)))
		}
		return nil, apperror.New(apperror.CodeContractCallFailed,
			apperror.WithCause(err),
			apperror.WithContext(fmt.Sprintf("quoter call failed for fee tier %d", feeTier)))
	}

	outputs, err := p.quoterABI.Unpack("quoteExactInputSingle", result)
	if err != nil {
		return nil, fmt.Errorf("failed to decode result: %w", err)
	}
	if len(outputs) < 4 {
		return nil, fmt.Errorf("unexpected output length: %d", len(outputs))
	}

	return &QuoteResult{
		FeeTier:                 feeTier,
		AmountOut:               outputs[0].(*big.Int),
		SqrtPriceX96After:       outputs[1].(*big.Int),
		InitializedTicksCrossed: outputs[2].(uint32),
		GasEstimate:             outputs[3].(*big.Int),
	}, nil
}

func (p *Provider) buildLeg(d *deployment, lp app.LegParams, out asset.Amount, feeTier int) (*domain.Leg, error) {
	minOut, err := out.ApplyBps(lp.SlippageBps)
	if err != nil {
		return nil, err
	}
	data, err := p.routerABI.Pack("exactInputSingle", ExactInputSingleParams{
		TokenIn:           lp.AmountIn.Asset().Address(),
		TokenOut:          lp.TokenOut.Address(),
		Fee:               big.NewInt(int64(feeTier)),
		Recipient:         lp.Recipient,
		AmountIn:          lp.AmountIn.Raw(),
		AmountOutMinimum:  minOut.Raw(),
		SqrtPriceLimitX96: new(big.Int),
	})
	if err != nil {
		return nil, fmt.Errorf("encode exactInputSingle: %w", err)
	}

	return &domain.Leg{
		Provider:  ProviderName,
		AmountIn:  lp.AmountIn,
		AmountOut: out,
		Path:      []*asset.Asset{lp.AmountIn.Asset(), lp.TokenOut},
		Call: domain.Call{
			Target:    d.router,
			Data:      data,
			Signature: p.routerABI.Methods["exactInputSingle"].Sig,
		},
		PatchOffset:    AmountInOffset,
		ApprovalTarget: d.router,
	}, nil
}
