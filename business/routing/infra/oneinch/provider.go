// Package oneinch quotes on-ledger swaps through the 1inch aggregation API.
package oneinch

import (
	"context"
	"fmt"
	"math/big"
	"slices"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/omniroute/business/routing/app"
	"github.com/fd1az/omniroute/business/routing/domain"
	"github.com/fd1az/omniroute/internal/apperror"
	"github.com/fd1az/omniroute/internal/asset"
	"github.com/fd1az/omniroute/internal/cache"
	"github.com/fd1az/omniroute/internal/circuitbreaker"
	"github.com/fd1az/omniroute/internal/config"
	"github.com/fd1az/omniroute/internal/httpclient"
	"github.com/fd1az/omniroute/internal/logger"
	"github.com/fd1az/omniroute/internal/ratelimit"
)

const (
	// ProviderName identifies 1inch legs and race candidates.
	ProviderName = "1inch"

	tracerName = "github.com/fd1az/omniroute/business/routing/infra/oneinch"

	// NativeTokenAddress is how the API names a ledger's native currency.
	NativeTokenAddress = "0xEeeeeEeeeEeEeeEeEeEeeEEEeeeeEeeeeeeeEEeE"

	// swapSignature is the router method the API returns in compatibility mode.
	swapSignature = "swap(address,(address,address,address,address,uint256,uint256,uint256),bytes)"

	// amountOffset locates desc.amount: selector, executor, then four
	// addresses of the static description tuple.
	amountOffset = 4 + 32 + 4*32

	spenderTTL = time.Hour
)

var swapSelector = crypto.Keccak256([]byte(swapSignature))[:4]

var _ app.QuoteProvider = (*Provider)(nil)

// Provider implements app.QuoteProvider.
type Provider struct {
	client  *Client
	chains  []uint64
	spender *cache.Cache[uint64, common.Address]
	cb      *circuitbreaker.CircuitBreaker[*SwapResponse]
	logger  logger.LoggerInterface
	tracer  trace.Tracer
}

// NewProvider creates the adapter from its configuration.
func NewProvider(cfg config.OneInchConfig, log logger.LoggerInterface) (*Provider, error) {
	http, err := httpclient.New(
		httpclient.WithProviderName(ProviderName),
		httpclient.WithBaseURL(cfg.BaseURL),
		httpclient.WithRequestTimeout(cfg.Timeout),
		httpclient.WithRateLimiter(ratelimit.New(ProviderName, cfg.RequestsPerSecond, 1)),
		httpclient.WithErrorHandler(httpclient.DefaultErrorHandler),
		httpclient.WithHeaders(map[string]string{
			"Authorization": "Bearer " + cfg.APIKey,
			"Accept":        "application/json",
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("create 1inch http client: %w", err)
	}
	return New(NewClient(http, cfg.Version), cfg.Chains, log), nil
}

// New wraps an API client. An empty chains list serves every EVM ledger.
func New(client *Client, chains []uint64, log logger.LoggerInterface) *Provider {
	return &Provider{
		client:  client,
		chains:  chains,
		spender: cache.New[uint64, common.Address](10 * time.Minute),
		cb:      circuitbreaker.New[*SwapResponse](circuitbreaker.DefaultConfig("oneinch-swap")),
		logger:  log,
		tracer:  otel.Tracer(tracerName),
	}
}

func (p *Provider) Name() string { return ProviderName }

func (p *Provider) Supports(chainID uint64) bool {
	if asset.FamilyOf(chainID) != asset.FamilyEVM {
		return false
	}
	return len(p.chains) == 0 || slices.Contains(p.chains, chainID)
}

// Quote asks the swap endpoint for calldata executable by From and paying
// Recipient, so the quoted amount and the calldata cannot drift apart.
func (p *Provider) Quote(ctx context.Context, lp app.LegParams) (*domain.Leg, error) {
	chainID := lp.AmountIn.Asset().ChainID()
	ctx, span := p.tracer.Start(ctx, "oneinch.quote",
		trace.WithAttributes(
			attribute.Int64("chain_id", int64(chainID)),
			attribute.String("token_in", lp.AmountIn.Asset().String()),
			attribute.String("token_out", lp.TokenOut.String()),
			attribute.String("amount_in", lp.AmountIn.Raw().String()),
		),
	)
	defer span.End()

	resp, err := p.cb.Execute(func() (*SwapResponse, error) {
		return p.client.Swap(ctx, SwapRequest{
			ChainID:  chainID,
			Src:      tokenParam(lp.AmountIn.Asset()),
			Dst:      tokenParam(lp.TokenOut),
			Amount:   lp.AmountIn.Raw().String(),
			From:     lp.From.Hex(),
			Receiver: lp.Recipient.Hex(),
			Slippage: slippagePercent(lp.SlippageBps),
		})
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "swap failed")
		return nil, err
	}

	leg, err := p.toLeg(lp, resp)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "bad swap response")
		return nil, err
	}

	spender, err := p.spenderFor(ctx, chainID)
	if err != nil {
		return nil, err
	}
	leg.ApprovalTarget = spender

	span.SetAttributes(attribute.String("amount_out", leg.AmountOut.Raw().String()))
	p.logger.Debug(ctx, "1inch quote",
		"chain_id", chainID,
		"amount_in", lp.AmountIn.String(),
		"amount_out", leg.AmountOut.String(),
	)
	return leg, nil
}

func (p *Provider) toLeg(lp app.LegParams, resp *SwapResponse) (*domain.Leg, error) {
	out, err := asset.ParseRaw(lp.TokenOut, resp.DstAmount)
	if err != nil {
		return nil, fmt.Errorf("parse dstAmount %q: %w", resp.DstAmount, err)
	}
	if !out.IsPositive() {
		return nil, apperror.New(apperror.CodeProviderNoLiquidity, apperror.WithContext(ProviderName+": zero output"))
	}
	data, err := hexutil.Decode(resp.Tx.Data)
	if err != nil {
		return nil, fmt.Errorf("decode tx data: %w", err)
	}
	if len(data) < amountOffset+32 || !slices.Equal(data[:4], swapSelector) {
		return nil, fmt.Errorf("unsupported 1inch calldata selector %x", data[:min(4, len(data))])
	}

	value := new(big.Int)
	if resp.Tx.Value != "" {
		if _, ok := value.SetString(resp.Tx.Value, 10); !ok {
			return nil, fmt.Errorf("parse tx value %q", resp.Tx.Value)
		}
	}

	call := domain.Call{
		Target:    common.HexToAddress(resp.Tx.To),
		Data:      data,
		Signature: swapSignature,
	}
	if value.Sign() > 0 {
		call.Value = value
	}

	return &domain.Leg{
		Provider:    ProviderName,
		AmountIn:    lp.AmountIn,
		AmountOut:   out,
		Path:        []*asset.Asset{lp.AmountIn.Asset(), lp.TokenOut},
		Call:        call,
		PatchOffset: amountOffset,
	}, nil
}

func (p *Provider) spenderFor(ctx context.Context, chainID uint64) (common.Address, error) {
	return p.spender.GetOrLoad(ctx, chainID, spenderTTL, func(ctx context.Context) (common.Address, error) {
		return p.client.Spender(ctx, chainID)
	})
}

func tokenParam(a *asset.Asset) string {
	if a.IsNative() {
		return NativeTokenAddress
	}
	return a.Address().Hex()
}

// slippagePercent renders basis points as the API's percentage, e.g. 50 -> 0.5.
func slippagePercent(bps uint32) string {
	return decimal.New(int64(bps), -2).String()
}

func itoa(v uint64) string { return strconv.FormatUint(v, 10) }
