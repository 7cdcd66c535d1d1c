// Package thorchain quotes whole cross-ledger routes through THORChain.
// Sources on UTXO ledgers pay a deposit address with a memo; sources on
// EVM ledgers call the vault router's depositWithExpiry.
package thorchain

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/omniroute/business/routing/app"
	"github.com/fd1az/omniroute/business/routing/domain"
	"github.com/fd1az/omniroute/internal/apperror"
	"github.com/fd1az/omniroute/internal/asset"
	"github.com/fd1az/omniroute/internal/circuitbreaker"
	"github.com/fd1az/omniroute/internal/config"
	"github.com/fd1az/omniroute/internal/httpclient"
	"github.com/fd1az/omniroute/internal/logger"
)

const (
	// ProtocolName is how the topology names this protocol.
	ProtocolName = "thorchain"

	tracerName = "github.com/fd1az/omniroute/business/routing/infra/thorchain"

	depositSignature = "depositWithExpiry(address,address,uint256,string,uint256)"
)

// RouterABI is the part of the THORChain vault router we call.
const RouterABI = `[{
	"name":"depositWithExpiry","type":"function","stateMutability":"payable",
	"inputs":[
		{"name":"vault","type":"address"},
		{"name":"asset","type":"address"},
		{"name":"amount","type":"uint256"},
		{"name":"memo","type":"string"},
		{"name":"expiration","type":"uint256"}
	],"outputs":[]
}]`

var _ app.ProtocolQuoter = (*Provider)(nil)

// Provider implements app.ProtocolQuoter.
type Provider struct {
	client *Client
	router abi.ABI
	cb     *circuitbreaker.CircuitBreaker[*QuoteSwapResponse]
	now    func() time.Time
	logger logger.LoggerInterface
	tracer trace.Tracer
}

// NewProvider creates the adapter from its configuration.
func NewProvider(cfg config.ThorchainConfig, log logger.LoggerInterface) (*Provider, error) {
	http, err := httpclient.New(
		httpclient.WithProviderName(ProtocolName),
		httpclient.WithBaseURL(cfg.BaseURL),
		httpclient.WithRequestTimeout(cfg.Timeout),
		httpclient.WithErrorHandler(httpclient.DefaultErrorHandler),
	)
	if err != nil {
		return nil, fmt.Errorf("create thorchain http client: %w", err)
	}
	return New(NewClient(http), log)
}

func New(client *Client, log logger.LoggerInterface) (*Provider, error) {
	parsed, err := abi.JSON(strings.NewReader(RouterABI))
	if err != nil {
		return nil, fmt.Errorf("parse thorchain router abi: %w", err)
	}
	return &Provider{
		client: client,
		router: parsed,
		cb:     circuitbreaker.New[*QuoteSwapResponse](circuitbreaker.DefaultConfig(ProtocolName)),
		now:    time.Now,
		logger: log,
		tracer: otel.Tracer(tracerName),
	}, nil
}

func (p *Provider) Name() string { return ProtocolName }

// Healthy reports whether the THORNode circuit is closed.
func (p *Provider) Healthy() bool { return p.cb.Healthy() }

// QuoteRoute prices req and returns what the sender must execute.
func (p *Provider) QuoteRoute(ctx context.Context, req domain.Request) (*app.ProtocolQuote, error) {
	ctx, span := p.tracer.Start(ctx, "thorchain.quote_route",
		trace.WithAttributes(
			attribute.String("token_in", req.TokenIn().String()),
			attribute.String("token_out", req.TokenOut.String()),
			attribute.String("amount_in", req.AmountIn.Raw().String()),
		),
	)
	defer span.End()

	q, err := p.quote(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "quote failed")
		return nil, err
	}
	span.SetAttributes(attribute.String("amount_out", q.AmountOut.Raw().String()))
	return q, nil
}

func (p *Provider) quote(ctx context.Context, req domain.Request) (*app.ProtocolQuote, error) {
	family := req.TokenIn().Family()
	if family == asset.FamilyTron {
		return nil, apperror.New(apperror.CodeUnsupportedLedger,
			apperror.WithContext("thorchain has no tron vault"))
	}
	from, err := assetNotation(req.TokenIn())
	if err != nil {
		return nil, apperror.New(apperror.CodeProviderInvalidToken, apperror.WithCause(err))
	}
	to, err := assetNotation(req.TokenOut)
	if err != nil {
		return nil, apperror.New(apperror.CodeProviderInvalidToken, apperror.WithCause(err))
	}

	amount := toThorUnits(req.AmountIn)
	if amount.Sign() == 0 {
		return nil, apperror.New(apperror.CodeAmountTooLow,
			apperror.WithContext("amount below thorchain precision"))
	}

	resp, err := p.cb.Execute(func() (*QuoteSwapResponse, error) {
		return p.client.QuoteSwap(ctx, QuoteSwapRequest{
			FromAsset:     from,
			ToAsset:       to,
			Amount:        amount.String(),
			Destination:   req.To,
			RefundAddress: req.Refund(),
			ToleranceBps:  req.SlippageBps,
		})
	})
	if err != nil {
		return nil, err
	}

	if minIn, ok := new(big.Int).SetString(resp.RecommendedMinAmountIn, 10); ok && amount.Cmp(minIn) < 0 {
		return nil, apperror.New(apperror.CodeAmountTooLow,
			apperror.WithContext(fmt.Sprintf("thorchain recommends at least %s (1e8 units)", minIn)))
	}

	out, err := fromThorUnits(req.TokenOut, resp.ExpectedAmountOut)
	if err != nil {
		return nil, err
	}
	if !out.IsPositive() {
		return nil, apperror.New(apperror.CodeProviderNoLiquidity,
			apperror.WithContext("thorchain: zero expected output"))
	}

	validUntil := req.Deadline
	if resp.Expiry > 0 {
		validUntil = time.Unix(resp.Expiry, 0).UTC()
	}
	if validUntil.IsZero() {
		validUntil = p.now().Add(15 * time.Minute)
	}

	q := &app.ProtocolQuote{
		Protocol:    ProtocolName,
		AmountOut:   out,
		Route:       []*asset.Asset{req.TokenIn(), req.TokenOut},
		PriceImpact: domain.NewImpact(decimal.New(resp.Fees.SlippageBps, -2)),
		ImpactKnown: true,
	}
	if resp.Fees.Asset == to && resp.Fees.Total != "" {
		fee, err := fromThorUnits(req.TokenOut, resp.Fees.Total)
		if err == nil && fee.IsPositive() {
			q.Fees = []domain.Fee{{Provider: ProtocolName, Kind: domain.FeeKindProtocol, Amount: fee}}
		}
	}

	switch family {
	case asset.FamilyUTXO:
		if resp.InboundAddress == "" {
			return nil, fmt.Errorf("thorchain quote without inbound address")
		}
		q.Deposit = &domain.Deposit{
			Address:    resp.InboundAddress,
			Memo:       resp.Memo,
			ValidUntil: validUntil,
		}
	default:
		call, err := p.depositCall(req.AmountIn, resp, validUntil)
		if err != nil {
			return nil, err
		}
		q.Call = &call
		if !req.TokenIn().IsNative() {
			q.ApprovalTarget = call.Target
		}
	}

	p.logger.Debug(ctx, "thorchain quote",
		"from", from,
		"to", to,
		"amount_in", req.AmountIn.String(),
		"amount_out", out.String(),
		"warning", resp.Warning,
	)
	return q, nil
}

// depositCall encodes the router deposit. The router takes the token's own
// precision, not 1e8 units.
func (p *Provider) depositCall(amountIn asset.Amount, resp *QuoteSwapResponse, validUntil time.Time) (domain.Call, error) {
	if !common.IsHexAddress(resp.Router) || !common.IsHexAddress(resp.InboundAddress) {
		return domain.Call{}, fmt.Errorf("thorchain quote without evm router or vault")
	}
	data, err := p.router.Pack("depositWithExpiry",
		common.HexToAddress(resp.InboundAddress),
		amountIn.Asset().Address(),
		amountIn.Raw(),
		resp.Memo,
		big.NewInt(validUntil.Unix()),
	)
	if err != nil {
		return domain.Call{}, fmt.Errorf("pack depositWithExpiry: %w", err)
	}
	call := domain.Call{
		Target:    common.HexToAddress(resp.Router),
		Data:      data,
		Signature: depositSignature,
	}
	if amountIn.Asset().IsNative() {
		call.Value = amountIn.Raw()
	}
	return call, nil
}
