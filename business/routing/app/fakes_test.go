package app_test

import (
	"context"
	"io"
	"math/big"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/shopspring/decimal"

	"github.com/fd1az/omniroute/business/routing/app"
	"github.com/fd1az/omniroute/business/routing/domain"
	"github.com/fd1az/omniroute/business/routing/domain/domaintest"
	"github.com/fd1az/omniroute/internal/asset"
	"github.com/fd1az/omniroute/internal/logger"
)

const (
	alice = "0x00000000000000000000000000000000000a11ce"
	bob   = "0x0000000000000000000000000000000000000b0b"
)

var fakeTarget = common.HexToAddress("0x00000000000000000000000000000000000f00d")

func nopLogger() logger.LoggerInterface {
	return logger.New(io.Discard, logger.LevelError, "test", nil)
}

func raw(a *asset.Asset, v int64) asset.Amount {
	return asset.NewAmount(a, big.NewInt(v))
}

// encodeCall builds calldata whose selector matches sig.
func encodeCall(sig string, words ...*big.Int) []byte {
	data := append([]byte{}, crypto.Keccak256([]byte(sig))[:4]...)
	for _, w := range words {
		data = append(data, common.LeftPadBytes(w.Bytes(), 32)...)
	}
	return data
}

// fakeProvider quotes out = in * num / den, rescaled to the output asset.
type fakeProvider struct {
	name   string
	chains []uint64
	num    int64
	den    int64
	err    error
	delay  time.Duration
	calls  atomic.Int32
	// last is the most recent leg handed out.
	last atomic.Pointer[domain.Leg]
}

func (p *fakeProvider) Name() string { return p.name }

func (p *fakeProvider) Supports(chainID uint64) bool {
	if len(p.chains) == 0 {
		return true
	}
	for _, c := range p.chains {
		if c == chainID {
			return true
		}
	}
	return false
}

func (p *fakeProvider) Quote(ctx context.Context, lp app.LegParams) (*domain.Leg, error) {
	p.calls.Add(1)
	if p.delay > 0 {
		select {
		case <-time.After(p.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if p.err != nil {
		return nil, p.err
	}
	num, den := p.num, p.den
	if den == 0 {
		num, den = 1, 1
	}
	out, err := lp.AmountIn.Rescale(lp.TokenOut).MulDiv(big.NewInt(num), big.NewInt(den))
	if err != nil {
		return nil, err
	}
	leg := &domain.Leg{
		Provider:  p.name,
		AmountIn:  lp.AmountIn,
		AmountOut: out,
		Call: domain.Call{
			Target:    fakeTarget,
			Data:      encodeCall("swap(uint256,address)", lp.AmountIn.Raw(), new(big.Int).SetBytes(lp.Recipient.Bytes())),
			Signature: "swap(uint256,address)",
		},
		PatchOffset:    4,
		ApprovalTarget: fakeTarget,
	}
	p.last.Store(leg)
	return leg, nil
}

// fakePools keeps num/den of every swap.
type fakePools struct {
	num, den int64
	err      error
}

func (f *fakePools) QuotePool(_ context.Context, _ *domain.OmniPool, in asset.Amount, out *asset.Asset) (asset.Amount, error) {
	if f.err != nil {
		return asset.Amount{}, f.err
	}
	return in.Rescale(out).MulDiv(big.NewInt(f.num), big.NewInt(f.den))
}

// fakeOracle returns fees[i] on the i-th call, repeating the last one.
type fakeOracle struct {
	mu    sync.Mutex
	fees  []int64
	err   error
	calls int
	reqs  []app.FeeRequest
}

func (o *fakeOracle) EstimateFee(_ context.Context, req app.FeeRequest) (asset.Amount, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.reqs = append(o.reqs, req)
	if o.err != nil {
		return asset.Amount{}, o.err
	}
	i := o.calls
	if i >= len(o.fees) {
		i = len(o.fees) - 1
	}
	o.calls++
	return raw(req.FeeAsset, o.fees[i]), nil
}

// fakeEncoder produces well-formed but meaningless calls.
type fakeEncoder struct{}

func (fakeEncoder) TransitCalls(p app.TransitCallParams) (app.TransitCalls, error) {
	dest := encodeCall("release(uint256)", p.Transit.AmountOut.Raw())
	if p.FinalCall != nil {
		dest = append(dest, p.FinalCall.Calldata...)
	}
	return app.TransitCalls{
		Source: domain.Call{
			Target:    p.Source.Portal,
			Data:      encodeCall("synthesize(uint256)", p.Transit.AmountIn.Raw()),
			Signature: "synthesize(uint256)",
		},
		ReceiveChainID: p.Dest.ChainID,
		ReceiveSide:    p.Dest.Synthesis,
		Destination:    dest,
	}, nil
}

func (fakeEncoder) MetaRoute(p app.MetaRouteParams) (domain.Call, error) {
	call := domain.Call{
		Target:    p.Router,
		Data:      encodeCall("metaRoute(uint256)", p.AmountIn.Raw()),
		Signature: "metaRoute(uint256)",
	}
	if p.AmountIn.Asset().IsNative() {
		call.Value = p.AmountIn.Raw()
	}
	return call, nil
}

func (fakeEncoder) Wrap(wrapped *asset.Asset, amount asset.Amount) (domain.Call, error) {
	return domain.Call{Target: wrapped.Address(), Data: encodeCall("deposit()"), Value: amount.Raw(), Signature: "deposit()"}, nil
}

func (fakeEncoder) Unwrap(wrapped *asset.Asset, amount asset.Amount) (domain.Call, error) {
	return domain.Call{Target: wrapped.Address(), Data: encodeCall("withdraw(uint256)", amount.Raw()), Signature: "withdraw(uint256)"}, nil
}

func (fakeEncoder) CollectorSwap(c *domain.FeeCollector, amountIn asset.Amount, leg *domain.Leg) (domain.Call, error) {
	return domain.Call{
		Target:    c.Address,
		Data:      encodeCall("onswap(uint256)", amountIn.Raw()),
		Signature: "onswap(uint256)",
	}, nil
}

// fakePrices prices every known asset at one dollar.
type fakePrices struct {
	err error
}

func (f fakePrices) PriceUSD(_ context.Context, a *asset.Asset) (decimal.Decimal, error) {
	if f.err != nil {
		return decimal.Zero, f.err
	}
	return decimal.NewFromInt(1), nil
}

type fakeProtocol struct {
	name  string
	quote *app.ProtocolQuote
	err   error
}

func (f *fakeProtocol) Name() string { return f.name }

func (f *fakeProtocol) QuoteRoute(context.Context, domain.Request) (*app.ProtocolQuote, error) {
	if f.err != nil {
		return nil, f.err
	}
	q := *f.quote
	return &q, nil
}

type dispatcherFixture struct {
	providers []*fakeProvider
	oracle    *fakeOracle
	pools     *fakePools
	protocols []app.ProtocolQuoter
	prices    app.PriceReference
}

func (f dispatcherFixture) build(t interface{ Fatalf(string, ...any) }) *app.Dispatcher {
	providers := make([]app.QuoteProvider, len(f.providers))
	for i, p := range f.providers {
		providers[i] = p
	}
	oracle := f.oracle
	if oracle == nil {
		oracle = &fakeOracle{fees: []int64{0}}
	}
	pools := f.pools
	if pools == nil {
		pools = &fakePools{num: 1, den: 1}
	}
	d, err := app.NewDispatcher(app.Config{ProviderTimeout: time.Second, RouteTimeout: 2 * time.Second}, app.Deps{
		Topology:  domaintest.Topology(),
		Providers: providers,
		Pools:     pools,
		Oracle:    oracle,
		Encoder:   fakeEncoder{},
		Protocols: f.protocols,
		Prices:    f.prices,
		Logger:    nopLogger(),
	})
	if err != nil {
		t.Fatalf("new dispatcher: %v", err)
	}
	return d
}
