// Package gateway encodes calls to the bridge contracts: the router entry
// point, portal and synthesis on every ledger, the hub omni-pool, wrapped
// natives and fee collectors.
package gateway

import (
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/omniroute/business/routing/app"
	"github.com/fd1az/omniroute/business/routing/domain"
	"github.com/fd1az/omniroute/internal/asset"
)

// BurnAmountOffset is where metaBurnSyntheticToken calldata keeps the
// amount: selector, tuple offset, stableBridgingFee, then amount.
const BurnAmountOffset = 4 + 32 + 32

var _ app.CallEncoder = (*Encoder)(nil)

// Encoder implements app.CallEncoder.
type Encoder struct {
	router    abi.ABI
	portal    abi.ABI
	synthesis abi.ABI
	pool      abi.ABI
	wrapped   abi.ABI
	collector abi.ABI
}

// NewEncoder parses the contract ABIs.
func NewEncoder() (*Encoder, error) {
	e := &Encoder{}
	for _, c := range []struct {
		name string
		json string
		dst  *abi.ABI
	}{
		{"router", MetaRouterABI, &e.router},
		{"portal", PortalABI, &e.portal},
		{"synthesis", SynthesisABI, &e.synthesis},
		{"omni-pool", OmniPoolABI, &e.pool},
		{"wrapped native", WrappedNativeABI, &e.wrapped},
		{"fee collector", FeeCollectorABI, &e.collector},
	} {
		parsed, err := abi.JSON(strings.NewReader(c.json))
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s ABI: %w", c.name, err)
		}
		*c.dst = parsed
	}
	return e, nil
}

// TransitCalls encodes the source call and the relayer's destination call
// for the transit's direction.
func (e *Encoder) TransitCalls(p app.TransitCallParams) (app.TransitCalls, error) {
	switch p.Transit.Direction {
	case domain.DirectionMint:
		return e.mint(p)
	case domain.DirectionBurn:
		return e.burn(p)
	case domain.DirectionMintBurn:
		return e.mintBurn(p)
	}
	return app.TransitCalls{}, fmt.Errorf("unknown transit direction %q", p.Transit.Direction)
}

func (e *Encoder) mint(p app.TransitCallParams) (app.TransitCalls, error) {
	fee, gross := bridgeAmounts(p.Transit)
	src := p.Transit.AmountIn.Asset()
	final := finalOf(p.FinalCall)

	source, err := e.call(e.portal, p.Source.Portal, "metaSynthesize", MetaSynthesizeTransaction{
		StableBridgingFee: fee,
		Amount:            gross,
		Rtoken:            src.Address(),
		Chain2address:     p.Recipient,
		ReceiveSide:       p.Dest.Synthesis,
		ChainID:           chainID(p.Dest),
		RevertableAddress: p.RevertTo,
		SwapTokens:        []common.Address{},
		FinalReceiveSide:  final.ReceiveSide,
		FinalCalldata:     final.Calldata,
		FinalOffset:       new(big.Int).SetUint64(final.Offset),
	})
	if err != nil {
		return app.TransitCalls{}, err
	}

	dest, err := e.synthesis.Pack("metaMintSyntheticToken", MetaMintTransaction{
		StableBridgingFee: fee,
		Amount:            gross,
		TokenReal:         src.Address(),
		ChainID:           chainID(p.Source),
		To:                p.Recipient,
		SwapTokens:        []common.Address{},
		FinalReceiveSide:  final.ReceiveSide,
		FinalCalldata:     final.Calldata,
		FinalOffset:       new(big.Int).SetUint64(final.Offset),
	})
	if err != nil {
		return app.TransitCalls{}, fmt.Errorf("pack metaMintSyntheticToken: %w", err)
	}

	return app.TransitCalls{
		Source:         source,
		ReceiveChainID: p.Dest.ChainID,
		ReceiveSide:    p.Dest.Synthesis,
		Destination:    dest,
	}, nil
}

func (e *Encoder) burn(p app.TransitCallParams) (app.TransitCalls, error) {
	fee, gross := bridgeAmounts(p.Transit)
	src := p.Transit.AmountIn.Asset()
	dst := p.Transit.AmountOut.Asset()
	final := finalOf(p.FinalCall)

	source, err := e.call(e.synthesis, p.Source.Synthesis, "metaBurnSyntheticToken", MetaBurnTransaction{
		StableBridgingFee: fee,
		Amount:            gross,
		SyntCaller:        p.Source.Router,
		FinalReceiveSide:  final.ReceiveSide,
		SToken:            src.Address(),
		FinalCallData:     final.Calldata,
		FinalOffset:       new(big.Int).SetUint64(final.Offset),
		Chain2address:     p.Recipient,
		ReceiveSide:       p.Dest.Portal,
		ChainID:           chainID(p.Dest),
		RevertableAddress: p.RevertTo,
	})
	if err != nil {
		return app.TransitCalls{}, err
	}

	dest, err := e.portal.Pack("metaUnsynthesize", MetaUnsynthesizeTransaction{
		StableBridgingFee: fee,
		To:                p.Recipient,
		Amount:            gross,
		RToken:            dst.Address(),
		FinalReceiveSide:  final.ReceiveSide,
		FinalCalldata:     final.Calldata,
		FinalOffset:       new(big.Int).SetUint64(final.Offset),
	})
	if err != nil {
		return app.TransitCalls{}, fmt.Errorf("pack metaUnsynthesize: %w", err)
	}

	return app.TransitCalls{
		Source:         source,
		ReceiveChainID: p.Dest.ChainID,
		ReceiveSide:    p.Dest.Portal,
		Destination:    dest,
	}, nil
}

// mintBurn mints on the hub, swaps in the pool and burns out to the
// destination. The relayer executes the hub side; the burn amount is
// patched with the pool's actual output.
func (e *Encoder) mintBurn(p app.TransitCallParams) (app.TransitCalls, error) {
	tr := p.Transit
	if p.Hub == nil || tr.Venue == nil || len(tr.Route) != 4 {
		return app.TransitCalls{}, fmt.Errorf("mint-burn transit needs a hub ledger and a venue")
	}
	fee, gross := bridgeAmounts(tr)
	src, synIn, synOut, dst := tr.Route[0], tr.Route[1], tr.Route[2], tr.Route[3]
	pool := tr.Venue.Pool
	final := finalOf(p.FinalCall)

	from, ok := pool.IndexOf(synIn)
	if !ok {
		return app.TransitCalls{}, fmt.Errorf("%s not in pool %s", synIn, pool.ID)
	}
	to, ok := pool.IndexOf(synOut)
	if !ok {
		return app.TransitCalls{}, fmt.Errorf("%s not in pool %s", synOut, pool.ID)
	}

	expected := tr.AmountOut.Rescale(synOut)
	minDy, err := expected.ApplyBps(p.SlippageBps)
	if err != nil {
		return app.TransitCalls{}, err
	}
	swap, err := e.pool.Pack("swap", uint8(from), uint8(to),
		tr.AmountIn.Rescale(synIn).Raw(), minDy.Raw(), deadline(p.Deadline))
	if err != nil {
		return app.TransitCalls{}, fmt.Errorf("pack pool swap: %w", err)
	}

	burn, err := e.synthesis.Pack("metaBurnSyntheticToken", MetaBurnTransaction{
		StableBridgingFee: new(big.Int),
		Amount:            expected.Raw(),
		SyntCaller:        p.Hub.Synthesis,
		FinalReceiveSide:  final.ReceiveSide,
		SToken:            synOut.Address(),
		FinalCallData:     final.Calldata,
		FinalOffset:       new(big.Int).SetUint64(final.Offset),
		Chain2address:     p.Recipient,
		ReceiveSide:       p.Dest.Portal,
		ChainID:           chainID(p.Dest),
		RevertableAddress: p.RevertTo,
	})
	if err != nil {
		return app.TransitCalls{}, fmt.Errorf("pack hub burn of %s to %s: %w", synOut, dst, err)
	}

	swapTokens := []common.Address{synIn.Address(), synOut.Address()}
	source, err := e.call(e.portal, p.Source.Portal, "metaSynthesize", MetaSynthesizeTransaction{
		StableBridgingFee:  fee,
		Amount:             gross,
		Rtoken:             src.Address(),
		Chain2address:      p.Recipient,
		ReceiveSide:        p.Hub.Synthesis,
		ChainID:            chainID(p.Hub),
		RevertableAddress:  p.RevertTo,
		SwapTokens:         swapTokens,
		SecondDexRouter:    pool.Address,
		SecondSwapCalldata: swap,
		FinalReceiveSide:   p.Hub.Synthesis,
		FinalCalldata:      burn,
		FinalOffset:        big.NewInt(BurnAmountOffset),
	})
	if err != nil {
		return app.TransitCalls{}, err
	}

	dest, err := e.synthesis.Pack("metaMintSyntheticToken", MetaMintTransaction{
		StableBridgingFee:  fee,
		Amount:             gross,
		TokenReal:          src.Address(),
		ChainID:            chainID(p.Source),
		To:                 p.Recipient,
		SwapTokens:         swapTokens,
		SecondDexRouter:    pool.Address,
		SecondSwapCalldata: swap,
		FinalReceiveSide:   p.Hub.Synthesis,
		FinalCalldata:      burn,
		FinalOffset:        big.NewInt(BurnAmountOffset),
	})
	if err != nil {
		return app.TransitCalls{}, fmt.Errorf("pack metaMintSyntheticToken: %w", err)
	}

	return app.TransitCalls{
		Source:         source,
		ReceiveChainID: p.Hub.ChainID,
		ReceiveSide:    p.Hub.Synthesis,
		Destination:    dest,
	}, nil
}

// MetaRoute wraps the optional entry swap and the transit call into the
// router entry point.
func (e *Encoder) MetaRoute(p app.MetaRouteParams) (domain.Call, error) {
	in := p.AmountIn.Asset()
	tx := MetaRouteTransaction{
		FirstSwapCalldata: []byte{},
		ApprovedTokens:    []common.Address{in.Address()},
		Amount:            p.AmountIn.Raw(),
		NativeIn:          in.IsNative(),
		RelayRecipient:    p.Transit.Target,
		OtherSideCalldata: p.Transit.Data,
	}
	if p.Entry != nil {
		tx.FirstSwapCalldata = p.Entry.Call.Data
		tx.FirstDexRouter = p.Entry.Call.Target
		tx.ApprovedTokens = append(tx.ApprovedTokens, p.Entry.AmountOut.Asset().Address())
	}

	call, err := e.call(e.router, p.Router, "metaRoute", tx)
	if err != nil {
		return domain.Call{}, err
	}
	if in.IsNative() {
		call.Value = p.AmountIn.Raw()
	}
	return call, nil
}

// Wrap deposits native currency into its wrapped token.
func (e *Encoder) Wrap(wrapped *asset.Asset, amount asset.Amount) (domain.Call, error) {
	call, err := e.call(e.wrapped, wrapped.Address(), "deposit")
	if err != nil {
		return domain.Call{}, err
	}
	call.Value = amount.Raw()
	return call, nil
}

// Unwrap withdraws native currency from its wrapped token.
func (e *Encoder) Unwrap(wrapped *asset.Asset, amount asset.Amount) (domain.Call, error) {
	return e.call(e.wrapped, wrapped.Address(), "withdraw", amount.Raw())
}

// CollectorSwap hands the whole input to the collector, which keeps its fee
// and executes the leg with the remainder patched in at the leg's offset.
func (e *Encoder) CollectorSwap(c *domain.FeeCollector, amountIn asset.Amount, leg *domain.Leg) (domain.Call, error) {
	call, err := e.call(e.collector, c.Address, "onswap",
		amountIn.Asset().Address(),
		amountIn.Raw(),
		leg.Call.Target,
		leg.ApprovalTarget,
		leg.Call.Data,
		new(big.Int).SetUint64(leg.PatchOffset),
	)
	if err != nil {
		return domain.Call{}, err
	}
	if amountIn.Asset().IsNative() {
		call.Value = amountIn.Raw()
	}
	return call, nil
}

func (e *Encoder) call(contract abi.ABI, target common.Address, method string, args ...any) (domain.Call, error) {
	data, err := contract.Pack(method, args...)
	if err != nil {
		return domain.Call{}, fmt.Errorf("pack %s: %w", method, err)
	}
	return domain.Call{
		Target:    target,
		Data:      data,
		Signature: contract.Methods[method].Sig,
	}, nil
}

// bridgeAmounts returns the fee charged by the bridge and the gross amount
// pulled from the caller.
func bridgeAmounts(tr domain.TransitResult) (*big.Int, *big.Int) {
	if !tr.FeeDeducted {
		return new(big.Int), tr.AmountIn.Raw()
	}
	fee := tr.Fee.Raw()
	return fee, new(big.Int).Add(tr.AmountIn.Raw(), fee)
}

func finalOf(f *app.FinalCall) app.FinalCall {
	if f == nil {
		return app.FinalCall{Calldata: []byte{}}
	}
	return *f
}

func chainID(l *domain.Ledger) *big.Int {
	return new(big.Int).SetUint64(l.ChainID)
}

func deadline(t time.Time) *big.Int {
	if t.IsZero() {
		return new(big.Int)
	}
	return big.NewInt(t.Unix())
}
