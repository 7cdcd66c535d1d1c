package gateway_test

import (
	"encoding/hex"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/zeebo/assert"

	"github.com/fd1az/omniroute/business/routing/app"
	"github.com/fd1az/omniroute/business/routing/domain"
	"github.com/fd1az/omniroute/business/routing/domain/domaintest"
	"github.com/fd1az/omniroute/business/routing/infra/gateway"
	"github.com/fd1az/omniroute/internal/asset"
)

var recipient = common.HexToAddress("0x0000000000000000000000000000000000000b0b")

func amount(a *asset.Asset, v int64) asset.Amount {
	return asset.NewAmount(a, big.NewInt(v))
}

func newEncoder(t *testing.T) *gateway.Encoder {
	t.Helper()
	e, err := gateway.NewEncoder()
	assert.NoError(t, err)
	return e
}

func ledger(t *testing.T, chainID uint64) *domain.Ledger {
	t.Helper()
	l, ok := domaintest.Topology().Ledger(chainID)
	assert.True(t, ok)
	return l
}

func unpack[T any](t *testing.T, abiJSON, method string, data []byte) T {
	t.Helper()
	parsed, err := abi.JSON(strings.NewReader(abiJSON))
	assert.NoError(t, err)
	m := parsed.Methods[method]
	assert.Equal(t, hex.EncodeToString(data[:4]), hex.EncodeToString(m.ID))

	out, err := m.Inputs.Unpack(data[4:])
	assert.NoError(t, err)
	return *abi.ConvertType(out[0], new(T)).(*T)
}

func assertSelector(t *testing.T, call domain.Call) {
	t.Helper()
	want := crypto.Keccak256([]byte(call.Signature))[:4]
	assert.Equal(t, hex.EncodeToString(call.Data[:4]), hex.EncodeToString(want))
}

func TestEncoder_WrapUnwrap(t *testing.T) {
	e := newEncoder(t)

	wrap, err := e.Wrap(asset.WETH, amount(asset.ETH, 1000))
	assert.NoError(t, err)
	assert.Equal(t, wrap.Target, asset.WETH.Address())
	assert.Equal(t, hex.EncodeToString(wrap.Data), "d0e30db0")
	assert.Equal(t, wrap.Value.Int64(), int64(1000))
	assert.Equal(t, wrap.Signature, "deposit()")

	unwrap, err := e.Unwrap(asset.WETH, amount(asset.WETH, 1000))
	assert.NoError(t, err)
	assert.Equal(t, hex.EncodeToString(unwrap.Data[:4]), "2e1a7d4d")
	assert.Equal(t, new(big.Int).SetBytes(unwrap.Data[4:]).Int64(), int64(1000))
	assert.Equal(t, unwrap.Signature, "withdraw(uint256)")
}

func TestEncoder_Mint(t *testing.T) {
	e := newEncoder(t)
	tr := domain.TransitResult{
		Direction:   domain.DirectionMint,
		AmountIn:    amount(asset.USDC, 990_000),
		AmountOut:   amount(domaintest.SUSDCEthereum, 990_000),
		Fee:         amount(asset.USDC, 10_000),
		FeeDeducted: true,
	}

	calls, err := e.TransitCalls(app.TransitCallParams{
		Transit:   tr,
		Source:    ledger(t, asset.ChainIDEthereum),
		Dest:      ledger(t, asset.ChainIDBSC),
		Recipient: recipient,
		Deadline:  time.Now().Add(time.Hour),
	})
	assert.NoError(t, err)

	assert.Equal(t, calls.Source.Target, domaintest.PortalEthereum)
	assert.Equal(t, calls.ReceiveChainID, asset.ChainIDBSC)
	assert.Equal(t, calls.ReceiveSide, domaintest.SynthesisBSC)
	assertSelector(t, calls.Source)

	src := unpack[gateway.MetaSynthesizeTransaction](t, gateway.PortalABI, "metaSynthesize", calls.Source.Data)
	assert.Equal(t, src.Amount.Int64(), int64(1_000_000))
	assert.Equal(t, src.StableBridgingFee.Int64(), int64(10_000))
	assert.Equal(t, src.Rtoken, asset.AddrUSDCEthereum)
	assert.Equal(t, src.Chain2address, recipient)
	assert.Equal(t, src.ChainID.Uint64(), asset.ChainIDBSC)

	dst := unpack[gateway.MetaMintTransaction](t, gateway.SynthesisABI, "metaMintSyntheticToken", calls.Destination)
	assert.Equal(t, dst.To, recipient)
	assert.Equal(t, dst.ChainID.Uint64(), asset.ChainIDEthereum)
}

func TestEncoder_Burn(t *testing.T) {
	e := newEncoder(t)
	tr := domain.TransitResult{
		Direction: domain.DirectionBurn,
		AmountIn:  amount(domaintest.SUSDCEthereum, 500_000),
		AmountOut: amount(asset.USDC, 500_000),
		Fee:       amount(domaintest.SUSDCEthereum, 0),
	}

	calls, err := e.TransitCalls(app.TransitCallParams{
		Transit:   tr,
		Source:    ledger(t, asset.ChainIDBSC),
		Dest:      ledger(t, asset.ChainIDEthereum),
		Recipient: recipient,
	})
	assert.NoError(t, err)
	assert.Equal(t, calls.Source.Target, domaintest.SynthesisBSC)
	assert.Equal(t, calls.ReceiveSide, domaintest.PortalEthereum)

	dst := unpack[gateway.MetaUnsynthesizeTransaction](t, gateway.PortalABI, "metaUnsynthesize", calls.Destination)
	assert.Equal(t, dst.RToken, asset.AddrUSDCEthereum)
	assert.Equal(t, dst.Amount.Int64(), int64(500_000))
}

func TestEncoder_MintBurn(t *testing.T) {
	e := newEncoder(t)
	venue := domain.Venue{Pool: domaintest.Pool, SourceTransit: asset.USDC, DestinationTransit: asset.USDCPolygon}
	tr := domain.TransitResult{
		Direction: domain.DirectionMintBurn,
		AmountIn:  amount(asset.USDC, 1_000_000),
		AmountOut: amount(asset.USDCPolygon, 997_000),
		Fee:       amount(asset.USDC, 0),
		Route:     []*asset.Asset{asset.USDC, domaintest.SUSDCEthereum, domaintest.SUSDCPolygon, asset.USDCPolygon},
		Venue:     &venue,
	}
	final := &app.FinalCall{ReceiveSide: common.HexToAddress("0xf00d"), Calldata: []byte{1, 2, 3, 4}, Offset: 4}

	calls, err := e.TransitCalls(app.TransitCallParams{
		Transit:     tr,
		Source:      ledger(t, asset.ChainIDEthereum),
		Hub:         ledger(t, asset.ChainIDBSC),
		Dest:        ledger(t, asset.ChainIDPolygon),
		Recipient:   recipient,
		SlippageBps: 100,
		Deadline:    time.Unix(1_900_000_000, 0),
		FinalCall:   final,
	})
	assert.NoError(t, err)
	assert.Equal(t, calls.ReceiveChainID, asset.ChainIDBSC)
	assert.Equal(t, calls.ReceiveSide, domaintest.SynthesisBSC)

	mint := unpack[gateway.MetaMintTransaction](t, gateway.SynthesisABI, "metaMintSyntheticToken", calls.Destination)
	assert.Equal(t, mint.SecondDexRouter, domaintest.OmniPoolAddress)
	assert.Equal(t, mint.FinalOffset.Int64(), int64(gateway.BurnAmountOffset))

	// the relayer patches the burn amount at the advertised offset
	word := mint.FinalCalldata[gateway.BurnAmountOffset : gateway.BurnAmountOffset+32]
	assert.Equal(t, new(big.Int).SetBytes(word).Int64(), int64(997_000))

	burn := unpack[gateway.MetaBurnTransaction](t, gateway.SynthesisABI, "metaBurnSyntheticToken", mint.FinalCalldata)
	assert.Equal(t, burn.SToken, domaintest.SUSDCPolygon.Address())
	assert.Equal(t, burn.ReceiveSide, domaintest.PortalPolygon)
	assert.Equal(t, burn.FinalReceiveSide, final.ReceiveSide)
	assert.Equal(t, burn.FinalOffset.Int64(), int64(4))

	pool, err := abi.JSON(strings.NewReader(gateway.OmniPoolABI))
	assert.NoError(t, err)
	args, err := pool.Methods["swap"].Inputs.Unpack(mint.SecondSwapCalldata[4:])
	assert.NoError(t, err)
	assert.Equal(t, args[0].(uint8), uint8(0))
	assert.Equal(t, args[1].(uint8), uint8(1))
	// 997000 less 1%
	assert.Equal(t, args[3].(*big.Int).Int64(), int64(987_030))
}

func TestEncoder_MintBurnNeedsHub(t *testing.T) {
	e := newEncoder(t)
	_, err := e.TransitCalls(app.TransitCallParams{
		Transit: domain.TransitResult{Direction: domain.DirectionMintBurn},
		Source:  ledger(t, asset.ChainIDEthereum),
		Dest:    ledger(t, asset.ChainIDPolygon),
	})
	assert.Error(t, err)
}

func TestEncoder_MetaRoute(t *testing.T) {
	e := newEncoder(t)
	transit := domain.Call{Target: domaintest.PortalEthereum, Data: []byte{9, 9, 9, 9}}

	tests := []struct {
		name      string
		in        asset.Amount
		entry     *domain.Leg
		wantValue int64
		approved  int
	}{
		{"token_without_entry", amount(asset.USDC, 1_000), nil, 0, 1},
		{"native_with_entry", amount(asset.ETH, 5_000), &domain.Leg{
			AmountOut: amount(asset.USDC, 10),
			Call:      domain.Call{Target: common.HexToAddress("0xdec5"), Data: []byte{1}},
		}, 5_000, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			call, err := e.MetaRoute(app.MetaRouteParams{
				Router:   domaintest.RouterEthereum,
				AmountIn: tt.in,
				Entry:    tt.entry,
				Transit:  transit,
			})
			assert.NoError(t, err)
			assert.Equal(t, call.Target, domaintest.RouterEthereum)
			assert.Equal(t, call.CallValue().Int64(), tt.wantValue)
			assertSelector(t, call)

			tx := unpack[gateway.MetaRouteTransaction](t, gateway.MetaRouterABI, "metaRoute", call.Data)
			assert.Equal(t, len(tx.ApprovedTokens), tt.approved)
			assert.Equal(t, tx.RelayRecipient, domaintest.PortalEthereum)
			assert.Equal(t, tx.NativeIn, tt.in.Asset().IsNative())
		})
	}
}

func TestEncoder_CollectorSwap(t *testing.T) {
	e := newEncoder(t)
	topo := domaintest.Topology()
	collector, _ := topo.FeeCollector(asset.ChainIDPolygon)
	leg := &domain.Leg{
		Call:           domain.Call{Target: common.HexToAddress("0xdec5"), Data: []byte{1, 2, 3, 4, 5}},
		ApprovalTarget: common.HexToAddress("0xa99"),
		PatchOffset:    36,
	}

	call, err := e.CollectorSwap(collector, amount(asset.USDTPolygon, 1_000_000), leg)
	assert.NoError(t, err)
	assert.Equal(t, call.Target, domaintest.CollectorPolygon)
	assertSelector(t, call)
	assert.True(t, call.Value == nil)
}
