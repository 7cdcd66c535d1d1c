package thorchain

import (
	"context"
	"encoding/json"
	"io"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/zeebo/assert"

	"github.com/fd1az/omniroute/business/routing/domain"
	"github.com/fd1az/omniroute/internal/apperror"
	"github.com/fd1az/omniroute/internal/asset"
	"github.com/fd1az/omniroute/internal/config"
	"github.com/fd1az/omniroute/internal/logger"
)

var (
	routerAddr = common.HexToAddress("0xD37BbE5744D730a1d98d8DC97c42F0Ca46aD7146")
	vaultAddr  = common.HexToAddress("0x7b3e4f7f4a9fd2ea7fbe4a3b6e2a18b1f4f1c0a1")
	btcSender  = "bc1qxy2kgdygjrsqtzq2n0yrf2493p83kkfjhx0wlh"
	evmSender  = "0x00000000000000000000000000000000000a11ce"
)

func newTestProvider(t *testing.T, h http.HandlerFunc) *Provider {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	p, err := NewProvider(config.ThorchainConfig{BaseURL: srv.URL, Timeout: time.Second},
		logger.New(io.Discard, logger.LevelError, "test", nil))
	assert.NoError(t, err)
	return p
}

func respond(v any) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func TestProvider_UTXODeposit(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, r.URL.Path, "/thorchain/quote/swap")
		q := r.URL.Query()
		assert.Equal(t, q.Get("from_asset"), "BTC.BTC")
		assert.Equal(t, q.Get("to_asset"), "ETH.ETH")
		assert.Equal(t, q.Get("amount"), "1000000")
		assert.Equal(t, q.Get("destination"), evmSender)
		assert.Equal(t, q.Get("refund_address"), btcSender)
		assert.Equal(t, q.Get("tolerance_bps"), "100")
		_ = json.NewEncoder(w).Encode(QuoteSwapResponse{
			InboundAddress:         "bc1qvault",
			Memo:                   "=:ETH.ETH:" + evmSender,
			Expiry:                 1_900_000_000,
			ExpectedAmountOut:      "25000000",
			RecommendedMinAmountIn: "10000",
			Fees:                   QuoteFees{Asset: "ETH.ETH", Total: "100000", SlippageBps: 12},
		})
	})

	q, err := p.QuoteRoute(context.Background(), domain.Request{
		AmountIn:    asset.NewAmount(asset.BTC, big.NewInt(1_000_000)),
		TokenOut:    asset.ETH,
		From:        btcSender,
		To:          evmSender,
		SlippageBps: 100,
	})
	assert.NoError(t, err)
	assert.Equal(t, q.AmountOut.Raw().String(), "250000000000000000")
	assert.True(t, q.Call == nil)
	assert.Equal(t, q.Deposit.Address, "bc1qvault")
	assert.Equal(t, q.Deposit.Memo, "=:ETH.ETH:"+evmSender)
	assert.Equal(t, q.Deposit.ValidUntil.Unix(), int64(1_900_000_000))
	assert.Equal(t, len(q.Fees), 1)
	assert.Equal(t, q.Fees[0].Kind, domain.FeeKindProtocol)
	assert.Equal(t, q.Fees[0].Provider, ProtocolName)
	assert.Equal(t, q.Fees[0].Amount.Raw().String(), "1000000000000000")
	assert.Equal(t, q.PriceImpact.Percent().String(), "0.12")
	assert.True(t, q.ImpactKnown)
}

func TestProvider_EVMRouterDeposit(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, q.Get("from_asset"), "ETH.USDC-0XA0B86991C6218B36C1D19D4A2E9EB0CE3606EB48")
		assert.Equal(t, q.Get("amount"), "100000000000")
		_ = json.NewEncoder(w).Encode(QuoteSwapResponse{
			InboundAddress:    vaultAddr.Hex(),
			Router:            routerAddr.Hex(),
			Memo:              "=:BTC.BTC:" + btcSender,
			Expiry:            1_900_000_000,
			ExpectedAmountOut: "1500000",
		})
	})

	q, err := p.QuoteRoute(context.Background(), domain.Request{
		AmountIn: asset.NewAmount(asset.USDC, big.NewInt(1_000_000_000)),
		TokenOut: asset.BTC,
		From:     evmSender,
		To:       btcSender,
	})
	assert.NoError(t, err)
	assert.Equal(t, q.AmountOut.Raw().Int64(), int64(1_500_000))
	assert.True(t, q.Deposit == nil)
	assert.Equal(t, q.Call.Target, routerAddr)
	assert.Equal(t, q.ApprovalTarget, routerAddr)
	assert.True(t, q.Call.Value == nil)

	m := p.router.Methods["depositWithExpiry"]
	assert.Equal(t, q.Call.Data[:4], m.ID)
	args, err := m.Inputs.Unpack(q.Call.Data[4:])
	assert.NoError(t, err)
	assert.Equal(t, args[0].(common.Address), vaultAddr)
	assert.Equal(t, args[1].(common.Address), asset.AddrUSDCEthereum)
	assert.Equal(t, args[2].(*big.Int).Int64(), int64(1_000_000_000))
	assert.Equal(t, args[3].(string), "=:BTC.BTC:"+btcSender)
	assert.Equal(t, args[4].(*big.Int).Int64(), int64(1_900_000_000))
}

func TestProvider_NativeDepositCarriesValue(t *testing.T) {
	p := newTestProvider(t, respond(QuoteSwapResponse{
		InboundAddress:    vaultAddr.Hex(),
		Router:            routerAddr.Hex(),
		ExpectedAmountOut: "5000000",
	}))
	in := asset.NewAmount(asset.ETH, big.NewInt(1_000_000_000_000_000_000))
	q, err := p.QuoteRoute(context.Background(), domain.Request{
		AmountIn: in, TokenOut: asset.BTC, From: evmSender, To: btcSender,
		Deadline: time.Unix(1_800_000_000, 0),
	})
	assert.NoError(t, err)
	assert.Equal(t, q.Call.CallValue().String(), in.Raw().String())
	assert.Equal(t, q.ApprovalTarget, common.Address{})
}

func TestProvider_Failures(t *testing.T) {
	tests := []struct {
		name     string
		handler  http.HandlerFunc
		req      domain.Request
		wantCode apperror.Code
	}{
		{
			name: "below_recommended_minimum",
			handler: respond(QuoteSwapResponse{
				InboundAddress: "bc1qvault", ExpectedAmountOut: "10", RecommendedMinAmountIn: "50000",
			}),
			req:      domain.Request{AmountIn: asset.NewAmount(asset.BTC, big.NewInt(20_000)), TokenOut: asset.ETH, From: btcSender, To: evmSender},
			wantCode: apperror.CodeAmountTooLow,
		},
		{
			name: "simulation_failed",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = io.WriteString(w, `{"code":3,"message":"failed to simulate swap: insufficient liquidity","details":[]}`)
			},
			req:      domain.Request{AmountIn: asset.NewAmount(asset.BTC, big.NewInt(1_000_000)), TokenOut: asset.ETH, From: btcSender, To: evmSender},
			wantCode: apperror.CodeProviderNoLiquidity,
		},
		{
			name:     "tron_source",
			handler:  respond(QuoteSwapResponse{}),
			req:      domain.Request{AmountIn: asset.NewAmount(asset.USDTTron, big.NewInt(1_000_000)), TokenOut: asset.BTC, From: "T", To: btcSender},
			wantCode: apperror.CodeUnsupportedLedger,
		},
		{
			name:     "unserved_chain",
			handler:  respond(QuoteSwapResponse{}),
			req:      domain.Request{AmountIn: asset.NewAmount(asset.USDCPolygon, big.NewInt(1_000_000)), TokenOut: asset.BTC, From: evmSender, To: btcSender},
			wantCode: apperror.CodeProviderInvalidToken,
		},
		{
			name:     "dust_input",
			handler:  respond(QuoteSwapResponse{}),
			req:      domain.Request{AmountIn: asset.NewAmount(asset.ETH, big.NewInt(1)), TokenOut: asset.BTC, From: evmSender, To: btcSender},
			wantCode: apperror.CodeAmountTooLow,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestProvider(t, tt.handler)
			_, err := p.QuoteRoute(context.Background(), tt.req)
			assert.Error(t, err)
			assert.Equal(t, apperror.GetCode(err), tt.wantCode)
		})
	}
}

func TestAssetNotation(t *testing.T) {
	tests := []struct {
		asset *asset.Asset
		want  string
	}{
		{asset.BTC, "BTC.BTC"},
		{asset.ETH, "ETH.ETH"},
		{asset.BNB, "BSC.BNB"},
		{asset.USDT, "ETH.USDT-0XDAC17F958D2EE523A2206206994597C13D831EC7"},
	}
	for _, tt := range tests {
		got, err := assetNotation(tt.asset)
		if err != nil {
			t.Fatalf("assetNotation(%s): %v", tt.asset, err)
		}
		if got != tt.want {
			t.Errorf("assetNotation(%s) = %s, want %s", tt.asset, got, tt.want)
		}
	}
}
