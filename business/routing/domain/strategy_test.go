package domain_test

import (
	"math/big"
	"testing"

	"github.com/fd1az/omniroute/business/routing/domain"
	"github.com/fd1az/omniroute/business/routing/domain/domaintest"
	"github.com/fd1az/omniroute/internal/apperror"
	"github.com/fd1az/omniroute/internal/asset"
)

const (
	alice = "0x00000000000000000000000000000000000A11cE"
	bob   = "0x0000000000000000000000000000000000000B0B"
)

func request(in *asset.Asset, raw int64, out *asset.Asset, from, to string) domain.Request {
	return domain.Request{
		AmountIn: asset.NewAmount(in, big.NewInt(raw)),
		TokenOut: out,
		From:     from,
		To:       to,
	}
}

func TestClassify(t *testing.T) {
	topo := domaintest.Topology()

	tests := []struct {
		name     string
		req      domain.Request
		want     domain.Strategy
		wantCode apperror.Code
	}{
		{"same_asset", request(asset.USDC, 1, asset.USDC, alice, alice), "", apperror.CodeInvalidRequest},
		{"wrap", request(asset.ETH, 1000, asset.WETH, alice, alice), domain.StrategyWrap, ""},
		{"wrap_case_insensitive", request(asset.ETH, 1000, asset.WETH, alice, "0x00000000000000000000000000000000000a11ce"), domain.StrategyWrap, ""},
		{"wrap_to_other_recipient_is_a_swap", request(asset.ETH, 1000, asset.WETH, alice, bob), domain.StrategySameLedger, ""},
		{"unwrap", request(asset.WETH, 1000, asset.ETH, alice, bob), domain.StrategyUnwrap, ""},
		{"fee_collector", request(asset.USDTPolygon, 1000, asset.USDCPolygon, alice, alice), domain.StrategyFeeCollector, ""},
		{"same_ledger", request(asset.USDC, 1000, asset.USDT, alice, alice), domain.StrategySameLedger, ""},
		{"direct_bridge_mint", request(asset.USDC, 1000, domaintest.SUSDCEthereum, alice, alice), domain.StrategyDirectBridge, ""},
		{"direct_bridge_burn", request(domaintest.SUSDCEthereum, 1000, asset.USDC, alice, alice), domain.StrategyDirectBridge, ""},
		{"specialized", request(asset.USDC, 1000, asset.BTC, alice, "bc1qw508d6qejxtdg4y5r3zarvary0c5xw7kv8f3t4"), domain.StrategySpecialized, ""},
		{"general", request(asset.USDC, 15_000_000, asset.USDTPolygon, alice, bob), domain.StrategyGeneralCrossLedger, ""},
		{"unknown_ledger", request(asset.NewNative(asset.ChainIDArbitrum, "ETH", "Ether", 18), 1, asset.USDC, alice, alice), "", apperror.CodeUnsupportedLedger},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := domain.Classify(tt.req, topo)
			if tt.wantCode != "" {
				if apperror.GetCode(err) != tt.wantCode {
					t.Fatalf("expected %s, got %v", tt.wantCode, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestClassify_SameAssetIsInvalidRequestKind(t *testing.T) {
	_, err := domain.Classify(request(asset.WETH, 1, asset.WETH, alice, alice), domaintest.Topology())
	if apperror.GetKind(err) != apperror.KindInvalidRequest {
		t.Errorf("expected InvalidRequest kind, got %v", err)
	}
}
