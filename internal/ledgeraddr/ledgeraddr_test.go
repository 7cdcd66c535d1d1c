package ledgeraddr_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/omniroute/internal/asset"
	"github.com/fd1az/omniroute/internal/ledgeraddr"
)

const usdtTron = "TR7NHqjeKQxGTCi8q8ZY4pL8otSzgjLj6t"

func TestTron_RoundTrip(t *testing.T) {
	if got := ledgeraddr.EncodeTron(asset.AddrUSDTTron); got != usdtTron {
		t.Errorf("expected %s, got %s", usdtTron, got)
	}

	tests := []struct {
		name  string
		input string
	}{
		{"base58", usdtTron},
		{"prefixed_hex", "41a614f803b6fd780986a42c78ec9c7f77e6ded13c"},
		{"evm_hex", "0xa614f803B6FD780986A42c78Ec9c7f77e6DeD13C"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ledgeraddr.DecodeTron(tt.input)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != asset.AddrUSDTTron {
				t.Errorf("expected %s, got %s", asset.AddrUSDTTron.Hex(), got.Hex())
			}
		})
	}
}

func TestTron_RejectsBadChecksum(t *testing.T) {
	bad := usdtTron[:len(usdtTron)-1] + "u"
	if _, err := ledgeraddr.DecodeTron(bad); !errors.Is(err, ledgeraddr.ErrInvalidAddress) {
		t.Errorf("expected ErrInvalidAddress, got %v", err)
	}
}

func TestTronHex(t *testing.T) {
	got := ledgeraddr.TronHex(asset.AddrUSDTTron)
	if !strings.HasPrefix(got, "41") || len(got) != 42 {
		t.Errorf("unexpected tron hex %s", got)
	}
}

func TestUTXO(t *testing.T) {
	// BIP-173 example P2WPKH address
	addr := "bc1qw508d6qejxtdg4y5r3zarvary0c5xw7kv8f3t4"
	script, err := ledgeraddr.UTXOScript(addr)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if script != "0014751e76e8199196d454941c45d1b3a323f1433bd6" {
		t.Errorf("unexpected script %s", script)
	}

	if _, err := ledgeraddr.DecodeUTXO("tb1qw508d6qejxtdg4y5r3zarvary0c5xw7kxpjzsx"); err == nil {
		t.Error("expected testnet address to be rejected")
	}
}

func TestParse(t *testing.T) {
	evm := "0x000000000000000000000000000000000000dEaD"
	got, err := ledgeraddr.Parse(asset.FamilyEVM, evm)
	if err != nil || got != common.HexToAddress(evm) {
		t.Errorf("expected %s, got %s (err=%v)", evm, got.Hex(), err)
	}
	if _, err := ledgeraddr.Parse(asset.FamilyEVM, usdtTron); err == nil {
		t.Error("expected tron address to be rejected on an evm ledger")
	}
	if ledgeraddr.Format(asset.FamilyTron, asset.AddrUSDTTron) != usdtTron {
		t.Error("expected tron formatting")
	}
}
