package thorchain

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/fd1az/omniroute/internal/asset"
)

// thorDecimals is the fixed precision of every THORChain amount.
const thorDecimals = 8

var networks = map[uint64]string{
	asset.ChainIDEthereum:  "ETH",
	asset.ChainIDBSC:       "BSC",
	asset.ChainIDAvalanche: "AVAX",
	asset.ChainIDBase:      "BASE",
	asset.ChainIDBitcoin:   "BTC",
}

// assetNotation renders CHAIN.SYMBOL for natives and CHAIN.SYMBOL-ADDRESS
// for tokens, e.g. ETH.USDC-0XA0B86991C6218B36C1D19D4A2E9EB0CE3606EB48.
func assetNotation(a *asset.Asset) (string, error) {
	network, ok := networks[a.ChainID()]
	if !ok {
		return "", fmt.Errorf("thorchain does not serve chain %d: not supported", a.ChainID())
	}
	if a.IsNative() {
		return network + "." + a.Symbol(), nil
	}
	return network + "." + a.Symbol() + "-" + strings.ToUpper(a.Address().Hex()), nil
}

// toThorUnits rescales an amount to 1e8 precision, rounding down.
func toThorUnits(a asset.Amount) *big.Int {
	return rescale(a.Raw(), int(a.Asset().Decimals()), thorDecimals)
}

// fromThorUnits parses a 1e8 amount into the asset's own precision.
func fromThorUnits(a *asset.Asset, s string) (asset.Amount, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok || v.Sign() < 0 {
		return asset.Amount{}, fmt.Errorf("invalid thorchain amount %q", s)
	}
	return asset.NewAmount(a, rescale(v, thorDecimals, int(a.Decimals()))), nil
}

func rescale(v *big.Int, from, to int) *big.Int {
	out := new(big.Int).Set(v)
	switch {
	case to > from:
		out.Mul(out, new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(to-from)), nil))
	case from > to:
		out.Quo(out, new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(from-to)), nil))
	}
	return out
}
