package asset

import "github.com/ethereum/go-ethereum/common"

var (
	AddrUSDCEthereum = common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")
	AddrUSDTEthereum = common.HexToAddress("0xdAC17F958D2ee523a2206206994597C13D831ec7")
	AddrWETHEthereum = common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2")
	AddrWBTCEthereum = common.HexToAddress("0x2260FAC5E5542a773Aa44fBCfeDf7C193bc2C599")

	AddrUSDCBSC = common.HexToAddress("0x8AC76a51cc950d9822D68b83fE1Ad97B32Cd580d")
	AddrUSDTBSC = common.HexToAddress("0x55d398326f99059fF775485246999027B3197955")
	AddrWBNBBSC = common.HexToAddress("0xbb4CdB9CBd36B01bD1cBaEBF2De08d9173bc095c")

	AddrUSDCPolygon = common.HexToAddress("0x3c499c542cEF5E3811e1192ce70d8cC03d5c3359")
	AddrUSDTPolygon = common.HexToAddress("0xc2132D05D31c914a87C6611C10748AEb04B58e8F")

	// TR7NHqjeKQxGTCi8q8ZY4pL8otSzgjLj6t
	AddrUSDTTron = common.HexToAddress("0xa614f803B6FD780986A42c78Ec9c7f77e6DeD13C")
)

var (
	ETH  = NewNative(ChainIDEthereum, "ETH", "Ether", 18)
	USDC = NewToken(ChainIDEthereum, AddrUSDCEthereum, "USDC", "USD Coin", 6)
	USDT = NewToken(ChainIDEthereum, AddrUSDTEthereum, "USDT", "Tether USD", 6)
	WETH = NewToken(ChainIDEthereum, AddrWETHEthereum, "WETH", "Wrapped Ether", 18)
	WBTC = NewToken(ChainIDEthereum, AddrWBTCEthereum, "WBTC", "Wrapped Bitcoin", 8)

	BNB     = NewNative(ChainIDBSC, "BNB", "BNB", 18)
	WBNB    = NewToken(ChainIDBSC, AddrWBNBBSC, "WBNB", "Wrapped BNB", 18)
	USDCBSC = NewToken(ChainIDBSC, AddrUSDCBSC, "USDC", "USD Coin", 18)
	USDTBSC = NewToken(ChainIDBSC, AddrUSDTBSC, "USDT", "Tether USD", 18)

	POL         = NewNative(ChainIDPolygon, "POL", "Polygon Ecosystem Token", 18)
	USDCPolygon = NewToken(ChainIDPolygon, AddrUSDCPolygon, "USDC", "USD Coin", 6)
	USDTPolygon = NewToken(ChainIDPolygon, AddrUSDTPolygon, "USDT", "Tether USD", 6)

	TRX      = NewNative(ChainIDTron, "TRX", "Tron", 6)
	USDTTron = NewToken(ChainIDTron, AddrUSDTTron, "USDT", "Tether USD", 6)

	BTC = NewNative(ChainIDBitcoin, "BTC", "Bitcoin", 8)
)

// DefaultRegistry returns a registry holding the well-known assets above.
// Deployments extend it from the topology file.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.MustRegister(
		ETH, USDC, USDT, WETH, WBTC,
		BNB, WBNB, USDCBSC, USDTBSC,
		POL, USDCPolygon, USDTPolygon,
		TRX, USDTTron,
		BTC,
	)
	return r
}
