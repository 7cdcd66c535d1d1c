// Package domaintest provides a small multi-ledger topology for tests.
package domaintest

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/omniroute/business/routing/domain"
	"github.com/fd1az/omniroute/internal/asset"
)

// Hub ledger synthetics, all pooled in the omni-pool.
var (
	SUSDCEthereum = asset.NewToken(asset.ChainIDBSC, common.HexToAddress("0x5e19eFc6AC9C80bfAA755259c9fab2398A8E87eB"), "sUSDC", "Synthetic USDC from Ethereum", 6)
	SUSDCPolygon  = asset.NewToken(asset.ChainIDBSC, common.HexToAddress("0x7d6EC42b5d9566931560411a8652Cea00b90d982"), "sUSDC", "Synthetic USDC from Polygon", 6)
	SUSDTTron     = asset.NewToken(asset.ChainIDBSC, common.HexToAddress("0x1a25A3dB5fA2e1A1e3C4DdA0C8d4e1F8B5B3F0a1"), "sUSDT", "Synthetic USDT from Tron", 6)
)

// Deployment addresses, one set per ledger.
var (
	RouterEthereum    = common.HexToAddress("0x0000000000000000000000000000000000001001")
	GatewayEthereum   = common.HexToAddress("0x0000000000000000000000000000000000001002")
	PortalEthereum    = common.HexToAddress("0x0000000000000000000000000000000000001003")
	SynthesisEthereum = common.HexToAddress("0x0000000000000000000000000000000000001004")

	RouterBSC    = common.HexToAddress("0x0000000000000000000000000000000000005601")
	GatewayBSC   = common.HexToAddress("0x0000000000000000000000000000000000005602")
	PortalBSC    = common.HexToAddress("0x0000000000000000000000000000000000005603")
	SynthesisBSC = common.HexToAddress("0x0000000000000000000000000000000000005604")

	RouterPolygon    = common.HexToAddress("0x0000000000000000000000000000000000013701")
	GatewayPolygon   = common.HexToAddress("0x0000000000000000000000000000000000013702")
	PortalPolygon    = common.HexToAddress("0x0000000000000000000000000000000000013703")
	SynthesisPolygon = common.HexToAddress("0x0000000000000000000000000000000000013704")

	RouterTron  = common.HexToAddress("0x00000000000000000000000000000000000ee001")
	GatewayTron = common.HexToAddress("0x00000000000000000000000000000000000ee002")
	PortalTron  = common.HexToAddress("0x00000000000000000000000000000000000ee003")

	OmniPoolAddress  = common.HexToAddress("0x6148FD6C649866596C3d8a971fC313E5eCE84882")
	CollectorPolygon = common.HexToAddress("0x0000000000000000000000000000000000013799")
)

// CollectorFee is the flat fee the Polygon collector takes from USDT.
var CollectorFee = big.NewInt(100_000)

// Pool is the omni-pool of the fixture.
var Pool = &domain.OmniPool{
	ID:      "octopool",
	ChainID: asset.ChainIDBSC,
	Address: OmniPoolAddress,
	Tokens:  []*asset.Asset{SUSDCEthereum, SUSDCPolygon, SUSDTTron},
}

// Registry returns the well-known assets plus the fixture synthetics.
func Registry() *asset.Registry {
	r := asset.DefaultRegistry()
	r.MustRegister(SUSDCEthereum, SUSDCPolygon, SUSDTTron)
	return r
}

// Topology returns Ethereum, Polygon and Tron connected through an omni-pool
// on BSC, a fee collector on Polygon, and BTC served by "thorchain".
func Topology() *domain.Topology {
	ledgers := []*domain.Ledger{
		{
			ChainID: asset.ChainIDEthereum, Name: "ethereum", Family: asset.FamilyEVM,
			Router: RouterEthereum, Gateway: GatewayEthereum, Portal: PortalEthereum, Synthesis: SynthesisEthereum,
			WrappedNative: asset.WETH,
			TransitAssets: []*asset.Asset{asset.USDC},
		},
		{
			ChainID: asset.ChainIDBSC, Name: "bsc", Family: asset.FamilyEVM,
			Router: RouterBSC, Gateway: GatewayBSC, Portal: PortalBSC, Synthesis: SynthesisBSC,
			WrappedNative: asset.WBNB,
			TransitAssets: []*asset.Asset{asset.USDCBSC},
		},
		{
			ChainID: asset.ChainIDPolygon, Name: "polygon", Family: asset.FamilyEVM,
			Router: RouterPolygon, Gateway: GatewayPolygon, Portal: PortalPolygon, Synthesis: SynthesisPolygon,
			TransitAssets: []*asset.Asset{asset.USDCPolygon},
		},
		{
			ChainID: asset.ChainIDTron, Name: "tron", Family: asset.FamilyTron,
			Router: RouterTron, Gateway: GatewayTron, Portal: PortalTron,
			TransitAssets: []*asset.Asset{asset.USDTTron},
		},
		{
			ChainID: asset.ChainIDBitcoin, Name: "bitcoin", Family: asset.FamilyUTXO,
		},
	}
	synthetics := []domain.SyntheticLink{
		{Real: asset.USDC, Synthetic: SUSDCEthereum},
		{Real: asset.USDCPolygon, Synthetic: SUSDCPolygon},
		{Real: asset.USDTTron, Synthetic: SUSDTTron},
	}
	collectors := []*domain.FeeCollector{{
		ChainID:        asset.ChainIDPolygon,
		Address:        CollectorPolygon,
		ApprovalTarget: CollectorPolygon,
		Fees:           map[asset.AssetID]*big.Int{asset.USDTPolygon.ID(): CollectorFee},
	}}
	specialized := []domain.SpecializedRoute{{Asset: asset.BTC, Protocols: []string{"thorchain"}}}

	topo, err := domain.NewTopology(ledgers, synthetics, []*domain.OmniPool{Pool}, collectors, specialized)
	if err != nil {
		panic(err)
	}
	return topo
}
