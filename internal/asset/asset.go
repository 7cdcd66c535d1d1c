package asset

import "github.com/ethereum/go-ethereum/common"

// Asset is the metadata of an asset. Identity is the AssetID; the symbol is
// only for display and may repeat across ledgers.
type Asset struct {
	id       AssetID
	symbol   string
	name     string
	decimals uint8
}

// NewAsset creates an asset. It panics on metadata that can never be valid.
func NewAsset(id AssetID, symbol string, decimals uint8) *Asset {
	if symbol == "" {
		panic("asset: empty symbol")
	}
	if decimals > 36 {
		panic("asset: suspicious decimals (>36)")
	}
	return &Asset{id: id, symbol: symbol, decimals: decimals}
}

// NewAssetWithName creates an asset with a human readable name.
func NewAssetWithName(id AssetID, symbol, name string, decimals uint8) *Asset {
	a := NewAsset(id, symbol, decimals)
	a.name = name
	return a
}

// NewToken is shorthand for a token asset on chainID.
func NewToken(chainID uint64, addr common.Address, symbol, name string, decimals uint8) *Asset {
	return NewAssetWithName(NewTokenAssetID(chainID, addr), symbol, name, decimals)
}

// NewNative is shorthand for the native coin of chainID.
func NewNative(chainID uint64, symbol, name string, decimals uint8) *Asset {
	return NewAssetWithName(NewNativeAssetID(chainID), symbol, name, decimals)
}

func (a *Asset) ID() AssetID { return a.id }

func (a *Asset) Symbol() string { return a.symbol }

func (a *Asset) Name() string {
	if a.name == "" {
		return a.symbol
	}
	return a.name
}

func (a *Asset) Decimals() uint8 { return a.decimals }

func (a *Asset) ChainID() uint64 { return a.id.ChainID() }

func (a *Asset) Address() common.Address { return a.id.Address() }

func (a *Asset) IsNative() bool { return a.id.IsNative() }

func (a *Asset) Family() Family { return a.id.Family() }

// String returns "SYMBOL@chain" so that same-symbol assets on different
// ledgers stay distinguishable in logs and routes.
func (a *Asset) String() string {
	if a == nil {
		return "<nil>"
	}
	return a.symbol + "@" + formatChain(a.id.chainID)
}

// Equals compares assets by identity.
func (a *Asset) Equals(other *Asset) bool {
	if a == nil || other == nil {
		return a == other
	}
	return a.id.Equals(other.id)
}
