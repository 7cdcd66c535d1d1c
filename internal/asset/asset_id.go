// Package asset models on-ledger assets and exact amounts of them.
// Raw values are big.Int in the asset's smallest unit; decimal.Decimal only
// appears at the boundaries (parsing, display, USD valuation).
package asset

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

const nativeKey = "native"

// AssetID is the identity of an asset: the ledger it lives on plus its
// contract address. The zero address marks the ledger's native coin.
type AssetID struct {
	chainID uint64
	address common.Address
}

// NewNativeAssetID returns the id of a ledger's native coin.
func NewNativeAssetID(chainID uint64) AssetID {
	return AssetID{chainID: chainID}
}

// NewTokenAssetID returns the id of a token contract.
func NewTokenAssetID(chainID uint64, addr common.Address) AssetID {
	if addr == (common.Address{}) {
		panic("asset: token address cannot be zero, use NewNativeAssetID")
	}
	return AssetID{chainID: chainID, address: addr}
}

// ParseAssetID parses the "chain:<id>/<address|native>" form produced by String.
func ParseAssetID(s string) (AssetID, error) {
	rest, ok := strings.CutPrefix(s, "chain:")
	if !ok {
		return AssetID{}, fmt.Errorf("asset: malformed id %q", s)
	}
	chainPart, addrPart, ok := strings.Cut(rest, "/")
	if !ok {
		return AssetID{}, fmt.Errorf("asset: malformed id %q", s)
	}
	chainID, err := strconv.ParseUint(chainPart, 10, 64)
	if err != nil {
		return AssetID{}, fmt.Errorf("asset: malformed chain id in %q: %w", s, err)
	}
	if addrPart == nativeKey {
		return NewNativeAssetID(chainID), nil
	}
	if !common.IsHexAddress(addrPart) {
		return AssetID{}, fmt.Errorf("asset: malformed address in %q", s)
	}
	addr := common.HexToAddress(addrPart)
	if addr == (common.Address{}) {
		return NewNativeAssetID(chainID), nil
	}
	return NewTokenAssetID(chainID, addr), nil
}

func (id AssetID) ChainID() uint64 {
	return id.chainID
}

func (id AssetID) Address() common.Address {
	return id.address
}

// Family returns the default ledger family of the asset's chain.
func (id AssetID) Family() Family {
	return FamilyOf(id.chainID)
}

// IsNative reports whether the id points at the ledger's native coin.
func (id AssetID) IsNative() bool {
	return id.address == (common.Address{})
}

func (id AssetID) String() string {
	if id.IsNative() {
		return fmt.Sprintf("chain:%d/%s", id.chainID, nativeKey)
	}
	return fmt.Sprintf("chain:%d/%s", id.chainID, id.address.Hex())
}

func (id AssetID) Equals(other AssetID) bool {
	return id == other
}
