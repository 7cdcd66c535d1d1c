package asset

import (
	"fmt"
	"strconv"
)

// Family is the execution model of a ledger. It decides how a transaction
// payload for that ledger has to be shaped.
type Family string

const (
	FamilyEVM  Family = "evm"
	FamilyTron Family = "tron"
	FamilyUTXO Family = "utxo"
)

// Chain IDs. Non-EVM ledgers use the identifiers the routing backend
// assigns them so that every asset is still keyed by a uint64.
const (
	ChainIDEthereum  = 1
	ChainIDBSC       = 56
	ChainIDPolygon   = 137
	ChainIDAvalanche = 43114
	ChainIDArbitrum  = 42161
	ChainIDOptimism  = 10
	ChainIDBase      = 8453
	ChainIDTron      = 728126428
	ChainIDBitcoin   = 3652501241
)

var families = map[uint64]Family{
	ChainIDTron:    FamilyTron,
	ChainIDBitcoin: FamilyUTXO,
}

// FamilyOf returns the default ledger family of a chain. Chains without a
// known family are treated as EVM.
func FamilyOf(chainID uint64) Family {
	if f, ok := families[chainID]; ok {
		return f
	}
	return FamilyEVM
}

// ParseFamily parses the textual family used in configuration files.
// An empty value falls back to the chain's default family.
func ParseFamily(s string, chainID uint64) (Family, error) {
	switch Family(s) {
	case FamilyEVM, FamilyTron, FamilyUTXO:
		return Family(s), nil
	case "":
		return FamilyOf(chainID), nil
	}
	return "", fmt.Errorf("asset: unknown ledger family %q", s)
}

func formatChain(chainID uint64) string {
	return strconv.FormatUint(chainID, 10)
}
