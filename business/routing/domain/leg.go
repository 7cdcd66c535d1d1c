package domain

import (
	"math/big"
	"slices"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/omniroute/internal/asset"
)

// Call is a contract invocation. Signature is the human readable method
// signature, e.g. "withdraw(uint256)", needed by ledgers that select the
// method by signature rather than by calldata prefix.
type Call struct {
	Target    common.Address
	Data      []byte
	Value     *big.Int
	Signature string
}

// CallValue returns Value, or zero when unset.
func (c Call) CallValue() *big.Int {
	if c.Value == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(c.Value)
}

// Leg is one on-ledger swap quoted by an adapter.
type Leg struct {
	Provider  string
	AmountIn  asset.Amount
	AmountOut asset.Amount
	Path      []*asset.Asset

	// PriceImpact is the provider's own figure when ImpactKnown is set.
	PriceImpact Impact
	ImpactKnown bool

	Call Call
	// PatchOffset is the byte offset in Call.Data of the 32-byte input
	// amount word, so an executor can patch in the amount actually received
	// from the previous stage.
	PatchOffset    uint64
	ApprovalTarget common.Address
}

// Output is the quoted output amount.
func (l *Leg) Output() asset.Amount {
	return l.AmountOut
}

// WithImpact returns a copy of the leg carrying impact. Legs are shared
// with the provider that produced them and are never modified in place.
func (l *Leg) WithImpact(impact Impact) *Leg {
	c := *l
	c.Path = slices.Clone(l.Path)
	c.Call.Data = slices.Clone(l.Call.Data)
	c.PriceImpact = impact
	return &c
}

// Route returns the leg's path, falling back to its endpoints.
func (l *Leg) Route() []*asset.Asset {
	if len(l.Path) > 0 {
		return l.Path
	}
	return []*asset.Asset{l.AmountIn.Asset(), l.AmountOut.Asset()}
}
