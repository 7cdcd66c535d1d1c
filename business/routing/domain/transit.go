package domain

import "github.com/fd1az/omniroute/internal/asset"

// Direction is the bridging operation the transit stage performs.
type Direction string

const (
	// DirectionMint locks a real asset and mints its synthetic elsewhere.
	DirectionMint Direction = "mint"
	// DirectionBurn burns a synthetic and releases its real asset.
	DirectionBurn Direction = "burn"
	// DirectionMintBurn mints into an omni-pool, swaps to another synthetic
	// and burns it out to that synthetic's real asset.
	DirectionMintBurn Direction = "mint-burn"
)

// TransitResult is the cross-ledger stage of a route.
type TransitResult struct {
	Direction Direction
	// AmountIn is what enters the bridge after any fee taken from it.
	AmountIn  asset.Amount
	AmountOut asset.Amount
	Fee       asset.Amount
	// FeeDeducted is set when Fee was taken out of AmountIn.
	FeeDeducted bool
	Route       []*asset.Asset
	PriceImpact Impact
	Venue       *Venue
}

// Output is the amount delivered on the destination ledger.
func (t TransitResult) Output() asset.Amount {
	return t.AmountOut
}
