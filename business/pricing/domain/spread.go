package domain

import "github.com/shopspring/decimal"

var bpsScale = decimal.NewFromInt(10000)

// Spread is the gap between the best bid and the best ask.
type Spread struct {
	Bid         decimal.Decimal
	Ask         decimal.Decimal
	Absolute    decimal.Decimal // Ask - Bid
	BasisPoints decimal.Decimal // (Ask - Bid) / Mid * 10000
}

// CalculateSpread computes the spread relative to the mid price.
func CalculateSpread(bid, ask decimal.Decimal) Spread {
	absolute := ask.Sub(bid)
	mid := bid.Add(ask).Div(two)
	bps := decimal.Zero
	if !mid.IsZero() {
		bps = absolute.Div(mid).Mul(bpsScale)
	}
	return Spread{
		Bid:         bid,
		Ask:         ask,
		Absolute:    absolute,
		BasisPoints: bps,
	}
}

// WiderThan reports whether the spread exceeds maxBps. A non-positive
// maxBps never rejects.
func (s Spread) WiderThan(maxBps int64) bool {
	if maxBps <= 0 {
		return false
	}
	return s.BasisPoints.GreaterThan(decimal.NewFromInt(maxBps))
}
