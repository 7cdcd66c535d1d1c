// Package domain contains the core domain types for the pricing context.
package domain

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/fd1az/omniroute/internal/asset"
)

// Source tells where a USD price came from.
type Source string

const (
	SourceStream Source = "stream"
	SourceREST   Source = "rest"
	SourcePegged Source = "pegged"
)

var two = decimal.NewFromInt(2)

// Ticker is the best bid and ask of one market.
type Ticker struct {
	Symbol    string
	Bid       decimal.Decimal
	Ask       decimal.Decimal
	UpdatedAt time.Time
}

// Valid reports whether both sides are positive and not crossed.
func (t Ticker) Valid() bool {
	return t.Bid.IsPositive() && t.Ask.IsPositive() && t.Ask.GreaterThanOrEqual(t.Bid)
}

// Mid returns the mid-market price.
func (t Ticker) Mid() decimal.Decimal {
	return t.Bid.Add(t.Ask).Div(two)
}

// Spread returns the bid/ask spread.
func (t Ticker) Spread() Spread {
	return CalculateSpread(t.Bid, t.Ask)
}

// Age is how old the ticker is at now.
func (t Ticker) Age(now time.Time) time.Duration {
	return now.Sub(t.UpdatedAt)
}

// USDPrice is the value of one whole unit of an asset in US dollars.
type USDPrice struct {
	Asset  *asset.Asset
	Market string // empty for pegged assets
	Price  decimal.Decimal
	Source Source
	At     time.Time
}

// Value converts an amount into dollars.
func (p USDPrice) Value(a asset.Amount) decimal.Decimal {
	return a.ToDecimal().Mul(p.Price)
}
