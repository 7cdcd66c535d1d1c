// Package app contains application services and port definitions for the pricing context.
package app

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/fd1az/omniroute/business/pricing/domain"
)

// TickerStream holds the latest streamed ticker per market.
type TickerStream interface {
	// Ticker returns the last ticker received for market.
	Ticker(market string) (domain.Ticker, bool)
	// Connected reports whether the stream is live.
	Connected() bool
}

// LastPriceFetcher fetches a market's last trade price on demand.
type LastPriceFetcher interface {
	LastPrice(ctx context.Context, market string) (decimal.Decimal, error)
}
