package app

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/fd1az/omniroute/business/routing/domain"
	"github.com/fd1az/omniroute/internal/asset"
)

// withEstimatedImpact returns leg, or a copy carrying an impact estimated
// from the USD values of input and output when the provider reported none.
func (d *Dispatcher) withEstimatedImpact(ctx context.Context, leg *domain.Leg) *domain.Leg {
	if leg.ImpactKnown {
		return leg
	}
	return leg.WithImpact(d.impactOf(ctx, leg.AmountIn, leg.AmountOut))
}

// impactOf is zero whenever either side cannot be valued.
func (d *Dispatcher) impactOf(ctx context.Context, in, out asset.Amount) domain.Impact {
	inUSD, ok := d.valueUSD(ctx, in)
	if !ok || !inUSD.IsPositive() {
		return domain.Impact{}
	}
	outUSD, ok := d.valueUSD(ctx, out)
	if !ok {
		return domain.Impact{}
	}
	return domain.ImpactFromRatio(outUSD.Div(inUSD))
}

func (d *Dispatcher) valueUSD(ctx context.Context, amt asset.Amount) (decimal.Decimal, bool) {
	if d.prices == nil || !amt.IsSet() {
		return decimal.Zero, false
	}
	price, err := d.prices.PriceUSD(ctx, amt.Asset())
	if err != nil {
		d.log.Warn(ctx, "usd price unavailable", "asset", amt.Asset().String(), "error", err)
		return decimal.Zero, false
	}
	return amt.ToDecimal().Mul(price), true
}
