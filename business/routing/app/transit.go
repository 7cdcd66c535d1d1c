package app

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/fd1az/omniroute/business/routing/domain"
	"github.com/fd1az/omniroute/internal/apperror"
	"github.com/fd1az/omniroute/internal/asset"
)

const tracerName = "github.com/fd1az/omniroute/business/routing/app"

// TransitStage moves an amount across ledgers. Whether it mints or burns
// follows from whether the source asset is synthetic. Real-to-real moves go
// through the stage's omni-pool venue, when it has one.
type TransitStage struct {
	topo  *domain.Topology
	pools PoolQuoter
	venue *domain.Venue
}

// NewTransitStage creates a stage. venue may be nil for direct bridging.
func NewTransitStage(topo *domain.Topology, pools PoolQuoter, venue *domain.Venue) *TransitStage {
	return &TransitStage{topo: topo, pools: pools, venue: venue}
}

// Bridge prices moving amountIn to destination. When fee is set and is
// denominated in the input asset it is deducted before bridging; a fee in
// any other asset is reported but leaves the amount untouched.
func (s *TransitStage) Bridge(ctx context.Context, amountIn asset.Amount, destination *asset.Asset, fee *asset.Amount) (domain.TransitResult, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "transit.bridge")
	defer span.End()

	src := amountIn.Asset()
	span.SetAttributes(
		attribute.String("transit.from", src.String()),
		attribute.String("transit.to", destination.String()),
	)

	res := domain.TransitResult{AmountIn: amountIn, Fee: asset.Zero(src)}
	if fee != nil && fee.IsSet() {
		res.Fee = *fee
		if fee.Asset().Equals(src) {
			if cmp, _ := fee.Cmp(amountIn); cmp >= 0 {
				err := apperror.New(apperror.CodeAmountLessThanFee,
					apperror.WithContext(fmt.Sprintf("amount %s, fee %s", amountIn, fee)))
				span.SetStatus(codes.Error, err.Error())
				return domain.TransitResult{}, err
			}
			bridged, err := amountIn.Sub(*fee)
			if err != nil {
				return domain.TransitResult{}, err
			}
			res.AmountIn = bridged
			res.FeeDeducted = true
		}
	}

	var err error
	switch {
	case s.isMint(src, destination):
		res.Direction = domain.DirectionMint
		res.AmountOut = res.AmountIn.Rescale(destination)
		res.Route = []*asset.Asset{src, destination}
	case s.isBurn(src, destination):
		res.Direction = domain.DirectionBurn
		res.AmountOut = res.AmountIn.Rescale(destination)
		res.Route = []*asset.Asset{src, destination}
	default:
		err = s.throughPool(ctx, &res, destination)
	}
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return domain.TransitResult{}, err
	}

	span.SetAttributes(
		attribute.String("transit.direction", string(res.Direction)),
		attribute.String("transit.amount_out", res.AmountOut.String()),
	)
	span.SetStatus(codes.Ok, "")
	return res, nil
}

func (s *TransitStage) isMint(src, dst *asset.Asset) bool {
	syn, ok := s.topo.SyntheticOf(src, dst.ChainID())
	return ok && syn.Equals(dst)
}

func (s *TransitStage) isBurn(src, dst *asset.Asset) bool {
	origin, ok := s.topo.RealOf(src)
	return ok && origin.Equals(dst)
}

// throughPool mints src into the venue's pool, swaps to the synthetic of
// dst and burns it out to dst.
func (s *TransitStage) throughPool(ctx context.Context, res *domain.TransitResult, dst *asset.Asset) error {
	src := res.AmountIn.Asset()
	if s.venue == nil || !s.venue.SourceTransit.Equals(src) || !s.venue.DestinationTransit.Equals(dst) {
		return apperror.New(apperror.CodeNoRoute,
			apperror.WithContext(fmt.Sprintf("no bridge from %s to %s", src, dst)))
	}
	pool := s.venue.Pool
	synIn, ok := s.topo.SyntheticOf(src, pool.ChainID)
	if !ok {
		return apperror.New(apperror.CodeNoRoute, apperror.WithContext("no synthetic of "+src.String()))
	}
	synOut, ok := s.topo.SyntheticOf(dst, pool.ChainID)
	if !ok {
		return apperror.New(apperror.CodeNoRoute, apperror.WithContext("no synthetic of "+dst.String()))
	}

	minted := res.AmountIn.Rescale(synIn)
	swapped, err := s.pools.QuotePool(ctx, pool, minted, synOut)
	if err != nil {
		return apperror.Provider(pool.ID, err)
	}
	if !swapped.Asset().Equals(synOut) {
		return apperror.New(apperror.CodeAssetMismatch,
			apperror.WithContext(fmt.Sprintf("pool %s returned %s, want %s", pool.ID, swapped.Asset(), synOut)))
	}
	if !swapped.IsPositive() {
		return apperror.New(apperror.CodeAmountTooLow, apperror.WithContext("pool output is zero"))
	}

	res.Direction = domain.DirectionMintBurn
	res.AmountOut = swapped.Rescale(dst)
	res.Route = []*asset.Asset{src, synIn, synOut, dst}
	res.PriceImpact = poolImpact(minted, swapped)
	res.Venue = s.venue
	return nil
}

// Pool tokens are pegged stables, so impact is what the pool keeps beyond
// a one to one exchange.
func poolImpact(in, out asset.Amount) domain.Impact {
	din := in.ToDecimal()
	if din.IsZero() {
		return domain.Impact{}
	}
	ratio := out.ToDecimal().Div(din)
	if ratio.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return domain.Impact{}
	}
	return domain.ImpactFromRatio(ratio)
}
