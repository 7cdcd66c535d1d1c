package app_test

import (
	"context"
	"errors"
	"testing"

	"github.com/fd1az/omniroute/business/routing/app"
	"github.com/fd1az/omniroute/business/routing/domain"
	"github.com/fd1az/omniroute/business/routing/domain/domaintest"
	"github.com/fd1az/omniroute/internal/apperror"
	"github.com/fd1az/omniroute/internal/asset"
)

func usdcVenue(topo *domain.Topology) *domain.Venue {
	for _, v := range topo.PoolsBetween(asset.ChainIDEthereum, asset.ChainIDPolygon) {
		if v.SourceTransit.Equals(asset.USDC) && v.DestinationTransit.Equals(asset.USDCPolygon) {
			return &v
		}
	}
	return nil
}

func TestTransitStage_Bridge(t *testing.T) {
	topo := domaintest.Topology()
	venue := usdcVenue(topo)
	if venue == nil {
		t.Fatal("fixture has no USDC venue")
	}

	tests := []struct {
		name      string
		venue     *domain.Venue
		in        asset.Amount
		to        *asset.Asset
		fee       *asset.Amount
		direction domain.Direction
		want      asset.Amount
		routeLen  int
	}{
		{
			name:      "mint",
			in:        raw(asset.USDC, 1_000_000),
			to:        domaintest.SUSDCEthereum,
			direction: domain.DirectionMint,
			want:      raw(domaintest.SUSDCEthereum, 1_000_000),
			routeLen:  2,
		},
		{
			name:      "burn",
			in:        raw(domaintest.SUSDCPolygon, 1_000_000),
			to:        asset.USDCPolygon,
			direction: domain.DirectionBurn,
			want:      raw(asset.USDCPolygon, 1_000_000),
			routeLen:  2,
		},
		{
			name:      "fee_in_input_is_deducted",
			in:        raw(asset.USDC, 1_000_000),
			to:        domaintest.SUSDCEthereum,
			fee:       ptr(raw(asset.USDC, 250_000)),
			direction: domain.DirectionMint,
			want:      raw(domaintest.SUSDCEthereum, 750_000),
			routeLen:  2,
		},
		{
			name:      "through_pool",
			venue:     venue,
			in:        raw(asset.USDC, 1_000_000),
			to:        asset.USDCPolygon,
			direction: domain.DirectionMintBurn,
			want:      raw(asset.USDCPolygon, 997_000),
			routeLen:  4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stage := app.NewTransitStage(topo, &fakePools{num: 997, den: 1000}, tt.venue)
			got, err := stage.Bridge(context.Background(), tt.in, tt.to, tt.fee)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Direction != tt.direction {
				t.Errorf("expected direction %s, got %s", tt.direction, got.Direction)
			}
			if !got.AmountOut.Equals(tt.want) {
				t.Errorf("expected %s, got %s", tt.want, got.AmountOut)
			}
			if len(got.Route) != tt.routeLen {
				t.Errorf("expected route of %d, got %d", tt.routeLen, len(got.Route))
			}
		})
	}
}

func TestTransitStage_PoolImpact(t *testing.T) {
	topo := domaintest.Topology()
	stage := app.NewTransitStage(topo, &fakePools{num: 99, den: 100}, usdcVenue(topo))

	got, err := stage.Bridge(context.Background(), raw(asset.USDC, 1_000_000), asset.USDCPolygon, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.PriceImpact.String() != "1.0000%" {
		t.Errorf("expected 1%% impact, got %s", got.PriceImpact)
	}
	if got.Venue == nil || got.Venue.Pool.ID != "octopool" {
		t.Errorf("expected octopool venue, got %+v", got.Venue)
	}
}

func TestTransitStage_Errors(t *testing.T) {
	topo := domaintest.Topology()

	tests := []struct {
		name  string
		stage *app.TransitStage
		in    asset.Amount
		to    *asset.Asset
		fee   *asset.Amount
		want  apperror.Code
	}{
		{
			name:  "fee_equals_amount",
			stage: app.NewTransitStage(topo, &fakePools{num: 1, den: 1}, nil),
			in:    raw(asset.USDC, 1_000),
			to:    domaintest.SUSDCEthereum,
			fee:   ptr(raw(asset.USDC, 1_000)),
			want:  apperror.CodeAmountLessThanFee,
		},
		{
			name:  "no_venue",
			stage: app.NewTransitStage(topo, &fakePools{num: 1, den: 1}, nil),
			in:    raw(asset.USDC, 1_000),
			to:    asset.USDCPolygon,
			want:  apperror.CodeNoRoute,
		},
		{
			name:  "pool_failure_is_classified",
			stage: app.NewTransitStage(topo, &fakePools{err: errors.New("insufficient liquidity")}, usdcVenue(topo)),
			in:    raw(asset.USDC, 1_000),
			to:    asset.USDCPolygon,
			want:  apperror.CodeProviderNoLiquidity,
		},
		{
			name:  "pool_output_zero",
			stage: app.NewTransitStage(topo, &fakePools{num: 0, den: 1}, usdcVenue(topo)),
			in:    raw(asset.USDC, 1_000),
			to:    asset.USDCPolygon,
			want:  apperror.CodeAmountTooLow,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.stage.Bridge(context.Background(), tt.in, tt.to, tt.fee)
			if got := apperror.GetCode(err); got != tt.want {
				t.Errorf("expected %s, got %s (%v)", tt.want, got, err)
			}
		})
	}
}

func ptr[T any](v T) *T { return &v }
