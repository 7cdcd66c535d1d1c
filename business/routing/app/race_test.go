package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fd1az/omniroute/business/routing/app"
	"github.com/fd1az/omniroute/business/routing/domain"
	"github.com/fd1az/omniroute/internal/apperror"
	"github.com/fd1az/omniroute/internal/asset"
)

func legCandidate(name string, out asset.Amount, err error, delay time.Duration) app.Candidate[*domain.Leg] {
	return app.Candidate[*domain.Leg]{
		Name: name,
		Run: func(ctx context.Context) (*domain.Leg, error) {
			if delay > 0 {
				select {
				case <-time.After(delay):
				case <-ctx.Done():
					return nil, ctx.Err()
				}
			}
			if err != nil {
				return nil, err
			}
			return &domain.Leg{Provider: name, AmountOut: out}, nil
		},
	}
}

func TestRace_BestOf(t *testing.T) {
	tests := []struct {
		name       string
		candidates []app.Candidate[*domain.Leg]
		want       string
	}{
		{
			name: "greatest_output_wins",
			candidates: []app.Candidate[*domain.Leg]{
				legCandidate("a", asset.Amount{}, errors.New("no liquidity"), 0),
				legCandidate("b", raw(asset.USDC, 10), nil, 0),
				legCandidate("c", raw(asset.USDC, 15), nil, 0),
			},
			want: "c",
		},
		{
			name: "tie_keeps_first",
			candidates: []app.Candidate[*domain.Leg]{
				legCandidate("a", raw(asset.USDC, 10), nil, 20*time.Millisecond),
				legCandidate("b", raw(asset.USDC, 10), nil, 0),
			},
			want: "a",
		},
		{
			name: "slow_winner_is_awaited",
			candidates: []app.Candidate[*domain.Leg]{
				legCandidate("fast", raw(asset.USDC, 10), nil, 0),
				legCandidate("slow", raw(asset.USDC, 11), nil, 30*time.Millisecond),
			},
			want: "slow",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := app.Race(context.Background(), app.RaceOptions{Mode: app.BestOf}, tt.candidates...)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Provider != tt.want {
				t.Errorf("expected winner %s, got %s", tt.want, got.Provider)
			}
		})
	}
}

func TestRace_AllFail(t *testing.T) {
	_, err := app.Race(context.Background(), app.RaceOptions{Mode: app.BestOf},
		legCandidate("a", asset.Amount{}, errors.New("insufficient liquidity"), 0),
		legCandidate("b", asset.Amount{}, errors.New("amount too low"), 0),
	)

	var agg *apperror.AggregateError
	if !errors.As(err, &agg) {
		t.Fatalf("expected aggregate error, got %v", err)
	}
	if len(agg.Failures) != 2 {
		t.Fatalf("expected 2 failures, got %d", len(agg.Failures))
	}
	if agg.Failures[0].Candidate != "a" || agg.Failures[1].Candidate != "b" {
		t.Errorf("failures out of candidate order: %+v", agg.Failures)
	}
	if agg.Failures[0].Code != apperror.CodeProviderNoLiquidity {
		t.Errorf("expected %s, got %s", apperror.CodeProviderNoLiquidity, agg.Failures[0].Code)
	}
	if agg.Preferred() != apperror.CodeAmountTooLow {
		t.Errorf("expected preferred %s, got %s", apperror.CodeAmountTooLow, agg.Preferred())
	}
}

func TestRace_AssetMismatchFailsFast(t *testing.T) {
	_, err := app.Race(context.Background(), app.RaceOptions{Mode: app.BestOf},
		legCandidate("a", raw(asset.USDC, 10), nil, 0),
		legCandidate("b", raw(asset.USDT, 10), nil, 0),
	)
	if apperror.GetCode(err) != apperror.CodeAssetMismatch {
		t.Errorf("expected %s, got %v", apperror.CodeAssetMismatch, err)
	}
}

func TestRace_NoCandidates(t *testing.T) {
	_, err := app.Race[*domain.Leg](context.Background(), app.RaceOptions{})
	if apperror.GetCode(err) != apperror.CodeNoRoute {
		t.Errorf("expected %s, got %v", apperror.CodeNoRoute, err)
	}
}

func TestRace_TimeoutIsTagged(t *testing.T) {
	_, err := app.Race(context.Background(), app.RaceOptions{Mode: app.BestOf, Timeout: 10 * time.Millisecond},
		legCandidate("slow", raw(asset.USDC, 10), nil, time.Second),
	)

	var agg *apperror.AggregateError
	if !errors.As(err, &agg) {
		t.Fatalf("expected aggregate error, got %v", err)
	}
	if !agg.Failures[0].Timeout || agg.Failures[0].Code != apperror.CodeProviderTimeout {
		t.Errorf("expected timeout failure, got %+v", agg.Failures[0])
	}
}

func TestRace_PanicBecomesFailure(t *testing.T) {
	boom := app.Candidate[*domain.Leg]{
		Name: "boom",
		Run:  func(context.Context) (*domain.Leg, error) { panic("kaboom") },
	}
	got, err := app.Race(context.Background(), app.RaceOptions{Mode: app.BestOf},
		boom,
		legCandidate("ok", raw(asset.USDC, 1), nil, 0),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Provider != "ok" {
		t.Errorf("expected ok, got %s", got.Provider)
	}
}

func TestRace_FirstSuccess(t *testing.T) {
	done := make(chan string, 3)
	opts := app.RaceOptions{
		Mode:    app.FirstSuccess,
		Observe: func(name string, _ time.Duration, _ error) { done <- name },
	}

	got, err := app.Race(context.Background(), opts,
		legCandidate("failing", asset.Amount{}, errors.New("rate limit"), 0),
		legCandidate("slow_big", raw(asset.USDC, 100), nil, 50*time.Millisecond),
		legCandidate("fast_small", raw(asset.USDC, 1), nil, 5*time.Millisecond),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Provider != "fast_small" {
		t.Errorf("expected fast_small, got %s", got.Provider)
	}
	if len(done) != 3 {
		t.Errorf("expected every candidate to finish, %d did", len(done))
	}
}
