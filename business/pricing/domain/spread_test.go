package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fd1az/omniroute/internal/asset"
)

func TestCalculateSpread(t *testing.T) {
	tests := []struct {
		name         string
		bid          string
		ask          string
		wantAbsolute string
		wantBPS      string
	}{
		{
			name:         "locked_book",
			bid:          "3400.00",
			ask:          "3400.00",
			wantAbsolute: "0",
			wantBPS:      "0",
		},
		{
			name:         "one_dollar_on_two_hundred",
			bid:          "199.5",
			ask:          "200.5",
			wantAbsolute: "1",
			wantBPS:      "50", // 1/200 * 10000
		},
		{
			name:         "crossed_book_is_negative",
			bid:          "101",
			ask:          "99",
			wantAbsolute: "-2",
			wantBPS:      "-200",
		},
		{
			name:         "both_zero_no_panic",
			bid:          "0",
			ask:          "0",
			wantAbsolute: "0",
			wantBPS:      "0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := CalculateSpread(decimal.RequireFromString(tt.bid), decimal.RequireFromString(tt.ask))

			if !s.Absolute.Equal(decimal.RequireFromString(tt.wantAbsolute)) {
				t.Errorf("Absolute = %s, want %s", s.Absolute, tt.wantAbsolute)
			}
			if !s.BasisPoints.Equal(decimal.RequireFromString(tt.wantBPS)) {
				t.Errorf("BasisPoints = %s, want %s", s.BasisPoints, tt.wantBPS)
			}
		})
	}
}

func TestSpread_WiderThan(t *testing.T) {
	s := CalculateSpread(decimal.RequireFromString("199.5"), decimal.RequireFromString("200.5"))

	tests := []struct {
		name   string
		maxBps int64
		want   bool
	}{
		{"limit_disabled", 0, false},
		{"under_limit", 100, false},
		{"at_limit", 50, false},
		{"over_limit", 49, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.WiderThan(tt.maxBps); got != tt.want {
				t.Errorf("WiderThan(%d) = %v, want %v", tt.maxBps, got, tt.want)
			}
		})
	}
}

func TestTicker(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	tk := Ticker{
		Symbol:    "ETHUSDT",
		Bid:       decimal.RequireFromString("3400"),
		Ask:       decimal.RequireFromString("3401"),
		UpdatedAt: now.Add(-3 * time.Second),
	}

	if !tk.Valid() {
		t.Fatal("ticker should be valid")
	}
	if want := decimal.RequireFromString("3400.5"); !tk.Mid().Equal(want) {
		t.Errorf("Mid = %s, want %s", tk.Mid(), want)
	}
	if got := tk.Age(now); got != 3*time.Second {
		t.Errorf("Age = %v", got)
	}

	crossed := Ticker{Bid: decimal.NewFromInt(2), Ask: decimal.NewFromInt(1)}
	if crossed.Valid() {
		t.Error("crossed ticker should be invalid")
	}
	if (Ticker{Ask: decimal.NewFromInt(1)}).Valid() {
		t.Error("ticker without bid should be invalid")
	}
}

func TestUSDPrice_Value(t *testing.T) {
	p := USDPrice{Asset: asset.USDC, Price: decimal.RequireFromString("0.9998")}
	amt := asset.NewAmountFromUint64(asset.USDC, 2_500_000) // 2.5 USDC

	if got, want := p.Value(amt), decimal.RequireFromString("2.4995"); !got.Equal(want) {
		t.Errorf("Value = %s, want %s", got, want)
	}
}
