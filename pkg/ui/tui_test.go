package ui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/shopspring/decimal"

	"github.com/fd1az/omniroute/business/routing/domain"
	"github.com/fd1az/omniroute/internal/apperror"
	"github.com/fd1az/omniroute/internal/asset"
)

func testQuote() *domain.QuoteResult {
	return &domain.QuoteResult{
		Kind:         domain.KindSwap,
		Strategy:     domain.StrategyOnLedgerSwap,
		Provider:     "uniswap",
		Route:        domain.Route{asset.ETH, asset.USDC},
		AmountIn:     asset.NewAmountFromUint64(asset.ETH, 1_000_000_000_000_000_000),
		AmountOut:    asset.NewAmountFromUint64(asset.USDC, 3_000_000_000),
		AmountOutMin: asset.NewAmountFromUint64(asset.USDC, 2_985_000_000),
		PriceImpact:  domain.NewImpact(decimal.RequireFromString("0.25")),
		Fees: []domain.Fee{
			{Provider: "thorchain", Kind: domain.FeeKindProtocol, Amount: asset.NewAmountFromUint64(asset.USDC, 1_500_000)},
		},
	}
}

func keyMsg(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestModel_QuoteRound(t *testing.T) {
	m := New(Config{Interval: time.Second}, func(context.Context) (*domain.QuoteResult, error) {
		return testQuote(), nil
	}, nil)

	next, cmd := m.Update(QuoteMsg{Result: testQuote(), Latency: 40 * time.Millisecond, At: time.Now()})
	m = next.(Model)
	if cmd == nil {
		t.Fatal("expected the next round to be scheduled")
	}
	if m.quoting {
		t.Error("quoting should be false after a round")
	}
	if got := len(m.history.Rows()); got != 1 {
		t.Fatalf("history rows = %d, want 1", got)
	}
	if row := m.history.Rows()[0]; row.Provider != "uniswap" || row.Failed() {
		t.Errorf("unexpected history row %+v", row)
	}

	view := m.View()
	for _, want := range []string{"BEST ROUTE", "uniswap", "FEES", "3000 USDC"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestModel_FailedRoundKeepsLastQuote(t *testing.T) {
	m := New(Config{}, nil, nil)
	next, _ := m.Update(QuoteMsg{Result: testQuote(), At: time.Now()})
	m = next.(Model)

	next, _ = m.Update(QuoteMsg{Err: apperror.New(apperror.CodeNoRoute), At: time.Now()})
	m = next.(Model)

	if m.last == nil {
		t.Fatal("last quote dropped after a failed round")
	}
	rows := m.history.Rows()
	if len(rows) != 2 || rows[0].Err != string(apperror.CodeNoRoute) {
		t.Errorf("unexpected history %+v", rows)
	}
}

func TestModel_Keys(t *testing.T) {
	tests := []struct {
		name       string
		quoting    bool
		key        string
		wantCmd    bool
		wantPaused bool
	}{
		{name: "pause_while_idle", key: "p", wantPaused: true},
		{name: "refresh_while_idle", key: "r", wantCmd: true},
		{name: "refresh_while_quoting", quoting: true, key: "r"},
		{name: "clear", key: "c"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := New(Config{}, func(context.Context) (*domain.QuoteResult, error) {
				return nil, errors.New("unused")
			}, nil)
			m.quoting = tt.quoting
			m.history.Add(historyRow(QuoteMsg{Result: testQuote()}))

			next, cmd := m.Update(keyMsg(tt.key))
			got := next.(Model)
			if (cmd != nil) != tt.wantCmd {
				t.Errorf("cmd = %v, want cmd: %v", cmd != nil, tt.wantCmd)
			}
			if got.paused != tt.wantPaused {
				t.Errorf("paused = %v, want %v", got.paused, tt.wantPaused)
			}
			if tt.key == "c" && len(got.history.Rows()) != 0 {
				t.Error("history not cleared")
			}
		})
	}
}

func TestModel_PausedIgnoresTicks(t *testing.T) {
	m := New(Config{}, nil, nil)
	m.quoting = false
	m.paused = true

	_, cmd := m.Update(TickMsg{At: time.Now()})
	if cmd != nil {
		t.Error("paused model started a round")
	}
}

func TestModel_StatusBatch(t *testing.T) {
	m := New(Config{}, nil, nil)
	next, _ := m.Update(statusBatchMsg{
		{Name: "pricing", Healthy: true},
		{Name: "ledger:1", Healthy: false, Message: "circuit open"},
	})
	m = next.(Model)
	if m.statuses.Healthy() {
		t.Error("expected unhealthy dependencies")
	}
	if !strings.Contains(m.statuses.View(), "circuit open") {
		t.Error("status view missing failure message")
	}
}

func TestRenderFees_NamesProvider(t *testing.T) {
	out := RenderFees([]domain.Fee{
		{Provider: domain.FeeProviderRelay, Kind: domain.FeeKindBridge, Amount: asset.NewAmountFromUint64(asset.USDC, 250_000)},
	})
	for _, want := range []string{"bridge", domain.FeeProviderRelay, "0.25 USDC"} {
		if !strings.Contains(out, want) {
			t.Errorf("fees render missing %q:\n%s", want, out)
		}
	}
}
