package components

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestHistoryComponent_AddKeepsNewestFirst(t *testing.T) {
	h := NewHistoryComponent(2)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		h.Add(HistoryRow{At: base.Add(time.Duration(i) * time.Second), OutDecimal: decimal.NewFromInt(int64(i + 1))})
	}

	rows := h.Rows()
	if len(rows) != 2 {
		t.Fatalf("len(rows) = %d, want 2", len(rows))
	}
	if !rows[0].At.Equal(base.Add(2 * time.Second)) {
		t.Errorf("newest row at %v, want %v", rows[0].At, base.Add(2*time.Second))
	}

	h.Clear()
	if len(h.Rows()) != 0 {
		t.Errorf("Clear left %d rows", len(h.Rows()))
	}
}

func TestHistoryComponent_Change(t *testing.T) {
	tests := []struct {
		name   string
		rows   []HistoryRow // oldest first
		index  int
		want   string
		wantOK bool
	}{
		{
			name:  "single_round",
			rows:  []HistoryRow{{OutDecimal: decimal.NewFromInt(100)}},
			index: 0,
		},
		{
			name:   "increase",
			rows:   []HistoryRow{{OutDecimal: decimal.NewFromInt(100)}, {OutDecimal: decimal.NewFromInt(101)}},
			index:  0,
			want:   "1",
			wantOK: true,
		},
		{
			name:   "skips_failed_round",
			rows:   []HistoryRow{{OutDecimal: decimal.NewFromInt(200)}, {Err: "NO_ROUTE"}, {OutDecimal: decimal.NewFromInt(150)}},
			index:  0,
			want:   "-25",
			wantOK: true,
		},
		{
			name:  "failed_row",
			rows:  []HistoryRow{{OutDecimal: decimal.NewFromInt(100)}, {Err: "timeout"}},
			index: 0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHistoryComponent(10)
			for _, r := range tt.rows {
				h.Add(r)
			}
			got, ok := h.Change(tt.index)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && !got.Equal(decimal.RequireFromString(tt.want)) {
				t.Errorf("change = %s, want %s", got, tt.want)
			}
		})
	}
}
