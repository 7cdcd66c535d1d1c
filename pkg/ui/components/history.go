package components

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"
)

// HistoryRow is one quote round.
type HistoryRow struct {
	At        time.Time
	Provider  string
	AmountOut string
	// OutDecimal is AmountOut as a number, used for the change column.
	OutDecimal decimal.Decimal
	Impact     string
	Latency    time.Duration
	Err        string
}

// Failed reports whether the round produced no quote.
func (r HistoryRow) Failed() bool { return r.Err != "" }

// HistoryComponent keeps the most recent rounds, newest first.
type HistoryComponent struct {
	rows    []HistoryRow
	maxRows int
}

// NewHistoryComponent creates a history holding up to maxRows rounds.
func NewHistoryComponent(maxRows int) *HistoryComponent {
	if maxRows <= 0 {
		maxRows = 10
	}
	return &HistoryComponent{maxRows: maxRows}
}

// Add prepends a round, dropping the oldest beyond capacity.
func (h *HistoryComponent) Add(row HistoryRow) {
	h.rows = append([]HistoryRow{row}, h.rows...)
	if len(h.rows) > h.maxRows {
		h.rows = h.rows[:h.maxRows]
	}
}

// Rows returns the rounds, newest first.
func (h *HistoryComponent) Rows() []HistoryRow {
	return h.rows
}

// Clear drops every round.
func (h *HistoryComponent) Clear() {
	h.rows = nil
}

// Change returns the output change of row i against the previous
// successful round, in percent. ok is false when there is nothing to
// compare.
func (h *HistoryComponent) Change(i int) (pct decimal.Decimal, ok bool) {
	if i >= len(h.rows) || h.rows[i].Failed() {
		return decimal.Zero, false
	}
	for j := i + 1; j < len(h.rows); j++ {
		prev := h.rows[j]
		if prev.Failed() || prev.OutDecimal.IsZero() {
			continue
		}
		return h.rows[i].OutDecimal.Sub(prev.OutDecimal).Div(prev.OutDecimal).Mul(decimal.NewFromInt(100)), true
	}
	return decimal.Zero, false
}

// View renders the history table.
func (h *HistoryComponent) View() string {
	header := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
	muted := lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	up := lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))
	down := lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444"))

	var b strings.Builder
	b.WriteString(header.Render(fmt.Sprintf("HISTORY (last %d)", h.maxRows)))
	b.WriteString("\n")
	if len(h.rows) == 0 {
		b.WriteString(muted.Render("Waiting for the first quote..."))
		return b.String()
	}

	b.WriteString(muted.Render(fmt.Sprintf("%-9s %-14s %-24s %-9s %-9s %s", "Time", "Provider", "Amount out", "Change", "Impact", "Latency")))
	for i, row := range h.rows {
		b.WriteString("\n")
		ts := row.At.Format("15:04:05")
		if row.Failed() {
			b.WriteString(down.Render(fmt.Sprintf("%-9s %s", ts, row.Err)))
			continue
		}
		change := "-"
		style := muted
		if pct, ok := h.Change(i); ok {
			change = fmt.Sprintf("%+.3f%%", pct.InexactFloat64())
			switch pct.Sign() {
			case 1:
				style = up
			case -1:
				style = down
			}
		}
		b.WriteString(fmt.Sprintf("%-9s %-14s %-24s ", ts, row.Provider, row.AmountOut))
		b.WriteString(style.Render(fmt.Sprintf("%-9s", change)))
		b.WriteString(fmt.Sprintf(" %-9s %s", row.Impact, row.Latency.Round(time.Millisecond)))
	}
	return b.String()
}
