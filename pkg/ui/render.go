package ui

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/fd1az/omniroute/business/routing/domain"
)

// impact above this percent is highlighted as a warning, above twice it as
// a danger.
var impactWarnPct = decimal.NewFromInt(1)

// RenderQuote renders a quote for the terminal.
func RenderQuote(q *domain.QuoteResult) string {
	if q == nil {
		return MutedValue.Render("no quote")
	}

	var b strings.Builder
	b.WriteString(HeaderStyle.Render("BEST ROUTE"))
	b.WriteString("\n")
	row(&b, "Kind", fmt.Sprintf("%s (%s)", q.Kind, q.Strategy))
	if q.Provider != "" {
		row(&b, "Provider", q.Provider)
	}
	row(&b, "Path", routePath(q.Route))
	row(&b, "Amount in", withUSD(q.AmountIn.String(), q.AmountInUSD))
	row(&b, "Amount out", PositiveValue.Render(withUSD(q.AmountOut.String(), q.AmountOutUSD)))
	row(&b, "Minimum out", q.AmountOutMin.String())
	if q.AmountOutWithoutFee.IsSet() {
		row(&b, "Without fee", q.AmountOutWithoutFee.String())
	}
	row(&b, "Price impact", impactStyle(q.PriceImpact))
	if q.NetworkFee.IsSet() {
		row(&b, "Network fee", q.NetworkFee.String())
	}
	if q.NeedsApproval() {
		row(&b, "Approve", q.ApprovalTarget.Hex())
	}
	row(&b, "Payload", payloadSummary(q.Payload))
	if !q.Deadline.IsZero() {
		row(&b, "Deadline", q.Deadline.Format("2006-01-02 15:04:05 MST"))
	}

	b.WriteString("\n")
	b.WriteString(RenderFees(q.Fees))
	return b.String()
}

// RenderFees renders the fee lines of a quote.
func RenderFees(fees []domain.Fee) string {
	var b strings.Builder
	b.WriteString(HeaderStyle.Render("FEES"))
	b.WriteString("\n")
	if len(fees) == 0 {
		b.WriteString(MutedValue.Render("none"))
		return b.String()
	}
	for i, f := range fees {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(LabelStyle.Render(string(f.Kind)))
		b.WriteString(f.Amount.String())
		if f.Provider != "" {
			b.WriteString(MutedValue.Render(" (" + f.Provider + ")"))
		}
	}
	return b.String()
}

func row(b *strings.Builder, label, value string) {
	b.WriteString(LabelStyle.Render(label))
	b.WriteString(value)
	b.WriteString("\n")
}

func routePath(r domain.Route) string {
	if len(r) == 0 {
		return MutedValue.Render("-")
	}
	parts := make([]string, len(r))
	for i, a := range r {
		parts[i] = fmt.Sprintf("%s@%d", a.Symbol(), a.ChainID())
	}
	return strings.Join(parts, " → ")
}

func withUSD(amount string, usd decimal.Decimal) string {
	if usd.IsZero() {
		return amount
	}
	return fmt.Sprintf("%s (~$%s)", amount, usd.StringFixed(2))
}

func impactStyle(i domain.Impact) string {
	pct := i.Percent()
	switch {
	case pct.GreaterThan(impactWarnPct.Mul(decimal.NewFromInt(2))):
		return NegativeValue.Render(i.String())
	case pct.GreaterThan(impactWarnPct):
		return WarningValue.Render(i.String())
	}
	return i.String()
}

func payloadSummary(p domain.Payload) string {
	switch p := p.(type) {
	case domain.EVMPayload:
		return fmt.Sprintf("evm call to %s", shortAddr(p.To))
	case domain.TronPayload:
		return fmt.Sprintf("tron %s on %s", p.FunctionSignature, p.ContractAddress)
	case domain.UTXOPayload:
		return fmt.Sprintf("deposit %s to %s memo %q", p.Amount, p.DepositAddress, p.Memo)
	}
	return MutedValue.Render("-")
}

func shortAddr(a common.Address) string {
	h := a.Hex()
	return h[:6] + "…" + h[len(h)-4:]
}
