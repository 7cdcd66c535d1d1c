package main

import (
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/fd1az/omniroute/business/routing/domain"
	"github.com/fd1az/omniroute/internal/asset"
)

// requestFlags describe the request quoted by the quote and watch commands.
type requestFlags struct {
	amount   string
	raw      bool
	tokenIn  string
	tokenOut string
	from     string
	to       string
	refund   string
	slippage uint
	deadline time.Duration
}

func (f *requestFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&f.amount, "amount", "", "Input amount in whole units, e.g. 1.5")
	fs.BoolVar(&f.raw, "raw", false, "Treat -amount as smallest units")
	fs.StringVar(&f.tokenIn, "in", "", "Input asset: <chainID>:<SYMBOL> or chain:<id>/<address>")
	fs.StringVar(&f.tokenOut, "out", "", "Output asset: <chainID>:<SYMBOL> or chain:<id>/<address>")
	fs.StringVar(&f.from, "from", "", "Sender address on the input ledger")
	fs.StringVar(&f.to, "to", "", "Recipient address on the output ledger (default: -from)")
	fs.StringVar(&f.refund, "refund", "", "Refund address on the input ledger (default: -from)")
	fs.UintVar(&f.slippage, "slippage", 0, "Slippage in basis points (default: routing.default_slippage_bps)")
	fs.DurationVar(&f.deadline, "deadline", 0, "Quote validity (default: routing.default_deadline)")
}

// build resolves the flags into a routing request.
func (f *requestFlags) build(registry *asset.Registry, defaultSlippage uint32, now time.Time) (domain.Request, error) {
	if f.amount == "" || f.tokenIn == "" || f.tokenOut == "" || f.from == "" {
		return domain.Request{}, fmt.Errorf("-amount, -in, -out and -from are required")
	}
	in, err := registry.Resolve(strings.TrimSpace(f.tokenIn))
	if err != nil {
		return domain.Request{}, fmt.Errorf("-in: %w", err)
	}
	out, err := registry.Resolve(strings.TrimSpace(f.tokenOut))
	if err != nil {
		return domain.Request{}, fmt.Errorf("-out: %w", err)
	}

	var amount asset.Amount
	if f.raw {
		amount, err = asset.ParseRaw(in, f.amount)
	} else {
		amount, err = asset.ParseString(in, f.amount)
	}
	if err != nil {
		return domain.Request{}, fmt.Errorf("-amount: %w", err)
	}

	slippage := defaultSlippage
	if f.slippage > 0 {
		slippage = uint32(f.slippage)
	}
	to := f.to
	if to == "" {
		to = f.from
	}

	req := domain.Request{
		AmountIn:    amount,
		TokenOut:    out,
		From:        f.from,
		To:          to,
		RevertTo:    f.refund,
		SlippageBps: slippage,
	}
	if f.deadline > 0 {
		req.Deadline = now.Add(f.deadline)
	}
	return req, req.Validate()
}

// title is a one-line description of the request.
func title(req domain.Request) string {
	return fmt.Sprintf("%s → %s@%d", req.AmountIn, req.TokenOut.Symbol(), req.TokenOut.ChainID())
}
