// Package domain holds the routing model: requests, legs, routes, quote
// results, payloads and the static topology they are resolved against.
package domain

import (
	"time"

	"github.com/fd1az/omniroute/internal/apperror"
	"github.com/fd1az/omniroute/internal/asset"
)

// MaxSlippageBps caps the slippage a request may tolerate (50%).
const MaxSlippageBps = 5_000

// Request is an exact-input routing request.
type Request struct {
	AmountIn asset.Amount
	TokenOut *asset.Asset

	// From pays on the input ledger, To receives on the output ledger.
	// Both are in their ledger's textual address form.
	From string
	To   string
	// RevertTo receives refunds when the destination side fails.
	// Empty means From.
	RevertTo string

	SlippageBps uint32
	Deadline    time.Time
}

// Validate checks what can be checked without the topology.
func (r Request) Validate() error {
	switch {
	case !r.AmountIn.IsSet() || r.TokenOut == nil:
		return apperror.Validation(apperror.CodeInvalidRequest, "input amount and output asset are required")
	case !r.AmountIn.IsPositive():
		return apperror.Validation(apperror.CodeInvalidRequest, "input amount must be positive")
	case r.AmountIn.Asset().Equals(r.TokenOut):
		return apperror.Validation(apperror.CodeInvalidRequest, "input and output asset are the same")
	case r.From == "" || r.To == "":
		return apperror.Validation(apperror.CodeInvalidRequest, "sender and recipient are required")
	case r.SlippageBps > MaxSlippageBps:
		return apperror.Validation(apperror.CodeInvalidRequest, "slippage tolerance above 50%")
	}
	return nil
}

// TokenIn is the input asset.
func (r Request) TokenIn() *asset.Asset {
	return r.AmountIn.Asset()
}

// CrossLedger reports whether input and output live on different ledgers.
func (r Request) CrossLedger() bool {
	return r.TokenIn().ChainID() != r.TokenOut.ChainID()
}

// Refund returns the revert address, defaulting to the sender.
func (r Request) Refund() string {
	if r.RevertTo != "" {
		return r.RevertTo
	}
	return r.From
}
