package domain

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/fd1az/omniroute/internal/asset"
)

// Kind classifies a quote by what the caller ends up doing.
type Kind string

const (
	KindSwap           Kind = "swap"
	KindBridge         Kind = "bridge"
	KindCrossChainSwap Kind = "crosschain-swap"
	KindWrap           Kind = "wrap"
	KindUnwrap         Kind = "unwrap"
)

// FeeKind labels a fee line.
type FeeKind string

const (
	FeeKindBridge    FeeKind = "bridge"
	FeeKindCollector FeeKind = "collector"
	FeeKindProtocol  FeeKind = "protocol"
)

// Names of the parties charging bridge and collector fees.
const (
	FeeProviderRelay     = "bridge-relay"
	FeeProviderCollector = "fee-collector"
)

// Fee is one fee charged along the route. Provider is the venue, relay or
// protocol that charged it.
type Fee struct {
	Provider string
	Kind     FeeKind
	Amount   asset.Amount
}

// QuoteResult is the answer to a Request.
type QuoteResult struct {
	Kind     Kind
	Strategy Strategy
	// Provider names the adapter, protocol or venue that won.
	Provider string

	Route        Route
	AmountIn     asset.Amount
	AmountOut    asset.Amount
	AmountOutMin asset.Amount
	// AmountOutWithoutFee is the output had no bridging fee been charged.
	// Unset for routes without a bridge.
	AmountOutWithoutFee asset.Amount
	PriceImpact         Impact
	Fees                []Fee

	// ApprovalTarget is the spender to approve for token inputs; zero when
	// no approval is needed.
	ApprovalTarget common.Address
	Payload        Payload
	Deadline       time.Time

	// Informational; zero or unset when the reference was unavailable.
	AmountInUSD  decimal.Decimal
	AmountOutUSD decimal.Decimal
	NetworkFee   asset.Amount
}

// Output is the expected output amount.
func (q *QuoteResult) Output() asset.Amount {
	return q.AmountOut
}

// NeedsApproval reports whether the caller must approve a spender first.
func (q *QuoteResult) NeedsApproval() bool {
	return q.ApprovalTarget != (common.Address{}) && !q.AmountIn.Asset().IsNative()
}
