// Package app implements route composition: the racing combinator, the
// transit stage, the pipeline, the dispatcher and payload assembly.
package app

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	chaindomain "github.com/fd1az/omniroute/business/blockchain/domain"
	"github.com/fd1az/omniroute/business/routing/domain"
	"github.com/fd1az/omniroute/internal/asset"
)

// LegParams asks an on-ledger provider to price AmountIn into TokenOut.
type LegParams struct {
	AmountIn    asset.Amount
	TokenOut    *asset.Asset
	From        common.Address
	Recipient   common.Address
	SlippageBps uint32
	Deadline    time.Time
}

// QuoteProvider is an on-ledger swap aggregator or DEX.
type QuoteProvider interface {
	Name() string
	Supports(chainID uint64) bool
	Quote(ctx context.Context, p LegParams) (*domain.Leg, error)
}

// PoolQuoter prices a swap between two synthetics inside an omni-pool.
type PoolQuoter interface {
	QuotePool(ctx context.Context, pool *domain.OmniPool, amountIn asset.Amount, tokenOut *asset.Asset) (asset.Amount, error)
}

// FeeRequest describes the destination-side call the bridge relayer will
// execute; the fee depends on it.
type FeeRequest struct {
	SourceChainID      uint64
	DestinationChainID uint64
	ReceiveSide        common.Address
	Calldata           []byte
	FeeAsset           *asset.Asset
}

// FeeOracle prices the bridging fee.
type FeeOracle interface {
	EstimateFee(ctx context.Context, req FeeRequest) (asset.Amount, error)
}

// PriceReference values assets in USD.
type PriceReference interface {
	PriceUSD(ctx context.Context, a *asset.Asset) (decimal.Decimal, error)
}

// ProtocolQuote is a complete cross-ledger route priced by an external
// protocol. Exactly one of Call and Deposit is set.
type ProtocolQuote struct {
	Protocol       string
	AmountOut      asset.Amount
	Route          []*asset.Asset
	Fees           []domain.Fee
	PriceImpact    domain.Impact
	ImpactKnown    bool
	Call           *domain.Call
	Deposit        *domain.Deposit
	ApprovalTarget common.Address
}

// Output is the amount the protocol expects to deliver.
func (q *ProtocolQuote) Output() asset.Amount {
	return q.AmountOut
}

// ProtocolQuoter is an external cross-ledger protocol that prices whole
// routes on its own, e.g. deposit-address protocols serving UTXO ledgers.
type ProtocolQuoter interface {
	Name() string
	QuoteRoute(ctx context.Context, req domain.Request) (*ProtocolQuote, error)
}

// NetworkFeeEstimator estimates the native fee of executing a payload.
type NetworkFeeEstimator interface {
	EstimateNetworkFee(ctx context.Context, chainID uint64, from, to common.Address, value *big.Int, data []byte) (asset.Amount, error)
}

// TransitCallParams is what the encoder needs to build both sides of a
// bridge call.
type TransitCallParams struct {
	Transit     domain.TransitResult
	Source      *domain.Ledger
	Hub         *domain.Ledger // only for DirectionMintBurn
	Dest        *domain.Ledger
	Recipient   common.Address
	RevertTo    common.Address
	SlippageBps uint32
	Deadline    time.Time
	FinalCall   *FinalCall
}

// FinalCall is executed on the destination ledger with the bridged funds.
type FinalCall struct {
	ReceiveSide common.Address
	Calldata    []byte
	Offset      uint64
}

// TransitCalls are the encoded calls of one transit stage.
type TransitCalls struct {
	// Source is executed by the router on the input ledger.
	Source domain.Call
	// ReceiveSide and Destination are what the relayer executes on
	// ReceiveChainID; the fee oracle prices them.
	ReceiveChainID uint64
	ReceiveSide    common.Address
	Destination    []byte
}

// MetaRouteParams builds the router entry point on the input ledger.
type MetaRouteParams struct {
	Router    common.Address
	AmountIn  asset.Amount
	Entry     *domain.Leg
	Transit   domain.Call
	Recipient common.Address
}

// CallEncoder encodes contract calls.
type CallEncoder interface {
	TransitCalls(p TransitCallParams) (TransitCalls, error)
	MetaRoute(p MetaRouteParams) (domain.Call, error)
	Wrap(wrapped *asset.Asset, amount asset.Amount) (domain.Call, error)
	Unwrap(wrapped *asset.Asset, amount asset.Amount) (domain.Call, error)
	CollectorSwap(collector *domain.FeeCollector, amountIn asset.Amount, leg *domain.Leg) (domain.Call, error)
}

// LedgerClient relays caller-signed transactions.
type LedgerClient interface {
	Broadcast(ctx context.Context, chainID uint64, raw []byte) (common.Hash, error)
	AwaitConfirmation(ctx context.Context, chainID uint64, tx common.Hash) (*chaindomain.Confirmation, error)
}

// CompletionWatcher observes the destination side of a bridge transfer.
type CompletionWatcher interface {
	AwaitCompletion(ctx context.Context, chainID uint64, externalID common.Hash) (*chaindomain.Completion, error)
}
