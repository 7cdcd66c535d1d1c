// Package app contains application services and port definitions for the blockchain context.
package app

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/omniroute/business/blockchain/domain"
)

// Ledger is one connected EVM ledger.
type Ledger interface {
	ChainID() uint64

	// Caller exposes read-only contract calls to the quoting adapters.
	Caller() ethereum.ContractCaller

	// Estimate prices executing a call from from.
	Estimate(ctx context.Context, from, to common.Address, value *big.Int, data []byte) (*domain.GasEstimate, error)

	// Broadcast submits a signed, RLP or typed-envelope encoded transaction.
	Broadcast(ctx context.Context, raw []byte) (common.Hash, error)

	// AwaitConfirmation blocks until tx has the configured confirmations.
	AwaitConfirmation(ctx context.Context, tx common.Hash) (*domain.Confirmation, error)

	// AwaitCompletion blocks until a bridge contract in contracts emits the
	// completion event for externalID.
	AwaitCompletion(ctx context.Context, externalID common.Hash, contracts []common.Address) (*domain.Completion, error)

	State() domain.ConnectionState
	Healthy() bool
}
