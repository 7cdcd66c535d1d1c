package domain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// ConnectionState represents the state of a ledger connection.
type ConnectionState string

const (
	StateDisconnected ConnectionState = "disconnected"
	StateConnecting   ConnectionState = "connecting"
	StateConnected    ConnectionState = "connected"
)

// TxStatus is the outcome of a broadcast transaction.
type TxStatus string

const (
	TxConfirmed TxStatus = "confirmed"
	TxReverted  TxStatus = "reverted"
)

// Confirmation describes a mined transaction.
type Confirmation struct {
	ChainID       uint64
	TxHash        common.Hash
	BlockNumber   uint64
	Confirmations uint64
	GasUsed       uint64
	Status        TxStatus
}

// CompletionStatus is how the destination side of a bridge ended.
type CompletionStatus string

const (
	// CompletionDelivered means the funds reached the recipient.
	CompletionDelivered CompletionStatus = "delivered"
	// CompletionReverted means the destination side failed and the funds
	// went back to the revert address.
	CompletionReverted CompletionStatus = "reverted"
)

// Completion is the destination-side event of a cross-ledger transfer,
// matched by the external id the source side emitted.
type Completion struct {
	ChainID     uint64
	ExternalID  common.Hash
	Status      CompletionStatus
	TxHash      common.Hash
	BlockNumber uint64
	Recipient   common.Address
	Token       common.Address
	Amount      *big.Int
	BridgingFee *big.Int
}
