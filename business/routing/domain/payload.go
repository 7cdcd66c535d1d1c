package domain

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/omniroute/internal/asset"
)

// Payload is the transaction a caller signs. It is one of EVMPayload,
// TronPayload or UTXOPayload, chosen by the input ledger's family.
type Payload interface {
	Family() asset.Family
	payload()
}

// EVMPayload is a plain contract call.
type EVMPayload struct {
	ChainID uint64
	From    common.Address
	To      common.Address
	Value   *big.Int
	Data    []byte
}

func (EVMPayload) Family() asset.Family { return asset.FamilyEVM }
func (EVMPayload) payload()             {}

// TronPayload is a TriggerSmartContract call. Addresses are base58check
// with the 0x41 prefix; Parameter is the ABI-encoded arguments without the
// selector.
type TronPayload struct {
	ChainID           uint64
	OwnerAddress      string
	ContractAddress   string
	FunctionSignature string
	FunctionSelector  string
	Parameter         string
	CallValue         int64
}

func (TronPayload) Family() asset.Family { return asset.FamilyTron }
func (TronPayload) payload()             {}

// UTXOPayload asks the caller to send Amount to a deposit address before
// ValidUntil. There is no calldata; Memo routes the deposit.
type UTXOPayload struct {
	ChainID        uint64
	DepositAddress string
	Script         string
	Amount         asset.Amount
	Memo           string
	ValidUntil     time.Time
}

func (UTXOPayload) Family() asset.Family { return asset.FamilyUTXO }
func (UTXOPayload) payload()             {}

// Deposit is what a deposit-address protocol returns instead of calldata.
type Deposit struct {
	Address    string
	Memo       string
	ValidUntil time.Time
}
