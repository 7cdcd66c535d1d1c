// Package ethereum provides the EVM ledger adapter: gas estimation,
// broadcasting, confirmation tracking and bridge completion watching.
package ethereum

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

const (
	tracerName = "github.com/fd1az/omniroute/business/blockchain/infra/ethereum"
	meterName  = "github.com/fd1az/omniroute/business/blockchain/infra/ethereum"
)

// Node is the JSON-RPC surface the client uses. *ethclient.Client
// satisfies it.
type Node interface {
	ethereum.ContractCaller
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	BlockNumber(ctx context.Context) (uint64, error)
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)
	Close()
}
