package ethereum

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/omniroute/business/blockchain/domain"
	"github.com/fd1az/omniroute/internal/apperror"
)

// CompletionEventsABI lists the events portal and synthesis contracts emit
// when the relayer executes the destination side of a transfer.
const CompletionEventsABI = `[
	{"anonymous":false,"name":"SynthesizeCompleted","type":"event","inputs":[
		{"indexed":true,"name":"id","type":"bytes32"},
		{"indexed":true,"name":"to","type":"address"},
		{"indexed":false,"name":"amount","type":"uint256"},
		{"indexed":false,"name":"bridgingFee","type":"uint256"},
		{"indexed":false,"name":"token","type":"address"}]},
	{"anonymous":false,"name":"BurnCompleted","type":"event","inputs":[
		{"indexed":true,"name":"id","type":"bytes32"},
		{"indexed":true,"name":"to","type":"address"},
		{"indexed":false,"name":"amount","type":"uint256"},
		{"indexed":false,"name":"bridgingFee","type":"uint256"},
		{"indexed":false,"name":"token","type":"address"}]},
	{"anonymous":false,"name":"RevertSynthesizeCompleted","type":"event","inputs":[
		{"indexed":true,"name":"id","type":"bytes32"},
		{"indexed":true,"name":"to","type":"address"},
		{"indexed":false,"name":"amount","type":"uint256"},
		{"indexed":false,"name":"bridgingFee","type":"uint256"},
		{"indexed":false,"name":"token","type":"address"}]},
	{"anonymous":false,"name":"RevertBurnCompleted","type":"event","inputs":[
		{"indexed":true,"name":"id","type":"bytes32"},
		{"indexed":true,"name":"to","type":"address"},
		{"indexed":false,"name":"amount","type":"uint256"},
		{"indexed":false,"name":"bridgingFee","type":"uint256"},
		{"indexed":false,"name":"token","type":"address"}]}
]`

var completionEvents = mustParse(CompletionEventsABI)

func mustParse(def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic(err)
	}
	return parsed
}

func completionStatus(name string) domain.CompletionStatus {
	if strings.HasPrefix(name, "Revert") {
		return domain.CompletionReverted
	}
	return domain.CompletionDelivered
}

// AwaitCompletion polls the bridge contracts' logs, starting
// CompletionLookback blocks behind the head, until the completion event of
// externalID shows up.
func (c *Client) AwaitCompletion(ctx context.Context, externalID common.Hash, contracts []common.Address) (*domain.Completion, error) {
	ctx, span := c.tracer.Start(ctx, "ledger.await_completion",
		trace.WithAttributes(
			attribute.Int64("chain_id", int64(c.config.ChainID)),
			attribute.String("external_id", externalID.Hex()),
		),
	)
	defer span.End()

	if len(contracts) == 0 {
		return nil, apperror.New(apperror.CodeInvalidState,
			apperror.WithContext(fmt.Sprintf("no bridge contracts on ledger %d", c.config.ChainID)))
	}
	if c.config.CompletionTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.CompletionTimeout)
		defer cancel()
	}

	node, err := c.connected()
	if err != nil {
		return nil, err
	}

	head, err := node.BlockNumber(ctx)
	if err != nil {
		return nil, apperror.New(apperror.CodeLedgerRPCError, apperror.WithCause(err))
	}
	from := uint64(0)
	if head > c.config.CompletionLookback {
		from = head - c.config.CompletionLookback
	}

	topics := make([]common.Hash, 0, len(completionEvents.Events))
	for _, ev := range completionEvents.Events {
		topics = append(topics, ev.ID)
	}

	ticker := time.NewTicker(c.config.PollInterval)
	defer ticker.Stop()

	for {
		head, err = node.BlockNumber(ctx)
		if err == nil && head >= from {
			logs, err := node.FilterLogs(ctx, ethereum.FilterQuery{
				FromBlock: new(big.Int).SetUint64(from),
				ToBlock:   new(big.Int).SetUint64(head),
				Addresses: contracts,
				Topics:    [][]common.Hash{topics, {externalID}},
			})
			if err == nil {
				for _, l := range logs {
					completion, ok := c.decodeCompletion(l)
					if !ok {
						continue
					}
					c.metrics.completions.Add(ctx, 1, metric.WithAttributes(
						attribute.Int64("chain_id", int64(c.config.ChainID)),
						attribute.String("status", string(completion.Status)),
					))
					span.SetAttributes(attribute.String("status", string(completion.Status)))
					return completion, nil
				}
				from = head + 1
			} else {
				c.logger.Warn(ctx, "filter logs failed", "chain_id", c.config.ChainID, "error", err)
			}
		}

		select {
		case <-ctx.Done():
			return nil, apperror.New(apperror.CodeCompletionTimeout,
				apperror.WithCause(ctx.Err()),
				apperror.WithContext(externalID.Hex()))
		case <-ticker.C:
		}
	}
}

func (c *Client) decodeCompletion(l types.Log) (*domain.Completion, bool) {
	if len(l.Topics) < 3 {
		return nil, false
	}
	ev, err := completionEvents.EventByID(l.Topics[0])
	if err != nil {
		return nil, false
	}
	values, err := ev.Inputs.NonIndexed().Unpack(l.Data)
	if err != nil || len(values) != 3 {
		c.logger.Warn(context.Background(), "undecodable completion event", "tx_hash", l.TxHash.Hex(), "error", err)
		return nil, false
	}
	amount, _ := values[0].(*big.Int)
	fee, _ := values[1].(*big.Int)
	token, _ := values[2].(common.Address)
	return &domain.Completion{
		ChainID:     c.config.ChainID,
		ExternalID:  l.Topics[1],
		Status:      completionStatus(ev.Name),
		TxHash:      l.TxHash,
		BlockNumber: l.BlockNumber,
		Recipient:   common.BytesToAddress(l.Topics[2].Bytes()),
		Token:       token,
		Amount:      amount,
		BridgingFee: fee,
	}, true
}
