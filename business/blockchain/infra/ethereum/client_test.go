package ethereum

import (
	"context"
	"errors"
	"io"
	"math/big"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/zeebo/assert"

	"github.com/fd1az/omniroute/business/blockchain/domain"
	"github.com/fd1az/omniroute/internal/apperror"
	"github.com/fd1az/omniroute/internal/logger"
)

type fakeNode struct {
	mu sync.Mutex

	gas       uint64
	gasErr    error
	price     *big.Int
	priceHits atomic.Int32

	sent    []*types.Transaction
	sendErr error

	receipt      *types.Receipt
	receiptAfter int32 // lookups answering NotFound first
	lookups      atomic.Int32
	head         atomic.Uint64

	logs    []types.Log
	queries []ethereum.FilterQuery
}

func (f *fakeNode) CallContract(context.Context, ethereum.CallMsg, *big.Int) ([]byte, error) {
	return []byte{1}, nil
}

func (f *fakeNode) EstimateGas(context.Context, ethereum.CallMsg) (uint64, error) {
	return f.gas, f.gasErr
}

func (f *fakeNode) SuggestGasPrice(context.Context) (*big.Int, error) {
	f.priceHits.Add(1)
	return f.price, nil
}

func (f *fakeNode) SendTransaction(_ context.Context, tx *types.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, tx)
	return f.sendErr
}

func (f *fakeNode) TransactionReceipt(context.Context, common.Hash) (*types.Receipt, error) {
	if f.lookups.Add(1) <= f.receiptAfter || f.receipt == nil {
		return nil, ethereum.NotFound
	}
	return f.receipt, nil
}

func (f *fakeNode) BlockNumber(context.Context) (uint64, error) {
	return f.head.Add(1), nil
}

func (f *fakeNode) FilterLogs(_ context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, q)
	return f.logs, nil
}

func (f *fakeNode) Close() {}

func newTestClient(t *testing.T, node *fakeNode, cfg ClientConfig) *Client {
	t.Helper()
	cfg.ChainID = 1
	if cfg.PollInterval == 0 {
		cfg.PollInterval = time.Millisecond
	}
	c, err := NewClientWithNode(cfg, node, logger.New(io.Discard, logger.LevelError, "test", nil))
	assert.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func gwei(n int64) *big.Int { return new(big.Int).Mul(big.NewInt(n), big.NewInt(1e9)) }

func TestClient_Estimate(t *testing.T) {
	node := &fakeNode{gas: 100_000, price: gwei(20)}
	c := newTestClient(t, node, ClientConfig{GasMarginPercent: 10})

	to := common.HexToAddress("0x1001")
	est, err := c.Estimate(context.Background(), common.Address{}, to, nil, []byte{1})
	assert.NoError(t, err)
	assert.Equal(t, est.GasLimit, uint64(110_000))
	assert.Equal(t, est.TotalWei().String(), "2200000000000000")

	_, err = c.Estimate(context.Background(), common.Address{}, to, nil, nil)
	assert.NoError(t, err)
	assert.Equal(t, int(node.priceHits.Load()), 1)
}

func TestClient_EstimateCapsGasPrice(t *testing.T) {
	node := &fakeNode{gas: 21_000, price: gwei(900)}
	c := newTestClient(t, node, ClientConfig{MaxGasPrice: gwei(500)})

	price, err := c.GasPrice(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, price.Wei.String(), gwei(500).String())
	assert.Equal(t, price.Gwei(), 500.0)
}

func TestClient_EstimateFailure(t *testing.T) {
	node := &fakeNode{gasErr: errors.New("execution reverted"), price: gwei(1)}
	c := newTestClient(t, node, ClientConfig{})

	_, err := c.Estimate(context.Background(), common.Address{}, common.Address{}, nil, nil)
	assert.Error(t, err)
	assert.Equal(t, apperror.GetCode(err), apperror.CodeGasEstimationFailed)
}

func signedTx(t *testing.T, chainID int64) []byte {
	t.Helper()
	key, err := crypto.GenerateKey()
	assert.NoError(t, err)
	to := common.HexToAddress("0x1001")
	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   big.NewInt(chainID),
		Nonce:     7,
		GasTipCap: gwei(1),
		GasFeeCap: gwei(30),
		Gas:       21_000,
		To:        &to,
		Value:     big.NewInt(1),
	})
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(big.NewInt(chainID)), key)
	assert.NoError(t, err)
	raw, err := signed.MarshalBinary()
	assert.NoError(t, err)
	return raw
}

func TestClient_Broadcast(t *testing.T) {
	node := &fakeNode{}
	c := newTestClient(t, node, ClientConfig{})

	hash, err := c.Broadcast(context.Background(), signedTx(t, 1))
	assert.NoError(t, err)
	assert.Equal(t, len(node.sent), 1)
	assert.Equal(t, node.sent[0].Hash(), hash)
	assert.Equal(t, node.sent[0].Nonce(), uint64(7))
}

func TestClient_BroadcastFailures(t *testing.T) {
	tests := []struct {
		name     string
		raw      func(t *testing.T) []byte
		sendErr  error
		wantCode apperror.Code
	}{
		{"garbage", func(*testing.T) []byte { return []byte{0xde, 0xad} }, nil, apperror.CodeInvalidRequest},
		{"wrong_chain", func(t *testing.T) []byte { return signedTx(t, 56) }, nil, apperror.CodeInvalidRequest},
		{"node_rejects", func(t *testing.T) []byte { return signedTx(t, 1) }, errors.New("nonce too low"), apperror.CodeBroadcastFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, &fakeNode{sendErr: tt.sendErr}, ClientConfig{})
			_, err := c.Broadcast(context.Background(), tt.raw(t))
			assert.Error(t, err)
			assert.Equal(t, apperror.GetCode(err), tt.wantCode)
		})
	}
}

func TestClient_AwaitConfirmation(t *testing.T) {
	node := &fakeNode{
		receiptAfter: 2,
		receipt: &types.Receipt{
			Status:      types.ReceiptStatusSuccessful,
			BlockNumber: big.NewInt(5),
			GasUsed:     50_000,
		},
	}
	c := newTestClient(t, node, ClientConfig{Confirmations: 3})

	conf, err := c.AwaitConfirmation(context.Background(), common.HexToHash("0xabc"))
	assert.NoError(t, err)
	assert.Equal(t, conf.Status, domain.TxConfirmed)
	assert.Equal(t, conf.BlockNumber, uint64(5))
	assert.True(t, conf.Confirmations >= 3)
	assert.Equal(t, conf.GasUsed, uint64(50_000))
}

func TestClient_AwaitConfirmationReverted(t *testing.T) {
	node := &fakeNode{receipt: &types.Receipt{Status: types.ReceiptStatusFailed, BlockNumber: big.NewInt(1)}}
	c := newTestClient(t, node, ClientConfig{Confirmations: 100})

	conf, err := c.AwaitConfirmation(context.Background(), common.HexToHash("0xabc"))
	assert.Error(t, err)
	assert.Equal(t, apperror.GetCode(err), apperror.CodeTransactionReverted)
	assert.Equal(t, conf.Status, domain.TxReverted)
}

func TestClient_AwaitConfirmationTimeout(t *testing.T) {
	c := newTestClient(t, &fakeNode{}, ClientConfig{ConfirmTimeout: 20 * time.Millisecond})

	_, err := c.AwaitConfirmation(context.Background(), common.HexToHash("0xabc"))
	assert.Error(t, err)
	assert.Equal(t, apperror.GetCode(err), apperror.CodeConfirmationTimeout)
}

func TestClient_NotConnected(t *testing.T) {
	c, err := NewClient(ClientConfig{ChainID: 1}, logger.New(io.Discard, logger.LevelError, "test", nil))
	assert.NoError(t, err)
	assert.False(t, c.Healthy())
	assert.Equal(t, c.State(), domain.StateDisconnected)

	_, err = c.Caller().CallContract(context.Background(), ethereum.CallMsg{}, nil)
	assert.Equal(t, apperror.GetCode(err), apperror.CodeLedgerConnectionFailed)
}
