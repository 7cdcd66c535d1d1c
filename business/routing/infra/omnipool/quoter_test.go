package omnipool

import (
	"context"
	"errors"
	"io"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/zeebo/assert"

	"github.com/fd1az/omniroute/business/routing/domain/domaintest"
	"github.com/fd1az/omniroute/business/routing/infra/gateway"
	"github.com/fd1az/omniroute/internal/apperror"
	"github.com/fd1az/omniroute/internal/asset"
	"github.com/fd1az/omniroute/internal/logger"
)

// fakePool charges 4 bps on every swap and remembers the last call.
type fakePool struct {
	err  error
	from uint8
	to   uint8
	gas  uint64
}

func (f *fakePool) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	parsed, _ := abi.JSON(strings.NewReader(gateway.OmniPoolABI))
	m := parsed.Methods["calculateSwap"]
	args, err := m.Inputs.Unpack(msg.Data[4:])
	if err != nil {
		return nil, err
	}
	f.from, f.to, f.gas = args[0].(uint8), args[1].(uint8), msg.Gas
	dx := args[2].(*big.Int)
	dy := new(big.Int).Mul(dx, big.NewInt(9_996))
	return m.Outputs.Pack(dy.Div(dy, big.NewInt(10_000)))
}

func newQuoter(t *testing.T, f *fakePool) *Quoter {
	t.Helper()
	q, err := NewQuoter(map[uint64]ethereum.ContractCaller{asset.ChainIDBSC: f}, 500_000,
		logger.New(io.Discard, logger.LevelError, "test", nil))
	assert.NoError(t, err)
	return q
}

func TestQuoter_QuotePool(t *testing.T) {
	f := &fakePool{}
	q := newQuoter(t, f)

	in := asset.NewAmount(domaintest.SUSDCPolygon, big.NewInt(1_000_000))
	out, err := q.QuotePool(context.Background(), domaintest.Pool, in, domaintest.SUSDTTron)
	assert.NoError(t, err)
	assert.True(t, out.Asset().Equals(domaintest.SUSDTTron))
	assert.Equal(t, out.Raw().Int64(), int64(999_600))
	assert.Equal(t, f.from, uint8(1))
	assert.Equal(t, f.to, uint8(2))
	assert.Equal(t, f.gas, uint64(500_000))
}

func TestQuoter_Errors(t *testing.T) {
	in := asset.NewAmount(domaintest.SUSDCEthereum, big.NewInt(10))
	tests := []struct {
		name     string
		pool     *fakePool
		in       asset.Amount
		out      *asset.Asset
		wantCode apperror.Code
	}{
		{"token_not_in_pool", &fakePool{}, asset.NewAmount(asset.USDC, big.NewInt(10)), domaintest.SUSDTTron, apperror.CodeProviderInvalidToken},
		{"output_not_in_pool", &fakePool{}, in, asset.USDT, apperror.CodeProviderInvalidToken},
		{"node_failure", &fakePool{err: errors.New("connection reset")}, in, domaintest.SUSDTTron, apperror.CodeContractCallFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := newQuoter(t, tt.pool)
			_, err := q.QuotePool(context.Background(), domaintest.Pool, tt.in, tt.out)
			assert.Error(t, err)
			assert.Equal(t, apperror.GetCode(err), tt.wantCode)
		})
	}
}

func TestQuoter_NoLedgerClient(t *testing.T) {
	q, err := NewQuoter(nil, 0, logger.New(io.Discard, logger.LevelError, "test", nil))
	assert.NoError(t, err)
	_, err = q.QuotePool(context.Background(), domaintest.Pool,
		asset.NewAmount(domaintest.SUSDCEthereum, big.NewInt(10)), domaintest.SUSDCPolygon)
	assert.Equal(t, apperror.GetCode(err), apperror.CodeLedgerConnectionFailed)
}
