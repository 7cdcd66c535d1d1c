package app

import (
	"context"
	"fmt"
	"math/big"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/omniroute/business/blockchain/domain"
	"github.com/fd1az/omniroute/internal/apperror"
	"github.com/fd1az/omniroute/internal/asset"
)

// LedgerService fronts every connected ledger by chain id. It is the
// network fee estimator, ledger client and completion watcher of the
// routing context.
type LedgerService struct {
	ledgers  map[uint64]Ledger
	registry *asset.Registry

	mu        sync.RWMutex
	contracts map[uint64][]common.Address
}

// NewLedgerService indexes ledgers by chain id. The registry resolves each
// ledger's native asset for fee amounts.
func NewLedgerService(ledgers []Ledger, registry *asset.Registry) *LedgerService {
	s := &LedgerService{
		ledgers:   make(map[uint64]Ledger, len(ledgers)),
		registry:  registry,
		contracts: make(map[uint64][]common.Address),
	}
	for _, l := range ledgers {
		s.ledgers[l.ChainID()] = l
	}
	return s
}

// SetBridgeContracts records the contracts whose events complete transfers
// on chainID.
func (s *LedgerService) SetBridgeContracts(chainID uint64, contracts ...common.Address) {
	var nonZero []common.Address
	for _, c := range contracts {
		if c != (common.Address{}) {
			nonZero = append(nonZero, c)
		}
	}
	s.mu.Lock()
	s.contracts[chainID] = nonZero
	s.mu.Unlock()
}

func (s *LedgerService) ledger(chainID uint64) (Ledger, error) {
	l, ok := s.ledgers[chainID]
	if !ok {
		return nil, apperror.New(apperror.CodeUnsupportedLedger,
			apperror.WithContext(fmt.Sprintf("no node configured for ledger %d", chainID)))
	}
	return l, nil
}

// ChainIDs lists the connected ledgers in ascending order.
func (s *LedgerService) ChainIDs() []uint64 {
	ids := make([]uint64, 0, len(s.ledgers))
	for id := range s.ledgers {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Callers returns read-only contract callers for the quoting adapters.
func (s *LedgerService) Callers() map[uint64]ethereum.ContractCaller {
	out := make(map[uint64]ethereum.ContractCaller, len(s.ledgers))
	for id, l := range s.ledgers {
		out[id] = l.Caller()
	}
	return out
}

// EstimateNetworkFee prices a payload in the ledger's native asset.
func (s *LedgerService) EstimateNetworkFee(ctx context.Context, chainID uint64, from, to common.Address, value *big.Int, data []byte) (asset.Amount, error) {
	l, err := s.ledger(chainID)
	if err != nil {
		return asset.Amount{}, err
	}
	native, ok := s.registry.Get(asset.NewNativeAssetID(chainID))
	if !ok {
		return asset.Amount{}, apperror.New(apperror.CodeConfigurationError,
			apperror.WithContext(fmt.Sprintf("no native asset registered for ledger %d", chainID)))
	}
	est, err := l.Estimate(ctx, from, to, value, data)
	if err != nil {
		return asset.Amount{}, err
	}
	return asset.NewAmount(native, est.TotalWei()), nil
}

// Broadcast submits a caller-signed transaction.
func (s *LedgerService) Broadcast(ctx context.Context, chainID uint64, raw []byte) (common.Hash, error) {
	l, err := s.ledger(chainID)
	if err != nil {
		return common.Hash{}, err
	}
	return l.Broadcast(ctx, raw)
}

// AwaitConfirmation waits for tx on chainID.
func (s *LedgerService) AwaitConfirmation(ctx context.Context, chainID uint64, tx common.Hash) (*domain.Confirmation, error) {
	l, err := s.ledger(chainID)
	if err != nil {
		return nil, err
	}
	return l.AwaitConfirmation(ctx, tx)
}

// AwaitCompletion waits for the destination side of a transfer on chainID.
func (s *LedgerService) AwaitCompletion(ctx context.Context, chainID uint64, externalID common.Hash) (*domain.Completion, error) {
	l, err := s.ledger(chainID)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	contracts := s.contracts[chainID]
	s.mu.RUnlock()
	return l.AwaitCompletion(ctx, externalID, contracts)
}

// Check reports one ledger's health for the health server.
func (s *LedgerService) Check(chainID uint64) func(ctx context.Context) (bool, string) {
	return func(context.Context) (bool, string) {
		l, err := s.ledger(chainID)
		if err != nil {
			return false, err.Error()
		}
		return l.Healthy(), string(l.State())
	}
}
