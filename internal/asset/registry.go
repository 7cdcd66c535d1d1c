package asset

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// Registry indexes known assets by identity and by (chain, symbol).
// It is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	byID     map[AssetID]*Asset
	bySymbol map[symbolKey]*Asset
}

type symbolKey struct {
	chainID uint64
	symbol  string
}

func NewRegistry() *Registry {
	return &Registry{
		byID:     make(map[AssetID]*Asset),
		bySymbol: make(map[symbolKey]*Asset),
	}
}

// Register adds an asset. Registering the same id twice is an error.
func (r *Registry) Register(a *Asset) error {
	if a == nil {
		return ErrNilAsset
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[a.ID()]; exists {
		return fmt.Errorf("asset: %s already registered", a.ID())
	}
	r.byID[a.ID()] = a
	key := symbolKey{a.ChainID(), strings.ToUpper(a.Symbol())}
	if _, exists := r.bySymbol[key]; !exists {
		r.bySymbol[key] = a
	}
	return nil
}

// MustRegister is Register for static tables.
func (r *Registry) MustRegister(assets ...*Asset) {
	for _, a := range assets {
		if err := r.Register(a); err != nil {
			panic(err)
		}
	}
}

func (r *Registry) Get(id AssetID) (*Asset, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.byID[id]
	return a, ok
}

// Lookup resolves an asset by chain and contract address; the zero address
// resolves to the chain's native coin.
func (r *Registry) Lookup(chainID uint64, addr common.Address) (*Asset, bool) {
	if addr == (common.Address{}) {
		return r.Get(NewNativeAssetID(chainID))
	}
	return r.Get(NewTokenAssetID(chainID, addr))
}

// BySymbol resolves the first asset registered under symbol on chainID.
func (r *Registry) BySymbol(chainID uint64, symbol string) (*Asset, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.bySymbol[symbolKey{chainID, strings.ToUpper(symbol)}]
	return a, ok
}

// Resolve accepts either an AssetID string or "<chainID>:<SYMBOL>".
func (r *Registry) Resolve(ref string) (*Asset, error) {
	if strings.HasPrefix(ref, "chain:") {
		id, err := ParseAssetID(ref)
		if err != nil {
			return nil, err
		}
		if a, ok := r.Get(id); ok {
			return a, nil
		}
		return nil, fmt.Errorf("asset: unknown asset %s", id)
	}
	chainPart, symbol, ok := strings.Cut(ref, ":")
	if !ok {
		return nil, fmt.Errorf("asset: malformed asset reference %q", ref)
	}
	id, err := ParseAssetID("chain:" + chainPart + "/native")
	if err != nil {
		return nil, err
	}
	if a, ok := r.BySymbol(id.ChainID(), symbol); ok {
		return a, nil
	}
	return nil, fmt.Errorf("asset: unknown asset %q", ref)
}

// All returns every registered asset ordered by chain then symbol.
func (r *Registry) All() []*Asset {
	r.mu.RLock()
	out := make([]*Asset, 0, len(r.byID))
	for _, a := range r.byID {
		out = append(out, a)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].ChainID() != out[j].ChainID() {
			return out[i].ChainID() < out[j].ChainID()
		}
		return out[i].Symbol() < out[j].Symbol()
	})
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}
