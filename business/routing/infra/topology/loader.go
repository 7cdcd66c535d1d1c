// Package topology loads the static routing topology from a TOML or JSON
// file. The file declares assets beyond the well-known ones, ledger
// deployments, synthetic links, omni-pools, fee collectors and specialized
// routes. Asset references use either the "chain:<id>/<address>" form or
// "<chainID>:<SYMBOL>".
package topology

import (
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pelletier/go-toml/v2"

	"github.com/fd1az/omniroute/business/routing/domain"
	"github.com/fd1az/omniroute/internal/apperror"
	"github.com/fd1az/omniroute/internal/asset"
	"github.com/fd1az/omniroute/internal/ledgeraddr"
)

// File is the on-disk layout.
type File struct {
	Assets        []AssetEntry        `toml:"assets" json:"assets"`
	Ledgers       []LedgerEntry       `toml:"ledgers" json:"ledgers"`
	Synthetics    []SyntheticEntry    `toml:"synthetics" json:"synthetics"`
	Pools         []PoolEntry         `toml:"pools" json:"pools"`
	FeeCollectors []FeeCollectorEntry `toml:"fee_collectors" json:"fee_collectors"`
	Specialized   []SpecializedEntry  `toml:"specialized" json:"specialized"`
}

// AssetEntry declares an asset. An empty or "native" address is the
// ledger's native coin.
type AssetEntry struct {
	ChainID  uint64 `toml:"chain_id" json:"chain_id"`
	Address  string `toml:"address" json:"address"`
	Symbol   string `toml:"symbol" json:"symbol"`
	Name     string `toml:"name" json:"name"`
	Decimals uint8  `toml:"decimals" json:"decimals"`
}

type LedgerEntry struct {
	ChainID       uint64   `toml:"chain_id" json:"chain_id"`
	Name          string   `toml:"name" json:"name"`
	Family        string   `toml:"family" json:"family"`
	Router        string   `toml:"router" json:"router"`
	Gateway       string   `toml:"gateway" json:"gateway"`
	Portal        string   `toml:"portal" json:"portal"`
	Synthesis     string   `toml:"synthesis" json:"synthesis"`
	WrappedNative string   `toml:"wrapped_native" json:"wrapped_native"`
	TransitAssets []string `toml:"transit_assets" json:"transit_assets"`
}

type SyntheticEntry struct {
	Real      string `toml:"real" json:"real"`
	Synthetic string `toml:"synthetic" json:"synthetic"`
}

type PoolEntry struct {
	ID      string   `toml:"id" json:"id"`
	ChainID uint64   `toml:"chain_id" json:"chain_id"`
	Address string   `toml:"address" json:"address"`
	Tokens  []string `toml:"tokens" json:"tokens"`
}

// FeeCollectorEntry lists flat fees as raw integer strings keyed by asset
// reference.
type FeeCollectorEntry struct {
	ChainID        uint64            `toml:"chain_id" json:"chain_id"`
	Address        string            `toml:"address" json:"address"`
	ApprovalTarget string            `toml:"approval_target" json:"approval_target"`
	Fees           map[string]string `toml:"fees" json:"fees"`
}

type SpecializedEntry struct {
	Asset     string   `toml:"asset" json:"asset"`
	Protocols []string `toml:"protocols" json:"protocols"`
}

// LoadFile reads path, choosing the decoder by extension (.json or TOML).
// Declared assets are added to registry.
func LoadFile(path string, registry *asset.Registry) (*domain.Topology, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read topology file: %w", err)
	}
	return Load(data, strings.HasSuffix(path, ".json"), registry)
}

// Load decodes a topology document.
func Load(data []byte, isJSON bool, registry *asset.Registry) (*domain.Topology, error) {
	var f File
	if isJSON {
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, invalid("parse JSON topology", err)
		}
	} else {
		if err := toml.Unmarshal(data, &f); err != nil {
			return nil, invalid("parse TOML topology", err)
		}
	}
	return Build(&f, registry)
}

// Build registers f's assets and resolves every reference against registry.
func Build(f *File, registry *asset.Registry) (*domain.Topology, error) {
	if len(f.Ledgers) == 0 {
		return nil, invalid("no ledgers in topology", nil)
	}
	for _, e := range f.Assets {
		a, err := e.asset()
		if err != nil {
			return nil, invalid("asset "+e.Symbol, err)
		}
		if existing, ok := registry.Get(a.ID()); ok {
			if existing.Decimals() != a.Decimals() {
				return nil, invalid(fmt.Sprintf("asset %s redeclared with %d decimals", a, a.Decimals()), nil)
			}
			continue
		}
		if err := registry.Register(a); err != nil {
			return nil, invalid("register asset", err)
		}
	}

	r := resolver{registry: registry}
	ledgers := make([]*domain.Ledger, 0, len(f.Ledgers))
	for _, e := range f.Ledgers {
		l, err := r.ledger(e)
		if err != nil {
			return nil, invalid(fmt.Sprintf("ledger %d", e.ChainID), err)
		}
		ledgers = append(ledgers, l)
	}

	synthetics := make([]domain.SyntheticLink, 0, len(f.Synthetics))
	for _, e := range f.Synthetics {
		orig, err := r.asset(e.Real)
		if err != nil {
			return nil, invalid("synthetic link", err)
		}
		syn, err := r.asset(e.Synthetic)
		if err != nil {
			return nil, invalid("synthetic link", err)
		}
		synthetics = append(synthetics, domain.SyntheticLink{Real: orig, Synthetic: syn})
	}

	pools := make([]*domain.OmniPool, 0, len(f.Pools))
	for _, e := range f.Pools {
		if !common.IsHexAddress(e.Address) {
			return nil, invalid("pool "+e.ID+": bad address "+e.Address, nil)
		}
		tokens, err := r.assets(e.Tokens)
		if err != nil {
			return nil, invalid("pool "+e.ID, err)
		}
		pools = append(pools, &domain.OmniPool{
			ID:      e.ID,
			ChainID: e.ChainID,
			Address: common.HexToAddress(e.Address),
			Tokens:  tokens,
		})
	}

	collectors := make([]*domain.FeeCollector, 0, len(f.FeeCollectors))
	for _, e := range f.FeeCollectors {
		c, err := r.collector(e)
		if err != nil {
			return nil, invalid(fmt.Sprintf("fee collector on %d", e.ChainID), err)
		}
		collectors = append(collectors, c)
	}

	specialized := make([]domain.SpecializedRoute, 0, len(f.Specialized))
	for _, e := range f.Specialized {
		a, err := r.asset(e.Asset)
		if err != nil {
			return nil, invalid("specialized route", err)
		}
		if len(e.Protocols) == 0 {
			return nil, invalid("specialized route for "+e.Asset+" names no protocol", nil)
		}
		specialized = append(specialized, domain.SpecializedRoute{Asset: a, Protocols: e.Protocols})
	}

	t, err := domain.NewTopology(ledgers, synthetics, pools, collectors, specialized)
	if err != nil {
		return nil, invalid("validate topology", err)
	}
	return t, nil
}

func (e AssetEntry) asset() (*asset.Asset, error) {
	if e.Symbol == "" {
		return nil, fmt.Errorf("missing symbol")
	}
	if e.Address == "" || e.Address == "native" {
		return asset.NewNative(e.ChainID, e.Symbol, e.Name, e.Decimals), nil
	}
	addr, err := parseAddress(asset.FamilyOf(e.ChainID), e.Address)
	if err != nil {
		return nil, err
	}
	return asset.NewToken(e.ChainID, addr, e.Symbol, e.Name, e.Decimals), nil
}

type resolver struct {
	registry *asset.Registry
}

func (r resolver) asset(ref string) (*asset.Asset, error) {
	return r.registry.Resolve(ref)
}

func (r resolver) assets(refs []string) ([]*asset.Asset, error) {
	out := make([]*asset.Asset, 0, len(refs))
	for _, ref := range refs {
		a, err := r.asset(ref)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

func (r resolver) ledger(e LedgerEntry) (*domain.Ledger, error) {
	family, err := asset.ParseFamily(e.Family, e.ChainID)
	if err != nil {
		return nil, err
	}
	l := &domain.Ledger{ChainID: e.ChainID, Name: e.Name, Family: family}

	for _, field := range []struct {
		dst *common.Address
		src string
	}{
		{&l.Router, e.Router},
		{&l.Gateway, e.Gateway},
		{&l.Portal, e.Portal},
		{&l.Synthesis, e.Synthesis},
	} {
		if field.src == "" {
			continue
		}
		if *field.dst, err = parseAddress(family, field.src); err != nil {
			return nil, err
		}
	}

	if e.WrappedNative != "" {
		if l.WrappedNative, err = r.asset(e.WrappedNative); err != nil {
			return nil, err
		}
	}
	if l.TransitAssets, err = r.assets(e.TransitAssets); err != nil {
		return nil, err
	}
	return l, nil
}

func (r resolver) collector(e FeeCollectorEntry) (*domain.FeeCollector, error) {
	if !common.IsHexAddress(e.Address) {
		return nil, fmt.Errorf("bad address %q", e.Address)
	}
	c := &domain.FeeCollector{
		ChainID:        e.ChainID,
		Address:        common.HexToAddress(e.Address),
		ApprovalTarget: common.HexToAddress(e.Address),
		Fees:           make(map[asset.AssetID]*big.Int, len(e.Fees)),
	}
	if e.ApprovalTarget != "" {
		if !common.IsHexAddress(e.ApprovalTarget) {
			return nil, fmt.Errorf("bad approval target %q", e.ApprovalTarget)
		}
		c.ApprovalTarget = common.HexToAddress(e.ApprovalTarget)
	}
	for ref, raw := range e.Fees {
		a, err := r.asset(ref)
		if err != nil {
			return nil, err
		}
		if a.ChainID() != e.ChainID {
			return nil, fmt.Errorf("fee asset %s is not on ledger %d", a, e.ChainID)
		}
		v, ok := new(big.Int).SetString(raw, 10)
		if !ok || v.Sign() < 0 {
			return nil, fmt.Errorf("bad fee %q for %s", raw, ref)
		}
		c.Fees[a.ID()] = v
	}
	return c, nil
}

// parseAddress accepts hex everywhere and base58check on Tron ledgers.
func parseAddress(family asset.Family, s string) (common.Address, error) {
	if family == asset.FamilyTron {
		return ledgeraddr.DecodeTron(s)
	}
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("bad address %q", s)
	}
	return common.HexToAddress(s), nil
}

func invalid(msg string, cause error) error {
	opts := []apperror.Option{apperror.WithContext(msg)}
	if cause != nil {
		opts = append(opts, apperror.WithCause(cause))
	}
	return apperror.New(apperror.CodeTopologyInvalid, opts...)
}
