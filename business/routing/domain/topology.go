package domain

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/omniroute/internal/asset"
)

// Ledger is the static deployment data of one ledger.
type Ledger struct {
	ChainID uint64
	Name    string
	Family  asset.Family

	// Router executes the source side of a route; Gateway is what users
	// approve to spend their tokens. Portal locks real assets and Synthesis
	// mints/burns synthetic ones.
	Router    common.Address
	Gateway   common.Address
	Portal    common.Address
	Synthesis common.Address

	// WrappedNative is the ERC20 wrapper of the native coin, if any.
	WrappedNative *asset.Asset
	// TransitAssets are the stables that can enter or leave the ledger
	// through the bridge, in preference order.
	TransitAssets []*asset.Asset
}

// SyntheticLink says Synthetic, living on another ledger, represents Real
// one to one.
type SyntheticLink struct {
	Real      *asset.Asset
	Synthetic *asset.Asset
}

// OmniPool is a stable swap pool on a hub ledger holding synthetic
// representations of transit assets from many ledgers.
type OmniPool struct {
	ID      string
	ChainID uint64
	Address common.Address
	// Tokens are the pool's synthetic assets, indexed as the pool indexes them.
	Tokens []*asset.Asset
}

// IndexOf returns the pool index of a synthetic token.
func (p *OmniPool) IndexOf(a *asset.Asset) (int, bool) {
	for i, t := range p.Tokens {
		if t.Equals(a) {
			return i, true
		}
	}
	return 0, false
}

// FeeCollector takes a flat fee from same-ledger swaps before forwarding
// the remainder to the swap.
type FeeCollector struct {
	ChainID        uint64
	Address        common.Address
	ApprovalTarget common.Address
	// Fees holds the raw flat fee per input asset. Unlisted assets pay none.
	Fees map[asset.AssetID]*big.Int
}

// FeeFor returns the flat fee the collector takes from an input asset.
func (c *FeeCollector) FeeFor(a *asset.Asset) asset.Amount {
	if raw, ok := c.Fees[a.ID()]; ok && raw != nil {
		return asset.NewAmount(a, raw)
	}
	return asset.Zero(a)
}

// SpecializedRoute routes every request whose output is Asset through the
// named external protocols.
type SpecializedRoute struct {
	Asset     *asset.Asset
	Protocols []string
}

// Topology is the read-only routing configuration.
type Topology struct {
	ledgers     map[uint64]*Ledger
	synthetics  []SyntheticLink
	pools       []*OmniPool
	collectors  map[uint64]*FeeCollector
	specialized []SpecializedRoute
}

// NewTopology validates and indexes the configuration.
func NewTopology(ledgers []*Ledger, synthetics []SyntheticLink, pools []*OmniPool, collectors []*FeeCollector, specialized []SpecializedRoute) (*Topology, error) {
	t := &Topology{
		ledgers:     make(map[uint64]*Ledger, len(ledgers)),
		synthetics:  synthetics,
		pools:       pools,
		collectors:  make(map[uint64]*FeeCollector, len(collectors)),
		specialized: specialized,
	}
	for _, l := range ledgers {
		if _, dup := t.ledgers[l.ChainID]; dup {
			return nil, fmt.Errorf("topology: ledger %d declared twice", l.ChainID)
		}
		if l.WrappedNative != nil && l.WrappedNative.ChainID() != l.ChainID {
			return nil, fmt.Errorf("topology: wrapped native of ledger %d lives on %d", l.ChainID, l.WrappedNative.ChainID())
		}
		for _, ta := range l.TransitAssets {
			if ta.ChainID() != l.ChainID {
				return nil, fmt.Errorf("topology: transit asset %s is not on ledger %d", ta, l.ChainID)
			}
		}
		t.ledgers[l.ChainID] = l
	}
	for _, s := range synthetics {
		if s.Real.ChainID() == s.Synthetic.ChainID() {
			return nil, fmt.Errorf("topology: synthetic %s lives on the ledger of its real asset", s.Synthetic)
		}
		if s.Real.Decimals() != s.Synthetic.Decimals() {
			return nil, fmt.Errorf("topology: synthetic %s decimals differ from %s", s.Synthetic, s.Real)
		}
	}
	for _, p := range pools {
		if _, ok := t.ledgers[p.ChainID]; !ok {
			return nil, fmt.Errorf("topology: pool %s on unknown ledger %d", p.ID, p.ChainID)
		}
		for _, tok := range p.Tokens {
			if _, ok := t.RealOf(tok); !ok {
				return nil, fmt.Errorf("topology: pool %s token %s has no real asset", p.ID, tok)
			}
		}
	}
	for _, c := range collectors {
		t.collectors[c.ChainID] = c
	}
	return t, nil
}

// Ledger returns the ledger with chainID.
func (t *Topology) Ledger(chainID uint64) (*Ledger, bool) {
	l, ok := t.ledgers[chainID]
	return l, ok
}

// Ledgers returns every configured ledger.
func (t *Topology) Ledgers() []*Ledger {
	out := make([]*Ledger, 0, len(t.ledgers))
	for _, l := range t.ledgers {
		out = append(out, l)
	}
	return out
}

// SyntheticOf returns the synthetic of real living on chainID.
func (t *Topology) SyntheticOf(real *asset.Asset, chainID uint64) (*asset.Asset, bool) {
	for _, s := range t.synthetics {
		if s.Real.Equals(real) && s.Synthetic.ChainID() == chainID {
			return s.Synthetic, true
		}
	}
	return nil, false
}

// RealOf returns the real asset a synthetic represents.
func (t *Topology) RealOf(synthetic *asset.Asset) (*asset.Asset, bool) {
	for _, s := range t.synthetics {
		if s.Synthetic.Equals(synthetic) {
			return s.Real, true
		}
	}
	return nil, false
}

// IsSynthetic reports whether a is a synthetic representation.
func (t *Topology) IsSynthetic(a *asset.Asset) bool {
	_, ok := t.RealOf(a)
	return ok
}

// IsTransit reports whether a is a transit asset of its ledger.
func (t *Topology) IsTransit(a *asset.Asset) bool {
	l, ok := t.ledgers[a.ChainID()]
	if !ok {
		return false
	}
	for _, ta := range l.TransitAssets {
		if ta.Equals(a) {
			return true
		}
	}
	return false
}

// PoolsBetween returns the pools that hold synthetics of a transit asset of
// both ledgers, paired with the transit assets they connect.
func (t *Topology) PoolsBetween(from, to uint64) []Venue {
	src, ok := t.ledgers[from]
	if !ok {
		return nil
	}
	dst, ok := t.ledgers[to]
	if !ok {
		return nil
	}

	var out []Venue
	for _, p := range t.pools {
		for _, a := range src.TransitAssets {
			sa, ok := t.SyntheticOf(a, p.ChainID)
			if !ok {
				continue
			}
			if _, ok := p.IndexOf(sa); !ok {
				continue
			}
			for _, b := range dst.TransitAssets {
				sb, ok := t.SyntheticOf(b, p.ChainID)
				if !ok {
					continue
				}
				if _, ok := p.IndexOf(sb); !ok {
					continue
				}
				out = append(out, Venue{Pool: p, SourceTransit: a, DestinationTransit: b})
			}
		}
	}
	return out
}

// FeeCollector returns the collector deployed on chainID.
func (t *Topology) FeeCollector(chainID uint64) (*FeeCollector, bool) {
	c, ok := t.collectors[chainID]
	return c, ok
}

// Specialized returns the protocols registered for an output asset.
func (t *Topology) Specialized(out *asset.Asset) ([]string, bool) {
	for _, s := range t.specialized {
		if s.Asset.Equals(out) {
			return s.Protocols, true
		}
	}
	return nil, false
}

// Venue is one way across ledgers through an omni-pool.
type Venue struct {
	Pool               *OmniPool
	SourceTransit      *asset.Asset
	DestinationTransit *asset.Asset
}

// Name identifies the venue in logs and race results.
func (v Venue) Name() string {
	return fmt.Sprintf("%s:%s->%s", v.Pool.ID, v.SourceTransit.Symbol(), v.DestinationTransit.Symbol())
}
