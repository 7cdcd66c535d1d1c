package domain

import (
	"strings"

	"github.com/fd1az/omniroute/internal/apperror"
	"github.com/fd1az/omniroute/internal/asset"
)

// Strategy names how a request is routed.
type Strategy string

const (
	StrategyWrap               Strategy = "wrap"
	StrategyUnwrap             Strategy = "unwrap"
	StrategyFeeCollector       Strategy = "fee-collector"
	StrategySameLedger         Strategy = "same-ledger"
	StrategyOnLedgerSwap       Strategy = "on-ledger-swap"
	StrategyDirectBridge       Strategy = "direct-bridge"
	StrategySpecialized        Strategy = "specialized-protocol"
	StrategyGeneralCrossLedger Strategy = "general-cross-ledger"
)

// Classify picks the strategy for a request. It is a pure decision table:
// the first matching row wins and nothing is fetched.
func Classify(req Request, topo *Topology) (Strategy, error) {
	in, out := req.TokenIn(), req.TokenOut
	if in == nil || out == nil {
		return "", apperror.Validation(apperror.CodeInvalidRequest, "input and output asset are required")
	}
	if in.Equals(out) {
		return "", apperror.Validation(apperror.CodeInvalidRequest, "input and output asset are the same")
	}

	src, ok := topo.Ledger(in.ChainID())
	if !ok {
		return "", apperror.Validation(apperror.CodeUnsupportedLedger, in.String())
	}
	if _, ok := topo.Ledger(out.ChainID()); !ok {
		return "", apperror.Validation(apperror.CodeUnsupportedLedger, out.String())
	}

	if !req.CrossLedger() {
		wrapped := src.WrappedNative
		switch {
		case wrapped != nil && in.IsNative() && out.Equals(wrapped) && sameParticipant(src.Family, req.From, req.To):
			return StrategyWrap, nil
		case wrapped != nil && in.Equals(wrapped) && out.IsNative():
			return StrategyUnwrap, nil
		}
		if _, ok := topo.FeeCollector(src.ChainID); ok {
			return StrategyFeeCollector, nil
		}
		return StrategySameLedger, nil
	}

	if isDirectBridge(in, out, topo) {
		return StrategyDirectBridge, nil
	}
	if _, ok := topo.Specialized(out); ok {
		return StrategySpecialized, nil
	}
	return StrategyGeneralCrossLedger, nil
}

func isDirectBridge(in, out *asset.Asset, topo *Topology) bool {
	if s, ok := topo.SyntheticOf(in, out.ChainID()); ok && s.Equals(out) {
		return true
	}
	if r, ok := topo.RealOf(in); ok && r.Equals(out) {
		return true
	}
	return false
}

// EVM addresses compare case-insensitively; base58 forms are case-sensitive.
func sameParticipant(f asset.Family, a, b string) bool {
	if f == asset.FamilyEVM {
		return strings.EqualFold(a, b)
	}
	return a == b
}
