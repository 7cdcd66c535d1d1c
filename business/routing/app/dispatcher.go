package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/omniroute/business/routing/domain"
	"github.com/fd1az/omniroute/internal/apperror"
	"github.com/fd1az/omniroute/internal/asset"
	"github.com/fd1az/omniroute/internal/ledgeraddr"
	"github.com/fd1az/omniroute/internal/logger"
)

// Config tunes the dispatcher.
type Config struct {
	// ProviderTimeout bounds a single on-ledger provider quote.
	ProviderTimeout time.Duration
	// RouteTimeout bounds a whole composed route or protocol quote.
	RouteTimeout time.Duration
	// DefaultDeadline is applied to requests without a deadline.
	DefaultDeadline time.Duration
	MaxFeePasses    int
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		ProviderTimeout: 5 * time.Second,
		RouteTimeout:    20 * time.Second,
		DefaultDeadline: 20 * time.Minute,
		MaxFeePasses:    DefaultMaxFeePasses,
	}
}

// Deps are the dispatcher's collaborators. Prices and NetworkFees are
// optional; without them quotes carry no USD figures or network fee.
type Deps struct {
	Topology    *domain.Topology
	Providers   []QuoteProvider
	Pools       PoolQuoter
	Oracle      FeeOracle
	Encoder     CallEncoder
	Protocols   []ProtocolQuoter
	Prices      PriceReference
	NetworkFees NetworkFeeEstimator
	Logger      logger.LoggerInterface
}

// Dispatcher classifies requests and runs the matching strategy.
type Dispatcher struct {
	cfg       Config
	topo      *domain.Topology
	providers []QuoteProvider
	pools     PoolQuoter
	oracle    FeeOracle
	encoder   CallEncoder
	protocols map[string]ProtocolQuoter
	prices    PriceReference
	network   NetworkFeeEstimator
	log       logger.LoggerInterface
	tracer    trace.Tracer
	metrics   *dispatcherMetrics
	now       func() time.Time
}

// NewDispatcher wires a dispatcher.
func NewDispatcher(cfg Config, deps Deps) (*Dispatcher, error) {
	switch {
	case deps.Topology == nil:
		return nil, errors.New("dispatcher: topology is required")
	case deps.Encoder == nil:
		return nil, errors.New("dispatcher: call encoder is required")
	case deps.Oracle == nil:
		return nil, errors.New("dispatcher: fee oracle is required")
	case deps.Logger == nil:
		return nil, errors.New("dispatcher: logger is required")
	}
	def := DefaultConfig()
	if cfg.ProviderTimeout <= 0 {
		cfg.ProviderTimeout = def.ProviderTimeout
	}
	if cfg.RouteTimeout <= 0 {
		cfg.RouteTimeout = def.RouteTimeout
	}
	if cfg.DefaultDeadline <= 0 {
		cfg.DefaultDeadline = def.DefaultDeadline
	}
	if cfg.MaxFeePasses <= 0 {
		cfg.MaxFeePasses = def.MaxFeePasses
	}

	metrics, err := newDispatcherMetrics()
	if err != nil {
		return nil, fmt.Errorf("dispatcher: init metrics: %w", err)
	}

	protocols := make(map[string]ProtocolQuoter, len(deps.Protocols))
	for _, p := range deps.Protocols {
		protocols[p.Name()] = p
	}

	return &Dispatcher{
		cfg:       cfg,
		topo:      deps.Topology,
		providers: deps.Providers,
		pools:     deps.Pools,
		oracle:    deps.Oracle,
		encoder:   deps.Encoder,
		protocols: protocols,
		prices:    deps.Prices,
		network:   deps.NetworkFees,
		log:       deps.Logger,
		tracer:    otel.Tracer(tracerName),
		metrics:   metrics,
		now:       time.Now,
	}, nil
}

// Topology returns the topology the dispatcher routes over.
func (d *Dispatcher) Topology() *domain.Topology {
	return d.topo
}

// participants are the request addresses in 20-byte form. UTXO
// participants stay zero.
type participants struct {
	from, to, refund common.Address
}

// RouteExactIn prices an exact-input request and returns an execution-ready
// quote. Failures of every candidate surface as the most actionable kind.
func (d *Dispatcher) RouteExactIn(ctx context.Context, req domain.Request) (*domain.QuoteResult, error) {
	ctx, span := d.tracer.Start(ctx, "dispatcher.route_exact_in", trace.WithAttributes(
		attribute.String("route.in", req.AmountIn.String()),
	))
	defer span.End()
	start := d.now()

	strategy, res, err := d.route(ctx, req)
	d.metrics.recordQuote(ctx, strategy, time.Since(start), err)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		d.log.Warn(ctx, "route failed", "strategy", string(strategy), "code", string(apperror.GetCode(err)), "error", err)
		return nil, err
	}

	span.SetAttributes(
		attribute.String("route.strategy", string(strategy)),
		attribute.String("route.provider", res.Provider),
		attribute.String("route.out", res.AmountOut.String()),
	)
	span.SetStatus(codes.Ok, "")
	d.log.Info(ctx, "route found",
		"strategy", string(strategy),
		"provider", res.Provider,
		"amount_in", res.AmountIn.String(),
		"amount_out", res.AmountOut.String(),
		"route", res.Route.String(),
	)
	return res, nil
}

func (d *Dispatcher) route(ctx context.Context, req domain.Request) (domain.Strategy, *domain.QuoteResult, error) {
	if err := req.Validate(); err != nil {
		return "", nil, err
	}
	now := d.now()
	if req.Deadline.IsZero() {
		req.Deadline = now.Add(d.cfg.DefaultDeadline)
	} else if !req.Deadline.After(now) {
		return "", nil, apperror.Validation(apperror.CodeInvalidRequest, "deadline already passed")
	}

	strategy, err := domain.Classify(req, d.topo)
	if err != nil {
		return strategy, nil, err
	}
	src, _ := d.topo.Ledger(req.TokenIn().ChainID())
	dst, _ := d.topo.Ledger(req.TokenOut.ChainID())
	p, err := resolveParticipants(req, src, dst)
	if err != nil {
		return strategy, nil, err
	}

	var res *domain.QuoteResult
	switch strategy {
	case domain.StrategyWrap:
		res, err = d.wrap(req, src)
	case domain.StrategyUnwrap:
		res, err = d.unwrap(req, src)
	case domain.StrategyFeeCollector:
		res, err = d.feeCollector(ctx, req, src, p)
	case domain.StrategySameLedger:
		res, err = d.sameLedger(ctx, req, src, p)
	case domain.StrategyDirectBridge:
		res, err = d.directBridge(ctx, req, src, p)
	case domain.StrategySpecialized:
		res, err = d.specialized(ctx, req, src)
	default:
		res, err = d.generalCrossLedger(ctx, req, src, p)
	}
	if err != nil {
		return strategy, nil, apperror.Surface(err)
	}
	res.Strategy = strategy
	if err := d.finalize(ctx, req, res); err != nil {
		return strategy, nil, err
	}
	return strategy, res, nil
}

func resolveParticipants(req domain.Request, src, dst *domain.Ledger) (participants, error) {
	var p participants
	var err error
	if p.from, err = ledgeraddr.Parse(src.Family, req.From); err != nil {
		return p, apperror.Validation(apperror.CodeInvalidRequest, "from: "+err.Error())
	}
	if p.to, err = ledgeraddr.Parse(dst.Family, req.To); err != nil {
		return p, apperror.Validation(apperror.CodeInvalidRequest, "to: "+err.Error())
	}
	if p.refund, err = ledgeraddr.Parse(src.Family, req.Refund()); err != nil {
		return p, apperror.Validation(apperror.CodeInvalidRequest, "revert to: "+err.Error())
	}
	return p, nil
}

func (d *Dispatcher) wrap(req domain.Request, src *domain.Ledger) (*domain.QuoteResult, error) {
	out := req.AmountIn.Rescale(src.WrappedNative)
	call, err := d.encoder.Wrap(src.WrappedNative, req.AmountIn)
	if err != nil {
		return nil, apperror.Internal(apperror.CodeInternalError, "encode wrap", err)
	}
	payload, err := Assemble(AssembleInput{Ledger: src, From: req.From, AmountIn: req.AmountIn, Call: call})
	if err != nil {
		return nil, err
	}
	return &domain.QuoteResult{
		Kind:      domain.KindWrap,
		Provider:  "wrapped-native",
		Route:     domain.BuildRoute([]*asset.Asset{req.TokenIn(), src.WrappedNative}),
		AmountOut: out,
		Payload:   payload,
	}, nil
}

func (d *Dispatcher) unwrap(req domain.Request, src *domain.Ledger) (*domain.QuoteResult, error) {
	out := req.AmountIn.Rescale(req.TokenOut)
	call, err := d.encoder.Unwrap(src.WrappedNative, req.AmountIn)
	if err != nil {
		return nil, apperror.Internal(apperror.CodeInternalError, "encode unwrap", err)
	}
	payload, err := Assemble(AssembleInput{Ledger: src, From: req.From, AmountIn: req.AmountIn, Call: call})
	if err != nil {
		return nil, err
	}
	return &domain.QuoteResult{
		Kind:      domain.KindUnwrap,
		Provider:  "wrapped-native",
		Route:     domain.BuildRoute([]*asset.Asset{src.WrappedNative, req.TokenOut}),
		AmountOut: out,
		Payload:   payload,
	}, nil
}

// quoteLeg races every provider serving the input ledger.
func (d *Dispatcher) quoteLeg(ctx context.Context, p LegParams) (*domain.Leg, error) {
	chainID := p.AmountIn.Asset().ChainID()
	var candidates []Candidate[*domain.Leg]
	for _, prov := range d.providers {
		if !prov.Supports(chainID) {
			continue
		}
		candidates = append(candidates, Candidate[*domain.Leg]{
			Name: prov.Name(),
			Run: func(ctx context.Context) (*domain.Leg, error) {
				leg, err := prov.Quote(ctx, p)
				if err != nil {
					return nil, apperror.Provider(prov.Name(), err)
				}
				if !leg.AmountOut.IsSet() || !leg.AmountOut.Asset().Equals(p.TokenOut) {
					return nil, apperror.New(apperror.CodeAssetMismatch,
						apperror.WithContext(prov.Name()+" quoted "+leg.AmountOut.String()))
				}
				return leg, nil
			},
		})
	}
	if len(candidates) == 0 {
		return nil, apperror.New(apperror.CodeNoRoute,
			apperror.WithContext(fmt.Sprintf("no provider serves chain %d", chainID)))
	}

	leg, err := Race(ctx, RaceOptions{
		Mode:    BestOf,
		Timeout: d.cfg.ProviderTimeout,
		Observe: d.metrics.observer(ctx),
	}, candidates...)
	if err != nil {
		return nil, err
	}
	return d.withEstimatedImpact(ctx, leg), nil
}

func (d *Dispatcher) sameLedger(ctx context.Context, req domain.Request, src *domain.Ledger, p participants) (*domain.QuoteResult, error) {
	leg, err := d.quoteLeg(ctx, LegParams{
		AmountIn:    req.AmountIn,
		TokenOut:    req.TokenOut,
		From:        p.from,
		Recipient:   p.to,
		SlippageBps: req.SlippageBps,
		Deadline:    req.Deadline,
	})
	if err != nil {
		return nil, err
	}
	payload, err := Assemble(AssembleInput{Ledger: src, From: req.From, AmountIn: req.AmountIn, Call: leg.Call})
	if err != nil {
		return nil, err
	}
	return &domain.QuoteResult{
		Kind:           domain.KindSwap,
		Provider:       leg.Provider,
		Route:          domain.BuildRoute(leg.Route()),
		AmountOut:      leg.AmountOut,
		PriceImpact:    leg.PriceImpact,
		ApprovalTarget: leg.ApprovalTarget,
		Payload:        payload,
	}, nil
}

// feeCollector takes the relay's flat fee off the input, swaps the rest on
// behalf of the caller and routes the call through the relay.
func (d *Dispatcher) feeCollector(ctx context.Context, req domain.Request, src *domain.Ledger, p participants) (*domain.QuoteResult, error) {
	collector, _ := d.topo.FeeCollector(src.ChainID)
	fee := collector.FeeFor(req.TokenIn())
	net := req.AmountIn
	if fee.IsPositive() {
		cmp, err := fee.Cmp(req.AmountIn)
		if err != nil {
			return nil, apperror.New(apperror.CodeAssetMismatch, apperror.WithCause(err))
		}
		if cmp >= 0 {
			return nil, apperror.New(apperror.CodeAmountLessThanFee,
				apperror.WithContext(fmt.Sprintf("collector fee %s", fee)))
		}
		if net, err = req.AmountIn.Sub(fee); err != nil {
			return nil, apperror.Internal(apperror.CodeInternalError, "subtract collector fee", err)
		}
	}

	leg, err := d.quoteLeg(ctx, LegParams{
		AmountIn:    net,
		TokenOut:    req.TokenOut,
		From:        collector.Address,
		Recipient:   p.to,
		SlippageBps: req.SlippageBps,
		Deadline:    req.Deadline,
	})
	if err != nil {
		return nil, err
	}

	call, err := d.encoder.CollectorSwap(collector, req.AmountIn, leg)
	if err != nil {
		return nil, apperror.Internal(apperror.CodeInternalError, "encode collector swap", err)
	}
	payload, err := Assemble(AssembleInput{Ledger: src, From: req.From, AmountIn: req.AmountIn, Call: call})
	if err != nil {
		return nil, err
	}

	approval := collector.ApprovalTarget
	if approval == (common.Address{}) {
		approval = collector.Address
	}
	res := &domain.QuoteResult{
		Kind:           domain.KindSwap,
		Provider:       leg.Provider,
		Route:          domain.BuildRoute([]*asset.Asset{req.TokenIn()}, leg.Route()),
		AmountOut:      leg.AmountOut,
		PriceImpact:    leg.PriceImpact,
		ApprovalTarget: approval,
		Payload:        payload,
	}
	if fee.IsPositive() {
		res.Fees = []domain.Fee{{Provider: domain.FeeProviderCollector, Kind: domain.FeeKindCollector, Amount: fee}}
	}
	return res, nil
}

func (d *Dispatcher) directBridge(ctx context.Context, req domain.Request, src *domain.Ledger, p participants) (*domain.QuoteResult, error) {
	pipeline := NewPipeline(d.topo, NewTransitStage(d.topo, d.pools, nil), nil, nil,
		d.oracle, d.encoder, d.log, WithMaxFeePasses(d.cfg.MaxFeePasses))

	comp, err := pipeline.Compose(ctx, d.composeRequest(req, p, req.TokenIn(), req.TokenOut))
	if err != nil {
		return nil, err
	}
	return d.fromComposition(req, src, string(comp.Transit.Direction), comp)
}

// generalCrossLedger races one full composition per omni-pool venue.
func (d *Dispatcher) generalCrossLedger(ctx context.Context, req domain.Request, src *domain.Ledger, p participants) (*domain.QuoteResult, error) {
	venues := d.topo.PoolsBetween(req.TokenIn().ChainID(), req.TokenOut.ChainID())
	if len(venues) == 0 {
		return nil, apperror.New(apperror.CodeNoRoute,
			apperror.WithContext(fmt.Sprintf("no pool connects %d and %d", req.TokenIn().ChainID(), req.TokenOut.ChainID())))
	}

	candidates := make([]Candidate[*Composition], 0, len(venues))
	for i := range venues {
		venue := &venues[i]
		candidates = append(candidates, Candidate[*Composition]{
			Name: venue.Name(),
			Run: func(ctx context.Context) (*Composition, error) {
				pipeline := NewPipeline(d.topo, NewTransitStage(d.topo, d.pools, venue), d.quoteLeg, d.quoteLeg,
					d.oracle, d.encoder, d.log, WithMaxFeePasses(d.cfg.MaxFeePasses))
				comp, err := pipeline.Compose(ctx, d.composeRequest(req, p, venue.SourceTransit, venue.DestinationTransit))
				if err == nil {
					d.metrics.feePasses.Record(ctx, int64(comp.FeePasses))
				}
				return comp, err
			},
		})
	}

	comp, err := Race(ctx, RaceOptions{
		Mode:    BestOf,
		Timeout: d.cfg.RouteTimeout,
		Observe: d.metrics.observer(ctx),
	}, candidates...)
	if err != nil {
		return nil, err
	}
	provider := "omni-pool"
	if comp.Transit.Venue != nil {
		provider = comp.Transit.Venue.Name()
	}
	return d.fromComposition(req, src, provider, comp)
}

func (d *Dispatcher) composeRequest(req domain.Request, p participants, srcTransit, dstTransit *asset.Asset) ComposeRequest {
	return ComposeRequest{
		AmountIn:           req.AmountIn,
		TokenOut:           req.TokenOut,
		SourceTransit:      srcTransit,
		DestinationTransit: dstTransit,
		Recipient:          p.to,
		RevertTo:           p.refund,
		SlippageBps:        req.SlippageBps,
		Deadline:           req.Deadline,
	}
}

func (d *Dispatcher) fromComposition(req domain.Request, src *domain.Ledger, provider string, comp *Composition) (*domain.QuoteResult, error) {
	payload, err := Assemble(AssembleInput{Ledger: src, From: req.From, AmountIn: req.AmountIn, Call: comp.Call})
	if err != nil {
		return nil, err
	}
	kind := domain.KindCrossChainSwap
	if comp.Entry == nil && comp.Exit == nil {
		kind = domain.KindBridge
	}
	res := &domain.QuoteResult{
		Kind:                kind,
		Provider:            provider,
		Route:               comp.Route,
		AmountOut:           comp.AmountOut,
		AmountOutWithoutFee: comp.AmountOutWithoutFee,
		PriceImpact:         comp.PriceImpact,
		ApprovalTarget:      comp.ApprovalTarget,
		Payload:             payload,
	}
	if comp.Fee.IsPositive() {
		res.Fees = []domain.Fee{{Provider: domain.FeeProviderRelay, Kind: domain.FeeKindBridge, Amount: comp.Fee}}
	}
	return res, nil
}

// specialized races the external protocols registered for the output asset.
func (d *Dispatcher) specialized(ctx context.Context, req domain.Request, src *domain.Ledger) (*domain.QuoteResult, error) {
	names, _ := d.topo.Specialized(req.TokenOut)
	var candidates []Candidate[*ProtocolQuote]
	for _, name := range names {
		proto, ok := d.protocols[name]
		if !ok {
			d.log.Warn(ctx, "specialized protocol not configured", "protocol", name)
			continue
		}
		candidates = append(candidates, Candidate[*ProtocolQuote]{
			Name: name,
			Run: func(ctx context.Context) (*ProtocolQuote, error) {
				q, err := proto.QuoteRoute(ctx, req)
				if err != nil {
					return nil, apperror.Provider(name, err)
				}
				if !q.AmountOut.IsSet() || !q.AmountOut.Asset().Equals(req.TokenOut) {
					return nil, apperror.New(apperror.CodeAssetMismatch,
						apperror.WithContext(name+" quoted "+q.AmountOut.String()+" for "+req.TokenOut.String()))
				}
				if q.Protocol == "" {
					q.Protocol = name
				}
				return q, nil
			},
		})
	}
	if len(candidates) == 0 {
		return nil, apperror.New(apperror.CodeNoRoute,
			apperror.WithContext("no protocol configured for "+req.TokenOut.String()))
	}

	q, err := Race(ctx, RaceOptions{
		Mode:    BestOf,
		Timeout: d.cfg.RouteTimeout,
		Observe: d.metrics.observer(ctx),
	}, candidates...)
	if err != nil {
		return nil, err
	}

	in := AssembleInput{Ledger: src, From: req.From, AmountIn: req.AmountIn, Deposit: q.Deposit}
	switch {
	case q.Call != nil:
		in.Call = *q.Call
	case src.Family != asset.FamilyUTXO:
		return nil, apperror.New(apperror.CodeInvalidState,
			apperror.WithContext(q.Protocol+" returned no call for "+string(src.Family)))
	}
	payload, err := Assemble(in)
	if err != nil {
		return nil, err
	}

	impact := q.PriceImpact
	if !q.ImpactKnown {
		impact = d.impactOf(ctx, req.AmountIn, q.AmountOut)
	}
	route := q.Route
	if len(route) == 0 {
		route = []*asset.Asset{req.TokenIn(), req.TokenOut}
	}
	return &domain.QuoteResult{
		Kind:           domain.KindCrossChainSwap,
		Provider:       q.Protocol,
		Route:          domain.BuildRoute(route),
		AmountOut:      q.AmountOut,
		PriceImpact:    impact,
		Fees:           q.Fees,
		ApprovalTarget: q.ApprovalTarget,
		Payload:        payload,
	}, nil
}

// finalize fills the fields every strategy shares.
func (d *Dispatcher) finalize(ctx context.Context, req domain.Request, res *domain.QuoteResult) error {
	res.AmountIn = req.AmountIn
	res.Deadline = req.Deadline

	minOut, err := res.AmountOut.ApplyBps(req.SlippageBps)
	if err != nil {
		return apperror.Validation(apperror.CodeInvalidRequest, err.Error())
	}
	res.AmountOutMin = minOut

	if v, ok := d.valueUSD(ctx, res.AmountIn); ok {
		res.AmountInUSD = v
	}
	if v, ok := d.valueUSD(ctx, res.AmountOut); ok {
		res.AmountOutUSD = v
	}

	if evm, ok := res.Payload.(domain.EVMPayload); ok && d.network != nil {
		fee, err := d.network.EstimateNetworkFee(ctx, evm.ChainID, evm.From, evm.To, evm.Value, evm.Data)
		if err != nil {
			d.log.Warn(ctx, "network fee unavailable", "chain_id", evm.ChainID, "error", err)
		} else {
			res.NetworkFee = fee
		}
	}
	return nil
}
