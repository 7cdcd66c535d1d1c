package app

import (
	"context"
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
	"github.com/fd1az/omniroute/internal/logger"
)

// DefaultMaxFeePasses bounds how many times the fee is re-estimated after
// the speculative pass.
const DefaultMaxFeePasses = 3

// LegSource quotes an on-ledger leg, usually by racing providers.
type LegSource func(ctx context.Context, p LegParams) (*domain.Leg, error)

// Hooks derive the destination-side final call from the exit leg.
type Hooks struct {
	FinalReceiveSide func(exit *domain.Leg) common.Address
	FinalCalldata    func(exit *domain.Leg) []byte
	FinalOffset      func(exit *domain.Leg) uint64
}

// DefaultHooks execute the exit leg's own call, patched at its offset.
func DefaultHooks() Hooks {
	return Hooks{
		FinalReceiveSide: func(l *domain.Leg) common.Address { return l.Call.Target },
		FinalCalldata:    func(l *domain.Leg) []byte { return l.Call.Data },
		FinalOffset:      func(l *domain.Leg) uint64 { return l.PatchOffset },
	}
}

// ComposeRequest is one entry -> transit -> exit composition.
type ComposeRequest struct {
	AmountIn asset.Amount
	TokenOut *asset.Asset
	// SourceTransit is what the entry leg must produce; DestinationTransit
	// is what the transit stage delivers.
	SourceTransit      *asset.Asset
	DestinationTransit *asset.Asset

	Recipient   common.Address
	RevertTo    common.Address
	SlippageBps uint32
	Deadline    time.Time
}

// Composition is a fully priced cross-ledger route.
type Composition struct {
	Entry   *domain.Leg
	Transit domain.TransitResult
	Exit    *domain.Leg

	Route               domain.Route
	AmountOut           asset.Amount
	AmountOutWithoutFee asset.Amount
	Fee                 asset.Amount
	PriceImpact         domain.Impact

	Call           domain.Call
	ApprovalTarget common.Address
	FeePasses      int
}

// Output is the amount delivered to the recipient.
func (c *Composition) Output() asset.Amount {
	return c.AmountOut
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithHooks overrides how the exit leg becomes the final call.
func WithHooks(h Hooks) PipelineOption {
	return func(p *Pipeline) { p.hooks = h }
}

// WithMaxFeePasses overrides DefaultMaxFeePasses.
func WithMaxFeePasses(n int) PipelineOption {
	return func(p *Pipeline) {
		if n > 0 {
			p.maxPasses = n
		}
	}
}

// Pipeline composes entry leg, transit stage and exit leg. Each stage
// consumes the previous one's output; the bridging fee depends on the
// destination calldata, which depends on the fee, so the composition is
// evaluated first with a zero fee and then re-evaluated with the oracle's
// fee until the fee stops rising.
type Pipeline struct {
	topo      *domain.Topology
	transit   *TransitStage
	entry     LegSource
	exit      LegSource
	oracle    FeeOracle
	encoder   CallEncoder
	hooks     Hooks
	maxPasses int
	log       logger.LoggerInterface
	tracer    trace.Tracer
}

// NewPipeline creates a pipeline. entry and exit may be nil when the route
// never needs them.
func NewPipeline(topo *domain.Topology, transit *TransitStage, entry, exit LegSource, oracle FeeOracle, encoder CallEncoder, log logger.LoggerInterface, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		topo:      topo,
		transit:   transit,
		entry:     entry,
		exit:      exit,
		oracle:    oracle,
		encoder:   encoder,
		hooks:     DefaultHooks(),
		maxPasses: DefaultMaxFeePasses,
		log:       log,
		tracer:    otel.Tracer(tracerName),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

type pass struct {
	transit domain.TransitResult
	exit    *domain.Leg
	calls   TransitCalls
}

func (p pass) output() asset.Amount {
	if p.exit != nil {
		return p.exit.AmountOut
	}
	return p.transit.AmountOut
}

// Compose prices the route. Any adapter failure aborts it; fee oracle
// failures carry PROVIDER_ORACLE_ERROR.
func (p *Pipeline) Compose(ctx context.Context, req ComposeRequest) (*Composition, error) {
	ctx, span := p.tracer.Start(ctx, "pipeline.compose")
	defer span.End()
	span.SetAttributes(
		attribute.String("pipeline.in", req.AmountIn.String()),
		attribute.String("pipeline.out", req.TokenOut.String()),
	)

	c, err := p.compose(ctx, req)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("pipeline.fee_passes", c.FeePasses))
	span.SetStatus(codes.Ok, "")
	return c, nil
}

func (p *Pipeline) compose(ctx context.Context, req ComposeRequest) (*Composition, error) {
	in := req.AmountIn.Asset()
	src, ok := p.topo.Ledger(in.ChainID())
	if !ok {
		return nil, apperror.Validation(apperror.CodeUnsupportedLedger, in.String())
	}
	dst, ok := p.topo.Ledger(req.TokenOut.ChainID())
	if !ok {
		return nil, apperror.Validation(apperror.CodeUnsupportedLedger, req.TokenOut.String())
	}
	var hub *domain.Ledger
	if p.transit.venue != nil {
		if hub, ok = p.topo.Ledger(p.transit.venue.Pool.ChainID); !ok {
			return nil, apperror.Validation(apperror.CodeUnsupportedLedger, p.transit.venue.Pool.ID)
		}
	}

	var entry *domain.Leg
	bridged := req.AmountIn
	if !in.Equals(req.SourceTransit) {
		if p.entry == nil {
			return nil, apperror.New(apperror.CodeNoRoute, apperror.WithContext("no entry leg source"))
		}
		leg, err := p.entry(ctx, LegParams{
			AmountIn:    req.AmountIn,
			TokenOut:    req.SourceTransit,
			From:        src.Router,
			Recipient:   src.Router,
			SlippageBps: req.SlippageBps,
			Deadline:    req.Deadline,
		})
		if err != nil {
			return nil, err
		}
		entry = leg
		bridged = leg.AmountOut
	}

	evaluate := func(fee asset.Amount) (pass, error) {
		tr, err := p.transit.Bridge(ctx, bridged, req.DestinationTransit, &fee)
		if err != nil {
			return pass{}, err
		}
		var exit *domain.Leg
		var final *FinalCall
		if !req.DestinationTransit.Equals(req.TokenOut) {
			if p.exit == nil {
				return pass{}, apperror.New(apperror.CodeNoRoute, apperror.WithContext("no exit leg source"))
			}
			exit, err = p.exit(ctx, LegParams{
				AmountIn:    tr.AmountOut,
				TokenOut:    req.TokenOut,
				From:        dst.Router,
				Recipient:   req.Recipient,
				SlippageBps: req.SlippageBps,
				Deadline:    req.Deadline,
			})
			if err != nil {
				return pass{}, err
			}
			final = &FinalCall{
				ReceiveSide: p.hooks.FinalReceiveSide(exit),
				Calldata:    p.hooks.FinalCalldata(exit),
				Offset:      p.hooks.FinalOffset(exit),
			}
		}
		calls, err := p.encoder.TransitCalls(TransitCallParams{
			Transit:     tr,
			Source:      src,
			Hub:         hub,
			Dest:        dst,
			Recipient:   req.Recipient,
			RevertTo:    req.RevertTo,
			SlippageBps: req.SlippageBps,
			Deadline:    req.Deadline,
			FinalCall:   final,
		})
		if err != nil {
			return pass{}, err
		}
		return pass{transit: tr, exit: exit, calls: calls}, nil
	}

	feeAsset := bridged.Asset()
	speculative, err := evaluate(asset.Zero(feeAsset))
	if err != nil {
		return nil, err
	}

	fee, err := p.estimateFee(ctx, src.ChainID, feeAsset, speculative.calls)
	if err != nil {
		return nil, err
	}

	var final pass
	passes := 0
	for {
		passes++
		final, err = evaluate(fee)
		if err != nil {
			return nil, err
		}
		next, err := p.estimateFee(ctx, src.ChainID, feeAsset, final.calls)
		if err != nil {
			return nil, err
		}
		p.log.Debug(ctx, "fee pass", "pass", passes, "fee", fee, "next", next)

		if !next.Asset().Equals(fee.Asset()) {
			break
		}
		if rising, _ := next.GreaterThan(fee); !rising {
			break
		}
		if passes >= p.maxPasses {
			return nil, apperror.New(apperror.CodeFeeNotConverged,
				apperror.WithContext(fmt.Sprintf("fee still rising after %d passes: %s -> %s", passes, fee, next)))
		}
		fee = next
	}

	call, err := p.encoder.MetaRoute(MetaRouteParams{
		Router:    src.Router,
		AmountIn:  req.AmountIn,
		Entry:     entry,
		Transit:   final.calls.Source,
		Recipient: req.Recipient,
	})
	if err != nil {
		return nil, err
	}

	var entryRoute, exitRoute []*asset.Asset
	impacts := []domain.Impact{final.transit.PriceImpact}
	if entry != nil {
		entryRoute = entry.Route()
		impacts = append(impacts, entry.PriceImpact)
	}
	if final.exit != nil {
		exitRoute = final.exit.Route()
		impacts = append(impacts, final.exit.PriceImpact)
	}

	return &Composition{
		Entry:               entry,
		Transit:             final.transit,
		Exit:                final.exit,
		Route:               domain.BuildRoute([]*asset.Asset{in}, entryRoute, final.transit.Route, exitRoute, []*asset.Asset{req.TokenOut}),
		AmountOut:           final.output(),
		AmountOutWithoutFee: speculative.output(),
		Fee:                 fee,
		PriceImpact:         domain.SumImpacts(impacts...),
		Call:                call,
		ApprovalTarget:      src.Gateway,
		FeePasses:           passes,
	}, nil
}

func (p *Pipeline) estimateFee(ctx context.Context, sourceChainID uint64, feeAsset *asset.Asset, calls TransitCalls) (asset.Amount, error) {
	fee, err := p.oracle.EstimateFee(ctx, FeeRequest{
		SourceChainID:      sourceChainID,
		DestinationChainID: calls.ReceiveChainID,
		ReceiveSide:        calls.ReceiveSide,
		Calldata:           calls.Destination,
		FeeAsset:           feeAsset,
	})
	if err != nil {
		if apperror.GetCode(err) == apperror.CodeFeeOracleError {
			return asset.Amount{}, err
		}
		return asset.Amount{}, apperror.New(apperror.CodeFeeOracleError, apperror.WithCause(err))
	}
	if !fee.IsSet() {
		return asset.Amount{}, apperror.New(apperror.CodeFeeOracleError, apperror.WithContext("empty fee"))
	}
	return fee, nil
}
