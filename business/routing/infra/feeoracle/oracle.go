// Package feeoracle asks the bridge relayer network what it charges to
// execute a destination-side call.
package feeoracle

import (
	"context"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/omniroute/business/routing/app"
	"github.com/fd1az/omniroute/internal/apperror"
	"github.com/fd1az/omniroute/internal/asset"
	"github.com/fd1az/omniroute/internal/cache"
	"github.com/fd1az/omniroute/internal/circuitbreaker"
	"github.com/fd1az/omniroute/internal/config"
	"github.com/fd1az/omniroute/internal/httpclient"
	"github.com/fd1az/omniroute/internal/logger"
)

const (
	providerName = "fee-oracle"
	tracerName   = "github.com/fd1az/omniroute/business/routing/infra/feeoracle"

	defaultCacheTTL = 15 * time.Second
)

var _ app.FeeOracle = (*Oracle)(nil)

type feeRequest struct {
	ChainIDFrom uint64 `json:"chainIdFrom"`
	ChainIDTo   uint64 `json:"chainIdTo"`
	ReceiveSide string `json:"receiveSide"`
	CallData    string `json:"callData"`
}

type feeResponse struct {
	Price string `json:"price"`
}

// Oracle implements app.FeeOracle over the REST fee endpoint. Answers are
// cached by a hash of the request since the two fee passes of a route and
// concurrent venues often ask the same question.
type Oracle struct {
	http   httpclient.Client
	ttl    time.Duration
	cache  *cache.Cache[common.Hash, string]
	cb     *circuitbreaker.CircuitBreaker[string]
	logger logger.LoggerInterface
	tracer trace.Tracer
}

// New creates the oracle client.
func New(cfg config.FeeOracleConfig, log logger.LoggerInterface) (*Oracle, error) {
	client, err := httpclient.New(
		httpclient.WithProviderName(providerName),
		httpclient.WithBaseURL(cfg.BaseURL),
		httpclient.WithRequestTimeout(cfg.Timeout),
		httpclient.WithErrorHandler(httpclient.DefaultErrorHandler),
	)
	if err != nil {
		return nil, fmt.Errorf("create fee oracle client: %w", err)
	}
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &Oracle{
		http:   client,
		ttl:    ttl,
		cache:  cache.New[common.Hash, string](time.Minute),
		cb:     circuitbreaker.New[string](circuitbreaker.DefaultConfig(providerName)),
		logger: log,
		tracer: otel.Tracer(tracerName),
	}, nil
}

// EstimateFee returns the fee in req.FeeAsset.
func (o *Oracle) EstimateFee(ctx context.Context, req app.FeeRequest) (asset.Amount, error) {
	ctx, span := o.tracer.Start(ctx, "feeoracle.estimate_fee",
		trace.WithAttributes(
			attribute.Int64("chain_from", int64(req.SourceChainID)),
			attribute.Int64("chain_to", int64(req.DestinationChainID)),
			attribute.String("receive_side", req.ReceiveSide.Hex()),
			attribute.Int("calldata_len", len(req.Calldata)),
		),
	)
	defer span.End()

	key := requestKey(req)
	cached := true
	raw, err := o.cache.GetOrLoad(ctx, key, o.ttl, func(ctx context.Context) (string, error) {
		cached = false
		return o.cb.Execute(func() (string, error) {
			return o.fetch(ctx, req)
		})
	})
	if err != nil {
		span.RecordError(err)
		return asset.Amount{}, apperror.New(apperror.CodeFeeOracleError,
			apperror.WithContext(fmt.Sprintf("%d -> %d", req.SourceChainID, req.DestinationChainID)),
			apperror.WithCause(err))
	}

	fee, err := asset.ParseRaw(req.FeeAsset, raw)
	if err != nil {
		o.cache.Delete(ctx, key)
		return asset.Amount{}, apperror.New(apperror.CodeFeeOracleError,
			apperror.WithContext(fmt.Sprintf("malformed fee %q", raw)),
			apperror.WithCause(err))
	}

	span.SetAttributes(attribute.String("fee", raw), attribute.Bool("cached", cached))
	o.logger.Debug(ctx, "bridge fee",
		"chain_from", req.SourceChainID,
		"chain_to", req.DestinationChainID,
		"fee", fee.String(),
		"cached", cached,
	)
	return fee, nil
}

func (o *Oracle) fetch(ctx context.Context, req app.FeeRequest) (string, error) {
	var out feeResponse
	_, err := o.http.NewRequest().
		SetBody(feeRequest{
			ChainIDFrom: req.SourceChainID,
			ChainIDTo:   req.DestinationChainID,
			ReceiveSide: req.ReceiveSide.Hex(),
			CallData:    hexutil.Encode(req.Calldata),
		}).
		SetResult(&out).
		Post(ctx, "/v1/calculate-fee")
	if err != nil {
		return "", err
	}
	if out.Price == "" {
		return "", fmt.Errorf("empty price in fee oracle response")
	}
	return out.Price, nil
}

// Healthy reports whether the oracle circuit is closed.
func (o *Oracle) Healthy() bool {
	return o.cb.Healthy()
}

// Close stops the cache janitor.
func (o *Oracle) Close() {
	o.cache.Close()
}

func requestKey(req app.FeeRequest) common.Hash {
	var chains [16]byte
	binary.BigEndian.PutUint64(chains[:8], req.SourceChainID)
	binary.BigEndian.PutUint64(chains[8:], req.DestinationChainID)
	return crypto.Keccak256Hash(chains[:], req.ReceiveSide.Bytes(), req.FeeAsset.Address().Bytes(), req.Calldata)
}
