package app

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/omniroute/business/pricing/domain"
	"github.com/fd1az/omniroute/internal/apperror"
	"github.com/fd1az/omniroute/internal/asset"
	"github.com/fd1az/omniroute/internal/cache"
	"github.com/fd1az/omniroute/internal/logger"
)

const tracerName = "pricing"

// Config tunes the price service.
type Config struct {
	// Markets maps an asset symbol to its USD market, e.g. ETH: ETHUSDT.
	Markets map[string]string
	// Pegged symbols are worth one dollar.
	Pegged       []string
	StaleTimeout time.Duration
	CacheTTL     time.Duration
	// MaxSpreadBps rejects streamed tickers with a wider spread.
	MaxSpreadBps int64
}

// PriceService values assets in US dollars. Pegged assets are 1; others
// use the streamed mid price while it is fresh and fall back to the REST
// last price when the stream is stale or down. REST prices are cached for
// CacheTTL.
type PriceService struct {
	cfg     Config
	markets map[string]string
	pegged  map[string]struct{}
	stream  TickerStream
	rest    LastPriceFetcher
	cache   *cache.Cache[string, domain.USDPrice]
	now     func() time.Time
	logger  logger.LoggerInterface
	tracer  trace.Tracer
}

// NewPriceService creates the service. stream and rest may each be nil.
func NewPriceService(cfg Config, stream TickerStream, rest LastPriceFetcher, log logger.LoggerInterface) *PriceService {
	if cfg.StaleTimeout <= 0 {
		cfg.StaleTimeout = 10 * time.Second
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 30 * time.Second
	}

	markets := make(map[string]string, len(cfg.Markets))
	for sym, market := range cfg.Markets {
		markets[strings.ToUpper(sym)] = strings.ToUpper(market)
	}
	pegged := make(map[string]struct{}, len(cfg.Pegged))
	for _, sym := range cfg.Pegged {
		pegged[strings.ToUpper(sym)] = struct{}{}
	}

	return &PriceService{
		cfg:     cfg,
		markets: markets,
		pegged:  pegged,
		stream:  stream,
		rest:    rest,
		cache:   cache.New[string, domain.USDPrice](time.Minute),
		now:     time.Now,
		logger:  log,
		tracer:  otel.Tracer(tracerName),
	}
}

// Markets lists the distinct markets to stream, sorted.
func (s *PriceService) Markets() []string {
	seen := make(map[string]struct{}, len(s.markets))
	out := make([]string, 0, len(s.markets))
	for _, m := range s.markets {
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}

// PriceUSD returns the dollar value of one whole unit of a.
func (s *PriceService) PriceUSD(ctx context.Context, a *asset.Asset) (decimal.Decimal, error) {
	p, err := s.Price(ctx, a)
	if err != nil {
		return decimal.Zero, err
	}
	return p.Price, nil
}

// Price returns the dollar price of a with its source.
func (s *PriceService) Price(ctx context.Context, a *asset.Asset) (domain.USDPrice, error) {
	ctx, span := s.tracer.Start(ctx, "pricing.price_usd", trace.WithAttributes(
		attribute.String("asset", a.String()),
	))
	defer span.End()

	p, err := s.price(ctx, a)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return domain.USDPrice{}, err
	}
	span.SetAttributes(
		attribute.String("price.source", string(p.Source)),
		attribute.String("price.usd", p.Price.String()),
	)
	return p, nil
}

func (s *PriceService) price(ctx context.Context, a *asset.Asset) (domain.USDPrice, error) {
	now := s.now()
	for _, sym := range candidates(a.Symbol()) {
		if _, ok := s.pegged[sym]; ok {
			return domain.USDPrice{Asset: a, Price: decimal.NewFromInt(1), Source: domain.SourcePegged, At: now}, nil
		}
	}

	market, ok := s.market(a.Symbol())
	if !ok {
		return domain.USDPrice{}, apperror.New(apperror.CodePriceUnavailable,
			apperror.WithContext(fmt.Sprintf("no USD market for %s", a.Symbol())))
	}

	if s.stream != nil && s.stream.Connected() {
		if tk, ok := s.stream.Ticker(market); ok && s.usable(tk, now) {
			return domain.USDPrice{Asset: a, Market: market, Price: tk.Mid(), Source: domain.SourceStream, At: tk.UpdatedAt}, nil
		}
	}

	if cached, ok := s.cache.Get(ctx, market); ok {
		cached.Asset = a
		return cached, nil
	}
	if s.rest == nil {
		return domain.USDPrice{}, apperror.New(apperror.CodePriceUnavailable,
			apperror.WithContext(market+": stream stale and no REST fallback"))
	}

	s.logger.Debug(ctx, "price stream stale, using REST", "market", market)
	last, err := s.rest.LastPrice(ctx, market)
	if err != nil {
		return domain.USDPrice{}, apperror.New(apperror.CodePriceUnavailable,
			apperror.WithCause(err),
			apperror.WithContext(market))
	}
	if !last.IsPositive() {
		return domain.USDPrice{}, apperror.New(apperror.CodePriceUnavailable,
			apperror.WithContext(market+": non-positive price"))
	}
	p := domain.USDPrice{Asset: a, Market: market, Price: last, Source: domain.SourceREST, At: now}
	s.cache.Set(ctx, market, p, s.cfg.CacheTTL)
	return p, nil
}

func (s *PriceService) usable(tk domain.Ticker, now time.Time) bool {
	return tk.Valid() && tk.Age(now) <= s.cfg.StaleTimeout && !tk.Spread().WiderThan(s.cfg.MaxSpreadBps)
}

func (s *PriceService) market(symbol string) (string, bool) {
	for _, sym := range candidates(symbol) {
		if m, ok := s.markets[sym]; ok {
			return m, true
		}
	}
	return "", false
}

// Check reports stream health for the health endpoint. A service without a
// stream is healthy as long as it can fall back to REST.
func (s *PriceService) Check(context.Context) (bool, string) {
	switch {
	case s.stream == nil && s.rest == nil:
		return false, "no price source"
	case s.stream == nil:
		return true, "rest only"
	case !s.stream.Connected():
		return s.rest != nil, "stream disconnected"
	}
	return true, ""
}

// Close stops the cache janitor.
func (s *PriceService) Close() {
	s.cache.Close()
}

// candidates lists the symbols an asset may be priced under, most specific
// first: "USDC.e" -> USDC.E, USDC; "sUSDC" -> SUSDC, USDC.
func candidates(symbol string) []string {
	out := []string{strings.ToUpper(symbol)}
	base := symbol
	if i := strings.IndexByte(base, '.'); i > 0 {
		base = base[:i]
		out = append(out, strings.ToUpper(base))
	}
	// synthetic representations are prefixed with a lowercase s
	if len(base) > 1 && base[0] == 's' && base[1] >= 'A' && base[1] <= 'Z' {
		out = append(out, strings.ToUpper(base[1:]))
	}
	return out
}
