// Package pricing implements the USD price reference used to compare
// route candidates: Binance bookTicker mids with a REST fallback.
package pricing

import (
	"context"
	"sort"
	"strings"

	"github.com/fd1az/omniroute/business/pricing/app"
	pricingDI "github.com/fd1az/omniroute/business/pricing/di"
	"github.com/fd1az/omniroute/business/pricing/infra/binance"
	"github.com/fd1az/omniroute/internal/config"
	"github.com/fd1az/omniroute/internal/di"
	"github.com/fd1az/omniroute/internal/logger"
	"github.com/fd1az/omniroute/internal/monolith"
)

// Module implements the pricing bounded context.
type Module struct {
	cancel context.CancelFunc
}

// RegisterServices registers all pricing services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, pricingDI.Stream, func(sr di.ServiceRegistry) *binance.Client {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		clientCfg := binance.DefaultClientConfig(markets(cfg.Pricing.Symbols))
		if cfg.Pricing.WebSocketURL != "" {
			clientCfg.BaseURL = cfg.Pricing.WebSocketURL
		}
		client, err := binance.NewClient(clientCfg, log)
		if err != nil {
			panic("failed to create binance stream client: " + err.Error())
		}
		return client
	})

	di.RegisterToken(c, pricingDI.REST, func(sr di.ServiceRegistry) *binance.HTTPClient {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		client, err := binance.NewHTTPClient(binance.HTTPClientConfig{BaseURL: cfg.Pricing.RESTURL}, log)
		if err != nil {
			panic("failed to create binance HTTP client: " + err.Error())
		}
		return client
	})

	// PriceService (public - exposed to other modules)
	di.RegisterToken(c, pricingDI.PriceService, func(sr di.ServiceRegistry) *app.PriceService {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		return app.NewPriceService(app.Config{
			Markets:      cfg.Pricing.Symbols,
			Pegged:       cfg.Pricing.Pegged,
			StaleTimeout: cfg.Pricing.StaleTimeout,
			CacheTTL:     cfg.Pricing.CacheTTL,
			MaxSpreadBps: cfg.Pricing.MaxSpreadBps,
		}, pricingDI.GetStream(sr), pricingDI.GetREST(sr), log)
	})

	return nil
}

// Startup connects the ticker stream in the background; until it is up the
// service answers from REST.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()
	svc := pricingDI.GetPriceService(mono.Services())
	stream := pricingDI.GetStream(mono.Services())

	streamCtx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	go func() {
		if err := stream.Connect(streamCtx); err != nil && streamCtx.Err() == nil {
			log.Error(streamCtx, "binance stream unavailable, using REST prices", "error", err)
		}
	}()

	mono.Health().RegisterCheck("pricing", svc.Check)
	log.Info(ctx, "pricing module started", "markets", svc.Markets())
	return nil
}

// Shutdown stops the stream and the price cache.
func (m *Module) Shutdown(mono monolith.Monolith) {
	if m.cancel != nil {
		m.cancel()
	}
	_ = pricingDI.GetStream(mono.Services()).Close()
	pricingDI.GetPriceService(mono.Services()).Close()
}

// markets returns the distinct upper-cased market symbols.
func markets(symbols map[string]string) []string {
	seen := make(map[string]struct{}, len(symbols))
	var out []string
	for _, market := range symbols {
		market = strings.ToUpper(market)
		if _, ok := seen[market]; ok || market == "" {
			continue
		}
		seen[market] = struct{}{}
		out = append(out, market)
	}
	sort.Strings(out)
	return out
}
