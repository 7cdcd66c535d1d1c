// Package routing implements the route bounded context: topology loading,
// candidate composition, quoting and the HTTP API.
package routing

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	blockchainDI "github.com/fd1az/omniroute/business/blockchain/di"
	pricingDI "github.com/fd1az/omniroute/business/pricing/di"
	"github.com/fd1az/omniroute/business/routing/app"
	routingDI "github.com/fd1az/omniroute/business/routing/di"
	"github.com/fd1az/omniroute/business/routing/domain"
	"github.com/fd1az/omniroute/business/routing/infra/api"
	"github.com/fd1az/omniroute/business/routing/infra/feeoracle"
	"github.com/fd1az/omniroute/business/routing/infra/gateway"
	"github.com/fd1az/omniroute/business/routing/infra/omnipool"
	"github.com/fd1az/omniroute/business/routing/infra/oneinch"
	"github.com/fd1az/omniroute/business/routing/infra/thorchain"
	"github.com/fd1az/omniroute/business/routing/infra/topology"
	"github.com/fd1az/omniroute/business/routing/infra/uniswap"
	"github.com/fd1az/omniroute/internal/asset"
	"github.com/fd1az/omniroute/internal/config"
	"github.com/fd1az/omniroute/internal/di"
	"github.com/fd1az/omniroute/internal/logger"
	"github.com/fd1az/omniroute/internal/monolith"
)

// Module implements the routing bounded context. With Serve set, Startup
// also starts the HTTP API.
type Module struct {
	Serve bool

	server *api.Server
}

// RegisterServices registers all routing services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, routingDI.Topology, func(sr di.ServiceRegistry) *domain.Topology {
		cfg := sr.Get("config").(*config.Config)
		registry := sr.Get("assetRegistry").(*asset.Registry)

		topo, err := topology.LoadFile(cfg.Routing.TopologyFile, registry)
		if err != nil {
			panic(fmt.Sprintf("failed to load topology %s: %v", cfg.Routing.TopologyFile, err))
		}
		return topo
	})

	di.RegisterToken(c, routingDI.FeeOracle, func(sr di.ServiceRegistry) *feeoracle.Oracle {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		oracle, err := feeoracle.New(cfg.FeeOracle, log)
		if err != nil {
			panic("failed to create fee oracle: " + err.Error())
		}
		return oracle
	})

	di.RegisterToken(c, routingDI.Encoder, func(sr di.ServiceRegistry) app.CallEncoder {
		enc, err := gateway.NewEncoder()
		if err != nil {
			panic("failed to create call encoder: " + err.Error())
		}
		return enc
	})

	di.RegisterToken(c, routingDI.Pools, func(sr di.ServiceRegistry) *omnipool.Quoter {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		ledgers := blockchainDI.GetLedgerService(sr)

		q, err := omnipool.NewQuoter(ledgers.Callers(), cfg.OmniPool.CallGas, log)
		if err != nil {
			panic("failed to create omni-pool quoter: " + err.Error())
		}
		return q
	})

	di.RegisterToken(c, routingDI.Uniswap, func(sr di.ServiceRegistry) *uniswap.Provider {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		ledgers := blockchainDI.GetLedgerService(sr)

		p, err := uniswap.NewProvider(cfg.Uniswap, ledgers.Callers(), log)
		if err != nil {
			panic("failed to create uniswap provider: " + err.Error())
		}
		return p
	})

	di.RegisterToken(c, routingDI.Providers, func(sr di.ServiceRegistry) []app.QuoteProvider {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		providers := []app.QuoteProvider{routingDI.GetUniswap(sr)}
		if cfg.OneInch.Enabled {
			p, err := oneinch.NewProvider(cfg.OneInch, log)
			if err != nil {
				panic("failed to create 1inch provider: " + err.Error())
			}
			providers = append(providers, p)
		}
		return providers
	})

	di.RegisterToken(c, routingDI.Thorchain, func(sr di.ServiceRegistry) *thorchain.Provider {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		if !cfg.Thorchain.Enabled {
			return nil
		}

		p, err := thorchain.NewProvider(cfg.Thorchain, log)
		if err != nil {
			panic("failed to create thorchain provider: " + err.Error())
		}
		return p
	})

	// Dispatcher (public - exposed to other modules)
	di.RegisterToken(c, routingDI.Dispatcher, func(sr di.ServiceRegistry) *app.Dispatcher {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		ledgers := blockchainDI.GetLedgerService(sr)

		var protocols []app.ProtocolQuoter
		if p := routingDI.GetThorchain(sr); p != nil {
			protocols = append(protocols, p)
		}

		d, err := app.NewDispatcher(app.Config{
			ProviderTimeout: cfg.Routing.ProviderTimeout,
			RouteTimeout:    cfg.Routing.RouteTimeout,
			DefaultDeadline: cfg.Routing.DefaultDeadline,
			MaxFeePasses:    cfg.Routing.MaxFeePasses,
		}, app.Deps{
			Topology:    routingDI.GetTopology(sr),
			Providers:   routingDI.GetProviders(sr),
			Pools:       routingDI.GetPools(sr),
			Oracle:      routingDI.GetFeeOracle(sr),
			Encoder:     routingDI.GetEncoder(sr),
			Protocols:   protocols,
			Prices:      pricingDI.GetPriceService(sr),
			NetworkFees: ledgers,
			Logger:      log,
		})
		if err != nil {
			panic("failed to create dispatcher: " + err.Error())
		}
		return d
	})

	return nil
}

// Startup resolves the dispatcher, points completion tracking at the
// bridge contracts and registers health checks.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()
	sr := mono.Services()

	dispatcher := routingDI.GetDispatcher(sr)
	ledgers := blockchainDI.GetLedgerService(sr)
	for _, l := range dispatcher.Topology().Ledgers() {
		ledgers.SetBridgeContracts(l.ChainID, l.Portal, l.Synthesis)
	}

	h := mono.Health()
	h.RegisterCheck("fee_oracle", healthy(routingDI.GetFeeOracle(sr).Healthy))
	h.RegisterCheck("uniswap", healthy(routingDI.GetUniswap(sr).Healthy))
	h.RegisterCheck("omnipool", healthy(routingDI.GetPools(sr).Healthy))
	if p := routingDI.GetThorchain(sr); p != nil {
		h.RegisterCheck("thorchain", healthy(p.Healthy))
	}

	if m.Serve {
		cfg := mono.Config()
		handler := api.NewHandler(dispatcher, ledgers, ledgers, mono.AssetRegistry(), cfg.Routing.DefaultSlippageBps, log)
		m.server = api.NewServer(cfg.Server, mono.Mux(), handler, zerologOf(log))
		m.server.Start()
	}

	log.Info(ctx, "routing module started",
		"ledgers", len(dispatcher.Topology().Ledgers()),
		"providers", len(routingDI.GetProviders(sr)),
		"api", m.Serve)
	return nil
}

// Shutdown drains the API and stops the fee cache.
func (m *Module) Shutdown(mono monolith.Monolith) {
	if m.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout(mono.Config()))
		defer cancel()
		if err := m.server.Stop(ctx); err != nil {
			mono.Logger().Error(ctx, "api shutdown", "error", err)
		}
	}
	routingDI.GetFeeOracle(mono.Services()).Close()
}

func healthy(fn func() bool) func(context.Context) (bool, string) {
	return func(context.Context) (bool, string) {
		if fn() {
			return true, ""
		}
		return false, "circuit open"
	}
}

func zerologOf(log logger.LoggerInterface) *zerolog.Logger {
	if l, ok := log.(*logger.Logger); ok {
		return l.Zerolog()
	}
	nop := zerolog.Nop()
	return &nop
}

func shutdownTimeout(cfg *config.Config) time.Duration {
	if cfg.Server.ShutdownTimeout > 0 {
		return cfg.Server.ShutdownTimeout
	}
	return 10 * time.Second
}
