// Package blockchain implements the ledger bounded context: EVM node
// connections used for gas estimation, broadcasting, confirmations and
// bridge completion tracking.
package blockchain

import (
	"context"
	"fmt"
	"sort"

	"github.com/fd1az/omniroute/business/blockchain/app"
	blockchainDI "github.com/fd1az/omniroute/business/blockchain/di"
	"github.com/fd1az/omniroute/business/blockchain/infra/ethereum"
	"github.com/fd1az/omniroute/internal/asset"
	"github.com/fd1az/omniroute/internal/config"
	"github.com/fd1az/omniroute/internal/di"
	"github.com/fd1az/omniroute/internal/logger"
	"github.com/fd1az/omniroute/internal/monolith"
)

// Module implements the blockchain bounded context.
type Module struct{}

// RegisterServices registers all blockchain services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	// One client per configured EVM ledger (private)
	di.RegisterToken(c, blockchainDI.Ledgers, func(sr di.ServiceRegistry) []app.Ledger {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		names := make([]string, 0, len(cfg.Ledgers))
		for name := range cfg.Ledgers {
			names = append(names, name)
		}
		sort.Strings(names)

		var ledgers []app.Ledger
		for _, name := range names {
			lc := cfg.Ledgers[name]
			if asset.FamilyOf(lc.ChainID) != asset.FamilyEVM || (lc.RPCURL == "" && lc.WSURL == "") {
				continue
			}
			client, err := ethereum.NewClient(ethereum.ConfigFrom(lc), log)
			if err != nil {
				panic(fmt.Sprintf("failed to create ledger client %s: %v", name, err))
			}
			ledgers = append(ledgers, client)
		}
		return ledgers
	})

	// LedgerService (public - exposed to other modules)
	di.RegisterToken(c, blockchainDI.LedgerService, func(sr di.ServiceRegistry) *app.LedgerService {
		registry := sr.Get("assetRegistry").(*asset.Registry)
		return app.NewLedgerService(blockchainDI.GetLedgers(sr), registry)
	})

	return nil
}

// Startup connects every ledger and registers its health check.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()

	for _, l := range blockchainDI.GetLedgers(mono.Services()) {
		if connector, ok := l.(interface{ Connect(context.Context) error }); ok {
			if err := connector.Connect(ctx); err != nil {
				// quoting degrades without the node; the health check reports it
				log.Error(ctx, "failed to connect ledger", "chain_id", l.ChainID(), "error", err)
			}
		}
	}

	svc := blockchainDI.GetLedgerService(mono.Services())
	for _, id := range svc.ChainIDs() {
		mono.Health().RegisterCheck(fmt.Sprintf("ledger:%d", id), svc.Check(id))
	}

	log.Info(ctx, "blockchain module started", "ledgers", len(svc.ChainIDs()))
	return nil
}

// Shutdown closes every node connection.
func (m *Module) Shutdown(mono monolith.Monolith) {
	for _, l := range blockchainDI.GetLedgers(mono.Services()) {
		if closer, ok := l.(interface{ Close() error }); ok {
			_ = closer.Close()
		}
	}
}
