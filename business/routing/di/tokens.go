// Package di contains dependency injection tokens for the routing context.
package di

import (
	"github.com/fd1az/omniroute/business/routing/app"
	"github.com/fd1az/omniroute/business/routing/domain"
	"github.com/fd1az/omniroute/business/routing/infra/feeoracle"
	"github.com/fd1az/omniroute/business/routing/infra/omnipool"
	"github.com/fd1az/omniroute/business/routing/infra/thorchain"
	"github.com/fd1az/omniroute/business/routing/infra/uniswap"
	"github.com/fd1az/omniroute/internal/di"
)

// Public service tokens - exposed to other modules
var (
	Dispatcher = di.NewToken[*app.Dispatcher]("routing.Dispatcher")
	Topology   = di.NewToken[*domain.Topology]("routing.Topology")
)

// Private dependency tokens - internal to routing module
var (
	FeeOracle = di.NewToken[*feeoracle.Oracle]("routing:feeOracle")
	Encoder   = di.NewToken[app.CallEncoder]("routing:encoder")
	Pools     = di.NewToken[*omnipool.Quoter]("routing:pools")
	Uniswap   = di.NewToken[*uniswap.Provider]("routing:uniswap")
	Providers = di.NewToken[[]app.QuoteProvider]("routing:providers")
	// Thorchain is nil when the protocol is disabled.
	Thorchain = di.NewToken[*thorchain.Provider]("routing:thorchain")
)

// GetDispatcher resolves the public route dispatcher.
func GetDispatcher(c di.ServiceRegistry) *app.Dispatcher {
	return di.GetToken(c, Dispatcher)
}

// GetTopology resolves the loaded ledger topology.
func GetTopology(c di.ServiceRegistry) *domain.Topology {
	return di.GetToken(c, Topology)
}

func GetFeeOracle(c di.ServiceRegistry) *feeoracle.Oracle {
	return di.GetToken(c, FeeOracle)
}

func GetEncoder(c di.ServiceRegistry) app.CallEncoder {
	return di.GetToken(c, Encoder)
}

func GetPools(c di.ServiceRegistry) *omnipool.Quoter {
	return di.GetToken(c, Pools)
}

func GetUniswap(c di.ServiceRegistry) *uniswap.Provider {
	return di.GetToken(c, Uniswap)
}

func GetProviders(c di.ServiceRegistry) []app.QuoteProvider {
	return di.GetToken(c, Providers)
}

func GetThorchain(c di.ServiceRegistry) *thorchain.Provider {
	return di.GetToken(c, Thorchain)
}
