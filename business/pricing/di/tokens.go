// Package di contains dependency injection tokens for the pricing context.
package di

import (
	"github.com/fd1az/omniroute/business/pricing/app"
	"github.com/fd1az/omniroute/business/pricing/infra/binance"
	"github.com/fd1az/omniroute/internal/di"
)

// Public service tokens - exposed to other modules
var (
	PriceService = di.NewToken[*app.PriceService]("pricing.PriceService")
)

// Private dependency tokens - internal to pricing module
var (
	Stream = di.NewToken[*binance.Client]("pricing:stream")
	REST   = di.NewToken[*binance.HTTPClient]("pricing:rest")
)

// GetPriceService resolves the public price reference.
func GetPriceService(c di.ServiceRegistry) *app.PriceService {
	return di.GetToken(c, PriceService)
}

func GetStream(c di.ServiceRegistry) *binance.Client {
	return di.GetToken(c, Stream)
}

func GetREST(c di.ServiceRegistry) *binance.HTTPClient {
	return di.GetToken(c, REST)
}
