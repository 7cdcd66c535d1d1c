// Package di contains dependency injection tokens for the blockchain context.
package di

import (
	"github.com/fd1az/omniroute/business/blockchain/app"
	"github.com/fd1az/omniroute/internal/di"
)

// Public service tokens - exposed to other modules
var (
	LedgerService = di.NewToken[*app.LedgerService]("blockchain.LedgerService")
)

// Private dependency tokens - internal to blockchain module
var (
	Ledgers = di.NewToken[[]app.Ledger]("blockchain:ledgers")
)

// GetLedgerService resolves the public ledger service.
func GetLedgerService(c di.ServiceRegistry) *app.LedgerService {
	return di.GetToken(c, LedgerService)
}

func GetLedgers(c di.ServiceRegistry) []app.Ledger {
	return di.GetToken(c, Ledgers)
}
