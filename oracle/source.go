package oracle

import (
	"context"
	"math/big"
)

// Quote is the most recent price reported by a source, at the source's own
// decimal precision. A quote for an 8-decimal USD feed reporting $1.00 carries
// Price=100000000, Decimals=8.
type Quote struct {
	Price    *big.Int
	Decimals uint32
}

// Source is the read-only price capability the ledger consumes. How the price
// is produced, refreshed, or made tamper-resistant is the provider's problem;
// the ledger only ever asks for the latest value.
type Source interface {
	LatestPrice(ctx context.Context) (Quote, error)
}
