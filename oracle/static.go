package oracle

import (
	"context"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
)

// StaticSource reports a fixed price until SetPrice changes it. Used for
// seeding demo/serve registries and for tests that need to move a price
// between operations.
type StaticSource struct {
	mu       sync.RWMutex
	price    *big.Int
	decimals uint32
}

func NewStaticSource(price *big.Int, decimals uint32) *StaticSource {
	return &StaticSource{price: new(big.Int).Set(price), decimals: decimals}
}

func (s *StaticSource) LatestPrice(ctx context.Context) (Quote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Quote{Price: new(big.Int).Set(s.price), Decimals: s.decimals}, nil
}

// SetPrice replaces the reported price. Decimals are fixed for the lifetime
// of the source.
func (s *StaticSource) SetPrice(price *big.Int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.price = new(big.Int).Set(price)
}

// ParseStatic builds a StaticSource from a spec of the form
// "static:<price>@<decimals>", e.g. "static:1.00@8" for a dollar-pegged feed
// reporting at 8 decimals. The price is scaled into the source's own integer
// representation.
func ParseStatic(spec string) (*StaticSource, error) {
	rest, ok := strings.CutPrefix(spec, "static:")
	if !ok {
		return nil, fmt.Errorf("parse source %q: not a static spec", spec)
	}
	priceStr, decStr, ok := strings.Cut(rest, "@")
	if !ok {
		return nil, fmt.Errorf("parse source %q: missing @decimals", spec)
	}

	dec, err := strconv.ParseUint(decStr, 10, 32)
	if err != nil {
		return nil, fmt.Errorf("parse source %q: decimals: %w", spec, err)
	}

	d, err := decimal.NewFromString(priceStr)
	if err != nil {
		return nil, fmt.Errorf("parse source %q: price: %w", spec, err)
	}
	scaled := d.Shift(int32(dec))
	if !scaled.IsInteger() {
		return nil, fmt.Errorf("parse source %q: price has more than %d decimals", spec, dec)
	}

	return NewStaticSource(scaled.BigInt(), uint32(dec)), nil
}
