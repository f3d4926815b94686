// Package valuation converts native-unit asset amounts into the common
// accounting unit (fixed-precision USD) using the price source registry.
package valuation

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/rustyeddy/custodian/oracle"
)

// DefaultTargetPrecision is the fractional-digit count of the common unit.
// Six digits (micro-dollars) matches the reference stable unit all caps and
// totals are expressed in.
const DefaultTargetPrecision uint32 = 6

var (
	// ErrAssetNotConfigured means no price source descriptor exists for the asset.
	ErrAssetNotConfigured = errors.New("valuation: asset not configured")
	// ErrInvalidPrice means the source reported a zero or negative price.
	ErrInvalidPrice = errors.New("valuation: price source returned non-positive price")
)

// Engine values native amounts in the common unit. It is stateless apart
// from its registry handle; Value may be called any number of times without
// side effects.
type Engine struct {
	registry        *oracle.Registry
	targetPrecision uint32
}

func NewEngine(registry *oracle.Registry, targetPrecision uint32) *Engine {
	return &Engine{registry: registry, targetPrecision: targetPrecision}
}

// TargetPrecision returns the common-unit fractional digit count.
func (e *Engine) TargetPrecision() uint32 { return e.targetPrecision }

// Value converts nativeAmount of asset into common units at the latest price.
//
// The scale exponent nativeDecimals + sourceDecimals - targetPrecision decides
// the direction of normalization. Non-negative exponents divide with
// truncation toward zero, deliberately rounding down in the custodian's
// favor: the truncated fraction is lost, not carried. Negative exponents
// (source plus native precision coarser than the common unit) multiply
// instead; that branch is exact.
//
// All arithmetic is big.Int. An 18-decimal amount times an 8-decimal price
// already exceeds uint64, so fixed-width arithmetic is not an option here.
func (e *Engine) Value(ctx context.Context, asset string, nativeAmount *big.Int) (*big.Int, error) {
	desc, ok := e.registry.Lookup(asset)
	if !ok {
		return nil, fmt.Errorf("value %q: %w", asset, ErrAssetNotConfigured)
	}

	quote, err := desc.Source.LatestPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("value %q: latest price: %w", asset, err)
	}
	if quote.Price == nil || quote.Price.Sign() <= 0 {
		return nil, fmt.Errorf("value %q: %w", asset, ErrInvalidPrice)
	}

	raw := new(big.Int).Mul(nativeAmount, quote.Price)

	exp := int64(desc.NativeDecimals) + int64(quote.Decimals) - int64(e.targetPrecision)
	if exp >= 0 {
		return raw.Quo(raw, pow10(exp)), nil
	}
	return raw.Mul(raw, pow10(-exp)), nil
}

func pow10(n int64) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(n), nil)
}
