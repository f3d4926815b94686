package valuation

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/custodian/oracle"
)

func newEngine(t *testing.T, asset string, price *big.Int, sourceDecimals, nativeDecimals uint32) (*Engine, *oracle.StaticSource) {
	t.Helper()

	reg := oracle.NewRegistry(oracle.NewAllowList("test"))
	src := oracle.NewStaticSource(price, sourceDecimals)
	err := reg.Register("test", asset, oracle.Descriptor{
		Source:         src,
		SourceName:     "static",
		NativeDecimals: nativeDecimals,
	})
	require.NoError(t, err)

	return NewEngine(reg, DefaultTargetPrecision), src
}

func bigPow10(n int64) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(n), nil)
}

// 18-decimal asset priced at 1.00 by an 8-decimal source: 100 whole tokens
// are worth 100.000000 in the common unit.
func TestValueDollarPeggedToken(t *testing.T) {
	t.Parallel()

	e, _ := newEngine(t, "TOKN", big.NewInt(100_000_000), 8, 18)

	amount := new(big.Int).Mul(big.NewInt(100), bigPow10(18))
	got, err := e.Value(context.Background(), "TOKN", amount)
	require.NoError(t, err)

	want := new(big.Int).Mul(big.NewInt(100), bigPow10(6))
	assert.Zero(t, got.Cmp(want), "got %s want %s", got, want)
}

func TestValueTruncatesTowardZero(t *testing.T) {
	t.Parallel()

	// 18 + 8 - 6 = 20: everything below 10^20 in the raw product is dropped.
	e, _ := newEngine(t, "TOKN", big.NewInt(100_000_000), 8, 18)

	// 1 wei-scale unit is worth far less than one micro-unit.
	got, err := e.Value(context.Background(), "TOKN", big.NewInt(1))
	require.NoError(t, err)
	assert.Zero(t, got.Sign())

	// Just under two micro-units truncates down to one.
	amount := new(big.Int).Sub(new(big.Int).Mul(big.NewInt(2), bigPow10(12)), big.NewInt(1))
	got, err = e.Value(context.Background(), "TOKN", amount)
	require.NoError(t, err)
	assert.Zero(t, got.Cmp(big.NewInt(1)), "got %s", got)
}

// Native plus source precision below the target precision flips the scale
// exponent negative: the raw product is multiplied up, exactly.
func TestValueNegativeScaleExponent(t *testing.T) {
	t.Parallel()

	// 2-decimal asset, 2-decimal price, target 6: exponent = -2.
	e, _ := newEngine(t, "CENT", big.NewInt(150), 2, 2) // $1.50

	got, err := e.Value(context.Background(), "CENT", big.NewInt(200)) // 2.00 units
	require.NoError(t, err)

	// 200 * 150 = 30000, * 10^2 = 3000000 = 3.000000
	assert.Zero(t, got.Cmp(big.NewInt(3_000_000)), "got %s", got)
}

func TestValueAssetNotConfigured(t *testing.T) {
	t.Parallel()

	e, _ := newEngine(t, "TOKN", big.NewInt(1), 0, 0)

	_, err := e.Value(context.Background(), "MISSING", big.NewInt(1))
	assert.ErrorIs(t, err, ErrAssetNotConfigured)
}

func TestValueInvalidPrice(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		price *big.Int
	}{
		{"zero", big.NewInt(0)},
		{"negative", big.NewInt(-1)},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			e, _ := newEngine(t, "TOKN", tt.price, 8, 18)
			_, err := e.Value(context.Background(), "TOKN", big.NewInt(1))
			assert.ErrorIs(t, err, ErrInvalidPrice)
		})
	}
}

func TestValueSourceErrorPropagates(t *testing.T) {
	t.Parallel()

	reg := oracle.NewRegistry(oracle.NewAllowList("test"))
	sourceErr := errors.New("feed offline")
	err := reg.Register("test", "TOKN", oracle.Descriptor{
		Source:         failingSource{err: sourceErr},
		SourceName:     "failing",
		NativeDecimals: 18,
	})
	require.NoError(t, err)

	e := NewEngine(reg, DefaultTargetPrecision)
	_, err = e.Value(context.Background(), "TOKN", big.NewInt(1))
	assert.ErrorIs(t, err, sourceErr)
}

type failingSource struct{ err error }

func (f failingSource) LatestPrice(ctx context.Context) (oracle.Quote, error) {
	return oracle.Quote{}, f.err
}

// The raw product amount*price routinely exceeds 64 bits; values at that
// boundary and far beyond it must come out exact.
func TestValueOverflowBoundary(t *testing.T) {
	t.Parallel()

	e, _ := newEngine(t, "TOKN", big.NewInt(100_000_000), 8, 18)

	// 1e9 whole tokens: raw product is 1e27 * 1e8 = 1e35.
	amount := new(big.Int).Mul(big.NewInt(1_000_000_000), bigPow10(18))
	got, err := e.Value(context.Background(), "TOKN", amount)
	require.NoError(t, err)

	want := new(big.Int).Mul(big.NewInt(1_000_000_000), bigPow10(6))
	assert.Zero(t, got.Cmp(want), "got %s want %s", got, want)
}

func TestValueMonotonicInAmountAndPrice(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	e, src := newEngine(t, "TOKN", big.NewInt(100_000_000), 8, 18)

	prev := new(big.Int).Neg(big.NewInt(1))
	for _, n := range []int64{1, 10, 500, 1_000_000} {
		amount := new(big.Int).Mul(big.NewInt(n), bigPow10(18))
		got, err := e.Value(ctx, "TOKN", amount)
		require.NoError(t, err)
		assert.True(t, got.Cmp(prev) >= 0, "value decreased at amount %d", n)
		prev = got
	}

	amount := new(big.Int).Mul(big.NewInt(7), bigPow10(18))
	prev = new(big.Int).Neg(big.NewInt(1))
	for _, p := range []int64{1, 50_000_000, 100_000_000, 300_000_000} {
		src.SetPrice(big.NewInt(p))
		got, err := e.Value(ctx, "TOKN", amount)
		require.NoError(t, err)
		assert.True(t, got.Cmp(prev) >= 0, "value decreased at price %d", p)
		prev = got
	}
}

func TestValueHasNoSideEffects(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	e, _ := newEngine(t, "TOKN", big.NewInt(100_000_000), 8, 18)

	amount := new(big.Int).Mul(big.NewInt(3), bigPow10(18))
	first, err := e.Value(ctx, "TOKN", amount)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		got, err := e.Value(ctx, "TOKN", amount)
		require.NoError(t, err)
		assert.Zero(t, got.Cmp(first))
	}
	// The caller's amount is never mutated.
	assert.Zero(t, amount.Cmp(new(big.Int).Mul(big.NewInt(3), bigPow10(18))))
}
