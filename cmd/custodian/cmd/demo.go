package cmd

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/custodian/ledger"
	"github.com/rustyeddy/custodian/oracle"
	"github.com/rustyeddy/custodian/valuation"
	"github.com/rustyeddy/custodian/vault"
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Run a scripted deposit/withdraw walkthrough",
	Long: `Runs the full ledger flow against an in-memory store:

  1. Register a price source for an 18-decimal token
  2. Deposit and watch the accounted total
  3. Trip the custody cap
  4. Move the price and withdraw
  5. Show the vault counters and final total`,
	RunE: runDemo,
}

func init() {
	rootCmd.AddCommand(demoCmd)
}

func runDemo(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	const precision = valuation.DefaultTargetPrecision

	store := vault.NewMemory()
	registry := oracle.NewRegistry(oracle.NewAllowList("demo"))
	engine := valuation.NewEngine(registry, precision)

	// TOKN trades at $2.00, reported at 8 decimals; 18 native decimals.
	src := oracle.NewStaticSource(big.NewInt(200_000_000), 8)
	err := registry.Register("demo", "TOKN", oracle.Descriptor{
		Source:         src,
		SourceName:     "static:2.00@8",
		NativeDecimals: 18,
	})
	if err != nil {
		return err
	}

	release := ledger.ReleaseFunc(func(ctx context.Context, asset, user string, amount *big.Int) error {
		fmt.Printf("  -> released %s %s to %s\n", amount, asset, user)
		return nil
	})

	custodyCap, _ := valuation.ParseCommon("1000.00", precision)
	withdrawalCap, _ := valuation.ParseCommon("250.00", precision)
	led, err := ledger.New(store, engine, release, custodyCap, withdrawalCap)
	if err != nil {
		return err
	}

	show := func() {
		v, _ := led.Vault("alice", "TOKN")
		fmt.Printf("  alice/TOKN balance=%s deposits=%d withdrawals=%d total=%s\n",
			v.Balance, v.DepositCount, v.WithdrawalCount,
			valuation.FormatCommon(led.TotalAccountedValue(), precision))
	}

	tokens := func(n int64) *big.Int {
		return new(big.Int).Mul(big.NewInt(n), new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))
	}

	fmt.Println("deposit 100 TOKN at $2.00:")
	if _, err := led.Deposit(ctx, "alice", "TOKN", tokens(100)); err != nil {
		return err
	}
	show()

	fmt.Println("deposit 450 TOKN (would breach the $1000 custody cap):")
	_, err = led.Deposit(ctx, "alice", "TOKN", tokens(450))
	var capErr *ledger.CustodyCapError
	if errors.As(err, &capErr) {
		fmt.Printf("  rejected: total would be %s, cap %s\n",
			valuation.FormatCommon(capErr.Attempted, precision),
			valuation.FormatCommon(capErr.Cap, precision))
	}
	show()

	fmt.Println("price moves to $2.50; withdraw 40 TOKN:")
	src.SetPrice(big.NewInt(250_000_000))
	if _, err := led.Withdraw(ctx, "alice", "TOKN", tokens(40)); err != nil {
		return err
	}
	show()

	fmt.Println("note: the total is valued at execution time, not marked to market.")
	return nil
}
