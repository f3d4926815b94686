package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "custodian",
	Short: "A multi-asset custodial ledger with USD-valued caps",
	Long: `Custodian tracks per-user balances across a native currency and fungible
tokens, values every operation in a fixed-precision USD accounting unit using
registered price sources, and enforces a global custody cap plus a
per-operation withdrawal cap in that unit.

Commands:
  serve   - run the HTTP ledger service
  demo    - run a scripted deposit/withdraw walkthrough in memory
  ops     - query a ledger operation journal
  version - print the version`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}
