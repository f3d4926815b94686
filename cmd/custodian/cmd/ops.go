package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/custodian/journal"
)

var (
	opsDBPath string
	opsUser   string
)

var opsCmd = &cobra.Command{
	Use:   "ops",
	Short: "Query a ledger operation journal",
}

var opsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded deposit/withdrawal operations",
	RunE:  runOpsList,
}

var opsSnapshotsCmd = &cobra.Command{
	Use:   "snapshots",
	Short: "List accounted-total snapshots",
	RunE:  runOpsSnapshots,
}

func init() {
	opsCmd.PersistentFlags().StringVar(&opsDBPath, "db", "./journal.db", "path to the sqlite journal")
	opsListCmd.Flags().StringVar(&opsUser, "user", "", "filter by user")
	opsCmd.AddCommand(opsListCmd)
	opsCmd.AddCommand(opsSnapshotsCmd)
	rootCmd.AddCommand(opsCmd)
}

func runOpsList(cmd *cobra.Command, args []string) error {
	j, err := journal.NewSQLite(opsDBPath)
	if err != nil {
		return err
	}
	defer j.Close()

	var recs []journal.OperationRecord
	if opsUser != "" {
		recs, err = j.ListOperationsByUser(opsUser)
	} else {
		recs, err = j.ListOperationsBetween(time.Time{}, time.Now().Add(time.Hour))
	}
	if err != nil {
		return err
	}

	for _, r := range recs {
		fmt.Printf("%s  %-10s %s/%s amount=%s value=%s balance %s -> %s total=%s\n",
			r.At.Format(time.RFC3339), r.Kind, r.User, r.Asset,
			r.Amount, r.Value, r.BalanceBefore, r.BalanceAfter, r.Total)
	}
	fmt.Printf("%d operations\n", len(recs))
	return nil
}

func runOpsSnapshots(cmd *cobra.Command, args []string) error {
	j, err := journal.NewSQLite(opsDBPath)
	if err != nil {
		return err
	}
	defer j.Close()

	snaps, err := j.ListSnapshotsBetween(time.Time{}, time.Now().Add(time.Hour))
	if err != nil {
		return err
	}
	for _, s := range snaps {
		fmt.Printf("%s  total=%s\n", s.At.Format(time.RFC3339), s.Total)
	}
	fmt.Printf("%d snapshots\n", len(snaps))
	return nil
}
