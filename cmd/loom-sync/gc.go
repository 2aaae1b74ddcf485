package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/loomapp/loom/internal/api"
	syncgw "github.com/loomapp/loom/internal/sync"
)

var (
	gcDBPath    string
	gcRetention int64
)

var gcCmd = &cobra.Command{
	Use:   "gc <workspace-id>",
	Short: "Garbage-collect old change log entries and tombstones",
	Long: `gc deletes change log entries and tombstones that every device in the
workspace has already seen and that are older than the retention window.
Rows newer than the retention window are kept even when fully delivered.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore(gcDBPath)
		if err != nil {
			return err
		}
		defer store.Close()

		retention := gcRetention
		if retention <= 0 {
			retention = api.LoadConfig().GCRetention
		}

		gw := syncgw.NewGateway(store.Handle())
		changeRows, err := gw.GCChangeLog(args[0], retention)
		if err != nil {
			return fmt.Errorf("gc change log: %w", err)
		}
		tombstoneRows, err := gw.GCTombstones(args[0], retention)
		if err != nil {
			return fmt.Errorf("gc tombstones: %w", err)
		}

		fmt.Printf("deleted %d change log rows, %d tombstones\n", changeRows, tombstoneRows)
		return nil
	},
}

func init() {
	gcCmd.Flags().StringVar(&gcDBPath, "db", "", "path to the server database (default: from DB_PATH)")
	gcCmd.Flags().Int64Var(&gcRetention, "retention", 0, "retention window in seconds (default: from LOOM_GC_RETENTION)")
	rootCmd.AddCommand(gcCmd)
}
