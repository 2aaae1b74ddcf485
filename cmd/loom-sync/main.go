package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/loomapp/loom/internal/serverdb"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "loom-sync",
	Short: "Sync gateway and workspace store for loom",
	Long: `loom-sync serves the multi-device sync protocol over HTTP and owns
the server-side workspace store: users, workspaces, memberships,
invites, and the per-workspace change log.`,
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// openStore opens the server database honoring the environment, with an
// optional --db path override.
func openStore(dbPath string) (*serverdb.ServerDB, error) {
	cfg := serverdb.StoreConfigFromEnv()
	if dbPath != "" {
		cfg.Path = dbPath
	}
	return serverdb.Open(cfg)
}

func init() {
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the loom-sync version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("loom-sync", version)
		},
	})
}
