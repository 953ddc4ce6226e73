package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage cached script batches",
	}

	purge := &cobra.Command{
		Use:   "purge",
		Short: "Delete expired cached batches",
		Run:   runCachePurge,
	}

	cmd.AddCommand(purge)
	RootCmd.AddCommand(cmd)
}

func runCachePurge(cmd *cobra.Command, args []string) {
	ctx := cmd.Context()
	repo, err := openStore(ctx)
	if err != nil {
		exitErr("open store", err)
	}
	defer repo.Close()

	n, err := repo.PurgeExpiredBatches(ctx)
	if err != nil {
		exitErr("cache purge", err)
	}
	if jsonOutput(cmd) {
		printJSON(cmd, map[string]any{"ok": true, "purged": n})
		return
	}
	fmt.Fprintf(cmd.OutOrStdout(), "purged %d expired batches\n", n)
}
