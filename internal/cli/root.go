// Package cli implements the reelscript CLI commands.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/rcliao/reelscript/internal/config"
	"github.com/rcliao/reelscript/internal/logging"
	"github.com/rcliao/reelscript/internal/store"
)

var (
	cfgPath    string
	dbPath     string
	formatFlag string
	verbose    bool

	cfg *config.Config
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "reelscript",
	Short: "Telugu reel script generator",
	Long: "Generate short Telugu-English reel scripts from a topic, grounded in a curated\n" +
		"dataset of movie dialogues, memes and trends. Scripts are cached per topic and genre.",
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "Config file (default: $REELSCRIPT_CONFIG or ~/.config/reelscript/config.toml)")
	RootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "SQLite database path (default: $REELSCRIPT_DB or ~/.reelscript/reelscript.db)")
	RootCmd.PersistentFlags().StringVarP(&formatFlag, "format", "f", "", "Output format: json or text (default: text on a terminal, json otherwise)")
	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Debug logging")
}

func loadConfig(cmd *cobra.Command, args []string) error {
	loaded, _, _, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	cfg = loaded
	level := cfg.Log.Level
	if verbose {
		level = "debug"
	}
	return logging.Init(level, os.Stderr)
}

func getDBPath() string {
	if dbPath != "" {
		return dbPath
	}
	if cfg != nil {
		return cfg.Store.Path
	}
	return config.Default().Store.Path
}

func openStore(ctx context.Context) (*store.Repository, error) {
	if cfg != nil && cfg.Store.Backend == config.BackendDynamoDB && dbPath == "" {
		docs, err := store.NewDynamoStore(ctx, store.DynamoConfig{
			Table:    cfg.Store.Table,
			Region:   cfg.Store.Region,
			Endpoint: cfg.Store.Endpoint,
		})
		if err != nil {
			return nil, err
		}
		return store.NewRepository(docs), nil
	}
	docs, err := store.NewSQLiteStore(getDBPath())
	if err != nil {
		return nil, err
	}
	return store.NewRepository(docs), nil
}

// jsonOutput reports whether commands should print JSON.
func jsonOutput(cmd *cobra.Command) bool {
	switch formatFlag {
	case "json":
		return true
	case "text":
		return false
	}
	return !isTerminal(cmd.OutOrStdout())
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func printJSON(cmd *cobra.Command, v any) {
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Fprintln(cmd.OutOrStdout(), string(b))
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
