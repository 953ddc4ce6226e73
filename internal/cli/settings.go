package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change generator settings",
		Long:  "Show generator settings. Pass --ai=false to serve rule-based scripts without calling the LLM.",
		Run:   runSettings,
	}

	cmd.Flags().Bool("ai", true, "Use the LLM for generation")

	RootCmd.AddCommand(cmd)
}

func runSettings(cmd *cobra.Command, args []string) {
	ctx := cmd.Context()
	repo, err := openStore(ctx)
	if err != nil {
		exitErr("open store", err)
	}
	defer repo.Close()

	settings, err := repo.Settings(ctx)
	if err != nil {
		exitErr("settings", err)
	}
	if cmd.Flags().Changed("ai") {
		settings.UseAI, _ = cmd.Flags().GetBool("ai")
		if settings, err = repo.SaveSettings(ctx, settings); err != nil {
			exitErr("save settings", err)
		}
	}

	if jsonOutput(cmd) {
		printJSON(cmd, settings)
		return
	}
	mode := "rule-based only"
	if settings.UseAI {
		mode = "AI with rule-based fallback"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "generator: %s\n", mode)
}
