package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/rcliao/reelscript/internal/store"
	"github.com/rcliao/reelscript/internal/usage"
)

func init() {
	cmd := &cobra.Command{
		Use:   "usage",
		Short: "Show LLM token usage and estimated cost",
		Run:   runUsage,
	}

	reset := &cobra.Command{
		Use:   "reset",
		Short: "Reset usage totals",
		Run:   runUsageReset,
	}

	cmd.AddCommand(reset)
	RootCmd.AddCommand(cmd)
}

func loadTracker(ctx context.Context, repo *store.Repository) (*usage.Tracker, error) {
	c := currentConfig()
	tracker := usage.NewTracker(usage.Rates{
		InputPerMillion:  c.Usage.InputCostPerMillion,
		OutputPerMillion: c.Usage.OutputCostPerMillion,
		USDToINR:         c.Usage.USDToINR,
	})
	snap, err := repo.Usage(ctx)
	if err != nil {
		return nil, err
	}
	tracker.Restore(snap)
	return tracker, nil
}

func renderUsage(t *usage.Tracker) string {
	s := t.Snapshot()
	costs := t.Formatted()
	eff := t.Efficiency()
	last := "never"
	if s.LastRequestTime != nil {
		last = s.LastRequestTime.Local().Format("2006-01-02 15:04")
	}
	return renderTable(
		[]string{"Metric", "Value"},
		[][]string{
			{"Requests", strconv.Itoa(s.TotalRequests)},
			{"Input tokens", strconv.FormatInt(s.InputTokens, 10)},
			{"Output tokens", strconv.FormatInt(s.OutputTokens, 10)},
			{"Total tokens", strconv.FormatInt(eff.TotalTokens, 10)},
			{"Avg tokens/request", strconv.FormatInt(eff.AvgTokensPerRequest, 10)},
			{"Input/output ratio", eff.InputOutputRatio},
			{"Cost (USD)", costs.USD},
			{"Cost (INR)", costs.INR},
			{"Avg cost/request", costs.AvgPerRequest},
			{"Cost per 1K tokens", eff.CostPerThousand},
			{"Last request", last},
		},
		[]columnAlignment{alignLeft, alignRight},
	)
}

func runUsage(cmd *cobra.Command, args []string) {
	ctx := cmd.Context()
	repo, err := openStore(ctx)
	if err != nil {
		exitErr("open store", err)
	}
	defer repo.Close()

	tracker, err := loadTracker(ctx, repo)
	if err != nil {
		exitErr("usage", err)
	}
	if jsonOutput(cmd) {
		printJSON(cmd, map[string]any{
			"usage":      tracker.Snapshot(),
			"costs":      tracker.Formatted(),
			"efficiency": tracker.Efficiency(),
		})
		return
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderUsage(tracker))
}

func runUsageReset(cmd *cobra.Command, args []string) {
	ctx := cmd.Context()
	repo, err := openStore(ctx)
	if err != nil {
		exitErr("open store", err)
	}
	defer repo.Close()

	tracker, err := loadTracker(ctx, repo)
	if err != nil {
		exitErr("usage", err)
	}
	if err := repo.SaveUsage(ctx, tracker.Reset()); err != nil {
		exitErr("usage reset", err)
	}
	if jsonOutput(cmd) {
		printJSON(cmd, map[string]bool{"ok": true})
		return
	}
	fmt.Fprintln(cmd.OutOrStdout(), "usage reset")
}
