package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/rcliao/reelscript/internal/merge"
	"github.com/rcliao/reelscript/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:   "merge",
		Short: "Merge uploaded items into a dataset",
		Long: "Merge a JSON array of items (stdin or --file) into the dataset for a category.\n" +
			"smart-merge skips items whose normalized text is a near-duplicate of an existing\n" +
			"item; append adds everything.",
		Run: runMerge,
	}

	cmd.Flags().StringP("category", "C", "", "Category: dialogue, meme or trend (required)")
	cmd.Flags().StringP("mode", "m", string(merge.SmartMerge), "Mode: smart-merge or append")
	cmd.Flags().String("file", "", "Read items from file instead of stdin")
	cmd.Flags().Bool("dedupe-within-batch", false, "Also skip duplicates inside the upload itself")
	cmd.Flags().Bool("dry-run", false, "Report stats without saving")

	cmd.MarkFlagRequired("category")

	RootCmd.AddCommand(cmd)
}

func runMerge(cmd *cobra.Command, args []string) {
	categoryStr, _ := cmd.Flags().GetString("category")
	modeStr, _ := cmd.Flags().GetString("mode")
	file, _ := cmd.Flags().GetString("file")
	withinBatch, _ := cmd.Flags().GetBool("dedupe-within-batch")
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	ctx := cmd.Context()

	category, err := model.ParseCategory(categoryStr)
	if err != nil {
		exitErr("merge", err)
	}
	mode, err := merge.ParseMode(modeStr)
	if err != nil {
		exitErr("merge", err)
	}
	data, err := readInput(file, cmd.InOrStdin())
	if err != nil {
		exitErr("read input", err)
	}
	incoming, err := merge.ParsePayload(data)
	if err != nil {
		exitErr("merge", err)
	}
	if len(incoming) == 0 {
		exitErr("merge", merge.ErrEmptyUpload)
	}

	repo, err := openStore(ctx)
	if err != nil {
		exitErr("open store", err)
	}
	defer repo.Close()

	existing, err := repo.Dataset(ctx, category)
	if err != nil {
		exitErr("load dataset", err)
	}

	result, err := merge.NewEngine(merge.WithinBatch(withinBatch)).Merge(existing, incoming, category, mode)
	if err != nil {
		exitErr("merge", err)
	}
	if !dryRun {
		if err := repo.SaveDataset(ctx, category, result.Merged, string(result.Mode)); err != nil {
			exitErr("save dataset", err)
		}
	}

	if jsonOutput(cmd) {
		printJSON(cmd, map[string]any{
			"ok":       true,
			"category": category,
			"mode":     result.Mode,
			"dryRun":   dryRun,
			"stats":    result.Stats,
		})
		return
	}
	s := result.Stats
	fmt.Fprintln(cmd.OutOrStdout(), renderTable(
		[]string{"Category", "Mode", "Input", "Added", "Skipped", "Total"},
		[][]string{{
			category.Collection(), string(result.Mode),
			strconv.Itoa(s.InputItems), strconv.Itoa(s.NewItemsAdded),
			strconv.Itoa(s.DuplicatesSkipped), strconv.Itoa(s.TotalItems),
		}},
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight},
	))
}
