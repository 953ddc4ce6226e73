package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/reelscript/internal/dataset"
	"github.com/rcliao/reelscript/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:   "dataset",
		Short: "Inspect and export datasets",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List the items generation draws from",
		Long:  "List the pool for a category: the saved dataset plus contributions, or the built-in dataset when both are empty.",
		Run:   runDatasetList,
	}
	list.Flags().StringP("category", "C", "", "Category: dialogue, meme or trend (required)")
	list.Flags().IntP("limit", "l", 0, "Max items (0 for all)")
	list.MarkFlagRequired("category")

	info := &cobra.Command{
		Use:   "info",
		Short: "Show item counts and last update per category",
		Run:   runDatasetInfo,
	}
	info.Flags().StringP("category", "C", "", "Only this category")

	export := &cobra.Command{
		Use:   "export",
		Short: "Export a saved dataset as JSON accepted by merge",
		Run:   runDatasetExport,
	}
	export.Flags().StringP("category", "C", "", "Category: dialogue, meme or trend (required)")
	export.MarkFlagRequired("category")

	cmd.AddCommand(list, info, export)
	RootCmd.AddCommand(cmd)
}

func runDatasetList(cmd *cobra.Command, args []string) {
	categoryStr, _ := cmd.Flags().GetString("category")
	limit, _ := cmd.Flags().GetInt("limit")
	ctx := cmd.Context()

	category, err := model.ParseCategory(categoryStr)
	if err != nil {
		exitErr("dataset list", err)
	}
	repo, err := openStore(ctx)
	if err != nil {
		exitErr("open store", err)
	}
	defer repo.Close()

	items := dataset.NewLoader(repo).Pool(ctx, category)
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}

	if jsonOutput(cmd) {
		if items == nil {
			items = []model.ContentItem{}
		}
		printJSON(cmd, items)
		return
	}
	rows := make([][]string, 0, len(items))
	for _, it := range items {
		rows = append(rows, []string{it.ID, it.Text, it.Situation, strings.Join(it.Tags, ", "), it.Actor})
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"ID", "Text", "Situation", "Tags", "Actor"}, rows, nil))
}

func runDatasetInfo(cmd *cobra.Command, args []string) {
	categoryStr, _ := cmd.Flags().GetString("category")
	ctx := cmd.Context()

	categories := model.Categories()
	if categoryStr != "" {
		c, err := model.ParseCategory(categoryStr)
		if err != nil {
			exitErr("dataset info", err)
		}
		categories = []model.Category{c}
	}

	repo, err := openStore(ctx)
	if err != nil {
		exitErr("open store", err)
	}
	defer repo.Close()

	infos := make([]model.DatasetInfo, 0, len(categories))
	for _, c := range categories {
		info, err := repo.DatasetInfo(ctx, c)
		if err != nil {
			exitErr("dataset info", err)
		}
		infos = append(infos, info)
	}

	if jsonOutput(cmd) {
		printJSON(cmd, infos)
		return
	}
	rows := make([][]string, 0, len(infos))
	for _, info := range infos {
		updated := "never"
		if !info.UpdatedAt.IsZero() {
			updated = info.UpdatedAt.Local().Format("2006-01-02 15:04")
		}
		rows = append(rows, []string{info.Category.Collection(), strconv.Itoa(info.Count), updated, info.LastMergeMode})
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderTable(
		[]string{"Dataset", "Items", "Updated", "Last mode"},
		rows,
		[]columnAlignment{alignLeft, alignRight},
	))
}

func runDatasetExport(cmd *cobra.Command, args []string) {
	categoryStr, _ := cmd.Flags().GetString("category")
	ctx := cmd.Context()

	category, err := model.ParseCategory(categoryStr)
	if err != nil {
		exitErr("dataset export", err)
	}
	repo, err := openStore(ctx)
	if err != nil {
		exitErr("open store", err)
	}
	defer repo.Close()

	data, err := repo.ExportDataset(ctx, category)
	if err != nil {
		exitErr("dataset export", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
}
