package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/reelscript/internal/dataset"
	"github.com/rcliao/reelscript/internal/model"
	"github.com/rcliao/reelscript/internal/relevance"
)

func init() {
	cmd := &cobra.Command{
		Use:   "search [topic]",
		Short: "Show the dataset items a topic would draw on",
		Long: "Run the relevance matcher for a topic and print the items generation would use.\n" +
			"When nothing matches, a random sample is returned, as during generation.",
		Args: cobra.MinimumNArgs(1),
		Run:  runSearch,
	}

	cmd.Flags().StringP("category", "C", "", "Only this category")
	cmd.Flags().StringP("genre", "g", "", "Prefer items tagged with this genre")
	cmd.Flags().IntP("limit", "l", 3, "Max results per category")

	RootCmd.AddCommand(cmd)
}

func runSearch(cmd *cobra.Command, args []string) {
	categoryStr, _ := cmd.Flags().GetString("category")
	genre, _ := cmd.Flags().GetString("genre")
	limit, _ := cmd.Flags().GetInt("limit")
	topic := joinArgs(args)
	ctx := cmd.Context()

	categories := model.Categories()
	if categoryStr != "" {
		c, err := model.ParseCategory(categoryStr)
		if err != nil {
			exitErr("search", err)
		}
		categories = []model.Category{c}
	}

	repo, err := openStore(ctx)
	if err != nil {
		exitErr("open store", err)
	}
	defer repo.Close()

	loader := dataset.NewLoader(repo)
	matcher := relevance.NewMatcher()
	var hits []model.ContentItem
	for _, c := range categories {
		for _, item := range matcher.FindRelevant(topic, loader.Pool(ctx, c), c, limit, genre) {
			hits = append(hits, item)
		}
	}

	if jsonOutput(cmd) {
		if hits == nil {
			hits = []model.ContentItem{}
		}
		printJSON(cmd, hits)
		return
	}
	rows := make([][]string, 0, len(hits))
	for _, h := range hits {
		rows = append(rows, []string{string(h.Category), h.Text, h.Situation, strings.Join(h.Tags, ", ")})
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Type", "Text", "Situation", "Tags"}, rows, nil))
}
