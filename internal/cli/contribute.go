package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/reelscript/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:   "contribute [content]",
		Short: "Contribute a dialogue, meme or trend",
		Long:  "Add one item to the shared pool. Content can be a positional arg or piped via stdin.",
		Run:   runContribute,
	}

	cmd.Flags().StringP("type", "T", string(model.Dialogue), "Type: dialogue, meme or trend")
	cmd.Flags().StringP("situation", "s", "", "When the item fits (required)")
	cmd.Flags().StringP("tags", "t", "", "Comma-separated tags")
	cmd.Flags().StringP("actor", "a", "", "Actor or source")

	cmd.MarkFlagRequired("situation")

	RootCmd.AddCommand(cmd)
}

func runContribute(cmd *cobra.Command, args []string) {
	typeStr, _ := cmd.Flags().GetString("type")
	situation, _ := cmd.Flags().GetString("situation")
	tagsStr, _ := cmd.Flags().GetString("tags")
	actor, _ := cmd.Flags().GetString("actor")
	ctx := cmd.Context()

	category, err := model.ParseCategory(typeStr)
	if err != nil {
		exitErr("contribute", err)
	}

	content := joinArgs(args)
	if content == "" {
		if data, err := readInput("", cmd.InOrStdin()); err == nil {
			content = joinArgs([]string{string(data)})
		}
	}
	if content == "" {
		exitErr("contribute", fmt.Errorf("%w: content is required (positional arg or stdin)", model.ErrValidation))
	}

	repo, err := openStore(ctx)
	if err != nil {
		exitErr("open store", err)
	}
	defer repo.Close()

	item, err := repo.AddContribution(ctx, model.ContentItem{
		Category:  category,
		Text:      content,
		Situation: situation,
		Tags:      model.ParseTags(tagsStr),
		Actor:     actor,
	})
	if err != nil {
		exitErr("contribute", err)
	}

	if jsonOutput(cmd) {
		printJSON(cmd, item)
		return
	}
	fmt.Fprintf(cmd.OutOrStdout(), "added %s %s\n", item.Category, item.ID)
}
