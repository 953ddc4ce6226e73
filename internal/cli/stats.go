package cli

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/rcliao/reelscript/internal/model"
	"github.com/rcliao/reelscript/internal/store"
	"github.com/rcliao/reelscript/internal/usage"
)

func init() {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show generation metrics, usage and store statistics",
		Run:   runStats,
	}

	cmd.Flags().IntP("topics", "t", 10, "Number of top topics to show")

	RootCmd.AddCommand(cmd)
}

type topicCount struct {
	Topic string `json:"topic"`
	Count int    `json:"count"`
}

type statsOutput struct {
	Metrics    model.Metrics    `json:"metrics"`
	TopTopics  []topicCount     `json:"topTopics"`
	Usage      usage.Snapshot   `json:"usage"`
	Costs      usage.Costs      `json:"costs"`
	Efficiency usage.Efficiency `json:"efficiency"`
	Store      *store.Stats     `json:"store"`
}

func runStats(cmd *cobra.Command, args []string) {
	topN, _ := cmd.Flags().GetInt("topics")
	ctx := cmd.Context()

	repo, err := openStore(ctx)
	if err != nil {
		exitErr("open store", err)
	}
	defer repo.Close()

	metrics, err := repo.Metrics(ctx)
	if err != nil {
		exitErr("metrics", err)
	}
	counts, err := repo.TopicCounts(ctx)
	if err != nil {
		exitErr("topics", err)
	}
	tracker, err := loadTracker(ctx, repo)
	if err != nil {
		exitErr("usage", err)
	}
	storeStats, err := repo.Docs().Stats(ctx)
	if err != nil {
		exitErr("stats", err)
	}

	out := statsOutput{
		Metrics:    metrics,
		TopTopics:  topTopics(counts, topN),
		Usage:      tracker.Snapshot(),
		Costs:      tracker.Formatted(),
		Efficiency: tracker.Efficiency(),
		Store:      storeStats,
	}

	if jsonOutput(cmd) {
		printJSON(cmd, out)
		return
	}

	w := cmd.OutOrStdout()
	m := out.Metrics
	fmt.Fprintln(w, renderTable(
		[]string{"Scripts", "AI mode", "Rule mode", "Dataset hits", "Dataset misses"},
		[][]string{{
			strconv.Itoa(m.ScriptsGenerated), strconv.Itoa(m.AIModeUsage), strconv.Itoa(m.RuleModeUsage),
			strconv.Itoa(m.DatasetHits), strconv.Itoa(m.DatasetMisses),
		}},
		[]columnAlignment{alignRight, alignRight, alignRight, alignRight, alignRight},
	))

	if len(out.TopTopics) > 0 {
		rows := make([][]string, 0, len(out.TopTopics))
		for _, tc := range out.TopTopics {
			rows = append(rows, []string{tc.Topic, strconv.Itoa(tc.Count)})
		}
		fmt.Fprintln(w, renderTable([]string{"Topic", "Requests"}, rows, []columnAlignment{alignLeft, alignRight}))
	}

	fmt.Fprintln(w, renderUsage(tracker))

	rows := make([][]string, 0, len(storeStats.Collections))
	for _, c := range storeStats.Collections {
		rows = append(rows, []string{c.Collection, strconv.Itoa(c.Count), strconv.Itoa(c.Expired)})
	}
	fmt.Fprintf(w, "%s store at %s\n", storeStats.Backend, storeStats.Location)
	fmt.Fprintln(w, renderTable([]string{"Collection", "Documents", "Expired"}, rows, []columnAlignment{alignLeft, alignRight, alignRight}))
}

// topTopics returns the n most requested topics, ties broken by name.
func topTopics(counts map[string]int, n int) []topicCount {
	out := make([]topicCount, 0, len(counts))
	for topic, c := range counts {
		out = append(out, topicCount{Topic: topic, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Topic < out[j].Topic
	})
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out
}
