package cli

import (
	"context"
	"log/slog"

	"github.com/rcliao/reelscript/internal/batch"
	"github.com/rcliao/reelscript/internal/config"
	"github.com/rcliao/reelscript/internal/dataset"
	"github.com/rcliao/reelscript/internal/llm"
	"github.com/rcliao/reelscript/internal/relevance"
	"github.com/rcliao/reelscript/internal/retry"
	"github.com/rcliao/reelscript/internal/store"
	"github.com/rcliao/reelscript/internal/usage"
)

// app wires the generation pipeline for commands that need it.
type app struct {
	repo    *store.Repository
	tracker *usage.Tracker
	client  *llm.Client
	loader  *dataset.Loader
	matcher *relevance.Matcher
	orch    *batch.Orchestrator
}

func currentConfig() *config.Config {
	if cfg != nil {
		return cfg
	}
	def := config.Default()
	return &def
}

func newApp(ctx context.Context) (*app, error) {
	c := currentConfig()
	repo, err := openStore(ctx)
	if err != nil {
		return nil, err
	}

	tracker := usage.NewTracker(usage.Rates{
		InputPerMillion:  c.Usage.InputCostPerMillion,
		OutputPerMillion: c.Usage.OutputCostPerMillion,
		USDToINR:         c.Usage.USDToINR,
	})
	tracker.Restore(store.WithFallback(ctx, "load usage", repo.Usage, usage.Snapshot{}))

	client := llm.NewClient(llm.Config{
		APIKey:         c.LLM.APIKey,
		BaseURL:        c.LLM.BaseURL,
		Model:          c.LLM.Model,
		TimeoutSeconds: c.LLM.TimeoutSeconds,
	}, llm.WithUsageRecorder(tracker))

	baseDelay, maxDelay := c.RetryDelays()
	policy := retry.Policy{
		MaxAttempts: c.Retry.MaxAttempts,
		BaseDelay:   baseDelay,
		MaxDelay:    maxDelay,
		Retryable:   llm.IsRateLimited,
	}

	var completer batch.Completer
	if client.Configured() {
		completer = client
	} else {
		slog.Info("no API key configured, using rule-based generation")
	}

	loader := dataset.NewLoader(repo)
	matcher := relevance.NewMatcher()
	orch := batch.New(repo, completer, loader, matcher, batch.Config{
		CacheTTL:  c.CacheTTL(),
		BatchSize: c.Generation.BatchSize,
		Limits: batch.Limits{
			Dialogues: c.Generation.DialogueLimit,
			Memes:     c.Generation.MemeLimit,
			Trends:    c.Generation.TrendLimit,
		},
		DefaultGenre: c.Generation.DefaultGenre,
		Retry:        policy,
	})

	return &app{repo: repo, tracker: tracker, client: client, loader: loader, matcher: matcher, orch: orch}, nil
}

// Close persists usage totals and closes the store.
func (a *app) Close(ctx context.Context) {
	store.Try(ctx, "save usage", func(ctx context.Context) error {
		return a.repo.SaveUsage(ctx, a.tracker.Snapshot())
	})
	if err := a.repo.Close(); err != nil {
		slog.Warn("close store", slog.String("error", err.Error()))
	}
}
