// Package batch serves reel scripts for a topic, reusing cached batches and
// falling back from the LLM to rule-based generation so callers always get
// something renderable.
package batch

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/rcliao/reelscript/internal/llm"
	"github.com/rcliao/reelscript/internal/model"
	"github.com/rcliao/reelscript/internal/relevance"
	"github.com/rcliao/reelscript/internal/retry"
	"github.com/rcliao/reelscript/internal/store"
	"github.com/rcliao/reelscript/internal/textsim"
)

// Completer is the generation collaborator.
type Completer interface {
	CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Repository is the persistence the orchestrator needs. Every call is
// best-effort.
type Repository interface {
	CachedBatches(ctx context.Context, key model.BatchKey) ([]model.CachedBatch, error)
	SaveBatch(ctx context.Context, key model.BatchKey, scripts []model.GeneratedScript, ttl time.Duration) (model.CachedBatch, error)
	DeleteBatch(ctx context.Context, id string) error
	Settings(ctx context.Context) (model.Settings, error)
	RecordGeneration(ctx context.Context, topic string, usedAI, datasetHit bool) error
}

// Source tells where a batch came from.
type Source string

const (
	SourceCache Source = "cache"
	SourceAI    Source = "ai"
	SourceRule  Source = "rule"
	SourceError Source = "error"
)

// Config tunes generation.
type Config struct {
	CacheTTL     time.Duration
	BatchSize    int
	Limits       Limits
	DefaultGenre string
	Retry        retry.Policy
}

// DefaultConfig caches for seven days and asks for three variations per call.
func DefaultConfig() Config {
	return Config{
		CacheTTL:     7 * 24 * time.Hour,
		BatchSize:    3,
		Limits:       DefaultLimits,
		DefaultGenre: GenreComedy,
		Retry:        retry.Default(llm.IsRateLimited),
	}
}

// Request asks for scripts about a topic.
type Request struct {
	Topic string
	Genre string
}

// Result is a batch ready to be served.
type Result struct {
	Key     model.BatchKey
	Topic   string
	Genre   string
	Scripts []model.GeneratedScript
	Source  Source
	// BatchID is the cached record id, empty when nothing was persisted.
	BatchID string
}

// Orchestrator resolves requests to batches. Concurrent requests for the same
// key share one generation.
type Orchestrator struct {
	repo    Repository
	llm     Completer
	pools   PoolSource
	matcher *relevance.Matcher
	cfg     Config
	group   singleflight.Group
	now     func() time.Time
	rules   func(topic, genre string, sel Selection) model.GeneratedScript
}

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

// New creates an orchestrator. A nil completer disables AI generation.
func New(repo Repository, completer Completer, pools PoolSource, matcher *relevance.Matcher, cfg Config, opts ...Option) *Orchestrator {
	def := DefaultConfig()
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = def.CacheTTL
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.Limits == (Limits{}) {
		cfg.Limits = def.Limits
	}
	if strings.TrimSpace(cfg.DefaultGenre) == "" {
		cfg.DefaultGenre = def.DefaultGenre
	}
	if cfg.Retry.Retryable == nil {
		cfg.Retry.Retryable = llm.IsRateLimited
	}
	if matcher == nil {
		matcher = relevance.NewMatcher()
	}
	o := &Orchestrator{
		repo:    repo,
		llm:     completer,
		pools:   pools,
		matcher: matcher,
		cfg:     cfg,
		now:     time.Now,
		rules:   RuleBased,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Key returns the cache key for req.
func (o *Orchestrator) Key(req Request) (model.BatchKey, error) {
	topic := strings.TrimSpace(req.Topic)
	if topic == "" {
		return model.BatchKey{}, fmt.Errorf("%w: topic is required", model.ErrValidation)
	}
	return model.BatchKey{
		Topic:  textsim.Normalize(topic),
		Filter: CanonicalGenre(req.Genre, o.cfg.DefaultGenre),
	}, nil
}

// GetOrGenerate serves the newest unexpired cached batch for req, or
// generates a new one. It fails only for an invalid request or when ctx is
// done before the result is ready.
func (o *Orchestrator) GetOrGenerate(ctx context.Context, req Request) (Result, error) {
	return o.resolve(ctx, req, "")
}

// Regenerate replaces an exhausted batch. Another live batch for the same key
// is served if one exists; otherwise exclude is deleted and a fresh batch is
// generated.
func (o *Orchestrator) Regenerate(ctx context.Context, req Request, exclude string) (Result, error) {
	return o.resolve(ctx, req, exclude)
}

func (o *Orchestrator) resolve(ctx context.Context, req Request, exclude string) (Result, error) {
	key, err := o.Key(req)
	if err != nil {
		return Result{}, err
	}
	topic := strings.TrimSpace(req.Topic)

	// The flight outlives any one caller; a caller that goes away only
	// stops waiting.
	flight := key.Topic + "|" + key.Filter + "|" + exclude
	shared := context.WithoutCancel(ctx)
	ch := o.group.DoChan(flight, func() (any, error) {
		return o.lookupOrGenerate(shared, key, topic, exclude), nil
	})
	select {
	case <-ctx.Done():
		return Result{}, ctx.Err()
	case r := <-ch:
		res := r.Val.(Result)
		res.Scripts = append([]model.GeneratedScript(nil), res.Scripts...)
		return res, nil
	}
}

func (o *Orchestrator) lookupOrGenerate(ctx context.Context, key model.BatchKey, topic, exclude string) Result {
	if b, ok := o.lookup(ctx, key, exclude); ok {
		slog.Info("serving cached batch",
			slog.String("topic", key.Topic),
			slog.String("genre", key.Filter),
			slog.String("batch", b.ID),
			slog.Int("scripts", len(b.Scripts)))
		return Result{Key: key, Topic: topic, Genre: key.Filter, Scripts: b.Scripts, Source: SourceCache, BatchID: b.ID}
	}
	if exclude != "" {
		store.Try(ctx, "delete exhausted batch", func(ctx context.Context) error {
			return o.repo.DeleteBatch(ctx, exclude)
		})
	}
	return o.generate(ctx, key, topic)
}

// lookup returns the newest live batch other than exclude, deleting any
// expired records it passes.
func (o *Orchestrator) lookup(ctx context.Context, key model.BatchKey, exclude string) (model.CachedBatch, bool) {
	if o.repo == nil {
		return model.CachedBatch{}, false
	}
	batches := store.WithFallback(ctx, "cached batches", func(ctx context.Context) ([]model.CachedBatch, error) {
		return o.repo.CachedBatches(ctx, key)
	}, nil)

	now := o.now()
	var found model.CachedBatch
	ok := false
	for _, b := range batches {
		if b.Expired(now) {
			slog.Debug("deleting expired batch", slog.String("batch", b.ID))
			store.Try(ctx, "delete expired batch", func(ctx context.Context) error {
				return o.repo.DeleteBatch(ctx, b.ID)
			})
			continue
		}
		if ok || b.ID == exclude || len(b.Scripts) == 0 {
			continue
		}
		found, ok = b, true
	}
	return found, ok
}

func (o *Orchestrator) generate(ctx context.Context, key model.BatchKey, topic string) Result {
	genre := key.Filter
	res := Result{Key: key, Topic: topic, Genre: genre}

	settings := model.DefaultSettings()
	if o.repo != nil {
		settings = store.WithFallback(ctx, "generator settings", o.repo.Settings, model.DefaultSettings())
	}

	var sel Selection
	if o.pools != nil {
		sel = selectItems(o.matcher, o.pools.Pools(ctx), topic, genre, o.cfg.Limits)
	}

	if settings.UseAI && o.llm != nil {
		scripts, err := o.generateAI(ctx, topic, genre, sel)
		if err == nil {
			res.Scripts, res.Source = scripts, SourceAI
			if o.repo != nil {
				b := store.WithFallback(ctx, "save batch", func(ctx context.Context) (model.CachedBatch, error) {
					return o.repo.SaveBatch(ctx, key, scripts, o.cfg.CacheTTL)
				}, model.CachedBatch{})
				res.BatchID = b.ID
			}
			return res
		}
		slog.Warn("AI generation failed, using rule-based script",
			slog.String("topic", topic),
			slog.String("error", err.Error()))
	}

	script, err := o.ruleScript(topic, genre, sel)
	if err != nil {
		slog.Error("rule-based generation failed", slog.String("topic", topic), slog.String("error", err.Error()))
		res.Scripts, res.Source = []model.GeneratedScript{model.ErrorScript()}, SourceError
		return res
	}
	res.Scripts, res.Source = []model.GeneratedScript{script}, SourceRule
	return res
}

func (o *Orchestrator) generateAI(ctx context.Context, topic, genre string, sel Selection) ([]model.GeneratedScript, error) {
	prompt := buildPrompt(topic, genre, sel, o.cfg.BatchSize)
	content, err := retry.DoValue(ctx, o.cfg.Retry, func(ctx context.Context) (string, error) {
		return o.llm.CompleteJSON(ctx, systemPrompt, prompt)
	})
	if err != nil {
		return nil, err
	}
	scripts, err := parseScripts(content, sel)
	if err != nil {
		return nil, fmt.Errorf("parse scripts: %w", err)
	}
	slog.Info("generated batch", slog.String("topic", topic), slog.String("genre", genre), slog.Int("scripts", len(scripts)))
	return scripts, nil
}

func (o *Orchestrator) ruleScript(topic, genre string, sel Selection) (s model.GeneratedScript, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("rule-based generator panicked: %v", r)
		}
	}()
	s = o.rules(topic, genre, sel)
	if !s.Complete() {
		return s, fmt.Errorf("rule-based script incomplete")
	}
	return s, nil
}

// recordServed bumps the generation metrics for one served script.
func (o *Orchestrator) recordServed(ctx context.Context, res Result, s model.GeneratedScript) {
	if o.repo == nil || res.Source == SourceError {
		return
	}
	usedAI := res.Source == SourceAI || res.Source == SourceCache
	store.Try(ctx, "record generation", func(ctx context.Context) error {
		return o.repo.RecordGeneration(ctx, res.Topic, usedAI, s.UsedDataset)
	})
}
