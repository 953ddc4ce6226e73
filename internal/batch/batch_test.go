package batch

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rcliao/reelscript/internal/dataset"
	"github.com/rcliao/reelscript/internal/llm"
	"github.com/rcliao/reelscript/internal/model"
	"github.com/rcliao/reelscript/internal/relevance"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type fakeRepo struct {
	mu       sync.Mutex
	batches  []model.CachedBatch
	deleted  []string
	settings model.Settings
	records  []bool // datasetHit per recorded script
	aiCount  int
	seq      int
	failAll  bool
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{settings: model.DefaultSettings()}
}

func (r *fakeRepo) CachedBatches(_ context.Context, key model.BatchKey) ([]model.CachedBatch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failAll {
		return nil, errors.New("store down")
	}
	var out []model.CachedBatch
	for i := len(r.batches) - 1; i >= 0; i-- {
		if r.batches[i].Key == key {
			out = append(out, r.batches[i])
		}
	}
	return out, nil
}

func (r *fakeRepo) SaveBatch(_ context.Context, key model.BatchKey, scripts []model.GeneratedScript, ttl time.Duration) (model.CachedBatch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failAll {
		return model.CachedBatch{}, errors.New("store down")
	}
	r.seq++
	b := model.CachedBatch{
		ID:        fmt.Sprintf("batch-%d", r.seq),
		Key:       key,
		Scripts:   scripts,
		CreatedAt: testNow,
		ExpiresAt: testNow.Add(ttl),
	}
	r.batches = append(r.batches, b)
	return b, nil
}

func (r *fakeRepo) DeleteBatch(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deleted = append(r.deleted, id)
	kept := r.batches[:0]
	for _, b := range r.batches {
		if b.ID != id {
			kept = append(kept, b)
		}
	}
	r.batches = kept
	return nil
}

func (r *fakeRepo) Settings(context.Context) (model.Settings, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failAll {
		return model.Settings{}, errors.New("store down")
	}
	return r.settings, nil
}

func (r *fakeRepo) RecordGeneration(_ context.Context, _ string, usedAI, datasetHit bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, datasetHit)
	if usedAI {
		r.aiCount++
	}
	return nil
}

type fakeCompleter struct {
	mu        sync.Mutex
	calls     int
	responses []func() (string, error)
}

func (f *fakeCompleter) CompleteJSON(context.Context, string, string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.calls
	f.calls++
	if i >= len(f.responses) {
		i = len(f.responses) - 1
	}
	return f.responses[i]()
}

func (f *fakeCompleter) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func always(content string, err error) func() (string, error) {
	return func() (string, error) { return content, err }
}

type staticPools dataset.Pools

func (p staticPools) Pools(context.Context) dataset.Pools { return dataset.Pools(p) }

func fixturePools() staticPools {
	return staticPools{
		model.Dialogue: {
			{ID: "d1", Category: model.Dialogue, Text: "Idhi em ra babu", Situation: "when seeing something unexpected", Tags: []string{"shock"}},
			{ID: "d2", Category: model.Dialogue, Text: "Nenu saitam", Situation: "when friends ask for help", Tags: []string{"friendship"}},
		},
		model.Meme: {
			{ID: "m1", Category: model.Meme, Text: "Brahmi face", Situation: "reaction to exam results", Tags: []string{"exam"}},
		},
		model.Trend: {
			{ID: "t1", Category: model.Trend, Text: "Pushpa style everywhere", Tags: []string{"pushpa"}},
		},
	}
}

const threeScripts = `{"scripts": [
  {"hook": "h1", "context": "c1", "punchline": "p1", "caption": "cap1", "usedDataset": false},
  {"hook": "h2", "context": "c2", "punchline": "Idhi em ra babu", "caption": "cap2", "usedDataset": false},
  {"hook": "h3", "context": "c3", "punchline": "p3", "caption": "cap3", "usedDataset": false}
]}`

type sleeper struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *sleeper) Sleep(_ context.Context, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delays = append(s.delays, d)
	return nil
}

func newTestOrchestrator(repo Repository, c Completer, pools PoolSource, sl *sleeper) *Orchestrator {
	cfg := DefaultConfig()
	if sl == nil {
		sl = &sleeper{}
	}
	cfg.Retry.Sleep = sl.Sleep
	matcher := relevance.NewMatcher(relevance.WithRand(rand.New(rand.NewPCG(1, 2))))
	return New(repo, c, pools, matcher, cfg, WithClock(func() time.Time { return testNow }))
}

func TestGetOrGenerateServesCacheOnSecondCall(t *testing.T) {
	repo := newFakeRepo()
	c := &fakeCompleter{responses: []func() (string, error){always(threeScripts, nil)}}
	o := newTestOrchestrator(repo, c, fixturePools(), nil)
	ctx := context.Background()

	first, err := o.GetOrGenerate(ctx, Request{Topic: "Exam Results", Genre: "comedy"})
	if err != nil {
		t.Fatalf("GetOrGenerate: %v", err)
	}
	if first.Source != SourceAI || len(first.Scripts) != 3 || first.BatchID == "" {
		t.Fatalf("first = %+v", first)
	}
	if first.Key != (model.BatchKey{Topic: "exam results", Filter: "Comedy"}) {
		t.Fatalf("key = %+v", first.Key)
	}
	if repo.batches[0].ExpiresAt != testNow.Add(7*24*time.Hour) {
		t.Fatalf("expiresAt = %v", repo.batches[0].ExpiresAt)
	}

	second, err := o.GetOrGenerate(ctx, Request{Topic: "exam results!", Genre: "Comedy"})
	if err != nil {
		t.Fatalf("GetOrGenerate: %v", err)
	}
	if second.Source != SourceCache || second.BatchID != first.BatchID {
		t.Fatalf("second = %+v", second)
	}
	if c.Calls() != 1 {
		t.Fatalf("completer calls = %d, want 1", c.Calls())
	}
}

func TestGetOrGenerateMarksVerbatimDatasetUse(t *testing.T) {
	c := &fakeCompleter{responses: []func() (string, error){always(threeScripts, nil)}}
	o := newTestOrchestrator(newFakeRepo(), c, fixturePools(), nil)

	res, err := o.GetOrGenerate(context.Background(), Request{Topic: "unexpected situation"})
	if err != nil {
		t.Fatalf("GetOrGenerate: %v", err)
	}
	got := []bool{res.Scripts[0].UsedDataset, res.Scripts[1].UsedDataset, res.Scripts[2].UsedDataset}
	if got[0] || !got[1] || got[2] {
		t.Fatalf("usedDataset = %v, want [false true false]", got)
	}
}

func TestNonRateLimitFailureFallsBackToRules(t *testing.T) {
	repo := newFakeRepo()
	c := &fakeCompleter{responses: []func() (string, error){always("", errors.New("upstream 500"))}}
	sl := &sleeper{}
	o := newTestOrchestrator(repo, c, fixturePools(), sl)
	ctx := context.Background()

	for i := 1; i <= 2; i++ {
		res, err := o.GetOrGenerate(ctx, Request{Topic: "unexpected situation", Genre: "Comedy"})
		if err != nil {
			t.Fatalf("GetOrGenerate: %v", err)
		}
		if res.Source != SourceRule || len(res.Scripts) != 1 {
			t.Fatalf("result = %+v", res)
		}
		s := res.Scripts[0]
		if !s.UsedDataset {
			t.Fatal("usedDataset = false, want true with matched items")
		}
		if s.Hook != `CHARACTER reacts with "Idhi em ra babu"` {
			t.Fatalf("hook = %q", s.Hook)
		}
		if c.Calls() != i {
			t.Fatalf("completer calls = %d, want %d (no retry)", c.Calls(), i)
		}
	}
	if len(sl.delays) != 0 {
		t.Fatalf("slept %v, want no retries", sl.delays)
	}
	if len(repo.batches) != 0 {
		t.Fatalf("rule-based scripts were cached: %+v", repo.batches)
	}
}

func TestFallbackWithoutMatchesIsUngrounded(t *testing.T) {
	c := &fakeCompleter{responses: []func() (string, error){always("", errors.New("boom"))}}
	o := newTestOrchestrator(newFakeRepo(), c, staticPools{}, nil)

	res, err := o.GetOrGenerate(context.Background(), Request{Topic: "Monday blues", Genre: "savage"})
	if err != nil {
		t.Fatalf("GetOrGenerate: %v", err)
	}
	want := model.GeneratedScript{
		Hook:      "CHARACTER stares down Monday blues with attitude",
		Context:   "Intense beat drops as CHARACTER faces Monday blues",
		Punchline: "CHARACTER destroys Monday blues with savage wit",
		Caption:   "Monday blues - Telugu style! 😂💯\n#Mondayblues #TeluguReels #Savage",
	}
	if res.Scripts[0] != want {
		t.Fatalf("script = %+v\nwant %+v", res.Scripts[0], want)
	}
}

func TestRateLimitIsRetriedWithBackoff(t *testing.T) {
	limited := fmt.Errorf("%w: 429", llm.ErrRateLimited)
	c := &fakeCompleter{responses: []func() (string, error){
		always("", limited),
		always("", limited),
		always(threeScripts, nil),
	}}
	sl := &sleeper{}
	o := newTestOrchestrator(newFakeRepo(), c, fixturePools(), sl)

	res, err := o.GetOrGenerate(context.Background(), Request{Topic: "traffic"})
	if err != nil {
		t.Fatalf("GetOrGenerate: %v", err)
	}
	if res.Source != SourceAI || c.Calls() != 3 {
		t.Fatalf("source = %s calls = %d", res.Source, c.Calls())
	}
	want := []time.Duration{time.Second, 2 * time.Second}
	if fmt.Sprint(sl.delays) != fmt.Sprint(want) {
		t.Fatalf("delays = %v, want %v", sl.delays, want)
	}
}

func TestRateLimitExhaustionFallsBack(t *testing.T) {
	c := &fakeCompleter{responses: []func() (string, error){always("", llm.ErrRateLimited)}}
	o := newTestOrchestrator(newFakeRepo(), c, fixturePools(), nil)

	res, _ := o.GetOrGenerate(context.Background(), Request{Topic: "traffic"})
	if res.Source != SourceRule || c.Calls() != 3 {
		t.Fatalf("source = %s calls = %d", res.Source, c.Calls())
	}
}

func TestExpiredBatchIsDeletedAndRegenerated(t *testing.T) {
	repo := newFakeRepo()
	key := model.BatchKey{Topic: "biryani", Filter: "Comedy"}
	repo.batches = []model.CachedBatch{{
		ID:        "stale",
		Key:       key,
		Scripts:   []model.GeneratedScript{{Hook: "old", Context: "old", Punchline: "old", Caption: "old"}},
		ExpiresAt: testNow.Add(-time.Minute),
	}}
	c := &fakeCompleter{responses: []func() (string, error){always(threeScripts, nil)}}
	o := newTestOrchestrator(repo, c, fixturePools(), nil)

	res, err := o.GetOrGenerate(context.Background(), Request{Topic: "Biryani"})
	if err != nil {
		t.Fatalf("GetOrGenerate: %v", err)
	}
	if res.Source != SourceAI {
		t.Fatalf("source = %s, want ai", res.Source)
	}
	if len(repo.deleted) != 1 || repo.deleted[0] != "stale" {
		t.Fatalf("deleted = %v", repo.deleted)
	}
}

func TestAIDisabledSkipsCompleter(t *testing.T) {
	repo := newFakeRepo()
	repo.settings.UseAI = false
	c := &fakeCompleter{responses: []func() (string, error){always(threeScripts, nil)}}
	o := newTestOrchestrator(repo, c, fixturePools(), nil)

	res, _ := o.GetOrGenerate(context.Background(), Request{Topic: "cricket", Genre: "Cinematic"})
	if res.Source != SourceRule || c.Calls() != 0 {
		t.Fatalf("source = %s calls = %d", res.Source, c.Calls())
	}
}

func TestNilCompleterUsesRules(t *testing.T) {
	o := newTestOrchestrator(newFakeRepo(), nil, fixturePools(), nil)
	res, _ := o.GetOrGenerate(context.Background(), Request{Topic: "cricket"})
	if res.Source != SourceRule {
		t.Fatalf("source = %s", res.Source)
	}
}

func TestStoreOutageStillGenerates(t *testing.T) {
	repo := newFakeRepo()
	repo.failAll = true
	c := &fakeCompleter{responses: []func() (string, error){always(threeScripts, nil)}}
	o := newTestOrchestrator(repo, c, fixturePools(), nil)

	res, err := o.GetOrGenerate(context.Background(), Request{Topic: "rain"})
	if err != nil {
		t.Fatalf("GetOrGenerate: %v", err)
	}
	if res.Source != SourceAI || res.BatchID != "" || len(res.Scripts) != 3 {
		t.Fatalf("result = %+v", res)
	}
}

func TestMalformedOutputFallsBack(t *testing.T) {
	c := &fakeCompleter{responses: []func() (string, error){always("sorry, I cannot help", nil)}}
	o := newTestOrchestrator(newFakeRepo(), c, fixturePools(), nil)

	res, _ := o.GetOrGenerate(context.Background(), Request{Topic: "rain"})
	if res.Source != SourceRule {
		t.Fatalf("source = %s, want rule", res.Source)
	}
}

func TestEmptyTopicRejected(t *testing.T) {
	o := newTestOrchestrator(newFakeRepo(), nil, fixturePools(), nil)
	if _, err := o.GetOrGenerate(context.Background(), Request{Topic: "   "}); !errors.Is(err, model.ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
	if _, err := o.NewSession(Request{}); !errors.Is(err, model.ErrValidation) {
		t.Fatalf("NewSession err = %v, want ErrValidation", err)
	}
}

func TestTotalFailureReturnsErrorScript(t *testing.T) {
	c := &fakeCompleter{responses: []func() (string, error){always("", errors.New("down"))}}
	o := newTestOrchestrator(newFakeRepo(), c, fixturePools(), nil)
	o.rules = func(string, string, Selection) model.GeneratedScript { panic("template bug") }

	res, err := o.GetOrGenerate(context.Background(), Request{Topic: "rain"})
	if err != nil {
		t.Fatalf("GetOrGenerate: %v", err)
	}
	if res.Source != SourceError || len(res.Scripts) != 1 {
		t.Fatalf("result = %+v", res)
	}
	s := res.Scripts[0]
	if s.Error == "" || !s.Complete() {
		t.Fatalf("error script = %+v", s)
	}
}

func TestEveryPathIsRenderable(t *testing.T) {
	partial := `{"scripts": [{"hook": "only a hook"}]}`
	cases := map[string]*fakeCompleter{
		"ai":      {responses: []func() (string, error){always(threeScripts, nil)}},
		"partial": {responses: []func() (string, error){always(partial, nil)}},
		"error":   {responses: []func() (string, error){always("", errors.New("x"))}},
		"garbage": {responses: []func() (string, error){always("[]", nil)}},
	}
	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			o := newTestOrchestrator(newFakeRepo(), c, fixturePools(), nil)
			res, err := o.GetOrGenerate(context.Background(), Request{Topic: "festival shopping"})
			if err != nil {
				t.Fatalf("GetOrGenerate: %v", err)
			}
			for i, s := range res.Scripts {
				if !s.Complete() {
					t.Fatalf("script %d incomplete: %+v", i, s)
				}
			}
		})
	}
}

func TestConcurrentRequestsShareGeneration(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{}, 1)
	c := &gatedCompleter{fn: func(context.Context) (string, error) {
		select {
		case entered <- struct{}{}:
		default:
		}
		<-release
		return threeScripts, nil
	}}
	o := newTestOrchestrator(newFakeRepo(), c, fixturePools(), nil)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := o.GetOrGenerate(context.Background(), Request{Topic: "wedding"}); err != nil {
				t.Errorf("GetOrGenerate: %v", err)
			}
		}()
	}
	<-entered
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	// Late arrivals hit the cache written by the first generation.
	if n := c.calls.Load(); n != 1 {
		t.Fatalf("completer calls = %d, want 1", n)
	}
}

func TestCancelledCallerLeavesSharedGenerationRunning(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{}, 1)
	c := &gatedCompleter{fn: func(ctx context.Context) (string, error) {
		entered <- struct{}{}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-release:
			return threeScripts, nil
		}
	}}
	repo := newFakeRepo()
	o := newTestOrchestrator(repo, c, fixturePools(), nil)
	req := Request{Topic: "wedding"}

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, err := o.GetOrGenerate(ctxA, req)
		errA <- err
	}()
	<-entered

	resB := make(chan Result, 1)
	go func() {
		res, err := o.GetOrGenerate(context.Background(), req)
		if err != nil {
			t.Errorf("caller B: %v", err)
		}
		resB <- res
	}()
	time.Sleep(20 * time.Millisecond)

	cancelA()
	if err := <-errA; !errors.Is(err, context.Canceled) {
		t.Fatalf("caller A err = %v, want context.Canceled", err)
	}

	close(release)
	res := <-resB
	if res.Source != SourceAI || len(res.Scripts) != 3 {
		t.Fatalf("caller B got source=%s scripts=%d, want ai with 3", res.Source, len(res.Scripts))
	}
	if n := c.calls.Load(); n != 1 {
		t.Fatalf("completer calls = %d, want 1", n)
	}
	repo.mu.Lock()
	cached := len(repo.batches)
	repo.mu.Unlock()
	if cached != 1 {
		t.Fatalf("cached batches = %d, want 1", cached)
	}
}

type gatedCompleter struct {
	fn    func(context.Context) (string, error)
	calls atomic.Int32
}

func (g *gatedCompleter) CompleteJSON(ctx context.Context, _, _ string) (string, error) {
	g.calls.Add(1)
	return g.fn(ctx)
}

func TestPromptMentionsInputs(t *testing.T) {
	sel := Selection{Dialogues: fixturePools()[model.Dialogue][:1]}
	p := buildPrompt("exam results", "Savage", sel, 3)
	for _, want := range []string{
		`TOPIC: "exam results"`,
		"GENRE: Savage",
		`PUNCHLINE SUGGESTION (highly relevant to topic): "Idhi em ra babu"`,
		"DATASET:",
		"Generate exactly 3 different variations",
	} {
		if !strings.Contains(p, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
	if strings.Contains(buildPrompt("x", "Comedy", Selection{}, 3), "DATASET:") {
		t.Error("empty selection should omit DATASET")
	}
}
