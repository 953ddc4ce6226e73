// Package relevance selects the dataset items most related to a topic.
package relevance

import (
	"math/rand/v2"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rcliao/reelscript/internal/model"
	"github.com/rcliao/reelscript/internal/textsim"
)

// DefaultMaxDistance is the normalized edit distance at or below which a
// topic token counts as matching an item token.
const DefaultMaxDistance = 0.4

// Matcher ranks pool items against a topic using token-level fuzzy matching.
// It is safe for concurrent use.
type Matcher struct {
	mu          sync.Mutex
	rng         *rand.Rand
	maxDistance float64
}

// Option customizes a Matcher.
type Option func(*Matcher)

// WithRand sets the randomness source used for fallback sampling.
func WithRand(r *rand.Rand) Option {
	return func(m *Matcher) {
		if r != nil {
			m.rng = r
		}
	}
}

// WithMaxDistance overrides DefaultMaxDistance.
func WithMaxDistance(d float64) Option {
	return func(m *Matcher) {
		if d > 0 {
			m.maxDistance = d
		}
	}
}

// NewMatcher creates a Matcher seeded from the clock unless WithRand is given.
func NewMatcher(opts ...Option) *Matcher {
	seed := uint64(time.Now().UnixNano())
	m := &Matcher{
		rng:         rand.New(rand.NewPCG(seed, seed>>1|1)),
		maxDistance: DefaultMaxDistance,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

type scored struct {
	item  model.ContentItem
	score float64
	genre bool
}

// FindRelevant returns at most limit items of category from pool, best match
// first. An empty category searches the whole pool. Items whose tags contain
// genre are moved ahead of the rest without disturbing relative order.
//
// When no item matches, a random sample of the filtered pool is returned so
// callers still get examples to work with. An empty pool yields nil.
func (m *Matcher) FindRelevant(topic string, pool []model.ContentItem, category model.Category, limit int, genre string) []model.ContentItem {
	if limit <= 0 {
		return nil
	}
	filtered := filterCategory(pool, category)
	if len(filtered) == 0 {
		return nil
	}

	queryTokens := textsim.SearchTokens(topic)
	var hits []scored
	if len(queryTokens) > 0 {
		for _, item := range filtered {
			score, ok := m.score(queryTokens, itemTokens(item))
			if !ok {
				continue
			}
			hits = append(hits, scored{item: item, score: score, genre: genre != "" && item.HasTag(genre)})
		}
	}

	if len(hits) == 0 {
		return m.sample(filtered, limit)
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].score < hits[j].score
	})
	if genre != "" {
		sort.SliceStable(hits, func(i, j int) bool {
			return hits[i].genre && !hits[j].genre
		})
	}

	if len(hits) > limit {
		hits = hits[:limit]
	}
	out := make([]model.ContentItem, len(hits))
	for i, h := range hits {
		out[i] = h.item
	}
	return out
}

// score returns the mean best distance over query tokens and whether any
// token was close enough to count as a match.
func (m *Matcher) score(query, tokens []string) (float64, bool) {
	if len(tokens) == 0 {
		return 0, false
	}
	matched := false
	total := 0.0
	for _, q := range query {
		best := 1.0
		for _, t := range tokens {
			if d := textsim.Distance(q, t); d < best {
				best = d
				if d == 0 {
					break
				}
			}
		}
		if best <= m.maxDistance {
			matched = true
		}
		total += best
	}
	return total / float64(len(query)), matched
}

func (m *Matcher) sample(pool []model.ContentItem, limit int) []model.ContentItem {
	n := min(limit, len(pool))
	out := make([]model.ContentItem, len(pool))
	copy(out, pool)

	m.mu.Lock()
	m.rng.Shuffle(len(out), func(i, j int) {
		out[i], out[j] = out[j], out[i]
	})
	m.mu.Unlock()

	return out[:n]
}

func filterCategory(pool []model.ContentItem, category model.Category) []model.ContentItem {
	if category == "" {
		return pool
	}
	var out []model.ContentItem
	for _, item := range pool {
		if item.Category == category {
			out = append(out, item)
		}
	}
	return out
}

func itemTokens(item model.ContentItem) []string {
	fields := []string{item.Situation, item.Text, strings.Join(item.Tags, " "), item.Actor}
	seen := make(map[string]struct{})
	var tokens []string
	for _, f := range fields {
		for _, t := range textsim.SearchTokens(f) {
			if _, ok := seen[t]; ok {
				continue
			}
			seen[t] = struct{}{}
			tokens = append(tokens, t)
		}
	}
	return tokens
}
