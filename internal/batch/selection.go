package batch

import (
	"context"

	"github.com/rcliao/reelscript/internal/dataset"
	"github.com/rcliao/reelscript/internal/model"
	"github.com/rcliao/reelscript/internal/relevance"
)

// Limits bounds how many items of each category are matched per topic.
type Limits struct {
	Dialogues int
	Memes     int
	Trends    int
}

// DefaultLimits picks two dialogues, one meme and one trend.
var DefaultLimits = Limits{Dialogues: 2, Memes: 1, Trends: 1}

// Selection is the matched reference material for one topic.
type Selection struct {
	Dialogues []model.ContentItem `json:"dialogues"`
	Memes     []model.ContentItem `json:"memes"`
	Trends    []model.ContentItem `json:"trends"`
}

// Any reports whether at least one item was matched.
func (s Selection) Any() bool {
	return len(s.Dialogues)+len(s.Memes)+len(s.Trends) > 0
}

// Items returns all matched items, dialogues first.
func (s Selection) Items() []model.ContentItem {
	out := make([]model.ContentItem, 0, len(s.Dialogues)+len(s.Memes)+len(s.Trends))
	out = append(out, s.Dialogues...)
	out = append(out, s.Memes...)
	return append(out, s.Trends...)
}

// Suggestion returns the best-ranked item to use as a punchline, if any.
func (s Selection) Suggestion() (model.ContentItem, bool) {
	items := s.Items()
	if len(items) == 0 {
		return model.ContentItem{}, false
	}
	return items[0], true
}

// PoolSource provides the reference pools to match against.
type PoolSource interface {
	Pools(ctx context.Context) dataset.Pools
}

func selectItems(m *relevance.Matcher, pools dataset.Pools, topic, genre string, limits Limits) Selection {
	return Selection{
		Dialogues: m.FindRelevant(topic, pools[model.Dialogue], model.Dialogue, limits.Dialogues, genre),
		Memes:     m.FindRelevant(topic, pools[model.Meme], model.Meme, limits.Memes, genre),
		Trends:    m.FindRelevant(topic, pools[model.Trend], model.Trend, limits.Trends, genre),
	}
}
