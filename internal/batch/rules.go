package batch

import (
	"fmt"
	"strings"

	"github.com/rcliao/reelscript/internal/model"
)

// Genres with dedicated rule-based templates.
const (
	GenreComedy    = "Comedy"
	GenreCinematic = "Cinematic"
	GenreRomantic  = "Romantic"
	GenreSavage    = "Savage"
)

// CanonicalGenre title-cases known genres and substitutes def for blank input.
// Unknown genres pass through trimmed.
func CanonicalGenre(genre, def string) string {
	genre = strings.TrimSpace(genre)
	if genre == "" {
		return def
	}
	for _, g := range []string{GenreComedy, GenreCinematic, GenreRomantic, GenreSavage} {
		if strings.EqualFold(genre, g) {
			return g
		}
	}
	return genre
}

type ruleTemplate struct {
	hookWith, hookWithout       string
	contextWith, contextWithout string
	punchWith, punchWithout     string
}

var ruleTemplates = map[string]ruleTemplate{
	GenreComedy: {
		hookWith: `CHARACTER reacts with "%s"`, hookWithout: "CHARACTER makes a funny face about %s",
		contextWith: "TRENDING: %s", contextWithout: "Background music plays as CHARACTER explains %s",
		punchWith: `CHARACTER says "%s"`, punchWithout: "CHARACTER makes a joke about %s",
	},
	GenreCinematic: {
		hookWith: `CHARACTER delivers "%s" dramatically`, hookWithout: "CHARACTER looks intensely at camera about %s",
		contextWith: "NEWS FLASH: %s", contextWithout: "Scene shows dramatic visuals related to %s",
		punchWith: `CHARACTER whispers "%s"`, punchWithout: "CHARACTER delivers climactic line about %s",
	},
	GenreRomantic: {
		hookWith: `CHARACTER whispers "%s" lovingly`, hookWithout: "CHARACTER gazes dreamily at %s",
		contextWith: "LOVE TREND: %s", contextWithout: "Romantic music plays as CHARACTER thinks about %s",
		punchWith: `CHARACTER says "%s" affectionately`, punchWithout: "CHARACTER expresses love for %s",
	},
	GenreSavage: {
		hookWith: `CHARACTER drops "%s" brutally`, hookWithout: "CHARACTER stares down %s with attitude",
		contextWith: "BURNING ISSUE: %s", contextWithout: "Intense beat drops as CHARACTER faces %s",
		punchWith: `CHARACTER claps back with "%s"`, punchWithout: "CHARACTER destroys %s with savage wit",
	},
}

var defaultTemplate = ruleTemplate{
	hookWith: `CHARACTER says "%s"`, hookWithout: "CHARACTER starts talking about %s",
	contextWith: "TRENDING: %s", contextWithout: "Background music plays as CHARACTER explains %s",
	punchWith: `CHARACTER says "%s"`, punchWithout: "CHARACTER makes a point about %s",
}

func pick(with, without string, items []model.ContentItem, topic string) string {
	if len(items) > 0 && items[0].Text != "" {
		return fmt.Sprintf(with, items[0].Text)
	}
	return fmt.Sprintf(without, topic)
}

// Caption builds the rule-based caption with topic and genre hashtags.
func Caption(topic, genre string) string {
	tag := strings.Join(strings.Fields(topic), "")
	return fmt.Sprintf("%s - Telugu style! 😂💯\n#%s #TeluguReels #%s", topic, tag, genre)
}

// RuleBased builds a script from templates without calling the LLM. The best
// matched item, when present, becomes the punchline.
func RuleBased(topic, genre string, sel Selection) model.GeneratedScript {
	tmpl, ok := ruleTemplates[genre]
	if !ok {
		tmpl = defaultTemplate
	}
	s := model.GeneratedScript{
		Hook:        pick(tmpl.hookWith, tmpl.hookWithout, sel.Dialogues, topic),
		Context:     pick(tmpl.contextWith, tmpl.contextWithout, sel.Trends, topic),
		Punchline:   pick(tmpl.punchWith, tmpl.punchWithout, sel.Memes, topic),
		Caption:     Caption(topic, genre),
		UsedDataset: sel.Any(),
	}
	if item, ok := sel.Suggestion(); ok && item.Text != "" {
		s.Punchline = item.Text
	}
	return s.WithPlaceholders()
}
