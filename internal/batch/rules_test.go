package batch

import (
	"errors"
	"testing"

	"github.com/rcliao/reelscript/internal/model"
)

func TestRuleBasedGenres(t *testing.T) {
	sel := Selection{
		Dialogues: []model.ContentItem{{Category: model.Dialogue, Text: "Thaggede le"}},
		Memes:     []model.ContentItem{{Category: model.Meme, Text: "Brahmi face"}},
		Trends:    []model.ContentItem{{Category: model.Trend, Text: "IPL final tonight"}},
	}
	tests := []struct {
		genre, hook, context string
	}{
		{GenreComedy, `CHARACTER reacts with "Thaggede le"`, "TRENDING: IPL final tonight"},
		{GenreCinematic, `CHARACTER delivers "Thaggede le" dramatically`, "NEWS FLASH: IPL final tonight"},
		{GenreRomantic, `CHARACTER whispers "Thaggede le" lovingly`, "LOVE TREND: IPL final tonight"},
		{GenreSavage, `CHARACTER drops "Thaggede le" brutally`, "BURNING ISSUE: IPL final tonight"},
		{"Horror", `CHARACTER says "Thaggede le"`, "TRENDING: IPL final tonight"},
	}
	for _, tt := range tests {
		t.Run(tt.genre, func(t *testing.T) {
			s := RuleBased("cricket", tt.genre, sel)
			if s.Hook != tt.hook || s.Context != tt.context {
				t.Fatalf("got hook %q context %q", s.Hook, s.Context)
			}
			if s.Punchline != "Thaggede le" {
				t.Fatalf("punchline = %q, want suggestion text", s.Punchline)
			}
			if !s.UsedDataset || !s.Complete() {
				t.Fatalf("script = %+v", s)
			}
		})
	}
}

func TestRuleBasedMemePunchlineWithoutSuggestionOverride(t *testing.T) {
	// The suggestion is the first matched item, so with only a meme the
	// punchline is that meme's raw text.
	sel := Selection{Memes: []model.ContentItem{{Category: model.Meme, Text: "Brahmi face"}}}
	s := RuleBased("results day", GenreRomantic, sel)
	if s.Punchline != "Brahmi face" {
		t.Fatalf("punchline = %q", s.Punchline)
	}
	if s.Hook != "CHARACTER gazes dreamily at results day" {
		t.Fatalf("hook = %q", s.Hook)
	}
}

func TestRuleBasedNoMatches(t *testing.T) {
	s := RuleBased("office gossip", GenreCinematic, Selection{})
	want := model.GeneratedScript{
		Hook:      "CHARACTER looks intensely at camera about office gossip",
		Context:   "Scene shows dramatic visuals related to office gossip",
		Punchline: "CHARACTER delivers climactic line about office gossip",
		Caption:   "office gossip - Telugu style! 😂💯\n#officegossip #TeluguReels #Cinematic",
	}
	if s != want {
		t.Fatalf("got %+v\nwant %+v", s, want)
	}
}

func TestCanonicalGenre(t *testing.T) {
	tests := map[string]string{
		"":         "Comedy",
		"  ":       "Comedy",
		"savage":   "Savage",
		"ROMANTIC": "Romantic",
		"Mass":     "Mass",
	}
	for in, want := range tests {
		if got := CanonicalGenre(in, GenreComedy); got != want {
			t.Errorf("CanonicalGenre(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestParseScriptsShapes(t *testing.T) {
	sel := Selection{Dialogues: []model.ContentItem{{Category: model.Dialogue, Text: "Idhi em ra babu"}}}
	tests := []struct {
		name    string
		content string
		n       int
	}{
		{"wrapped", `{"scripts":[{"hook":"h","context":"c","punchline":"p","caption":"x"}]}`, 1},
		{"array", `[{"hook":"h","context":"c","punchline":"p","caption":"x"},{"hook":"h2"}]`, 2},
		{"single", `{"hook":"h","context":"c","punchline":"p","caption":"x"}`, 1},
		{"nested script", `[{"keywords":["a"],"script":{"hook":"h","context":"c","punchline":"p","caption":"x"}}]`, 1},
		{"fenced", "```json\n{\"scripts\":[{\"hook\":\"h\"}]}\n```", 1},
		{"drops empty entries", `{"scripts":[{},{"hook":"h"}]}`, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseScripts(tt.content, sel)
			if err != nil {
				t.Fatalf("parseScripts: %v", err)
			}
			if len(got) != tt.n {
				t.Fatalf("got %d scripts, want %d", len(got), tt.n)
			}
			for _, s := range got {
				if !s.Complete() {
					t.Fatalf("incomplete script %+v", s)
				}
			}
		})
	}
}

func TestParseScriptsPlaceholders(t *testing.T) {
	got, err := parseScripts(`{"scripts":[{"hook":"only hook"}]}`, Selection{})
	if err != nil {
		t.Fatalf("parseScripts: %v", err)
	}
	s := got[0]
	if s.Hook != "only hook" || s.Context != model.MissingContext || s.Punchline != model.MissingPunchline || s.Caption != model.MissingCaption {
		t.Fatalf("script = %+v", s)
	}
}

func TestParseScriptsRejectsUnusable(t *testing.T) {
	for _, content := range []string{"", "no json here", `{"scripts":[]}`, `[{}]`} {
		if _, err := parseScripts(content, Selection{}); err == nil {
			t.Errorf("parseScripts(%q) succeeded, want error", content)
		}
	}
	if _, err := parseScripts(`[]`, Selection{}); !errors.Is(err, errNoScripts) {
		t.Errorf("empty array err = %v, want errNoScripts", err)
	}
}

func TestParseScriptsUsedDatasetNeedsSelection(t *testing.T) {
	content := `[{"hook":"h","context":"c","punchline":"p","caption":"x","usedDataset":true}]`
	got, _ := parseScripts(content, Selection{})
	if got[0].UsedDataset {
		t.Fatal("usedDataset claimed without any selected items")
	}
	sel := Selection{Memes: []model.ContentItem{{Category: model.Meme, Text: "Brahmi face"}}}
	got, _ = parseScripts(content, sel)
	if !got[0].UsedDataset {
		t.Fatal("model flag ignored with selected items")
	}
}
