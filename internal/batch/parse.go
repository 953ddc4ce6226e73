package batch

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rcliao/reelscript/internal/llm"
	"github.com/rcliao/reelscript/internal/model"
	"github.com/rcliao/reelscript/internal/textsim"
)

// errNoScripts means the response decoded but held nothing usable.
var errNoScripts = errors.New("no usable scripts in response")

type scriptJSON struct {
	Hook        string `json:"hook"`
	Context     string `json:"context"`
	Punchline   string `json:"punchline"`
	Caption     string `json:"caption"`
	UsedDataset *bool  `json:"usedDataset"`
}

// entryJSON also accepts the {"script": {...}} wrapping some models emit.
type entryJSON struct {
	scriptJSON
	Script *scriptJSON `json:"script"`
}

func (e entryJSON) flatten() scriptJSON {
	if e.Script != nil {
		return *e.Script
	}
	return e.scriptJSON
}

func (s scriptJSON) empty() bool {
	return strings.TrimSpace(s.Hook+s.Context+s.Punchline+s.Caption) == ""
}

// parseScripts decodes an LLM response into scripts. It accepts an object
// with a "scripts" array, a bare array, or a single script object. Missing
// fields get placeholders; entries with no fields at all are dropped.
func parseScripts(content string, sel Selection) ([]model.GeneratedScript, error) {
	var raw json.RawMessage
	if err := llm.DecodeJSON(content, &raw); err != nil {
		return nil, err
	}

	var entries []entryJSON
	switch trimmed := bytes.TrimSpace(raw); {
	case len(trimmed) > 0 && trimmed[0] == '[':
		if err := json.Unmarshal(trimmed, &entries); err != nil {
			return nil, fmt.Errorf("decode script array: %w", err)
		}
	default:
		var wrapper struct {
			Scripts []entryJSON `json:"scripts"`
		}
		if err := json.Unmarshal(trimmed, &wrapper); err != nil {
			return nil, fmt.Errorf("decode script object: %w", err)
		}
		entries = wrapper.Scripts
		if entries == nil {
			var single entryJSON
			if err := json.Unmarshal(trimmed, &single); err != nil {
				return nil, fmt.Errorf("decode script: %w", err)
			}
			entries = []entryJSON{single}
		}
	}

	scripts := make([]model.GeneratedScript, 0, len(entries))
	for _, e := range entries {
		s := e.flatten()
		if s.empty() {
			continue
		}
		gs := model.GeneratedScript{
			Hook:      s.Hook,
			Context:   s.Context,
			Punchline: s.Punchline,
			Caption:   s.Caption,
		}
		gs.UsedDataset = usesDataset(gs, sel)
		if s.UsedDataset != nil && *s.UsedDataset && sel.Any() {
			gs.UsedDataset = true
		}
		scripts = append(scripts, gs.WithPlaceholders())
	}
	if len(scripts) == 0 {
		return nil, fmt.Errorf("%w: %s", errNoScripts, llm.Snippet(content))
	}
	return scripts, nil
}

// usesDataset reports whether any selected item's text appears in the
// script, compared after normalization.
func usesDataset(s model.GeneratedScript, sel Selection) bool {
	body := textsim.Normalize(strings.Join([]string{s.Hook, s.Context, s.Punchline, s.Caption}, " "))
	for _, item := range sel.Items() {
		text := textsim.Normalize(item.Text)
		if text != "" && strings.Contains(body, text) {
			return true
		}
	}
	return false
}
