package model

import (
	"strings"
	"time"
)

// Placeholders substituted for missing script fields.
const (
	MissingHook      = "No hook generated"
	MissingContext   = "No context generated"
	MissingPunchline = "No punchline generated"
	MissingCaption   = "No caption generated"
)

// GeneratedScript is one candidate reel script.
type GeneratedScript struct {
	Hook        string `json:"hook"`
	Context     string `json:"context"`
	Punchline   string `json:"punchline"`
	Caption     string `json:"caption"`
	UsedDataset bool   `json:"usedDataset"`
	Error       string `json:"error,omitempty"`
}

// Complete reports whether all four text fields are non-empty.
func (s GeneratedScript) Complete() bool {
	return strings.TrimSpace(s.Hook) != "" &&
		strings.TrimSpace(s.Context) != "" &&
		strings.TrimSpace(s.Punchline) != "" &&
		strings.TrimSpace(s.Caption) != ""
}

// WithPlaceholders fills empty fields with placeholder text.
func (s GeneratedScript) WithPlaceholders() GeneratedScript {
	if strings.TrimSpace(s.Hook) == "" {
		s.Hook = MissingHook
	}
	if strings.TrimSpace(s.Context) == "" {
		s.Context = MissingContext
	}
	if strings.TrimSpace(s.Punchline) == "" {
		s.Punchline = MissingPunchline
	}
	if strings.TrimSpace(s.Caption) == "" {
		s.Caption = MissingCaption
	}
	return s
}

// ErrorScript is the sentinel returned when every generation path failed.
func ErrorScript() GeneratedScript {
	return GeneratedScript{
		Hook:      "Error generating script. Please try again.",
		Context:   "There was a technical issue.",
		Punchline: "System error occurred.",
		Caption:   "Oops! Something went wrong 😔",
		Error:     "generation_failed",
	}
}

// BatchKey identifies a cached batch. Filter is the genre/tone the batch was
// generated for.
type BatchKey struct {
	Topic  string `json:"topic"`
	Filter string `json:"filter"`
}

// CachedBatch is a persisted batch of scripts for one key.
type CachedBatch struct {
	ID        string            `json:"id"`
	Key       BatchKey          `json:"key"`
	Scripts   []GeneratedScript `json:"batch"`
	CreatedAt time.Time         `json:"createdAt"`
	ExpiresAt time.Time         `json:"expiresAt"`
}

// Expired reports whether the batch is past its expiry at now.
func (b CachedBatch) Expired(now time.Time) bool {
	return !b.ExpiresAt.After(now)
}

// Settings holds generator switches editable by admins.
type Settings struct {
	UseAI     bool      `json:"useAI"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// DefaultSettings is used when no settings were persisted.
func DefaultSettings() Settings {
	return Settings{UseAI: true}
}

// Metrics are the generation counters kept in analytics/metrics.
type Metrics struct {
	ScriptsGenerated int       `json:"scriptsGenerated"`
	AIModeUsage      int       `json:"aiModeUsage"`
	RuleModeUsage    int       `json:"ruleModeUsage"`
	DatasetHits      int       `json:"datasetHits"`
	DatasetMisses    int       `json:"datasetMisses"`
	LastUpdated      time.Time `json:"lastUpdated"`
}

// DatasetInfo summarizes a persisted dataset.
type DatasetInfo struct {
	Category      Category  `json:"category"`
	Count         int       `json:"count"`
	UpdatedAt     time.Time `json:"updatedAt"`
	LastMergeMode string    `json:"lastMergeMode,omitempty"`
}
