package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/subosito/gotenv"
)

// Store selects and configures the document store backend.
type Store struct {
	Backend  string `toml:"backend"`
	Path     string `toml:"path"`
	Table    string `toml:"table"`
	Region   string `toml:"region"`
	Endpoint string `toml:"endpoint"`
}

// LLM contains the completion endpoint settings.
type LLM struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Generation tunes batch generation and caching.
type Generation struct {
	CacheTTL      string `toml:"cache_ttl"`
	DialogueLimit int    `toml:"dialogue_limit"`
	MemeLimit     int    `toml:"meme_limit"`
	TrendLimit    int    `toml:"trend_limit"`
	DefaultGenre  string `toml:"default_genre"`
	BatchSize     int    `toml:"batch_size"`
}

// Retry is the backoff policy for rate-limited completions.
type Retry struct {
	MaxAttempts int `toml:"max_attempts"`
	BaseDelayMS int `toml:"base_delay_ms"`
	MaxDelayMS  int `toml:"max_delay_ms"`
}

// Usage holds token pricing used for cost estimates.
type Usage struct {
	InputCostPerMillion  float64 `toml:"input_cost_per_million"`
	OutputCostPerMillion float64 `toml:"output_cost_per_million"`
	USDToINR             float64 `toml:"usd_to_inr"`
}

// Log configures log output.
type Log struct {
	Level string `toml:"level"`
}

// Config encapsulates all configuration values.
type Config struct {
	Store      Store      `toml:"store"`
	LLM        LLM        `toml:"llm"`
	Generation Generation `toml:"generation"`
	Retry      Retry      `toml:"retry"`
	Usage      Usage      `toml:"usage"`
	Log        Log        `toml:"log"`
}

// DefaultConfigPath returns the absolute path of the default config file.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load reads .env, locates and parses the config file, applies environment
// overrides and validates the result. It also reports the resolved path and
// whether that file existed.
func Load(path string) (*Config, string, bool, error) {
	LoadDotEnv(".env")
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}
	return &cfg, resolvedPath, exists, nil
}

// LoadDotEnv loads environment variables from path. Variables already set
// are kept. A missing file is ignored.
func LoadDotEnv(path string) {
	if err := gotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("could not load env file", slog.String("path", path), slog.String("error", err.Error()))
	}
}

func resolveConfigPath(path string) (string, bool, error) {
	if path == "" {
		path = os.Getenv("REELSCRIPT_CONFIG")
	}
	if path == "" {
		path = defaultConfigPath
	}
	expanded, err := expandPath(path)
	if err != nil {
		return "", false, err
	}
	info, err := os.Stat(expanded)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return expanded, false, nil
		}
		return "", false, fmt.Errorf("stat config: %w", err)
	}
	if info.IsDir() {
		return "", false, fmt.Errorf("config path %s is a directory", expanded)
	}
	return expanded, true, nil
}

// Sample renders cfg as TOML.
func Sample(cfg Config) (string, error) {
	data, err := toml.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("encode config: %w", err)
	}
	return string(data), nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	absolute, err := filepath.Abs(filepath.Clean(pathValue))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", pathValue, err)
	}
	return absolute, nil
}
