package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizeStore(); err != nil {
		return err
	}
	c.normalizeLLM()
	c.normalizeGeneration()
	c.normalizeLog()
	return nil
}

func lookupEnv(dst *string, keys ...string) {
	for _, key := range keys {
		if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
			*dst = strings.TrimSpace(value)
			return
		}
	}
}

func (c *Config) normalizeStore() error {
	lookupEnv(&c.Store.Backend, "REELSCRIPT_STORE")
	lookupEnv(&c.Store.Path, "REELSCRIPT_DB")
	lookupEnv(&c.Store.Table, "DYNAMODB_TABLE")
	lookupEnv(&c.Store.Region, "AWS_REGION")
	lookupEnv(&c.Store.Endpoint, "DYNAMODB_ENDPOINT")

	c.Store.Backend = strings.ToLower(strings.TrimSpace(c.Store.Backend))
	if c.Store.Backend == "" {
		c.Store.Backend = BackendSQLite
	}
	if strings.TrimSpace(c.Store.Path) == "" {
		c.Store.Path = defaultDBPath
	}
	var err error
	if c.Store.Path, err = expandPath(c.Store.Path); err != nil {
		return fmt.Errorf("store.path: %w", err)
	}
	c.Store.Table = strings.TrimSpace(c.Store.Table)
	if c.Store.Table == "" {
		c.Store.Table = defaultTable
	}
	return nil
}

func (c *Config) normalizeLLM() {
	lookupEnv(&c.LLM.APIKey, "OPENAI_API_KEY")
	lookupEnv(&c.LLM.BaseURL, "OPENAI_BASE_URL")
	lookupEnv(&c.LLM.Model, "REELSCRIPT_MODEL")
	c.LLM.BaseURL = strings.TrimRight(strings.TrimSpace(c.LLM.BaseURL), "/")
	if strings.TrimSpace(c.LLM.Model) == "" {
		c.LLM.Model = Default().LLM.Model
	}
}

func (c *Config) normalizeGeneration() {
	c.Generation.CacheTTL = strings.TrimSpace(c.Generation.CacheTTL)
	if c.Generation.CacheTTL == "" {
		c.Generation.CacheTTL = Default().Generation.CacheTTL
	}
	c.Generation.DefaultGenre = strings.TrimSpace(c.Generation.DefaultGenre)
	if c.Generation.DefaultGenre == "" {
		c.Generation.DefaultGenre = Default().Generation.DefaultGenre
	}
}

func (c *Config) normalizeLog() {
	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}
