package config

const (
	defaultConfigPath = "~/.config/reelscript/config.toml"
	defaultDBPath     = "~/.reelscript/reelscript.db"

	BackendSQLite   = "sqlite"
	BackendDynamoDB = "dynamodb"

	defaultTable = "reelscript"
)

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Store: Store{
			Backend: BackendSQLite,
			Path:    defaultDBPath,
			Table:   defaultTable,
		},
		LLM: LLM{
			Model:          "gpt-4o-mini",
			TimeoutSeconds: 60,
		},
		Generation: Generation{
			CacheTTL:      "7d",
			DialogueLimit: 2,
			MemeLimit:     1,
			TrendLimit:    1,
			DefaultGenre:  "Comedy",
			BatchSize:     3,
		},
		Retry: Retry{
			MaxAttempts: 3,
			BaseDelayMS: 1000,
			MaxDelayMS:  8000,
		},
		Usage: Usage{
			InputCostPerMillion:  0.15,
			OutputCostPerMillion: 0.60,
			USDToINR:             84,
		},
		Log: Log{Level: "info"},
	}
}
