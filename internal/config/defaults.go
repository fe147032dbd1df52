package config

import (
	"path/filepath"
	"strings"

	"hermitbench/internal/provider"
	"hermitbench/internal/spec"
)

const (
	DefaultBaseURL      = "https://openrouter.ai/api/v1"
	DefaultJudgeModel   = "anthropic/claude-2.0"
	DefaultTemperature  = 0.7
	DefaultTopP         = 1.0
	DefaultMaxTurns     = 10
	DefaultRunsPerModel = 1
	DefaultTaskDelayMs  = 3000
	DefaultHost         = "0.0.0.0"
	DefaultPort         = 8000
	DefaultOutputDir    = "results"
	DefaultMaxAttempts  = 3
	DefaultDuckDBFile   = "hermitbench.duckdb"

	StorageMemory = "memory"
	StorageDuckDB = "duckdb"
	StorageMySQL  = "mysql"
)

// Default returns a config with every default filled in.
func Default() spec.Config {
	cfg := spec.Config{}
	Normalize(&cfg)
	return cfg
}

// Normalize fills unset fields with defaults and canonicalizes enum values.
func Normalize(cfg *spec.Config) {
	cfg.Provider.Kind = strings.ToLower(strings.TrimSpace(cfg.Provider.Kind))
	if cfg.Provider.Kind == "" {
		cfg.Provider.Kind = provider.KindOpenRouter
	}
	if cfg.Provider.BaseURL == "" && cfg.Provider.Kind == provider.KindOpenRouter {
		cfg.Provider.BaseURL = DefaultBaseURL
	}
	if cfg.Provider.APIKeyEnv == "" {
		cfg.Provider.APIKeyEnv = defaultAPIKeyEnv(cfg.Provider.Kind)
	}
	if cfg.Provider.MaxAttempts == 0 {
		cfg.Provider.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.Judge.Model == "" {
		cfg.Judge.Model = DefaultJudgeModel
	}

	setFloat(&cfg.Defaults.Temperature, DefaultTemperature)
	setFloat(&cfg.Defaults.TopP, DefaultTopP)
	setInt(&cfg.Defaults.MaxTurns, DefaultMaxTurns)
	setInt(&cfg.Defaults.RunsPerModel, DefaultRunsPerModel)
	setInt(&cfg.Defaults.TaskDelayMs, DefaultTaskDelayMs)

	if cfg.OutputDir == "" {
		cfg.OutputDir = DefaultOutputDir
	}
	cfg.Storage.Driver = strings.ToLower(strings.TrimSpace(cfg.Storage.Driver))
	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = StorageMemory
	}
	if cfg.Storage.Driver == StorageDuckDB && cfg.Storage.Path == "" {
		cfg.Storage.Path = filepath.Join(cfg.OutputDir, DefaultDuckDBFile)
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = DefaultHost
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultPort
	}
	cfg.Logging.Level = strings.ToLower(strings.TrimSpace(cfg.Logging.Level))
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	cfg.Logging.Format = strings.ToLower(strings.TrimSpace(cfg.Logging.Format))
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "console"
	}
}

func defaultAPIKeyEnv(kind string) string {
	if kind == provider.KindGemini {
		return "GEMINI_API_KEY"
	}
	return "OPENROUTER_API_KEY"
}

func setFloat(field **float64, value float64) {
	if *field == nil {
		*field = &value
	}
}

func setInt(field **int, value int) {
	if *field == nil {
		*field = &value
	}
}
