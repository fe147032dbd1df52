package config

import (
	"fmt"
	"net/url"
	"strings"

	"hermitbench/internal/provider"
	"hermitbench/internal/spec"
)

// Validate checks a normalized config and reports every problem at once.
func Validate(cfg *spec.Config) error {
	collector := &issueCollector{}
	validateProvider(cfg.Provider, collector.add)
	if strings.TrimSpace(cfg.Judge.Model) == "" {
		collector.add("judge.model", "is required")
	}
	validateDefaults(cfg.Defaults, collector.add)
	validateStorage(cfg.Storage, collector.add)
	if cfg.Prompts.Watch && strings.TrimSpace(cfg.Prompts.Path) == "" {
		collector.add("prompts.watch", "requires prompts.path")
	}
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		collector.add("server.port", fmt.Sprintf("must be between 1 and 65535, got %d", cfg.Server.Port))
	}
	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		collector.add("logging.level", fmt.Sprintf("unsupported level %q (expected debug|info|warn|error)", cfg.Logging.Level))
	}
	switch cfg.Logging.Format {
	case "json", "console":
	default:
		collector.add("logging.format", fmt.Sprintf("unsupported format %q (expected json|console)", cfg.Logging.Format))
	}
	if strings.TrimSpace(cfg.OutputDir) == "" {
		collector.add("output_dir", "is required")
	}
	return collector.result()
}

func validateProvider(cfg spec.ProviderConfig, add func(field, message string)) {
	switch cfg.Kind {
	case provider.KindOpenRouter:
		parsed, err := url.Parse(cfg.BaseURL)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			add("provider.base_url", fmt.Sprintf("must be an absolute URL, got %q", cfg.BaseURL))
		}
	case provider.KindGemini:
	default:
		add("provider.kind", fmt.Sprintf("unsupported provider %q (expected openrouter|gemini)", cfg.Kind))
	}
	if cfg.MaxAttempts < 1 {
		add("provider.max_attempts", "must be >= 1")
	}
}

func validateDefaults(cfg spec.RunDefaults, add func(field, message string)) {
	if cfg.Temperature != nil && (*cfg.Temperature < 0 || *cfg.Temperature > 2) {
		add("defaults.temperature", "must be between 0 and 2")
	}
	if cfg.TopP != nil && (*cfg.TopP <= 0 || *cfg.TopP > 1) {
		add("defaults.top_p", "must be in (0, 1]")
	}
	if cfg.MaxTurns != nil && *cfg.MaxTurns < 0 {
		add("defaults.max_turns", "must be >= 0")
	}
	if cfg.RunsPerModel != nil && *cfg.RunsPerModel < 1 {
		add("defaults.runs_per_model", "must be >= 1")
	}
	if cfg.TaskDelayMs != nil && *cfg.TaskDelayMs < 0 {
		add("defaults.task_delay_ms", "must be >= 0")
	}
}

func validateStorage(cfg spec.StorageConfig, add func(field, message string)) {
	switch cfg.Driver {
	case StorageMemory:
	case StorageDuckDB:
		if strings.TrimSpace(cfg.Path) == "" {
			add("storage.path", "is required for duckdb")
		}
	case StorageMySQL:
		if strings.TrimSpace(cfg.DSN) == "" {
			add("storage.dsn", "is required for mysql")
		}
	default:
		add("storage.driver", fmt.Sprintf("unsupported driver %q (expected memory|duckdb|mysql)", cfg.Driver))
	}
}
