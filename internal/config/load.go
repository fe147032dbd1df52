package config

import (
	"errors"
	"fmt"
	"os"

	"hermitbench/internal/spec"
)

// Load reads, parses, normalizes, and validates a config file.
// Relative paths inside the file are resolved against its directory.
func Load(path string, lookup LookupEnv) (spec.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return spec.Config{}, fmt.Errorf("read config: %w", err)
	}
	cfg, err := spec.ParseFile(path, data)
	if err != nil {
		return spec.Config{}, err
	}
	cfg.Prompts.Path = ResolvePath(path, cfg.Prompts.Path)
	cfg.OutputDir = ResolvePath(path, cfg.OutputDir)
	cfg.Storage.Path = ResolvePath(path, cfg.Storage.Path)
	return finish(cfg, lookup)
}

// LoadOrDefault loads path, or the nearest config file when path is empty.
// With no config file anywhere, the defaults are used.
func LoadOrDefault(path string, lookup LookupEnv) (spec.Config, string, error) {
	if path != "" {
		cfg, err := Load(path, lookup)
		return cfg, path, err
	}
	found, err := FindConfigPath("")
	if errors.Is(err, ErrConfigNotFound) {
		cfg, err := finish(spec.Config{}, lookup)
		return cfg, "", err
	}
	if err != nil {
		return spec.Config{}, "", err
	}
	cfg, err := Load(found, lookup)
	return cfg, found, err
}

func finish(cfg spec.Config, lookup LookupEnv) (spec.Config, error) {
	if err := ApplyEnv(&cfg, lookup); err != nil {
		return spec.Config{}, err
	}
	Normalize(&cfg)
	if err := Validate(&cfg); err != nil {
		return spec.Config{}, err
	}
	return cfg, nil
}
