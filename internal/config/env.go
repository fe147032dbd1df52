package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"hermitbench/internal/spec"
)

// LookupEnv matches os.LookupEnv.
type LookupEnv func(key string) (string, bool)

const (
	EnvJudgeModel = "HERMITBENCH_JUDGE_MODEL"
	EnvHost       = "HOST"
	EnvPort       = "PORT"
)

// ApplyEnv overlays environment overrides on cfg.
func ApplyEnv(cfg *spec.Config, lookup LookupEnv) error {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	if value, ok := lookup(EnvJudgeModel); ok && strings.TrimSpace(value) != "" {
		cfg.Judge.Model = strings.TrimSpace(value)
	}
	if value, ok := lookup(EnvHost); ok && strings.TrimSpace(value) != "" {
		cfg.Server.Host = strings.TrimSpace(value)
	}
	if value, ok := lookup(EnvPort); ok && strings.TrimSpace(value) != "" {
		port, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("parse %s: %w", EnvPort, err)
		}
		cfg.Server.Port = port
	}
	return nil
}

// APIKey reads the provider key from the configured environment variable.
func APIKey(cfg spec.Config, lookup LookupEnv) (string, error) {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	name := cfg.Provider.APIKeyEnv
	if name == "" {
		name = defaultAPIKeyEnv(cfg.Provider.Kind)
	}
	value, _ := lookup(name)
	value = strings.TrimSpace(value)
	if value == "" {
		return "", fmt.Errorf("missing API key: set %s", name)
	}
	return value, nil
}
