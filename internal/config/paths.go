package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Config file names searched by FindConfigPath, in priority order.
var ConfigFileNames = []string{"hermitbench.yml", "hermitbench.yaml", "hermitbench.toml"}

// ErrConfigNotFound is returned when no config file exists in the search path.
var ErrConfigNotFound = errors.New("config file not found")

// FindConfigPath searches upward from a directory for a config file.
func FindConfigPath(startDir string) (string, error) {
	dir := strings.TrimSpace(startDir)
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("get working directory: %w", err)
		}
		dir = wd
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolve start directory: %w", err)
	}
	dir = abs

	for {
		for _, name := range ConfigFileNames {
			configPath := filepath.Join(dir, name)
			info, err := os.Stat(configPath)
			if err == nil {
				if info.IsDir() {
					return "", fmt.Errorf("config path %q is a directory", configPath)
				}
				return configPath, nil
			}
			if !os.IsNotExist(err) {
				return "", fmt.Errorf("stat config path %q: %w", configPath, err)
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("%w: no %s in %s or parent directories", ErrConfigNotFound, ConfigFileNames[0], abs)
		}
		dir = parent
	}
}

// ResolvePath makes a relative path in the config relative to the config file.
func ResolvePath(configPath, value string) string {
	if value == "" || filepath.IsAbs(value) || configPath == "" {
		return value
	}
	return filepath.Join(filepath.Dir(configPath), value)
}
