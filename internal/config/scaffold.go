package config

import (
	"fmt"
	"os"
)

const defaultConfig = `provider:
  kind: openrouter
  base_url: "https://openrouter.ai/api/v1"
  api_key_env: OPENROUTER_API_KEY
  title: HermitBench

judge:
  model: "anthropic/claude-2.0"

defaults:
  temperature: 0.7
  top_p: 1.0
  max_turns: 10
  runs_per_model: 1
  task_delay_ms: 3000

prompts:
  path: ""
  watch: false

storage:
  driver: memory

server:
  host: "0.0.0.0"
  port: 8000

logging:
  level: info
  format: console

output_dir: results
`

// Scaffold writes a starter config file and refuses to overwrite one.
func Scaffold(path string) error {
	if path == "" {
		return fmt.Errorf("config path is required")
	}
	if info, err := os.Stat(path); err == nil {
		if info.IsDir() {
			return fmt.Errorf("config path %q is a directory", path)
		}
		return fmt.Errorf("config file already exists at %q", path)
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("stat config file: %w", err)
	}
	if err := os.WriteFile(path, []byte(defaultConfig), 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}
