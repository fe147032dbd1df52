// Package spec defines the on-disk shape of hermitbench configuration files.
package spec

type Config struct {
	Provider  ProviderConfig `yaml:"provider" toml:"provider"`
	Judge     JudgeConfig    `yaml:"judge" toml:"judge"`
	Defaults  RunDefaults    `yaml:"defaults" toml:"defaults"`
	Prompts   PromptsConfig  `yaml:"prompts" toml:"prompts"`
	Storage   StorageConfig  `yaml:"storage" toml:"storage"`
	Server    ServerConfig   `yaml:"server" toml:"server"`
	Logging   LoggingConfig  `yaml:"logging" toml:"logging"`
	OutputDir string         `yaml:"output_dir" toml:"output_dir"`
}

type ProviderConfig struct {
	Kind      string `yaml:"kind" toml:"kind"`
	BaseURL   string `yaml:"base_url" toml:"base_url"`
	APIKeyEnv string `yaml:"api_key_env" toml:"api_key_env"`
	Referer   string `yaml:"referer" toml:"referer"`
	Title     string `yaml:"title" toml:"title"`
	// MaxAttempts bounds retries of transient provider errors.
	MaxAttempts int `yaml:"max_attempts" toml:"max_attempts"`
}

type JudgeConfig struct {
	Model string `yaml:"model" toml:"model"`
}

// RunDefaults are used when a request leaves a sampling field unset.
// Pointers distinguish an explicit zero from an absent value.
type RunDefaults struct {
	Temperature  *float64 `yaml:"temperature" toml:"temperature"`
	TopP         *float64 `yaml:"top_p" toml:"top_p"`
	MaxTurns     *int     `yaml:"max_turns" toml:"max_turns"`
	RunsPerModel *int     `yaml:"runs_per_model" toml:"runs_per_model"`
	TaskDelayMs  *int     `yaml:"task_delay_ms" toml:"task_delay_ms"`
}

type PromptsConfig struct {
	Path  string `yaml:"path" toml:"path"`
	Watch bool   `yaml:"watch" toml:"watch"`
}

type StorageConfig struct {
	Driver string `yaml:"driver" toml:"driver"`
	DSN    string `yaml:"dsn" toml:"dsn"`
	Path   string `yaml:"path" toml:"path"`
}

type ServerConfig struct {
	Host string `yaml:"host" toml:"host"`
	Port int    `yaml:"port" toml:"port"`
}

type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}
