package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"hermitbench/internal/config"
	"hermitbench/internal/engine"
	"hermitbench/internal/judge"
	"hermitbench/internal/logging"
	"hermitbench/internal/prompt"
	"hermitbench/internal/provider"
	"hermitbench/internal/spec"
	"hermitbench/internal/store"
	"hermitbench/internal/store/duckdb"
	"hermitbench/internal/store/gormstore"
	"hermitbench/internal/store/memory"
)

// Test seams.
var (
	lookupEnv  config.LookupEnv = os.LookupEnv
	newLogger                   = logging.New
	newGateway                  = defaultGateway
)

type rootOptions struct {
	configPath string
	logLevel   string
	stdout     io.Writer
	stderr     io.Writer
}

// app is the loaded configuration plus the process logger.
type app struct {
	cfg        spec.Config
	configPath string
	logger     *zap.Logger
	stdout     io.Writer
	stderr     io.Writer
}

func (o *rootOptions) loadConfig() (spec.Config, string, error) {
	cfg, path, err := config.LoadOrDefault(o.configPath, lookupEnv)
	if err != nil {
		return spec.Config{}, "", fmt.Errorf("load config: %w", err)
	}
	if o.logLevel != "" {
		cfg.Logging.Level = o.logLevel
	}
	return cfg, path, nil
}

func (o *rootOptions) load() (*app, error) {
	cfg, path, err := o.loadConfig()
	if err != nil {
		return nil, err
	}
	logger, err := newLogger(cfg.Logging)
	if err != nil {
		return nil, err
	}
	return &app{cfg: cfg, configPath: path, logger: logger, stdout: o.stdout, stderr: o.stderr}, nil
}

// logToFile swaps the logger for one writing under output_dir. The live UI owns the terminal.
func (a *app) logToFile(name string) (func(), error) {
	if err := os.MkdirAll(a.cfg.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	path := filepath.Join(a.cfg.OutputDir, name)
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	logger, err := logging.NewWriter(a.cfg.Logging, file)
	if err != nil {
		_ = file.Close()
		return nil, err
	}
	previous := a.logger
	a.logger = logger
	return func() {
		_ = logger.Sync()
		_ = file.Close()
		a.logger = previous
	}, nil
}

func (a *app) close() {
	_ = a.logger.Sync()
}

func defaultGateway(ctx context.Context, cfg spec.Config, logger *zap.Logger) (provider.Gateway, error) {
	key, err := config.APIKey(cfg, lookupEnv)
	if err != nil {
		return nil, err
	}
	return provider.New(ctx, provider.Options{
		Kind:    cfg.Provider.Kind,
		APIKey:  key,
		BaseURL: cfg.Provider.BaseURL,
		Referer: cfg.Provider.Referer,
		Title:   cfg.Provider.Title,
		Retry:   provider.RetryPolicy{MaxAttempts: cfg.Provider.MaxAttempts},
		Logger:  logger,
	})
}

// stack is the wired interaction pipeline.
type stack struct {
	gateway provider.Gateway
	prompts *prompt.Store
	judge   *judge.Scorer
	engine  *engine.Engine
}

func (a *app) buildStack(ctx context.Context, observer engine.TurnObserver) (stack, error) {
	gateway, err := newGateway(ctx, a.cfg, a.logger)
	if err != nil {
		return stack{}, err
	}
	// A broken prompt file is logged by Load and the built-in templates stay in use.
	prompts, _ := prompt.Load(a.cfg.Prompts.Path, a.logger)
	scorer, err := judge.New(judge.Config{Gateway: gateway, Model: a.cfg.Judge.Model, Prompts: prompts, Logger: a.logger})
	if err != nil {
		return stack{}, err
	}
	eng, err := engine.New(engine.Config{
		Gateway:   gateway,
		Judge:     scorer,
		Prompts:   prompts,
		Observer:  observer,
		Logger:    a.logger,
	})
	if err != nil {
		return stack{}, err
	}
	return stack{gateway: gateway, prompts: prompts, judge: scorer, engine: eng}, nil
}

func (a *app) openRepository(ctx context.Context) (store.BatchRepository, error) {
	storage := a.cfg.Storage
	switch storage.Driver {
	case config.StorageMemory:
		return memory.Open(storage.Path)
	case config.StorageDuckDB:
		if dir := filepath.Dir(storage.Path); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create storage dir: %w", err)
			}
		}
		return duckdb.Open(ctx, storage.Path)
	case config.StorageMySQL:
		return gormstore.Open(storage.DSN)
	}
	return nil, fmt.Errorf("unsupported storage driver %q", storage.Driver)
}
