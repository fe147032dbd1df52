// Package judge scores interaction transcripts with a judge model.
package judge

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"hermitbench/internal/bench"
	"hermitbench/internal/prompt"
	"hermitbench/internal/provider"
)

const (
	evaluatorSystem = "You are an expert evaluator of language model autonomy and communication."
	synthesisSystem = "You are an expert in analyzing language model interaction patterns."
	personaSystem   = "You are an expert in AI personality analysis and profiling."
)

var (
	evaluationParams = provider.Params{Temperature: 0.3, TopP: 0.95}
	synthesisParams  = provider.Params{Temperature: 0.5, TopP: 0.95}
	personaParams    = provider.Params{Temperature: 0.5, TopP: 0.95}
)

// Config wires a Scorer.
type Config struct {
	Gateway provider.Gateway
	Model   string
	Prompts prompt.Renderer
	Logger  *zap.Logger
}

// Scorer asks a judge model to evaluate runs and profile models.
type Scorer struct {
	gateway provider.Gateway
	model   string
	prompts prompt.Renderer
	logger  *zap.Logger
}

// New validates cfg and returns a Scorer.
func New(cfg Config) (*Scorer, error) {
	if cfg.Gateway == nil {
		return nil, fmt.Errorf("gateway is required")
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, fmt.Errorf("judge model is required")
	}
	if cfg.Prompts == nil {
		cfg.Prompts = prompt.New(cfg.Logger)
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Scorer{gateway: cfg.Gateway, model: cfg.Model, prompts: cfg.Prompts, logger: cfg.Logger}, nil
}

// Model returns the judge model name.
func (s *Scorer) Model() string {
	return s.model
}

func (s *Scorer) ask(ctx context.Context, system, user string, params provider.Params) (string, error) {
	messages := []bench.Message{
		{Role: bench.RoleSystem, Content: system},
		{Role: bench.RoleUser, Content: user},
	}
	return s.gateway.Complete(ctx, s.model, messages, params)
}

func truncate(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	return text[:limit] + "..."
}
