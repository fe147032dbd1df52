package api

import (
	"fmt"
	"time"

	"hermitbench/internal/engine"
	"hermitbench/internal/runner"
)

type runRequest struct {
	Model       string   `json:"model_name" binding:"required"`
	Temperature *float64 `json:"temperature"`
	TopP        *float64 `json:"top_p"`
	MaxTurns    *int     `json:"max_turns"`
}

func (r runRequest) params(d Defaults) (engine.RunParams, error) {
	params := engine.RunParams{
		Model:       r.Model,
		Temperature: valueOr(r.Temperature, d.Temperature),
		TopP:        valueOr(r.TopP, d.TopP),
		MaxTurns:    valueOr(r.MaxTurns, d.MaxTurns),
	}
	if err := checkSampling(params.Temperature, params.TopP, params.MaxTurns); err != nil {
		return engine.RunParams{}, err
	}
	return params, nil
}

type batchRequest struct {
	Models       []string `json:"models" binding:"required,min=1"`
	RunsPerModel *int     `json:"num_runs_per_model"`
	Temperature  *float64 `json:"temperature"`
	TopP         *float64 `json:"top_p"`
	MaxTurns     *int     `json:"max_turns"`
	TaskDelayMs  *int     `json:"task_delay_ms"`
	PersonaCards bool     `json:"persona_cards"`
}

func (r batchRequest) request(d Defaults) (runner.BatchRequest, error) {
	req := runner.BatchRequest{
		Models:       r.Models,
		RunsPerModel: valueOr(r.RunsPerModel, d.RunsPerModel),
		Temperature:  valueOr(r.Temperature, d.Temperature),
		TopP:         valueOr(r.TopP, d.TopP),
		MaxTurns:     valueOr(r.MaxTurns, d.MaxTurns),
		TaskDelay:    time.Duration(valueOr(r.TaskDelayMs, d.TaskDelayMs)) * time.Millisecond,
		PersonaCards: r.PersonaCards,
	}
	if err := checkSampling(req.Temperature, req.TopP, req.MaxTurns); err != nil {
		return runner.BatchRequest{}, err
	}
	if err := req.Validate(); err != nil {
		return runner.BatchRequest{}, err
	}
	return req, nil
}

func checkSampling(temperature, topP float64, maxTurns int) error {
	if temperature < 0 || temperature > 2 {
		return fmt.Errorf("temperature must be between 0 and 2")
	}
	if topP <= 0 || topP > 1 {
		return fmt.Errorf("top_p must be in (0, 1]")
	}
	if maxTurns < 0 {
		return fmt.Errorf("max_turns must not be negative")
	}
	return nil
}

func valueOr[T any](value *T, fallback T) T {
	if value == nil {
		return fallback
	}
	return *value
}
