package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"hermitbench/internal/bench"
)

// geminiModels is the part of the genai client the gateway uses.
type geminiModels interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
	List(ctx context.Context, config *genai.ListModelsConfig) (genai.Page[genai.Model], error)
}

// Gemini implements Gateway for the Google Gemini API.
type Gemini struct {
	models geminiModels
}

// NewGemini creates a Gemini gateway backed by the genai SDK.
func NewGemini(ctx context.Context, apiKey string) (*Gemini, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("api key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &Gemini{models: client.Models}, nil
}

// Complete maps system messages onto the system instruction and assistant turns onto the model role.
func (g *Gemini) Complete(ctx context.Context, model string, messages []bench.Message, params Params) (string, error) {
	if strings.TrimSpace(model) == "" {
		return "", fmt.Errorf("model is required")
	}
	contents, system := buildGeminiContents(messages)
	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(params.Temperature)),
		TopP:        genai.Ptr(float32(params.TopP)),
	}
	if params.MaxTokens > 0 {
		config.MaxOutputTokens = int32(params.MaxTokens)
	}
	if system != "" {
		config.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}
	resp, err := g.models.GenerateContent(ctx, strings.TrimPrefix(model, "google/"), contents, config)
	if err != nil {
		return "", classifyGeminiError(err)
	}
	if resp == nil {
		return "", nil
	}
	return resp.Text(), nil
}

// ListModels pages through every model the API key can see.
func (g *Gemini) ListModels(ctx context.Context) ([]ModelInfo, error) {
	page, err := g.models.List(ctx, &genai.ListModelsConfig{})
	var models []ModelInfo
	for {
		if errors.Is(err, genai.ErrPageDone) {
			break
		}
		if err != nil {
			return nil, classifyGeminiError(err)
		}
		for _, item := range page.Items {
			if item == nil {
				continue
			}
			models = append(models, ModelInfo{
				ID:            strings.TrimPrefix(item.Name, "models/"),
				Name:          item.DisplayName,
				Description:   item.Description,
				ContextLength: int(item.InputTokenLimit),
				PricePerToken: unknownPrice,
			})
		}
		if page.NextPageToken == "" {
			break
		}
		page, err = page.Next(ctx)
	}
	return models, nil
}

func buildGeminiContents(messages []bench.Message) ([]*genai.Content, string) {
	var system []string
	contents := make([]*genai.Content, 0, len(messages))
	for _, msg := range sendable(messages) {
		switch msg.Role {
		case bench.RoleSystem:
			system = append(system, msg.Content)
		case bench.RoleAssistant:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleUser))
		}
	}
	return contents, strings.Join(system, "\n\n")
}

// classifyGeminiError converts SDK API errors into status errors so retries treat both providers alike.
func classifyGeminiError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &StatusError{Provider: "gemini", StatusCode: apiErr.Code, Body: apiErr.Message}
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return &StatusError{Provider: "gemini", StatusCode: apiErrPtr.Code, Body: apiErrPtr.Message}
	}
	return err
}
