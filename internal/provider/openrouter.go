package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"hermitbench/internal/bench"
)

// DefaultOpenRouterBaseURL is the default OpenRouter API base URL.
const DefaultOpenRouterBaseURL = "https://openrouter.ai/api/v1"

// OpenRouter implements Gateway for the OpenRouter API.
type OpenRouter struct {
	APIKey  string
	BaseURL string
	Referer string
	Title   string
	Client  HTTPDoer
}

// NewOpenRouter constructs an OpenRouter gateway with explicit settings.
func NewOpenRouter(apiKey, baseURL string, client HTTPDoer) (*OpenRouter, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("api key is required")
	}
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultOpenRouterBaseURL
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &OpenRouter{
		APIKey:  apiKey,
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  client,
	}, nil
}

// Complete sends the messages to OpenRouter and returns the first choice's content.
func (p *OpenRouter) Complete(ctx context.Context, model string, messages []bench.Message, params Params) (string, error) {
	if strings.TrimSpace(model) == "" {
		return "", fmt.Errorf("model is required")
	}
	requestBody := openRouterRequest{
		Model:       model,
		Messages:    buildOpenRouterMessages(messages),
		Temperature: params.Temperature,
		TopP:        params.TopP,
		MaxTokens:   params.MaxTokens,
	}
	var response openRouterResponse
	if err := p.do(ctx, http.MethodPost, "/chat/completions", requestBody, &response); err != nil {
		return "", err
	}
	if response.Error != nil {
		return "", response.Error.asStatusError()
	}
	if len(response.Choices) == 0 {
		return "", nil
	}
	return response.Choices[0].Message.Content, nil
}

// ListModels returns the models OpenRouter currently offers.
func (p *OpenRouter) ListModels(ctx context.Context) ([]ModelInfo, error) {
	var response openRouterModelList
	if err := p.do(ctx, http.MethodGet, "/models", nil, &response); err != nil {
		return nil, err
	}
	models := make([]ModelInfo, 0, len(response.Data))
	for _, item := range response.Data {
		pricing := Pricing{Prompt: string(item.Pricing.Prompt), Completion: string(item.Pricing.Completion)}
		models = append(models, ModelInfo{
			ID:            item.ID,
			Name:          item.Name,
			Description:   item.Description,
			ContextLength: item.ContextLength,
			Pricing:       pricing,
			PricePerToken: pricePerToken(pricing),
		})
	}
	return models, nil
}

func (p *OpenRouter) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, p.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.APIKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if p.Referer != "" {
		req.Header.Set("HTTP-Referer", p.Referer)
	}
	if p.Title != "" {
		req.Header.Set("X-Title", p.Title)
	}

	resp, err := p.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(resp.Body)
		return &StatusError{Provider: "openrouter", StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
