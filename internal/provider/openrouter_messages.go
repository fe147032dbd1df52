package provider

import (
	"encoding/json"
	"strings"

	"hermitbench/internal/bench"
)

// openRouterRequest is the JSON payload sent to OpenRouter.
type openRouterRequest struct {
	Model       string              `json:"model"`
	Messages    []openRouterMessage `json:"messages"`
	Temperature float64             `json:"temperature"`
	TopP        float64             `json:"top_p"`
	MaxTokens   int                 `json:"max_tokens,omitempty"`
}

// openRouterMessage represents a single OpenRouter chat message.
type openRouterMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openRouterResponse struct {
	Choices []struct {
		Message openRouterMessage `json:"message"`
	} `json:"choices"`
	Error *openRouterError `json:"error,omitempty"`
}

// openRouterError is the error object OpenRouter may embed in a 200 response.
type openRouterError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *openRouterError) asStatusError() *StatusError {
	code := e.Code
	if code == 0 {
		code = 502
	}
	return &StatusError{Provider: "openrouter", StatusCode: code, Body: e.Message}
}

type openRouterModelList struct {
	Data []struct {
		ID            string `json:"id"`
		Name          string `json:"name"`
		Description   string `json:"description"`
		ContextLength int    `json:"context_length"`
		Pricing       struct {
			Prompt     priceValue `json:"prompt"`
			Completion priceValue `json:"completion"`
		} `json:"pricing"`
	} `json:"data"`
}

// priceValue accepts prices encoded either as JSON strings or numbers.
type priceValue string

func (v *priceValue) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" {
		*v = ""
		return nil
	}
	if strings.HasPrefix(trimmed, `"`) {
		var text string
		if err := json.Unmarshal(data, &text); err != nil {
			return err
		}
		*v = priceValue(text)
		return nil
	}
	var number json.Number
	if err := json.Unmarshal(data, &number); err != nil {
		return err
	}
	*v = priceValue(number.String())
	return nil
}

// buildOpenRouterMessages converts conversation messages into OpenRouter payloads.
func buildOpenRouterMessages(messages []bench.Message) []openRouterMessage {
	out := make([]openRouterMessage, 0, len(messages))
	for _, msg := range sendable(messages) {
		out = append(out, openRouterMessage{Role: string(msg.Role), Content: msg.Content})
	}
	return out
}
