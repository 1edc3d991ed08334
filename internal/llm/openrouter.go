package llm

import (
	"context"
	"fmt"
	"net/http"
)

// ChatMessage is the structured response returned by chat-style providers.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func (m *ChatMessage) Text() string {
	return m.Content
}

// OpenRouter talks to any OpenAI-compatible chat completions endpoint.
type OpenRouter struct {
	baseURL     string
	apiKey      string
	model       string
	temperature *float64
	client      *http.Client
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Temperature *float64      `json:"temperature,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message ChatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (o *OpenRouter) Model() string {
	return o.model
}

func (o *OpenRouter) Complete(ctx context.Context, prompt string) (any, error) {
	req := chatRequest{
		Model:       o.model,
		Messages:    []ChatMessage{{Role: "user", Content: prompt}},
		Temperature: o.temperature,
	}
	headers := map[string]string{}
	if o.apiKey != "" {
		headers["Authorization"] = "Bearer " + o.apiKey
	}

	var resp chatResponse
	if err := postJSON(ctx, o.client, o.baseURL+"/chat/completions", headers, req, &resp); err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("provider error: %s", resp.Error.Message)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("response has no choices")
	}

	msg := resp.Choices[0].Message
	return &msg, nil
}
