package llm

import (
	"context"
	"net/http"
)

// Ollama uses the local generate endpoint, which answers with plain text.
type Ollama struct {
	baseURL     string
	model       string
	temperature *float64
	client      *http.Client
}

type generateRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	Stream  bool           `json:"stream"`
	Options map[string]any `json:"options,omitempty"`
}

type generateResponse struct {
	Response string `json:"response"`
}

func (o *Ollama) Model() string {
	return o.model
}

func (o *Ollama) Complete(ctx context.Context, prompt string) (any, error) {
	req := generateRequest{Model: o.model, Prompt: prompt}
	if o.temperature != nil {
		req.Options = map[string]any{"temperature": *o.temperature}
	}

	var resp generateResponse
	if err := postJSON(ctx, o.client, o.baseURL+"/api/generate", nil, req, &resp); err != nil {
		return nil, err
	}
	return resp.Response, nil
}
