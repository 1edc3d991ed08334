package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	ProviderOpenRouter = "openrouter"
	ProviderOllama     = "ollama"

	DefaultOpenRouterURL = "https://openrouter.ai/api/v1"
	DefaultOllamaURL     = "http://localhost:11434"
	DefaultTimeout       = 5 * time.Minute
)

// Settings selects and configures a provider.
type Settings struct {
	Provider    string
	Model       string
	APIKey      string
	BaseURL     string
	Temperature *float64
	Timeout     time.Duration
}

// NewProvider builds the provider named in s.
func NewProvider(s Settings) (Provider, error) {
	if s.Model == "" {
		return nil, fmt.Errorf("llm model name is not set")
	}
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	client := &http.Client{Timeout: timeout}

	switch strings.ToLower(s.Provider) {
	case "", ProviderOpenRouter, "openai":
		base := s.BaseURL
		if base == "" {
			base = DefaultOpenRouterURL
		}
		return &OpenRouter{
			baseURL:     strings.TrimRight(base, "/"),
			apiKey:      s.APIKey,
			model:       s.Model,
			temperature: s.Temperature,
			client:      client,
		}, nil
	case ProviderOllama, "local":
		base := s.BaseURL
		if base == "" {
			base = DefaultOllamaURL
		}
		return &Ollama{
			baseURL:     strings.TrimRight(base, "/"),
			model:       s.Model,
			temperature: s.Temperature,
			client:      client,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", s.Provider)
	}
}

func postJSON(ctx context.Context, client *http.Client, url string, headers map[string]string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d: %s", resp.StatusCode, truncate(string(payload), 300))
	}

	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}
