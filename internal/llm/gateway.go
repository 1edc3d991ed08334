package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

var ErrUnsupportedResponse = errors.New("unsupported response format")

// Provider is a completion backend. Complete may return either a plain string
// or any value implementing Texter; the Gateway rejects everything else.
type Provider interface {
	Complete(ctx context.Context, prompt string) (any, error)
	Model() string
}

// Texter is the structured response shape: anything exposing its text content.
type Texter interface {
	Text() string
}

// SynthesisError wraps a failed gateway call or an unrecognised response.
type SynthesisError struct {
	Model string
	Err   error
}

func (e *SynthesisError) Error() string {
	return fmt.Sprintf("llm %s: %v", e.Model, e.Err)
}

func (e *SynthesisError) Unwrap() error {
	return e.Err
}

// Gateway turns a rendered prompt into response text.
type Gateway struct {
	provider Provider
	log      logrus.FieldLogger
}

func NewGateway(p Provider, log logrus.FieldLogger) *Gateway {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Gateway{provider: p, log: log}
}

func (g *Gateway) ModelName() string {
	return g.provider.Model()
}

func (g *Gateway) Invoke(ctx context.Context, prompt string) (string, error) {
	started := time.Now()
	raw, err := g.provider.Complete(ctx, prompt)
	fields := logrus.Fields{
		"model":        g.provider.Model(),
		"prompt_bytes": len(prompt),
		"elapsed":      time.Since(started).Round(time.Millisecond),
	}
	if err != nil {
		g.log.WithFields(fields).WithError(err).Warn("llm call failed")
		return "", &SynthesisError{Model: g.provider.Model(), Err: err}
	}

	text, err := responseText(raw)
	if err != nil {
		return "", &SynthesisError{Model: g.provider.Model(), Err: err}
	}

	fields["response_bytes"] = len(text)
	g.log.WithFields(fields).Debug("llm call finished")
	return text, nil
}

func responseText(raw any) (string, error) {
	switch r := raw.(type) {
	case string:
		return r, nil
	case Texter:
		return r.Text(), nil
	default:
		return "", fmt.Errorf("%w: %T", ErrUnsupportedResponse, raw)
	}
}
