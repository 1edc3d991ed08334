package llm

import (
	"context"
	"errors"
)

var ErrScriptExhausted = errors.New("scripted provider has no responses left")

// Scripted replays a fixed sequence of responses. An error entry is returned as
// a call failure; any other entry is returned as the raw response.
type Scripted struct {
	model     string
	responses []any
	prompts   []string
}

func NewScripted(model string, responses ...any) *Scripted {
	return &Scripted{model: model, responses: responses}
}

func (s *Scripted) Model() string {
	return s.model
}

func (s *Scripted) Complete(ctx context.Context, prompt string) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.prompts = append(s.prompts, prompt)
	if len(s.prompts) > len(s.responses) {
		return nil, ErrScriptExhausted
	}

	r := s.responses[len(s.prompts)-1]
	if err, ok := r.(error); ok {
		return nil, err
	}
	return r, nil
}

// Prompts returns every prompt received so far.
func (s *Scripted) Prompts() []string {
	return s.prompts
}
