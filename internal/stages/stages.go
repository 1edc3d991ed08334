package stages

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/pondelion/mplm/internal/artifact"
	"github.com/pondelion/mplm/internal/codeblock"
	"github.com/pondelion/mplm/internal/dataset"
	"github.com/pondelion/mplm/internal/models"
)

// Lang is the fenced-block tag and runtime of all generated code.
const Lang = "lua"

const noError = "no error"

// Synthesizer turns a prompt into model output text.
type Synthesizer interface {
	Invoke(ctx context.Context, prompt string) (string, error)
	ModelName() string
}

// Executor runs generated code against named bindings.
type Executor interface {
	Execute(ctx context.Context, code string, inputs map[string]any, required []string, optional ...string) (map[string]any, error)
}

// Splitter partitions a dataset into train, validation and test tables.
type Splitter func(t *dataset.Table, seed int64) (train, val, test *dataset.Table)

type ModelSaver interface {
	SaveModel(path string, m *artifact.Model) (string, error)
}

// Deps are the collaborators shared by every stage.
type Deps struct {
	LLM     Synthesizer
	Sandbox Executor
	Split   Splitter
	Models  ModelSaver
	Log     logrus.FieldLogger
}

func (d Deps) withDefaults() Deps {
	if d.Split == nil {
		d.Split = dataset.Split
	}
	if d.Log == nil {
		d.Log = logrus.StandardLogger()
	}
	return d
}

// PreconditionError means a stage was invoked in a state the orchestrator
// should never produce. It is fatal and never retried.
type PreconditionError struct {
	Stage  string
	Reason string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("%s stage precondition violated: %s", e.Stage, e.Reason)
}

func stageLog(d Deps, stage string, rc *models.RunContext) logrus.FieldLogger {
	return d.Log.WithFields(logrus.Fields{
		"run_id":      rc.RunID,
		"stage":       stage,
		"retry_count": rc.RetryCount,
	})
}

// synthesize asks the model for code and extracts the fenced block.
func synthesize(ctx context.Context, llm Synthesizer, prompt string) (string, error) {
	text, err := llm.Invoke(ctx, prompt)
	if err != nil {
		return "", err
	}
	return codeblock.Extract(text, Lang)
}

func errorHistory(errs []string) string {
	if len(errs) == 0 {
		return noError
	}
	return strings.Join(errs, "\n")
}
