package stages

import (
	"context"
	"fmt"

	"github.com/pondelion/mplm/internal/dataset"
	"github.com/pondelion/mplm/internal/models"
)

// Summary produces a textual description of the dataset, either with the
// deterministic formatter or by running synthesized code.
type Summary struct {
	deps Deps
}

func NewSummary(d Deps) *Summary {
	return &Summary{deps: d.withDefaults()}
}

func (s *Summary) Name() string { return "summary" }

func (s *Summary) Run(ctx context.Context, rc *models.RunContext) error {
	if rc.Dataset == nil {
		return &PreconditionError{Stage: s.Name(), Reason: "no dataset"}
	}
	log := stageLog(s.deps, s.Name(), rc)

	var (
		result *models.SummaryResult
		err    error
	)
	if rc.UseFixedSummary {
		result = &models.SummaryResult{SummaryText: dataset.FixedSummary(rc.Dataset)}
	} else {
		result, err = s.synthesize(ctx, rc)
	}
	if err != nil {
		log.WithError(err).Warn("summary attempt failed")
		rc.Fail(&rc.SummaryErrors, err)
		return nil
	}

	rc.SummaryResult = result
	rc.SummaryErrors = nil
	rc.RetryCount = 0
	rc.Status = models.StatusOK
	log.WithField("fixed", rc.UseFixedSummary).Info("dataset summarized")
	return nil
}

func (s *Summary) synthesize(ctx context.Context, rc *models.RunContext) (*models.SummaryResult, error) {
	prompt, err := render(summaryPrompt, map[string]string{
		"Metadata":       rc.Dataset.Metadata().String(),
		"SummaryErrors":  errorHistory(rc.SummaryErrors),
		"TrainingErrors": errorHistory(rc.TrainingErrors),
	})
	if err != nil {
		return nil, err
	}
	code, err := synthesize(ctx, s.deps.LLM, prompt)
	if err != nil {
		return nil, err
	}
	out, err := s.deps.Sandbox.Execute(ctx, code,
		map[string]any{"df": rc.Dataset.Binding()},
		[]string{"summary_text"})
	if err != nil {
		return nil, err
	}
	text, ok := out["summary_text"].(string)
	if !ok {
		return nil, fmt.Errorf("summary_text must be a string, got %T", out["summary_text"])
	}
	return &models.SummaryResult{SummaryText: text, SummaryCode: &code}, nil
}
