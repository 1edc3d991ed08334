package stages

import (
	"context"

	"github.com/pondelion/mplm/internal/models"
)

// Repair asks the model to fix the last failing training code, feeding it the
// accumulated training errors.
type Repair struct {
	deps Deps
}

func NewRepair(d Deps) *Repair {
	return &Repair{deps: d.withDefaults()}
}

func (r *Repair) Name() string { return "repair" }

func (r *Repair) Run(ctx context.Context, rc *models.RunContext) error {
	switch {
	case rc.PreviousCode == nil:
		return &PreconditionError{Stage: r.Name(), Reason: "no previous code"}
	case len(rc.TrainingErrors) == 0:
		return &PreconditionError{Stage: r.Name(), Reason: "no training errors to repair"}
	}
	log := stageLog(r.deps, r.Name(), rc)

	prompt, err := render(repairPrompt, map[string]string{
		"PreviousCode":  *rc.PreviousCode,
		"PreviousError": errorHistory(rc.TrainingErrors),
		"TargetColumn":  rc.TargetColumn,
	})
	if err != nil {
		return err
	}

	code, synthesized, result, err := attempt(ctx, r.deps, rc, prompt)
	if err != nil {
		if synthesized {
			rc.PreviousCode = &code
		}
		log.WithError(err).Warn("repair attempt failed")
		rc.Fail(&rc.TrainingErrors, err)
		return nil
	}

	rc.FixedCode = &code
	rc.TrainingResult = result
	rc.Status = models.StatusOK
	log.WithFields(trainFields(result)).Info("training code repaired")
	return nil
}
