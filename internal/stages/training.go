package stages

import (
	"context"
	"fmt"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/pondelion/mplm/internal/artifact"
	"github.com/pondelion/mplm/internal/models"
	"github.com/pondelion/mplm/internal/sandbox"
)

const defaultModelName = "lua_model"

// Training synthesizes classifier code from the dataset summary and runs it.
type Training struct {
	deps Deps
}

func NewTraining(d Deps) *Training {
	return &Training{deps: d.withDefaults()}
}

func (t *Training) Name() string { return "training" }

func (t *Training) Run(ctx context.Context, rc *models.RunContext) error {
	if rc.SummaryResult == nil {
		return &PreconditionError{Stage: t.Name(), Reason: "no dataset summary"}
	}
	log := stageLog(t.deps, t.Name(), rc)

	prompt, err := render(trainPrompt, map[string]string{
		"Summary":        rc.SummaryResult.SummaryText,
		"TargetColumn":   rc.TargetColumn,
		"TrainingErrors": errorHistory(rc.TrainingErrors),
	})
	if err != nil {
		return err
	}

	code, synthesized, result, err := attempt(ctx, t.deps, rc, prompt)
	if err != nil {
		if !synthesized {
			code = ""
		}
		rc.PreviousCode = &code
		log.WithError(err).Warn("training attempt failed")
		rc.Fail(&rc.TrainingErrors, err)
		return nil
	}

	rc.TrainingResult = result
	rc.Status = models.StatusOK
	log.WithFields(trainFields(result)).Info("model trained")
	return nil
}

// attempt synthesizes training code and runs it. synthesized reports whether
// code was obtained from the model before any failure.
func attempt(ctx context.Context, d Deps, rc *models.RunContext, prompt string) (code string, synthesized bool, result *models.TrainResult, err error) {
	code, err = synthesize(ctx, d.LLM, prompt)
	if err != nil {
		return "", false, nil, err
	}
	result, err = train(ctx, d, rc, code)
	return code, true, result, err
}

// train executes training code on a fresh split and collects its outputs.
func train(ctx context.Context, d Deps, rc *models.RunContext, code string) (*models.TrainResult, error) {
	trainSet, valSet, testSet := d.Split(rc.Dataset, rc.Seed)
	out, err := d.Sandbox.Execute(ctx, code,
		map[string]any{
			"df_train":      trainSet.Binding(),
			"df_val":        valSet.Binding(),
			"df_test":       testSet.Binding(),
			"target_column": rc.TargetColumn,
		},
		[]string{"model", "accuracy_val", "accuracy_test"},
		"model_name")
	if err != nil {
		return nil, err
	}

	accVal, err := number(out, "accuracy_val")
	if err != nil {
		return nil, err
	}
	accTest, err := number(out, "accuracy_test")
	if err != nil {
		return nil, err
	}

	result := &models.TrainResult{
		AccuracyVal:  accVal,
		AccuracyTest: accTest,
		Code:         code,
		Model:        out["model"],
		ModelName:    modelName(out),
		LLMName:      d.LLM.ModelName(),
	}

	if rc.ModelOutputPath != "" && d.Models != nil {
		path, err := d.Models.SaveModel(rc.ModelOutputPath, &artifact.Model{
			RunID: rc.RunID,
			Name:  result.ModelName,
			Model: result.Model,
			Code:  code,
		})
		if err != nil {
			return nil, fmt.Errorf("save model: %w", err)
		}
		result.ModelPath = path
	}
	return result, nil
}

// number reads a finite numeric output. NaN and infinities come from empty
// partitions or division by zero in generated code and count as failed runs.
func number(out map[string]any, name string) (float64, error) {
	var f float64
	switch v := out[name].(type) {
	case float64:
		f = v
	case int:
		f = float64(v)
	case int64:
		f = float64(v)
	default:
		return 0, fmt.Errorf("%s must be a number, got %T", name, out[name])
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, &sandbox.ExecutionError{
			Kind:    sandbox.KindRaised,
			Message: fmt.Sprintf("%s must be a finite number, got %v", name, f),
		}
	}
	return f, nil
}

func modelName(out map[string]any) string {
	if s, ok := out["model_name"].(string); ok && s != "" {
		return s
	}
	if m, ok := out["model"].(map[string]any); ok {
		if s, ok := m["name"].(string); ok && s != "" {
			return s
		}
	}
	return defaultModelName
}

func trainFields(r *models.TrainResult) logrus.Fields {
	return logrus.Fields{
		"model_name":    r.ModelName,
		"accuracy_val":  r.AccuracyVal,
		"accuracy_test": r.AccuracyTest,
	}
}
