package orchestrator

import (
	"context"
	"strings"
	"testing"

	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pondelion/mplm/internal/dataset"
	"github.com/pondelion/mplm/internal/llm"
	"github.com/pondelion/mplm/internal/models"
	"github.com/pondelion/mplm/internal/sandbox"
	"github.com/pondelion/mplm/internal/stages"
)

const thresholdCode = "```lua" + `
local best, bestAcc = 0, -1
local function score(df, cut)
  if df.n == 0 then return 0 end
  local hit = 0
  for _, row in ipairs(df.rows) do
    local pred = 0
    if row.x > cut then pred = 1 end
    if pred == row[target_column] then hit = hit + 1 end
  end
  return hit / df.n
end
for _, row in ipairs(df_train.rows) do
  local acc = score(df_train, row.x)
  if acc > bestAcc then best, bestAcc = row.x, acc end
end
model = {name = "threshold", cut = best}
accuracy_val = score(df_val, best)
accuracy_test = score(df_test, best)
` + "```"

func TestRunWithRealStages(t *testing.T) {
	logger, _ := logtest.NewNullLogger()
	ds, err := dataset.ReadCSV(strings.NewReader(`x,y
1,0
2,0
3,0
4,0
5,0
6,1
7,1
8,1
9,1
10,1
`))
	require.NoError(t, err)

	provider := llm.NewScripted("scripted-model",
		"```lua\nsummary_text = 'rows: ' .. df.n\n```",
		"```lua\nmodel = {}\naccuracy_val = df_val.rows[1].nope.x\n```",
		thresholdCode,
	)
	deps := stages.Deps{
		LLM:     llm.NewGateway(provider, logger),
		Sandbox: sandbox.New(sandbox.WithLogger(logger)),
		Log:     logger,
	}
	orch, err := New(map[State]Stage{
		StateSummary:  stages.NewSummary(deps),
		StateTraining: stages.NewTraining(deps),
		StateRepair:   stages.NewRepair(deps),
	}, 3, WithLogger(logger))
	require.NoError(t, err)

	rc := models.NewRunContext(ds, "y")
	rc.Seed = 7
	out, err := orch.Run(context.Background(), rc)
	require.NoError(t, err)

	require.True(t, out.Succeeded(), "attempts: %+v", out.Attempts)
	assert.Equal(t, "rows: 10", rc.SummaryResult.SummaryText)
	require.Len(t, rc.TrainingErrors, 1)
	assert.Contains(t, rc.TrainingErrors[0], "Execution failed")
	require.NotNil(t, rc.FixedCode)
	assert.Equal(t, "threshold", rc.TrainingResult.ModelName)
	assert.Equal(t, "scripted-model", rc.TrainingResult.LLMName)
	assert.Equal(t, 1, rc.RetryCount)
	assert.Len(t, provider.Prompts(), 3)
	assert.Contains(t, provider.Prompts()[2], "DO NOT REPEAT THIS ERROR")
}
