package sandbox

import (
	"context"
	"errors"
	"testing"
	"time"

	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestExecutor(t *testing.T, opts ...Option) (*Executor, *logtest.Hook) {
	t.Helper()
	logger, hook := logtest.NewNullLogger()
	return New(append([]Option{WithLogger(logger)}, opts...)...), hook
}

func requireExecErr(t *testing.T, err error, kind ErrorKind) *ExecutionError {
	t.Helper()
	require.Error(t, err)
	var execErr *ExecutionError
	require.True(t, errors.As(err, &execErr), "want *ExecutionError, got %T", err)
	assert.Equal(t, kind, execErr.Kind)
	return execErr
}

func TestExecuteReadsRequiredOutputs(t *testing.T) {
	e, _ := newTestExecutor(t)
	inputs := map[string]any{
		"df": map[string]any{
			"rows": []any{
				map[string]any{"age": 10.0},
				map[string]any{"age": 30.0},
			},
		},
	}
	code := `
local total = 0
for _, row in ipairs(df.rows) do total = total + row.age end
summary_text = "rows=" .. #df.rows .. " mean_age=" .. (total / #df.rows)
`
	out, err := e.Execute(context.Background(), code, inputs, []string{"summary_text"})
	require.NoError(t, err)
	assert.Equal(t, "rows=2 mean_age=20", out["summary_text"])
}

func TestExecuteDeterministic(t *testing.T) {
	e, _ := newTestExecutor(t)
	inputs := map[string]any{"xs": []any{3.0, 1.0, 2.0}}
	code := `table.sort(xs); result = table.concat(xs, ",")`

	first, err := e.Execute(context.Background(), code, inputs, []string{"result"})
	require.NoError(t, err)
	second, err := e.Execute(context.Background(), code, inputs, []string{"result"})
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, "1,2,3", first["result"])
}

func TestExecuteMissingOutput(t *testing.T) {
	e, _ := newTestExecutor(t)

	out, err := e.Execute(context.Background(), "x = 1", nil, []string{"summary_text"})
	assert.Nil(t, out)
	execErr := requireExecErr(t, err, KindMissingOutput)
	assert.Equal(t, "summary_text", execErr.Output)
	assert.Contains(t, execErr.Error(), "summary_text")
}

func TestExecuteLocalIsNotAnOutput(t *testing.T) {
	e, _ := newTestExecutor(t)

	_, err := e.Execute(context.Background(), "local model = {}", nil, []string{"model"})
	requireExecErr(t, err, KindMissingOutput)
}

func TestExecuteRaisedError(t *testing.T) {
	e, _ := newTestExecutor(t)

	_, err := e.Execute(context.Background(), `error("boom")`, nil, []string{"x"})
	execErr := requireExecErr(t, err, KindRaised)
	assert.Contains(t, execErr.Message, "boom")
	assert.NotContains(t, execErr.Message, "stack traceback")
}

func TestExecuteSyntaxError(t *testing.T) {
	e, _ := newTestExecutor(t)

	_, err := e.Execute(context.Background(), `this is not lua`, nil, []string{"x"})
	requireExecErr(t, err, KindRaised)
}

func TestExecuteRuntimeTypeError(t *testing.T) {
	e, _ := newTestExecutor(t)

	_, err := e.Execute(context.Background(), `x = df.missing.field`, map[string]any{"df": map[string]any{}}, []string{"x"})
	requireExecErr(t, err, KindRaised)
}

func TestExecuteTimeout(t *testing.T) {
	e, _ := newTestExecutor(t, WithTimeout(50*time.Millisecond))

	start := time.Now()
	_, err := e.Execute(context.Background(), `while true do end`, nil, []string{"x"})
	requireExecErr(t, err, KindTimeout)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestExecuteCanceled(t *testing.T) {
	e, _ := newTestExecutor(t, WithTimeout(0))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.Execute(ctx, `while true do end`, nil, []string{"x"})
	requireExecErr(t, err, KindCanceled)
}

func TestExecuteInputsDoNotEscape(t *testing.T) {
	e, _ := newTestExecutor(t)
	row := map[string]any{"age": 10.0}
	inputs := map[string]any{"df": map[string]any{"rows": []any{row}}}

	_, err := e.Execute(context.Background(), `df.rows[1].age = 99; df.rows[2] = {}; done = true`, inputs, []string{"done"})
	require.NoError(t, err)

	assert.Equal(t, 10.0, row["age"])
	assert.Len(t, inputs["df"].(map[string]any)["rows"], 1)
}

func TestExecuteFreshStatePerCall(t *testing.T) {
	e, _ := newTestExecutor(t)

	_, err := e.Execute(context.Background(), `leaked = 1`, nil, nil)
	require.NoError(t, err)

	_, err = e.Execute(context.Background(), `x = 1`, nil, []string{"leaked"})
	requireExecErr(t, err, KindMissingOutput)
}

func TestExecuteUnsafeFunctionsRemoved(t *testing.T) {
	e, _ := newTestExecutor(t)

	for _, code := range []string{
		`dofile("/etc/passwd")`,
		`loadstring("x = 1")()`,
		`print("hi")`,
		`math.random()`,
		`os.exit(1)`,
		`io.open("/tmp/x", "w")`,
		`require("os")`,
	} {
		_, err := e.Execute(context.Background(), code, nil, nil)
		requireExecErr(t, err, KindRaised)
	}
}

func TestExecuteSafeLibsAvailable(t *testing.T) {
	e, _ := newTestExecutor(t)

	out, err := e.Execute(context.Background(),
		`s = string.upper("ab") .. math.floor(2.7) .. #table.concat({"x", "y"})`,
		nil, []string{"s"})
	require.NoError(t, err)
	assert.Equal(t, "AB22", out["s"])
}

func TestExecuteOptionalOutputs(t *testing.T) {
	e, _ := newTestExecutor(t)

	out, err := e.Execute(context.Background(), `a = 1`, nil, []string{"a"}, "b")
	require.NoError(t, err)
	assert.Equal(t, 1.0, out["a"])
	_, hasB := out["b"]
	assert.False(t, hasB)

	out, err = e.Execute(context.Background(), `a = 1; b = "named"`, nil, []string{"a"}, "b")
	require.NoError(t, err)
	assert.Equal(t, "named", out["b"])
}

func TestExecuteConvertsTables(t *testing.T) {
	e, _ := newTestExecutor(t)

	out, err := e.Execute(context.Background(), `
model = { name = "majority", classes = {0, 1}, weights = { sex = 0.5 } }
model.self = model
`, nil, []string{"model"})
	require.NoError(t, err)

	m := out["model"].(map[string]any)
	assert.Equal(t, "majority", m["name"])
	assert.Equal(t, []any{0.0, 1.0}, m["classes"])
	assert.Equal(t, map[string]any{"sex": 0.5}, m["weights"])
	assert.Equal(t, "<cycle>", m["self"])
}

func TestExecuteLogCaptured(t *testing.T) {
	e, hook := newTestExecutor(t)

	_, err := e.Execute(context.Background(), `log("fitting model")`, nil, nil)
	require.NoError(t, err)

	require.NotEmpty(t, hook.AllEntries())
	assert.Equal(t, "fitting model", hook.LastEntry().Message)
}
