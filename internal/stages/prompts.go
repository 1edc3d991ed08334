package stages

import (
	"strings"
	"text/template"
)

const bindingFormat = `Each dataset variable is a Lua table with these fields:
- columns: list of column names
- dtypes: table mapping column name to dtype (int64, float64, bool, object)
- rows: list of row tables keyed by column name; a missing value is nil
- n: number of rows`

const runtimeRules = `Runtime rules:
- Lua 5.1. Only the base, string, table and math libraries are available.
- io, os, require, load, print and math.random do NOT exist.
- Use log("message") for diagnostics.
- Results MUST be assigned to global variables (never declare them local).`

var summaryPrompt = template.Must(template.New("summary").Parse(`
You are an expert data scientist. Based on the dataset metadata below,
generate Lua code that computes a human-readable summary of the dataset.

The generated summary will later be used as part of the dataset understanding
and AI model design process, so ensure the summary provides meaningful,
accurate, and structured insights.

Examples:
- column names
- column data types
- number of rows
- missing value counts
- basic statistics if numeric
- useful info for categorical conversion decision

Code requirements:
- DO NOT load external data. Use the variable: df
- Return the summary as a Lua string in a global variable named summary_text

` + bindingFormat + `

` + runtimeRules + `

Dataset metadata (JSON):
{{.Metadata}}

Previous summary code execution error:
{{.SummaryErrors}}

Previous AI model training code execution error:
{{.TrainingErrors}}

Output:
Only Lua code, and always wrap it inside a markdown lua block like this:
` + "```lua\n-- your code here\n```" + `
Do NOT provide any explanation outside the code block.
`))

var trainPrompt = template.Must(template.New("train").Parse(`
You are an expert ML engineer.

Generate Lua code that:

1. Uses three datasets already provided:
   - df_train
   - df_val
   - df_test
   and the string target_column (= "{{.TargetColumn}}").

2. Performs any preprocessing the model needs.

   STRICT RULES TO PREVENT DATA LEAKAGE:
   - Use "{{.TargetColumn}}" as the target column.
   - DO NOT use the target column as a feature.
   - Fit preprocessing steps ONLY on df_train.
   - Apply fitted preprocessing to df_val and df_test without refitting.
   - NEVER combine df_train/df_val/df_test at any stage.
   - NEVER use df_val or df_test for model fitting.

3. Trains a classifier implemented in plain Lua (for example a decision stump,
   naive Bayes, logistic regression or k-nearest neighbours). Explore different
   feature subsets, preprocessing and hyperparameters across runs.

4. Computes accuracy for:
   - validation dataset -> accuracy_val
   - test dataset -> accuracy_test

5. Stores the trained model parameters in a global table named model, and
   optionally its name in a global string model_name.

` + bindingFormat + `

` + runtimeRules + `

Important:
- Do not perform any train/test splitting inside this code.
- accuracy_val and accuracy_test must be numbers between 0 and 1.

Dataset summary:
{{.Summary}}

Previous training code execution error:
{{.TrainingErrors}}

Output:
Only Lua code, wrapped inside a markdown code block marker like this:
` + "```lua\n-- your code here\n```" + `
Do NOT provide any explanation outside the code block.
Before emitting the code block, read the previous execution error carefully and ensure you do NOT repeat the same mistake again.
`))

var repairPrompt = template.Must(template.New("repair").Parse(`
You are an expert ML engineer.

Your task: Fix the provided Lua training code to prevent errors.

Constraints / Required behavior:
1. Use these three datasets: df_train, df_val, df_test.
2. Target column is: {{.TargetColumn}} (also available as target_column).
   - DO NOT use the target column as a feature.
3. Fit preprocessing only on df_train; apply it unchanged to df_val and df_test.
4. NEVER combine df_train/df_val/df_test for fitting.
5. Compute:
   - accuracy_val (on validation set)
   - accuracy_test (on test set)
6. Store the trained model parameters in a global table named model
   (optionally its name in model_name).

` + bindingFormat + `

` + runtimeRules + `

Previous code (contains errors):
{{.PreviousCode}}

Previous execution error:
***DO NOT REPEAT THIS ERROR!!***
{{.PreviousError}}

Output:
Only Lua code, wrapped inside a markdown code block marker like this:
` + "```lua\n-- your fixed code here\n```" + `
Do NOT provide any explanation outside the code block.
Before emitting the code block, read the previous code and error carefully and ensure the same mistake does NOT happen again.
`))

func render(t *template.Template, data any) (string, error) {
	var b strings.Builder
	if err := t.Execute(&b, data); err != nil {
		return "", err
	}
	return b.String(), nil
}
