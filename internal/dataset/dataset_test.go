package dataset

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const passengersCSV = `pclass,sex,age,fare,embarked,survived
1,female,29,211.3375,S,1
1,male,0.92,151.55,S,1
2,female,,21.0,?,0
3,male,30,8.05,S,0
3,male,NaN,7.25,Q,0
`

func loadPassengers(t *testing.T) *Table {
	t.Helper()
	tbl, err := ReadCSV(strings.NewReader(passengersCSV))
	require.NoError(t, err)
	return tbl
}

func TestReadCSVInfersDTypes(t *testing.T) {
	tbl := loadPassengers(t)

	assert.Equal(t, 5, tbl.Len())
	assert.Equal(t, []string{"pclass", "sex", "age", "fare", "embarked", "survived"}, tbl.Columns())

	want := map[string]string{
		"pclass":   DTypeInt,
		"sex":      DTypeObject,
		"age":      DTypeFloat,
		"fare":     DTypeFloat,
		"embarked": DTypeObject,
		"survived": DTypeInt,
	}
	for name, dtype := range want {
		col, ok := tbl.Column(name)
		require.True(t, ok, name)
		assert.Equal(t, dtype, col.DType, name)
	}
}

func TestMissingCounts(t *testing.T) {
	tbl := loadPassengers(t)
	meta := tbl.Metadata()

	assert.Equal(t, 5, meta.NumRows)
	assert.Equal(t, 2, meta.MissingCounts["age"])
	assert.Equal(t, 1, meta.MissingCounts["embarked"])
	assert.Equal(t, 0, meta.MissingCounts["sex"])
	assert.Contains(t, meta.String(), `"num_rows": 5`)
}

func TestFixedSummary(t *testing.T) {
	tbl := loadPassengers(t)

	want := strings.Join([]string{
		"Rows: 5",
		"Columns:",
		"  pclass: int64, missing=0",
		"  sex: object, missing=0",
		"  age: float64, missing=2",
		"  fare: float64, missing=0",
		"  embarked: object, missing=1",
		"  survived: int64, missing=0",
	}, "\n")
	assert.Equal(t, want, FixedSummary(tbl))
}

func TestNewRejectsRaggedRows(t *testing.T) {
	_, err := New([]string{"a", "b"}, [][]string{{"1", "2"}, {"3"}})
	assert.Error(t, err)
}

func TestNewRejectsDuplicateColumns(t *testing.T) {
	_, err := New([]string{"a", "a"}, nil)
	assert.Error(t, err)
}

func TestLoadCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "passengers.csv")
	require.NoError(t, os.WriteFile(path, []byte(passengersCSV), 0644))

	tbl, err := LoadCSV(path)
	require.NoError(t, err)
	assert.Equal(t, 5, tbl.Len())

	_, err = LoadCSV(filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}

func TestBindingOmitsMissingCells(t *testing.T) {
	tbl := loadPassengers(t)
	b := tbl.Binding()

	rows := b["rows"].([]any)
	require.Len(t, rows, 5)

	third := rows[2].(map[string]any)
	_, hasAge := third["age"]
	assert.False(t, hasAge)
	assert.Equal(t, "female", third["sex"])
	assert.Equal(t, int64(2), third["pclass"])
	assert.Equal(t, 5, b["n"])
}

func makeTable(t *testing.T, n int) *Table {
	t.Helper()
	rows := make([][]string, n)
	for i := range rows {
		rows[i] = []string{strings.Repeat("x", i%3+1), string(rune('0' + i%2))}
	}
	tbl, err := New([]string{"feature", "label"}, rows)
	require.NoError(t, err)
	return tbl
}

func TestSplitSizes(t *testing.T) {
	tbl := makeTable(t, 100)
	train, val, test := Split(tbl, 42)

	assert.Equal(t, 60, train.Len())
	assert.Equal(t, 20, val.Len())
	assert.Equal(t, 20, test.Len())
	assert.Equal(t, tbl.Columns(), train.Columns())
}

func TestCheckSplittable(t *testing.T) {
	for n := 0; n < MinRows; n++ {
		assert.Error(t, CheckSplittable(n), "n=%d", n)
	}
	for n := MinRows; n <= 40; n++ {
		require.NoError(t, CheckSplittable(n), "n=%d", n)
		train, val, test := Split(makeTable(t, n), 3)
		assert.NotZero(t, train.Len(), "n=%d", n)
		assert.NotZero(t, val.Len(), "n=%d", n)
		assert.NotZero(t, test.Len(), "n=%d", n)
	}
}

func TestSplitDeterministic(t *testing.T) {
	tbl := makeTable(t, 50)

	a, _, _ := Split(tbl, 7)
	b, _, _ := Split(tbl, 7)
	colA, _ := a.Column("feature")
	colB, _ := b.Column("feature")
	assert.Equal(t, colA.Values, colB.Values)
}

func TestSplitLeavesSourceUntouched(t *testing.T) {
	tbl := makeTable(t, 10)
	before, _ := tbl.Column("feature")
	snapshot := append([]any(nil), before.Values...)

	Split(tbl, 1)

	after, _ := tbl.Column("feature")
	assert.Equal(t, snapshot, after.Values)
	assert.Equal(t, 10, tbl.Len())
}
