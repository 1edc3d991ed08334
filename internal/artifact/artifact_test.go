package artifact

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveAndLoad(t *testing.T) {
	s := NewStore(t.TempDir())
	m := &Model{
		RunID: "run-1",
		Name:  "majority",
		Model: map[string]any{"majority": 0.0},
		Code:  "model = {majority = 0}",
	}

	path, err := s.SaveModel(s.PathFor("run-1"), m)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(s.Dir, "model-run-1.json"), path)

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "majority", loaded.Name)
	assert.Equal(t, map[string]any{"majority": 0.0}, loaded.Model)
	assert.False(t, loaded.SavedAt.IsZero())
}

func TestSaveRelativePath(t *testing.T) {
	s := NewStore(t.TempDir())

	path, err := s.SaveModel("nested/m.json", &Model{Name: "x"})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(s.Dir, "nested", "m.json"), path)

	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestSaveNonFiniteWeights(t *testing.T) {
	s := NewStore(t.TempDir())
	weights := []any{1.5, math.Inf(-1)}
	m := &Model{
		Name:  "linear",
		Model: map[string]any{"bias": math.NaN(), "weights": weights},
	}

	path, err := s.SaveModel("m.json", m)
	require.NoError(t, err)

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"bias":    "NaN",
		"weights": []any{1.5, "-Inf"},
	}, loaded.Model)
	assert.True(t, math.IsInf(weights[1].(float64), -1))
}

func TestLoadMissing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	assert.ErrorContains(t, err, "not found")
}
