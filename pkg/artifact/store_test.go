package artifact

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MuneebMM/Olist-Logistics-Engine/pkg/history"
)

func TestSaveLoad_Roundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")

	in := &history.Table{
		Stats: map[string]history.Stat{
			"S1": {SellerID: "S1", LateRate: 0.2, OrderCount: 10},
		},
		GlobalLateRate: 0.2,
		MeanWeightG:    750,
	}
	require.NoError(t, Save(path, in))

	out := &history.Table{}
	require.NoError(t, Load(path, out))
	assert.Equal(t, in, out)
}

func TestSave_CreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "deep", "model.json")
	require.NoError(t, Save(path, map[string]int{"a": 1}))

	_, err := os.Stat(path)
	assert.NoError(t, err)
}

func TestSave_LeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "model.json")
	require.NoError(t, Save(path, map[string]int{"a": 1}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "model.json", entries[0].Name())
}

func TestSave_EmptyPath(t *testing.T) {
	assert.Error(t, Save("", map[string]int{}))
}

func TestLoad_MissingFile(t *testing.T) {
	var v map[string]int
	err := Load(filepath.Join(t.TempDir(), "nope.json"), &v)
	assert.Error(t, err)
}

func TestLoad_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corrupt.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))

	var v map[string]int
	assert.Error(t, Load(path, &v))
}

func TestSave_OverwritesExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "v.json")
	require.NoError(t, Save(path, map[string]int{"v": 1}))
	require.NoError(t, Save(path, map[string]int{"v": 2}))

	var out map[string]int
	require.NoError(t, Load(path, &out))
	assert.Equal(t, 2, out["v"])
}
