package report

import (
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/osmigrate/internal/model"
)

func TestFileName(t *testing.T) {
	assert.Equal(t, "migration_20250601T120000Z.json", FileName(PrefixMigration, testStart))
}

func TestWriteJSON_RoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "reports", "nested")

	path, err := WriteJSON(dir, PrefixMigration, sampleMigration(), testStart)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "migration_20250601T120000Z.json"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var got model.MigrationReport
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "run-test", got.RunID)
	assert.Equal(t, 3, got.ErrorCount)
	assert.Len(t, got.Errors, 3)
	assert.Equal(t, model.EntityStats{Created: 3, CacheHits: 1}, got.Entities[model.KindMachine])
}

func TestWriteJSON_NeverOverwrites(t *testing.T) {
	dir := t.TempDir()

	first, err := WriteJSON(dir, PrefixAnalysis, sampleAnalysis(), testStart)
	require.NoError(t, err)
	second, err := WriteJSON(dir, PrefixAnalysis, sampleAnalysis(), testStart)
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.Equal(t, filepath.Join(dir, "analysis_20250601T120000Z_2.json"), second)
	assert.FileExists(t, first)
}

func TestWriteJSON_UnmarshalableValue(t *testing.T) {
	_, err := WriteJSON(t.TempDir(), "bad", map[string]any{"f": func() {}}, testStart)
	assert.Error(t, err)
}

func TestWriteJSON_FailedWriteLeavesNoFile(t *testing.T) {
	dir := t.TempDir()
	orig := writeData
	t.Cleanup(func() { writeData = orig })
	writeData = func(w io.Writer, data []byte) error {
		if _, err := w.Write(data[:len(data)/2]); err != nil {
			return err
		}
		return errors.New("disk full")
	}

	path, err := WriteJSON(dir, PrefixMigration, sampleMigration(), testStart)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Empty(t, path)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)

	writeData = orig
	path, err = WriteJSON(dir, PrefixMigration, sampleMigration(), testStart)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "migration_20250601T120000Z.json"), path)
}
