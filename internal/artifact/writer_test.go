package artifact

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantfable/oracle/internal/domain"
)

func TestWriteJSON(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir)
	require.NoError(t, err)

	timeline := domain.Timeline{
		"2027": {
			{Event: "Will Bitcoin reach $100,000 by 2027?", Probability: 0.73, Category: domain.CategoryCrypto},
		},
	}
	require.NoError(t, w.WriteJSON("timeline.json", timeline))

	data, err := os.ReadFile(filepath.Join(dir, "timeline.json"))
	require.NoError(t, err)

	// Pretty-printed with a trailing newline.
	assert.True(t, strings.HasPrefix(string(data), "{\n  \"2027\""))
	assert.True(t, strings.HasSuffix(string(data), "\n"))

	var got domain.Timeline
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, timeline, got)
}

func TestWriteJSONOverwrites(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir)
	require.NoError(t, err)

	require.NoError(t, w.WriteJSON("out.json", map[string]int{"a": 1}))
	require.NoError(t, w.WriteJSON("out.json", map[string]int{"a": 2}))

	data, err := os.ReadFile(filepath.Join(dir, "out.json"))
	require.NoError(t, err)

	var got map[string]int
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, 2, got["a"])

	// No stray temp files left behind.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestNewWriterCreatesDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "out")
	_, err := NewWriter(dir)
	require.NoError(t, err)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
