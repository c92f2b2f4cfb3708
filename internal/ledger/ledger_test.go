package ledger

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKey(t *testing.T) {
	d := time.Date(2024, time.June, 11, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "alice@example.com:2024-06-11:18:00:00", Key("alice@example.com", d, "18:00:00"))
}

func TestLoadMissingFile(t *testing.T) {
	l := Load(filepath.Join(t.TempDir(), "nope.json"), zerolog.Nop())
	assert.Equal(t, 0, l.Len())
	assert.False(t, l.Contains("anything"))
}

func TestLoadCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	l := Load(path, zerolog.Nop())
	assert.Equal(t, 0, l.Len())
}

func TestInsertPersistsAndReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	l := Load(path, zerolog.Nop())

	keys := []string{
		"alice:2024-06-11:18:00:00",
		"bob:2024-06-13:07:30:00",
		"alice:2024-06-18:18:00:00",
	}
	for _, k := range keys {
		l.Insert(k)
	}
	assert.Equal(t, len(keys), l.Len())

	reloaded := Load(path, zerolog.Nop())
	assert.Equal(t, len(keys), reloaded.Len())
	for _, k := range keys {
		assert.True(t, reloaded.Contains(k), k)
	}
	assert.ElementsMatch(t, keys, reloaded.Keys())
}

func TestInsertSurvivesUnwritablePath(t *testing.T) {
	// Persist failure must not lose the in-memory entry.
	l := Load(filepath.Join(t.TempDir(), "gone", "state.json"), zerolog.Nop())
	l.Insert("alice:2024-06-11:18:00:00")
	assert.True(t, l.Contains("alice:2024-06-11:18:00:00"))
}
