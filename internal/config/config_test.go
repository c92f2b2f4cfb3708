package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
timezone = "Europe/Madrid"
listen_addr = "127.0.0.1:3009"

[app]
application_id = "1234"
category_activity_id = "42"

[[users]]
name = "Alice"
login = "alice@example.com"
password = "secret"
slots = ["tuesday", "friday"]

[[users]]
name = "Bob"
login = "bob@example.com"
password = "hunter2"
slots = ["monday"]

[slots.tuesday]
time = "18:00:00"
activity = "CrossFit"

[slots.friday]
time = "07:30"

[slots.monday]
time = "19:00:00"
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, sampleConfig)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "1234", cfg.App.ApplicationID)
	assert.Equal(t, "42", cfg.App.CategoryActivityID)
	assert.Len(t, cfg.Users, 2)
	assert.Equal(t, []string{"tuesday", "friday"}, cfg.Users[0].Slots)
	assert.Equal(t, "CrossFit", cfg.Slots["tuesday"].Activity)
	assert.Equal(t, "", cfg.Slots["friday"].Activity)
	assert.Equal(t, "Europe/Madrid", cfg.Location().String())

	// state and history default next to the config file
	assert.Equal(t, filepath.Join(filepath.Dir(path), "scheduler_state.json"), cfg.StateFile)
	assert.Equal(t, filepath.Join(filepath.Dir(path), "history.db"), cfg.HistoryFile)

	first, ok := cfg.FirstUser()
	assert.True(t, ok)
	assert.Equal(t, "Alice", first.Name)
}

func TestLoadMissingAppID(t *testing.T) {
	path := writeConfig(t, `
[app]
category_activity_id = "42"
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "application_id")
}

func TestLoadBadTimezone(t *testing.T) {
	path := writeConfig(t, `
timezone = "Mars/Olympus"

[app]
application_id = "1"
category_activity_id = "2"
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timezone")
}

func TestLoadBadSlotTime(t *testing.T) {
	path := writeConfig(t, `
[app]
application_id = "1"
category_activity_id = "2"

[slots.monday]
time = "late"
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid time")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}
