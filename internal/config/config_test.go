package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, args, err := Load([]string{"--config", filepath.Join(t.TempDir(), "none.yaml"), "next"})
	require.Error(t, err, "an explicit config path must exist")
	assert.Nil(t, cfg)
	assert.Nil(t, args)

	t.Chdir(t.TempDir())
	cfg, args, err = Load([]string{"next"})
	require.NoError(t, err)
	assert.Equal(t, []string{"next"}, args)
	assert.Equal(t, "examdeck.db", cfg.DBPath)
	assert.Equal(t, "block", cfg.Strategy)
	assert.Equal(t, "due", cfg.Mode)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Empty(t, cfg.AnswerOverrides())
}

func TestLoadLayers(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "examdeck.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
db: from-file.db
strategy: line
mode: random
overrides:
  "1": D
  "3": B
`), 0o644))

	t.Setenv("EXAMDECK_MODE", "due")
	t.Setenv("EXAMDECK_REPOS_DIR", "/tmp/exam-repos")

	cfg, args, err := Load([]string{"--config", path, "--db", "from-flag.db", "answer", "3", "B"})
	require.NoError(t, err)

	assert.Equal(t, []string{"answer", "3", "B"}, args)
	assert.Equal(t, "from-flag.db", cfg.DBPath, "flags win over the file")
	assert.Equal(t, "line", cfg.Strategy, "file wins over flag defaults")
	assert.Equal(t, "due", cfg.Mode, "environment wins over the file")
	assert.Equal(t, "/tmp/exam-repos", cfg.ReposDir)
	assert.Equal(t, map[int]string{1: "D", 3: "B"}, cfg.AnswerOverrides())
}

func TestLoadValidation(t *testing.T) {
	t.Chdir(t.TempDir())

	_, _, err := Load([]string{"--strategy", "regex"})
	assert.Error(t, err)

	_, _, err = Load([]string{"--mode", "oldest"})
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("overrides:\n  \"2\": d\n"), 0o644))
	_, _, err = Load([]string{"--config", path})
	assert.Error(t, err, "override letters must be uppercase")
}
