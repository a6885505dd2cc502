package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunCommands(t *testing.T) {
	t.Chdir(t.TempDir())
	db := filepath.Join(t.TempDir(), "exam.db")

	var out bytes.Buffer
	require.NoError(t, run([]string{"--db", db, "init"}, &out))
	assert.Contains(t, out.String(), "Initialized")

	out.Reset()
	require.NoError(t, run([]string{"--db", db, "stats"}, &out))
	assert.Contains(t, out.String(), "Questions: 0")

	out.Reset()
	require.NoError(t, run([]string{"--db", db, "next"}, &out))
	assert.Equal(t, "Nothing to study right now.\n", out.String())

	assert.Error(t, run([]string{"--db", db, "show", "1"}, &out))
	assert.Error(t, run([]string{"--db", db, "answer", "x", "A"}, &out))
	assert.Error(t, run([]string{"--db", db, "ingest", "missing.pdf"}, &out))
	assert.Error(t, run([]string{"--db", db, "frobnicate"}, &out))
	assert.Error(t, run([]string{"--db", db}, &out))
}
