package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePasswordFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "password.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestResolvePassword_ExplicitValueWins(t *testing.T) {
	path := writePasswordFile(t, "file-secret\n")
	t.Setenv("OPAL_PASSWORD", "env-secret")

	password, err := ResolvePassword("flag-secret", path)
	require.NoError(t, err)
	assert.Equal(t, "flag-secret", password)
}

func TestResolvePassword_FirstLineOfFile(t *testing.T) {
	path := writePasswordFile(t, "  file-secret  \nsecond line ignored\n")

	password, err := ResolvePassword("", path)
	require.NoError(t, err)
	assert.Equal(t, "file-secret", password)
}

func TestResolvePassword_FileBeatsEnvironment(t *testing.T) {
	path := writePasswordFile(t, "file-secret\n")
	t.Setenv("OPAL_PASSWORD", "env-secret")

	password, err := ResolvePassword("", path)
	require.NoError(t, err)
	assert.Equal(t, "file-secret", password)
}

func TestResolvePassword_Environment(t *testing.T) {
	t.Setenv("OPAL_PASSWORD", "env-secret")

	password, err := ResolvePassword("", "")
	require.NoError(t, err)
	assert.Equal(t, "env-secret", password)
}

func TestResolvePassword_EmptyFile(t *testing.T) {
	path := writePasswordFile(t, "\n\n")

	_, err := ResolvePassword("", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty")
}

func TestResolvePassword_MissingFile(t *testing.T) {
	_, err := ResolvePassword("", "/nonexistent/secret.txt")
	assert.Error(t, err)
}

func TestResolvePassword_NoSourceWithoutTerminal(t *testing.T) {
	t.Setenv("OPAL_PASSWORD", "")

	// Test processes have no controlling terminal on stdin, so the prompt
	// path must refuse rather than hang.
	_, err := ResolvePassword("", "")
	assert.Error(t, err)
}
