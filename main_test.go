package main

import (
	"bytes"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The test binary doubles as the extpack binary when EXTPACK_MAIN is set,
// so exit codes can be checked without a separate build step.
func TestMain(m *testing.M) {
	if os.Getenv("EXTPACK_MAIN") == "1" {
		os.Args = append([]string{"extpack"}, strings.Fields(os.Getenv("EXTPACK_ARGS"))...)
		main()
		os.Exit(0)
	}
	os.Exit(m.Run())
}

func runExtpack(t *testing.T, dir string, args ...string) (int, string) {
	t.Helper()
	exe, err := os.Executable()
	require.NoError(t, err)

	cmd := exec.Command(exe)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), "EXTPACK_MAIN=1", "EXTPACK_ARGS="+strings.Join(args, " "))
	stderr := &bytes.Buffer{}
	cmd.Stderr = stderr
	cmd.Stdout = stderr

	err = cmd.Run()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), stderr.String()
	}
	require.NoError(t, err)
	return 0, stderr.String()
}

func extensionDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "manifest.json"), []byte(`{"version":"0.9.0"}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.js"), []byte("function main() {\n  return 1;\n}\n"), 0o644))
	return dir
}

func TestExitCodes(t *testing.T) {
	tests := []struct {
		name   string
		args   []string
		code   int
		output string
	}{
		{"missing mode", nil, 2, "Usage"},
		{"unknown mode", []string{"staging"}, 1, "unknown mode: staging"},
		{"zip in development", []string{"development", "--zip"}, 1, "only available for production"},
		{"production", []string{"production"}, 0, "production build complete"},
		{"development once", []string{"dev", "--once"}, 0, "development build complete"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := extensionDir(t)
			code, out := runExtpack(t, dir, tt.args...)
			assert.Equal(t, tt.code, code, out)
			assert.Contains(t, out, tt.output)
		})
	}
}

func TestUsageErrorShowsHelp(t *testing.T) {
	dir := extensionDir(t)
	code, out := runExtpack(t, dir, "development", "--zip")
	assert.Equal(t, 1, code)
	assert.Contains(t, out, "Usage: extpack")

	matches, err := filepath.Glob(filepath.Join(dir, "dist", "*.zip"))
	require.NoError(t, err)
	assert.Empty(t, matches)
	assert.NoDirExists(t, filepath.Join(dir, "dist"))
}

func TestProductionZip(t *testing.T) {
	dir := extensionDir(t)
	code, out := runExtpack(t, dir, "production", "--zip")
	require.Equal(t, 0, code, out)
	assert.FileExists(t, filepath.Join(dir, "dist", "minimal_newtab_v0.9.0.zip"))
	assert.FileExists(t, filepath.Join(dir, "dist", "production", "main.js"))
}
