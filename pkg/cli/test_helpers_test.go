package cli

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
)

// cliResult is the outcome of one CLI invocation.
type cliResult struct {
	code   int
	stdout string
	stderr string
}

// runCLI runs the root command with args in an isolated environment: no
// config variables and no .env file.
func runCLI(t *testing.T, stdin string, args ...string) cliResult {
	t.Helper()
	for _, key := range []string{
		"LOG_LEVEL", "ENV", "META_DB_PATH", "CATALOG_FILE", "MAX_SELECT_ROWS",
		"DEFAULT_TIMEZONE", "PERSON_ON_EVENTS", "ENABLE_SELECT_QUERIES",
	} {
		t.Setenv(key, "")
	}

	var stdout, stderr bytes.Buffer
	rootCmd := newRootCmd()
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(append([]string{"--env-file", filepath.Join(t.TempDir(), ".env")}, args...))

	code := run(rootCmd, &stdout, &stderr)
	return cliResult{code: code, stdout: stdout.String(), stderr: stderr.String()}
}
