package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runCLI executes the root command with args and returns stdout, stderr
// and the exit code.
func runCLI(t *testing.T, args ...string) (string, string, int) {
	t.Helper()

	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), GetExitCode(err)
}

// writeFile writes content under dir and returns the full path.
func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const pushDefinition = `name: push_search
endpoint: workouts
where:
  - {field: name, op: contains, value: push}
skip: 20
take: 10
include:
  - [weekPlans, weekPlanSets]
`

const disjunctionDefinition = `endpoint: workouts
where:
  - any:
      - {field: muscle, op: eq, value: chest}
      - {field: muscle, op: eq, value: back}
`

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "remoteq", cmd.Use)
	assert.Contains(t, cmd.Long, "REMOTEQ_")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"compile", "validate", "fetch", "replay", "trace", "test", "dialects"}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	for _, name := range []string{"config", "base-url", "dialect", "timeout", "strict", "db", "log-level"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(name), "flag --%s", name)
	}
	assert.Equal(t, "rest", cmd.PersistentFlags().Lookup("dialect").DefValue)
	assert.Equal(t, "30s", cmd.PersistentFlags().Lookup("timeout").DefValue)
}

func TestCompileCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	compileCmd, _, err := cmd.Find([]string{"compile"})
	require.NoError(t, err)

	outputFlag := compileCmd.Flags().Lookup("output")
	require.NotNil(t, outputFlag)
	assert.Equal(t, "o", outputFlag.Shorthand)
	assert.NotNil(t, compileCmd.Flags().Lookup("all"))
}

func TestTestCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	testCmd, _, err := cmd.Find([]string{"test"})
	require.NoError(t, err)

	updateFlag := testCmd.Flags().Lookup("update")
	require.NotNil(t, updateFlag)
	assert.Equal(t, "false", updateFlag.DefValue)
	assert.NotNil(t, testCmd.Flags().Lookup("filter"))
}

func TestTraceCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	traceCmd, _, err := cmd.Find([]string{"trace"})
	require.NoError(t, err)

	for _, name := range []string{"endpoint", "failed", "limit", "id"} {
		assert.NotNil(t, traceCmd.Flags().Lookup(name), "flag --%s", name)
	}
}

func TestFormatValidation(t *testing.T) {
	assert.True(t, isValidFormat("text"))
	assert.True(t, isValidFormat("json"))

	assert.False(t, isValidFormat("xml"))
	assert.False(t, isValidFormat(""))
	assert.False(t, isValidFormat("TEXT"))
}

func TestFormatValidationIntegration(t *testing.T) {
	stdout, _, code := runCLI(t, "--format", "invalid", "dialects")
	assert.Equal(t, ExitCommandError, code)
	assert.Contains(t, stdout, "invalid format")
	assert.Contains(t, stdout, ErrCodeInvalidConfig)
}

func TestInvalidDialectConfig(t *testing.T) {
	stdout, _, code := runCLI(t, "--dialect", "graphql", "dialects")
	assert.Equal(t, ExitCommandError, code)
	assert.Contains(t, stdout, ErrCodeInvalidConfig)
	assert.Contains(t, stdout, `dialect "graphql"`)
}

func TestConfigFile(t *testing.T) {
	dir := t.TempDir()
	cfg := writeFile(t, dir, "remoteq.yaml", "dialect: odata\n")
	def := writeFile(t, dir, "push.yaml", pushDefinition)

	stdout, _, code := runCLI(t, "--config", cfg, "compile", def)
	require.Equal(t, ExitSuccess, code, stdout)
	assert.Contains(t, stdout, "odata:")
	assert.Contains(t, stdout, "$top=10")
}

func TestConfigEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	cfg := writeFile(t, dir, "remoteq.yaml", "dialect: odata\n")
	def := writeFile(t, dir, "push.yaml", pushDefinition)
	t.Setenv("REMOTEQ_DIALECT", "rest")

	stdout, _, code := runCLI(t, "--config", cfg, "compile", def)
	require.Equal(t, ExitSuccess, code, stdout)
	assert.Contains(t, stdout, "rest:")
	assert.Contains(t, stdout, "pageIndex=2")
}

func TestExecute(t *testing.T) {
	assert.Equal(t, ExitSuccess, Execute(context.Background(), []string{"dialects", "--format", "json"}))
	assert.Equal(t, ExitCommandError, Execute(context.Background(), []string{"compile"}))
	assert.Equal(t, ExitCommandError, Execute(context.Background(), []string{"nosuchcommand"}))
}
