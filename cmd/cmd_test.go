package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/josephlewis42/vmsh/core/config"
	"github.com/josephlewis42/vmsh/core/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Cleanup(func() {
		cfgPath = ""
		commandLine = ""
		exitCode = 0
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	})

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)

	err := rootCmd.Execute()
	return out.String(), err
}

func TestTokenizeCmd(t *testing.T) {
	out, err := execute(t, "tokenize", `grep "a b" < in.txt | sort > out.txt && echo done`)
	require.NoError(t, err)

	assert.Contains(t, out, `CONSTANT                     "a b"`)
	assert.Contains(t, out, "Pipeline 1:\n")
	assert.Contains(t, out, `stage 1: ["grep" "a b"]`)
	assert.Contains(t, out, `stage 2: ["sort"]`)
	assert.Contains(t, out, `stdin -> "in.txt" (append: false)`)
	assert.Contains(t, out, `stdout -> "out.txt" (append: false)`)
	assert.Contains(t, out, "then on &&\n")
	assert.Contains(t, out, "Pipeline 2:\n")
}

func TestTokenizeCmd_invalid(t *testing.T) {
	out, err := execute(t, "tokenize", "ls |")
	require.NoError(t, err)

	assert.Contains(t, out, "Invalid: syntax error near unexpected token `|'")
}

func TestBuiltinsCmd(t *testing.T) {
	out, err := execute(t, "builtins")
	require.NoError(t, err)

	assert.Contains(t, out, "cd       Change the shell working directory.\n")
	assert.Contains(t, out, "history  Display or manipulate the history list.\n")
}

func writeEventLog(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), config.EventLogName)
	fd, err := os.Create(path)
	require.NoError(t, err)
	defer fd.Close()

	l := logger.NewJsonLinesLogRecorder(fd)
	l.Now = func() time.Time { return time.Date(2021, 8, 1, 12, 0, 0, 0, time.UTC) }
	session := l.NewSession("s1")
	require.NoError(t, session.Record(logger.EventRunCommand, map[string]interface{}{"argv": []string{"ls"}, "path": "/bin/ls"}))
	require.NoError(t, session.Record(logger.EventUnknownCommand, map[string]interface{}{"argv": []string{"sl"}, "error": "sl: command not found"}))
	return path
}

func TestLogsCmd(t *testing.T) {
	path := writeEventLog(t)

	cases := map[string]struct {
		args     []string
		contains []string
	}{
		"report": {
			args:     []string{"logs", "report", path},
			contains: []string{"log_entries: 2", "ls: 1", "/bin/ls: 1"},
		},
		"failures": {
			args:     []string{"logs", "failures", path},
			contains: []string{"command: sl", "command not found"},
		},
		"sessions": {
			args:     []string{"logs", "sessions", path},
			contains: []string{"s1:", "- ls"},
		},
		"cat": {
			args:     []string{"logs", "cat", path},
			contains: []string{"2021-08-01T12:00:00Z s1 run_command", `"path":"/bin/ls"`},
		},
	}

	for tn, tc := range cases {
		t.Run(tn, func(t *testing.T) {
			out, err := execute(t, tc.args...)
			require.NoError(t, err)

			for _, s := range tc.contains {
				assert.Contains(t, out, s)
			}
		})
	}
}

func TestInitAndRun(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "vmsh")

	_, err := execute(t, "init", "--config", dir)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, config.ConfigurationName))

	_, err = execute(t, "--config", dir, "-c", "exit 3")
	require.NoError(t, err)
	assert.Equal(t, 3, exitCode)

	events, err := os.ReadFile(filepath.Join(dir, config.EventLogName))
	require.NoError(t, err)
	assert.Contains(t, string(events), `"builtin"`)
	assert.FileExists(t, filepath.Join(dir, config.AppLogName))
}
