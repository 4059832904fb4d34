// SPDX-License-Identifier: Apache-2.0

package command

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relwiz/relwiz/internal/testutil"
)

func TestCapture(t *testing.T) {
	out, err := Capture(ProcSpec{Command: "echo hello"})
	require.NoError(t, err)
	assert.Equal(t, "hello\n", string(out))
}

func TestCaptureQuotedArguments(t *testing.T) {
	out, err := Capture(ProcSpec{Command: `printf %s "two words"`})
	require.NoError(t, err)
	assert.Equal(t, "two words", string(out))
}

func TestCaptureFailureIncludesStderr(t *testing.T) {
	_, err := Capture(ProcSpec{Command: "echo broken 1>&2; exit 3"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken")
}

func TestCaptureWorkingDir(t *testing.T) {
	dir := t.TempDir()
	out, err := Capture(ProcSpec{Command: "pwd", Dir: dir})
	require.NoError(t, err)
	assert.Equal(t, dir, strings.TrimSpace(string(out)))
}

func TestFollowToLogFile(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "logs", "cmd.log")
	var out bytes.Buffer

	code, err := Follow(ProcSpec{Command: "echo hello"}, logPath, false, &out)
	require.NoError(t, err)
	assert.Equal(t, 0, code)

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Equal(t, "hello\n", string(data))
	assert.Empty(t, out.String())
}

func TestFollowTee(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "cmd.log")
	var out bytes.Buffer

	code, err := Follow(ProcSpec{Command: "echo hello"}, logPath, true, &out)
	require.NoError(t, err)
	assert.Equal(t, 0, code)

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Equal(t, "hello\n", string(data))
	assert.Equal(t, "hello\n", out.String())
}

func TestFollowLive(t *testing.T) {
	var out bytes.Buffer

	code, err := Follow(ProcSpec{Command: "echo live output"}, "", false, &out)
	require.NoError(t, err)
	assert.Equal(t, 0, code)
	assert.Equal(t, "live output\n", out.String())
}

func TestFollowExitCode(t *testing.T) {
	var out bytes.Buffer

	code, err := Follow(ProcSpec{Command: "false"}, "", false, &out)
	require.NoError(t, err)
	assert.Equal(t, 1, code)
}

func TestFollowUnknownCommand(t *testing.T) {
	var out bytes.Buffer

	_, err := Follow(ProcSpec{Command: "definitely-not-a-real-binary-xyz"}, "", false, &out)
	assert.Error(t, err)
}

func TestTailLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "big.log")
	var lines []string
	for i := 1; i <= 30; i++ {
		lines = append(lines, fmt.Sprintf("line %d", i))
	}
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0644))

	io := testutil.NewScriptedConsole()
	tailLog(io, path, 25)

	printed := io.Printed()
	assert.Contains(t, printed, "skipping 5 lines")
	assert.NotContains(t, printed, "line 5\n")
	assert.Contains(t, printed, "line 6")
	assert.Contains(t, printed, "line 30")
}

func TestTailLogShortFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "small.log")
	require.NoError(t, os.WriteFile(path, []byte("only line\n"), 0644))

	io := testutil.NewScriptedConsole()
	tailLog(io, path, 25)

	assert.Equal(t, "only line\n", io.Printed())
}
