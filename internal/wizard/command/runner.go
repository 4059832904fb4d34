// SPDX-License-Identifier: Apache-2.0

package command

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/shlex"

	"github.com/relwiz/relwiz/internal/wizard/console"
)

// ProcSpec describes one external process invocation.
type ProcSpec struct {
	Command string
	Dir     string
	Shell   bool
}

// needsShell decides whether the command must run through a shell: either
// the definition says so, or the command text uses shell syntax.
func needsShell(spec ProcSpec) bool {
	return spec.Shell || strings.ContainsAny(spec.Command, "&|><;")
}

func buildCmd(spec ProcSpec) (*exec.Cmd, error) {
	var cmd *exec.Cmd
	if needsShell(spec) {
		cmd = exec.Command("sh", "-c", spec.Command)
	} else {
		argv, err := shlex.Split(spec.Command)
		if err != nil {
			return nil, fmt.Errorf("error splitting command %q: %w", spec.Command, err)
		}
		if len(argv) == 0 {
			return nil, fmt.Errorf("empty command")
		}
		cmd = exec.Command(argv[0], argv[1:]...)
	}
	if spec.Dir != "" {
		cmd.Dir = spec.Dir
	}
	return cmd, nil
}

// Capture runs the process to completion and returns its stdout. A non-zero
// exit is an error carrying the stderr tail.
func Capture(spec ProcSpec) ([]byte, error) {
	cmd, err := buildCmd(spec)
	if err != nil {
		return nil, err
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return stdout.Bytes(), fmt.Errorf("command %q failed: %w (stderr: %s)",
			spec.Command, err, strings.TrimSpace(stderr.String()))
	}
	return stdout.Bytes(), nil
}

// syncWriter serializes writes from the stdout and stderr copiers so their
// lines interleave instead of corrupting each other. Exact ordering across
// the two streams is best-effort.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

// Follow runs the process with streamed output and blocks until it exits.
// logPath == "" streams to the operator only (live mode); otherwise output
// goes to the log file, and additionally to the operator when tee is set.
// The returned exit code is valid whenever err is nil.
func Follow(spec ProcSpec, logPath string, tee bool, out io.Writer) (int, error) {
	cmd, err := buildCmd(spec)
	if err != nil {
		return -1, err
	}

	var sinks []io.Writer
	var logFile *os.File
	if logPath != "" {
		if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
			return -1, fmt.Errorf("error creating log folder: %w", err)
		}
		logFile, err = os.Create(logPath)
		if err != nil {
			return -1, fmt.Errorf("error creating log file: %w", err)
		}
		defer logFile.Close()
		sinks = append(sinks, logFile)
		if tee {
			sinks = append(sinks, out)
		}
	} else {
		sinks = append(sinks, out)
	}

	sink := &syncWriter{w: io.MultiWriter(sinks...)}
	cmd.Stdout = sink
	cmd.Stderr = sink

	if err := cmd.Run(); err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return exitErr.ExitCode(), nil
		}
		return -1, fmt.Errorf("error starting command %q: %w", spec.Command, err)
	}
	return 0, nil
}

// tailLog prints the last n lines of a log file to the operator.
func tailLog(io console.IO, path string, n int) {
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) > n {
		io.Printf("[...] skipping %d lines\n", len(lines)-n)
		lines = lines[len(lines)-n:]
	}
	for _, line := range lines {
		io.Println(line)
	}
}
