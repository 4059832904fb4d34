// SPDX-License-Identifier: Apache-2.0

package command

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		in       Command
		expected Command
	}{
		{
			"tee wins over stdout",
			Command{Cmd: "x", Tee: true, Stdout: true},
			Command{Cmd: "x", Tee: true},
		},
		{
			"live wins over stdout",
			Command{Cmd: "x", Live: true, Stdout: true},
			Command{Cmd: "x", Live: true},
		},
		{
			"live wins over tee",
			Command{Cmd: "x", Live: true, Tee: true},
			Command{Cmd: "x", Live: true},
		},
		{
			"redirect wins over everything",
			Command{Cmd: "x", Redirect: "out.txt", Tee: true, Stdout: true, Live: true},
			Command{Cmd: "x", Redirect: "out.txt"},
		},
		{
			"no conflict untouched",
			Command{Cmd: "x", Tee: true},
			Command{Cmd: "x", Tee: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := tt.in
			c.Normalize()
			assert.Equal(t, tt.expected, c)
		})
	}
}

func TestDisplayLines(t *testing.T) {
	identity := func(s string) string { return s }

	c := &Command{Cmd: "make dist"}
	assert.Equal(t, []string{"make dist"}, c.DisplayLines(identity))

	c = &Command{Cmd: "make dist", Comment: "build it", Cwd: "sub"}
	assert.Equal(t, []string{
		"# build it",
		"pushd sub",
		"make dist",
		"popd",
	}, c.DisplayLines(identity))

	c = &Command{Cmd: "git status", Redirect: "status.txt"}
	assert.Equal(t, []string{"git status > status.txt"}, c.DisplayLines(identity))

	c = &Command{Cmd: "git status", Redirect: "status.txt", RedirectAppend: true}
	assert.Equal(t, []string{"git status >> status.txt"}, c.DisplayLines(identity))
}

func TestNeedsShell(t *testing.T) {
	assert.False(t, needsShell(ProcSpec{Command: "git status"}))
	assert.True(t, needsShell(ProcSpec{Command: "git status", Shell: true}))
	assert.True(t, needsShell(ProcSpec{Command: "echo a | grep a"}))
	assert.True(t, needsShell(ProcSpec{Command: "echo a > file"}))
	assert.True(t, needsShell(ProcSpec{Command: "true && false"}))
	assert.True(t, needsShell(ProcSpec{Command: "sleep 1; echo done"}))
}

func TestLogFileName(t *testing.T) {
	ctx := &RunContext{}

	// Multi-command groups get a sequence prefix, command text is sanitized
	g := &Group{Commands: []*Command{{Cmd: "a"}, {Cmd: "b"}}}
	name := g.logFileName(ctx, g.Commands[0], "git status --porcelain", 0)
	assert.Equal(t, "01_git_status___porcelain.log", name)
	name = g.logFileName(ctx, g.Commands[1], "b", 1)
	assert.Equal(t, "02_b.log", name)

	// Single command uses the logs prefix
	g = &Group{LogsPrefix: "build", Commands: []*Command{{Cmd: "a"}}}
	assert.Equal(t, "build_a.log", g.logFileName(ctx, g.Commands[0], "a", 0))

	// Explicit logfile override
	g = &Group{Commands: []*Command{{Cmd: "a", Logfile: "custom.log"}}}
	assert.Equal(t, "custom.log", g.logFileName(ctx, g.Commands[0], "a", 0))

	// Subdirectory commands get a folder prefix
	g = &Group{Commands: []*Command{{Cmd: "a", Cwd: "docs"}, {Cmd: "b"}}}
	assert.Equal(t, "01_docs_a.log", g.logFileName(ctx, g.Commands[0], "a", 0))
}

func TestLogFolder(t *testing.T) {
	ctx := &RunContext{LogDir: "/logs"}

	g := &Group{Commands: []*Command{{Cmd: "a"}}}
	assert.Equal(t, "/logs", g.logFolder(ctx))

	// Multi-command groups with a prefix get their own subfolder
	g = &Group{LogsPrefix: "build", Commands: []*Command{{Cmd: "a"}, {Cmd: "b"}}}
	assert.Equal(t, "/logs/build", g.logFolder(ctx))

	g = &Group{Commands: []*Command{{Cmd: "a"}, {Cmd: "b"}}}
	assert.Equal(t, "/logs", g.logFolder(ctx))
}
