// SPDX-License-Identifier: Apache-2.0

// Package command models the external command invocations attached to
// checklist steps and drives their confirmed, logged execution.
package command

import (
	"fmt"

	"github.com/relwiz/relwiz/internal/core/format"
	"github.com/relwiz/relwiz/internal/wizard/vars"
)

// Command is a single external command invocation.
type Command struct {
	// Cmd is the (templated) command line
	Cmd string `yaml:"cmd"`

	// Cwd is an optional working subdirectory relative to the group root
	Cwd string `yaml:"cwd,omitempty"`

	// Comment is shown to the operator before running
	Comment string `yaml:"comment,omitempty"`

	// Logfile overrides the derived log file name
	Logfile string `yaml:"logfile,omitempty"`

	// Tee echoes output line by line while also logging it
	Tee bool `yaml:"tee,omitempty"`

	// Live streams output byte by byte without a log file
	Live bool `yaml:"live,omitempty"`

	// Stdout prints output directly instead of logging
	Stdout bool `yaml:"stdout,omitempty"`

	// Shell forces execution through a shell
	Shell bool `yaml:"shell,omitempty"`

	// ShouldFail inverts the exit-code expectation
	ShouldFail bool `yaml:"should_fail,omitempty"`

	// Redirect captures output into the named file instead of logging
	Redirect string `yaml:"redirect,omitempty"`

	// RedirectAppend appends to the redirect target instead of truncating
	RedirectAppend bool `yaml:"redirect_append,omitempty"`

	// Vars are command-local variables, resolved fresh per render
	Vars vars.Ordered `yaml:"vars,omitempty"`
}

// Normalize enforces the output-mode exclusivity rules: redirect overrides
// everything, live wins over tee, tee and live win over stdout. Conflicts
// are reported, not fatal.
func (c *Command) Normalize() {
	if c.Tee && c.Stdout {
		c.Stdout = false
		fmt.Printf("Command %s specifies 'tee' and 'stdout', using only 'tee'\n", c.Cmd)
	}
	if c.Live && c.Stdout {
		c.Stdout = false
		fmt.Printf("Command %s specifies 'live' and 'stdout', using only 'live'\n", c.Cmd)
	}
	if c.Live && c.Tee {
		c.Tee = false
		fmt.Printf("Command %s specifies 'tee' and 'live', using only 'live'\n", c.Cmd)
	}
	if c.Redirect != "" && (c.Tee || c.Stdout || c.Live) {
		c.Tee = false
		c.Stdout = false
		c.Live = false
		fmt.Printf("Command %s specifies 'redirect' and other out options at the same time. Using redirect only\n", c.Cmd)
	}
}

// DisplayLines renders the command for operator review before execution,
// shell-script style.
func (c *Command) DisplayLines(render func(string) string) []string {
	var lines []string
	if c.Comment != "" {
		lines = append(lines, fmt.Sprintf("# %s", render(c.Comment)))
	}
	if c.Cwd != "" {
		lines = append(lines, fmt.Sprintf("pushd %s", c.Cwd))
	}
	redir := ""
	if c.Redirect != "" {
		op := ">"
		if c.RedirectAppend {
			op = ">>"
		}
		redir = fmt.Sprintf(" %s %s", op, render(c.Redirect))
	}
	lines = append(lines, format.AbbreviateHome(render(c.Cmd)+redir))
	if c.Cwd != "" {
		lines = append(lines, "popd")
	}
	return lines
}
