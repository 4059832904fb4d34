// SPDX-License-Identifier: Apache-2.0

// Package console implements operator interaction: yes/no confirmation,
// typed value prompts and numbered menus. Everything that touches a terminal
// goes through the IO interface so the wizard logic stays testable.
package console

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// IO is the operator interaction contract required by the wizard.
type IO interface {
	// Confirm asks a yes/no question, re-prompting until y or n is given
	Confirm(prompt string) bool

	// Prompt asks for a free-form string value
	Prompt(prompt string) string

	// PromptInt asks for an integer, re-prompting on conversion failure
	PromptInt(prompt string) int

	// Printf writes formatted output to the operator
	Printf(format string, args ...interface{})

	// Println writes a line of output to the operator
	Println(args ...interface{})
}

// Terminal is the interactive IO implementation over stdin/stdout.
type Terminal struct {
	in  *bufio.Scanner
	out io.Writer
}

// NewTerminal creates a Terminal reading from stdin and writing to stdout.
func NewTerminal() *Terminal {
	return &Terminal{
		in:  bufio.NewScanner(os.Stdin),
		out: os.Stdout,
	}
}

// NewTerminalWith creates a Terminal over explicit streams.
func NewTerminalWith(in io.Reader, out io.Writer) *Terminal {
	return &Terminal{
		in:  bufio.NewScanner(in),
		out: out,
	}
}

// Confirm asks a yes/no question until the operator answers y or n. EOF on
// the input counts as no.
func (t *Terminal) Confirm(prompt string) bool {
	for {
		fmt.Fprintf(t.out, "\nQ: %s (y/n): ", prompt)
		line, ok := t.readLine()
		if !ok {
			return false
		}
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y":
			fmt.Fprintln(t.out)
			return true
		case "n":
			fmt.Fprintln(t.out)
			return false
		}
	}
}

// Prompt asks for a free-form string value.
func (t *Terminal) Prompt(prompt string) string {
	fmt.Fprintf(t.out, "%s : ", prompt)
	line, _ := t.readLine()
	return strings.TrimSpace(line)
}

// PromptInt asks for an integer, re-prompting until conversion succeeds.
// EOF on the input yields zero.
func (t *Terminal) PromptInt(prompt string) int {
	for {
		fmt.Fprintf(t.out, "%s : ", prompt)
		line, ok := t.readLine()
		if !ok {
			return 0
		}
		value, err := strconv.Atoi(strings.TrimSpace(line))
		if err != nil {
			fmt.Fprintf(t.out, "Incorrect input: %v, try again\n", err)
			continue
		}
		return value
	}
}

func (t *Terminal) Printf(format string, args ...interface{}) {
	fmt.Fprintf(t.out, format, args...)
}

func (t *Terminal) Println(args ...interface{}) {
	fmt.Fprintln(t.out, args...)
}

func (t *Terminal) readLine() (string, bool) {
	if !t.in.Scan() {
		return "", false
	}
	return t.in.Text(), true
}
