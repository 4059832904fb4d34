// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers.
package testutil

import (
	"bytes"
	"fmt"
)

// ScriptedConsole is a console.IO implementation fed from queued answers.
// Confirm answers and prompt values are consumed in order; running out of
// queued answers yields false / empty / zero rather than blocking.
type ScriptedConsole struct {
	ConfirmAnswers []bool
	PromptAnswers  []string
	IntAnswers     []int

	// Output collects everything printed to the operator.
	Output bytes.Buffer

	// Questions records every Confirm and Prompt text, in order.
	Questions []string
}

// NewScriptedConsole creates an empty scripted console.
func NewScriptedConsole() *ScriptedConsole {
	return &ScriptedConsole{}
}

// AnswerConfirm queues answers for upcoming Confirm calls.
func (c *ScriptedConsole) AnswerConfirm(answers ...bool) *ScriptedConsole {
	c.ConfirmAnswers = append(c.ConfirmAnswers, answers...)
	return c
}

// AnswerPrompt queues answers for upcoming Prompt calls.
func (c *ScriptedConsole) AnswerPrompt(answers ...string) *ScriptedConsole {
	c.PromptAnswers = append(c.PromptAnswers, answers...)
	return c
}

// AnswerInt queues answers for upcoming PromptInt calls.
func (c *ScriptedConsole) AnswerInt(answers ...int) *ScriptedConsole {
	c.IntAnswers = append(c.IntAnswers, answers...)
	return c
}

func (c *ScriptedConsole) Confirm(prompt string) bool {
	c.Questions = append(c.Questions, prompt)
	if len(c.ConfirmAnswers) == 0 {
		return false
	}
	answer := c.ConfirmAnswers[0]
	c.ConfirmAnswers = c.ConfirmAnswers[1:]
	return answer
}

func (c *ScriptedConsole) Prompt(prompt string) string {
	c.Questions = append(c.Questions, prompt)
	if len(c.PromptAnswers) == 0 {
		return ""
	}
	answer := c.PromptAnswers[0]
	c.PromptAnswers = c.PromptAnswers[1:]
	return answer
}

func (c *ScriptedConsole) PromptInt(prompt string) int {
	c.Questions = append(c.Questions, prompt)
	if len(c.IntAnswers) == 0 {
		return 0
	}
	answer := c.IntAnswers[0]
	c.IntAnswers = c.IntAnswers[1:]
	return answer
}

func (c *ScriptedConsole) Printf(format string, args ...interface{}) {
	fmt.Fprintf(&c.Output, format, args...)
}

func (c *ScriptedConsole) Println(args ...interface{}) {
	fmt.Fprintln(&c.Output, args...)
}

// Printed returns everything written to the operator so far.
func (c *ScriptedConsole) Printed() string {
	return c.Output.String()
}
