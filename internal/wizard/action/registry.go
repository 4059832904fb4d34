// SPDX-License-Identifier: Apache-2.0

// Package action maps the symbolic function names that checklist definitions
// may reference onto statically-typed Go functions. The definition document
// only ever carries an identifier; the wizard looks it up here at bootstrap
// so an unknown name fails at load time, not mid-release.
package action

import (
	"fmt"
	"sort"
)

// Step is the view of a checklist step handed to custom step actions.
type Step interface {
	// StepID returns the step's unique id
	StepID() string

	// IsDone reports whether the step is marked completed
	IsDone() bool

	// StateVar reads a persisted variable from the step's state
	StateVar(name string) (string, bool)

	// SetStateVar stores a variable into the step's state
	SetStateVar(name, value string)
}

// StepFunc implements a custom step action. It may prompt the operator and
// mutate step state. A returned error aborts the step's activation.
type StepFunc func(step Step) error

// VarFunc computes the raw (unrendered) value of a computed variable.
type VarFunc func() (string, error)

// Registry holds the named step actions and computed-variable functions
// available to checklist definitions.
type Registry struct {
	stepFuncs map[string]StepFunc
	varFuncs  map[string]VarFunc
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		stepFuncs: make(map[string]StepFunc),
		varFuncs:  make(map[string]VarFunc),
	}
}

// RegisterStepFunc registers a custom step action under name.
func (r *Registry) RegisterStepFunc(name string, fn StepFunc) {
	r.stepFuncs[name] = fn
}

// RegisterVarFunc registers a computed-variable function under name.
func (r *Registry) RegisterVarFunc(name string, fn VarFunc) {
	r.varFuncs[name] = fn
}

// StepFunc looks up a custom step action by name.
func (r *Registry) StepFunc(name string) (StepFunc, error) {
	fn, ok := r.stepFuncs[name]
	if !ok {
		return nil, fmt.Errorf("unknown step function: %s (known: %v)", name, r.stepFuncNames())
	}
	return fn, nil
}

// VarFunc looks up a computed-variable function by name.
func (r *Registry) VarFunc(name string) (VarFunc, error) {
	fn, ok := r.varFuncs[name]
	if !ok {
		return nil, fmt.Errorf("unknown variable function: %s", name)
	}
	return fn, nil
}

// HasStepFunc reports whether a step action is registered under name.
func (r *Registry) HasStepFunc(name string) bool {
	_, ok := r.stepFuncs[name]
	return ok
}

// HasVarFunc reports whether a variable function is registered under name.
func (r *Registry) HasVarFunc(name string) bool {
	_, ok := r.varFuncs[name]
	return ok
}

func (r *Registry) stepFuncNames() []string {
	names := make([]string, 0, len(r.stepFuncs))
	for name := range r.stepFuncs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
