// SPDX-License-Identifier: Apache-2.0

package condition

import (
	"fmt"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
)

// Evaluator handles evaluation of CEL applicability conditions declared on
// checklist steps and groups.
type Evaluator struct {
	env *cel.Env
}

// NewEvaluator creates a CEL environment exposing the release context as the
// "release" variable (release_type, rc_number, step states and so on).
func NewEvaluator() (*Evaluator, error) {
	env, err := cel.NewEnv(
		cel.Variable("release", cel.MapType(cel.StringType, cel.DynType)),
	)
	if err != nil {
		return nil, fmt.Errorf("error creating CEL environment: %w", err)
	}

	return &Evaluator{env: env}, nil
}

// Evaluate evaluates a CEL expression against the release context.
func (e *Evaluator) Evaluate(expression string, release map[string]interface{}) (bool, error) {
	ast, issues := e.env.Parse(expression)
	if issues != nil && issues.Err() != nil {
		return false, fmt.Errorf("error parsing condition: %w", issues.Err())
	}

	checked, issues := e.env.Check(ast)
	if issues != nil && issues.Err() != nil {
		return false, fmt.Errorf("error type-checking condition: %w", issues.Err())
	}

	program, err := e.env.Program(checked)
	if err != nil {
		return false, fmt.Errorf("error compiling condition: %w", err)
	}

	result, _, err := program.Eval(map[string]interface{}{
		"release": release,
	})
	if err != nil {
		return false, fmt.Errorf("error evaluating condition: %w", err)
	}

	if result.Type() != types.BoolType {
		return false, fmt.Errorf("condition did not evaluate to a boolean")
	}

	return result.Value().(bool), nil
}

// Check parses and type-checks an expression without evaluating it, for
// load-time validation of checklist definitions.
func (e *Evaluator) Check(expression string) error {
	ast, issues := e.env.Parse(expression)
	if issues != nil && issues.Err() != nil {
		return fmt.Errorf("error parsing condition: %w", issues.Err())
	}
	if _, issues := e.env.Check(ast); issues != nil && issues.Err() != nil {
		return fmt.Errorf("error type-checking condition: %w", issues.Err())
	}
	return nil
}
