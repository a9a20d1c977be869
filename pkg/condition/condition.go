// Package condition evaluates step and command guard expressions against the
// variable store. The grammar is the closed expression language provided by
// expr-lang: equality/inequality, boolean and/or/not, and membership tests.
// Expressions have no access to the host beyond the store snapshot.
package condition

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/instep-sh/instep/pkg/vars"
)

// EvalError reports a condition that could not be compiled or evaluated.
// Callers log it and treat the condition as false; a bad expression skips
// its step or command, it never aborts the run.
type EvalError struct {
	Expression string
	Err        error
}

func (e *EvalError) Error() string {
	return fmt.Sprintf("condition %q: %v", e.Expression, e.Err)
}

func (e *EvalError) Unwrap() error { return e.Err }

// Eval evaluates a condition expression against the store. An empty
// expression is always true. A bare variable name is true when the variable
// is truthy. Unknown variables evaluate as nil and are therefore falsy.
func Eval(expression string, store *vars.Store) (bool, error) {
	if expression == "" {
		return true, nil
	}

	env := store.Snapshot()
	program, err := expr.Compile(expression, expr.AllowUndefinedVariables())
	if err != nil {
		return false, &EvalError{Expression: expression, Err: err}
	}
	output, err := expr.Run(program, env)
	if err != nil {
		return false, &EvalError{Expression: expression, Err: err}
	}
	return vars.Truthy(output), nil
}

// Check compiles an expression without evaluating it. Used by config
// validation to reject malformed conditions before a run starts.
func Check(expression string) error {
	if expression == "" {
		return nil
	}
	if _, err := expr.Compile(expression, expr.AllowUndefinedVariables()); err != nil {
		return &EvalError{Expression: expression, Err: err}
	}
	return nil
}
