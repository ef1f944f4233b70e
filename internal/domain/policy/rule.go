// Package policy evaluates per-owner CEL rules that decide whether a fiscal
// document must carry an NCF.
package policy

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"

	"ncfledger/internal/core/apperror"
)

// Rule is a compiled boolean expression over the `document` variable.
type Rule struct {
	expr string
	prg  cel.Program
}

var (
	envOnce sync.Once
	env     *cel.Env
	envErr  error
)

func celEnv() (*cel.Env, error) {
	envOnce.Do(func() {
		env, envErr = cel.NewEnv(
			cel.Variable("document", cel.MapType(cel.StringType, cel.DynType)),
		)
	})
	return env, envErr
}

// Compile parses and checks expr. An invalid rule is a validation error.
func Compile(expr string) (*Rule, error) {
	e, err := celEnv()
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("cel env: %w", err))
	}

	ast, iss := e.Compile(expr)
	if iss != nil && iss.Err() != nil {
		return nil, apperror.NewValidation("invalid require rule").
			WithDetail("field", "requireRule").
			WithDetail("error", iss.Err().Error())
	}

	prg, err := e.Program(ast)
	if err != nil {
		return nil, apperror.NewValidation("invalid require rule").
			WithDetail("field", "requireRule").
			WithDetail("error", err.Error())
	}

	return &Rule{expr: expr, prg: prg}, nil
}

// Eval runs the rule against document fields. Non-boolean results are errors.
func (r *Rule) Eval(document map[string]any) (bool, error) {
	out, _, err := r.prg.Eval(map[string]any{"document": document})
	if err != nil {
		return false, fmt.Errorf("evaluate rule %q: %w", r.expr, err)
	}
	b, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("rule %q returned %T, want bool", r.expr, out.Value())
	}
	return b, nil
}

// String returns the source expression.
func (r *Rule) String() string { return r.expr }
