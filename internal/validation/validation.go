// Package validation checks extracted attribute values against their
// declared kind and verify value using CEL programs.
package validation

import (
	"fmt"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"

	"github.com/opensource-finance/tagspec/internal/domain"
)

// Expressions evaluated per validation kind. Each sees `value` as a string.
var kindExpressions = map[domain.ValidationKind]string{
	domain.ValidationString: `size(value) > 0`,
	domain.ValidationNumber: `value.matches('^[-+]?[0-9]*\\.?[0-9]+([eE][-+]?[0-9]+)?$')`,
	domain.ValidationDate:   `value.matches('^[0-9]{4}-[0-9]{2}-[0-9]{2}$')`,
}

const verifyExpression = `verify == "" || value == verify`

// Reasons reported for failed checks.
const (
	ReasonMissing = "missing"
)

// Validator holds the compiled CEL programs.
type Validator struct {
	kinds  map[domain.ValidationKind]cel.Program
	verify cel.Program
}

// NewValidator compiles the validation programs.
func NewValidator() (*Validator, error) {
	env, err := cel.NewEnv(
		cel.Variable("value", cel.StringType),
		cel.Variable("verify", cel.StringType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	v := &Validator{kinds: make(map[domain.ValidationKind]cel.Program, len(kindExpressions))}
	for kind, expr := range kindExpressions {
		prg, err := compile(env, expr)
		if err != nil {
			return nil, fmt.Errorf("validation kind %s: %w", kind, err)
		}
		v.kinds[kind] = prg
	}

	v.verify, err = compile(env, verifyExpression)
	if err != nil {
		return nil, fmt.Errorf("verify: %w", err)
	}
	return v, nil
}

func compile(env *cel.Env, expr string) (cel.Program, error) {
	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("failed to compile %q: %w", expr, issues.Err())
	}
	if ast.OutputType() != cel.BoolType {
		return nil, fmt.Errorf("expression %q must return bool, got %s", expr, ast.OutputType())
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create program for %q: %w", expr, err)
	}
	return prg, nil
}

// Check validates one extracted value. A nil value is only invalid when the
// attribute is mandatory. Unknown kinds validate as STRING.
func (v *Validator) Check(attr domain.TagAttribute, value *string) domain.AttributeCheck {
	if value == nil {
		if attr.IsMandatory {
			return domain.AttributeCheck{Valid: false, Reason: ReasonMissing}
		}
		return domain.AttributeCheck{Valid: true}
	}

	kind := attr.ValidationKind
	prg, ok := v.kinds[kind]
	if !ok {
		kind = domain.ValidationString
		prg = v.kinds[kind]
	}

	vars := map[string]any{"value": *value, "verify": attr.Expression.VerifyValue}

	ok, err := eval(prg, vars)
	if err != nil {
		return domain.AttributeCheck{Valid: false, Reason: err.Error()}
	}
	if !ok {
		return domain.AttributeCheck{Valid: false, Reason: fmt.Sprintf("not a %s", kind)}
	}

	ok, err = eval(v.verify, vars)
	if err != nil {
		return domain.AttributeCheck{Valid: false, Reason: err.Error()}
	}
	if !ok {
		return domain.AttributeCheck{Valid: false, Reason: fmt.Sprintf("expected '%s'", attr.Expression.VerifyValue)}
	}
	return domain.AttributeCheck{Valid: true}
}

// CheckAll validates every attribute of a definition against its extracted values.
func (v *Validator) CheckAll(attrs []domain.TagAttribute, values map[string]*string) map[string]domain.AttributeCheck {
	out := make(map[string]domain.AttributeCheck, len(attrs))
	for _, attr := range attrs {
		out[attr.AttributeTag] = v.Check(attr, values[attr.AttributeTag])
	}
	return out
}

func eval(prg cel.Program, vars map[string]any) (bool, error) {
	out, _, err := prg.Eval(vars)
	if err != nil {
		return false, fmt.Errorf("evaluation error: %w", err)
	}
	b, ok := out.(types.Bool)
	if !ok {
		return false, fmt.Errorf("evaluation error: unexpected result type %s", out.Type())
	}
	return bool(b), nil
}
