package rules

import (
	"strings"

	"github.com/opensource-finance/tagspec/internal/compiler"
	"github.com/opensource-finance/tagspec/internal/domain"
)

// EvaluateRuleSet reports whether any group in rules matches row.
// An empty rule set matches every row.
func (e *Engine) EvaluateRuleSet(rules domain.RuleSet, row domain.Row) bool {
	if len(rules) == 0 {
		return true
	}
	for _, group := range rules {
		if e.EvaluateAndGroup(group, row) {
			return true
		}
	}
	return false
}

// EvaluateAndGroup reports whether every expression in group matches row.
// Evaluation stops at the first failing expression.
func (e *Engine) EvaluateAndGroup(group domain.AndGroup, row domain.Row) bool {
	for _, expr := range group {
		if !e.EvaluateExpression(expr, row) {
			return false
		}
	}
	return true
}

// EvaluateExpression tests a single expression against row. A missing or
// null field, an unparseable number and a broken pattern all evaluate to false.
func (e *Engine) EvaluateExpression(expr domain.CompiledExpression, row domain.Row) bool {
	value, ok := row.String(expr.SourceField)
	if !ok {
		return false
	}

	c := compiler.Parse(expr.Pattern)
	if c.IsNumeric() {
		return c.Numeric.Compare(value)
	}
	return e.Match(c.Pattern, strings.TrimSpace(value))
}

// Match reports whether pattern matches anywhere in value.
func (e *Engine) Match(pattern, value string) bool {
	re, err := e.compile(pattern)
	if err != nil {
		return false
	}
	ok, err := re.MatchString(value)
	if err != nil {
		return false
	}
	return ok
}
