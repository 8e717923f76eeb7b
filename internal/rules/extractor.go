package rules

import (
	"github.com/opensource-finance/tagspec/internal/domain"
)

// Extract computes every attribute of a matched definition against row,
// keyed by attribute tag. Empty values (missing, null, "", 0, false) extract
// as nil, as do values the pattern does not match.
func (e *Engine) Extract(attributes []domain.TagAttribute, row domain.Row) map[string]*string {
	out := make(map[string]*string, len(attributes))
	for _, attr := range attributes {
		out[attr.AttributeTag] = e.ExtractAttribute(attr.Expression, row)
	}
	return out
}

// ExtractAttribute runs one attribute expression against row.
func (e *Engine) ExtractAttribute(expr domain.AttributeExpression, row domain.Row) *string {
	raw := row[expr.SourceField]
	if !domain.Truthy(raw) {
		return nil
	}
	return e.FirstCapture(expr.Pattern, domain.Stringify(raw))
}

// FirstCapture returns the first capture group of the first match of pattern
// in value, or nil when nothing matches or the group did not participate.
func (e *Engine) FirstCapture(pattern, value string) *string {
	re, err := e.compile(pattern)
	if err != nil {
		return nil
	}
	m, err := re.FindStringMatch(value)
	if err != nil || m == nil {
		return nil
	}
	g := m.GroupByNumber(1)
	if g == nil || len(g.Captures) == 0 {
		return nil
	}
	s := g.String()
	return &s
}
