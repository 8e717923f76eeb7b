// Package decompiler recovers the structured form of a compiled pattern so
// that an existing rule can be edited. Recovery is best-effort: only the
// shapes the compiler emits are recognized exactly, and anything else is
// read as a literal "contains".
package decompiler

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/opensource-finance/tagspec/internal/compiler"
	"github.com/opensource-finance/tagspec/internal/domain"
)

// Decomposition is the structured form recovered from a pattern.
type Decomposition struct {
	Operation   domain.Operation `json:"operation"`
	Value       string           `json:"value"`
	Values      []string         `json:"values,omitempty"`
	Prefix      string           `json:"prefix,omitempty"`
	Suffix      string           `json:"suffix,omitempty"`
	Pattern     string           `json:"pattern,omitempty"`
	Description string           `json:"description"`
}

// Condition converts a match decomposition into an editable condition for field.
func (d Decomposition) Condition(field string) domain.Condition {
	return domain.Condition{
		SourceField: field,
		Operation:   d.Operation,
		Value:       d.Value,
		Values:      d.Values,
		Prefix:      d.Prefix,
		Suffix:      d.Suffix,
	}
}

// Shape recognizers, most specific first. Each captures the literal fragments
// still in escaped form.
var (
	extractAndCompareShape = regexp.MustCompile(`^\(\?:(.+?)\)(.+)\(\?:(.+)\)$`)
	doesNotContainShape    = regexp.MustCompile(`^\^\(\?!\.\*(.+)\)$`)
	doesNotEqualShape      = regexp.MustCompile(`^\^\(\?!(.+)\$\)$`)
	extractBetweenShape    = regexp.MustCompile(`^(.+?)\(\.\*\?\)(.+)$`)
	extractAfterShape      = regexp.MustCompile(`^(.+)\(\.\*\)$`)
	extractBeforeShape     = regexp.MustCompile(`^\(\.\*\?\)(.+)$`)
	equalsShape            = regexp.MustCompile(`^\^(.+)\$$`)
	beginsWithShape        = regexp.MustCompile(`^\^(.+)$`)
	endsWithShape          = regexp.MustCompile(`^(.+)\$$`)
	extractMatchingShape   = regexp.MustCompile(`^\((.+)\)$`)
)

// DecomposeMatch recovers the condition that compiles to pattern.
func DecomposeMatch(pattern string) Decomposition {
	d := decomposeMatch(pattern)
	d.Description = describeDecomposition(d)
	return d
}

func decomposeMatch(pattern string) Decomposition {
	if c := compiler.Parse(pattern); c.IsNumeric() {
		return Decomposition{Operation: c.Numeric.Op, Value: c.Numeric.Threshold}
	}

	if m := extractAndCompareShape.FindStringSubmatch(pattern); m != nil {
		return Decomposition{
			Operation: domain.OpExtractAndCompare,
			Value:     compiler.Unescape(m[2]),
			Prefix:    compiler.Unescape(m[1]),
			Suffix:    compiler.Unescape(m[3]),
		}
	}
	if m := doesNotContainShape.FindStringSubmatch(pattern); m != nil {
		return Decomposition{Operation: domain.OpDoesNotContain, Value: compiler.Unescape(m[1])}
	}
	if m := doesNotEqualShape.FindStringSubmatch(pattern); m != nil {
		return Decomposition{Operation: domain.OpDoesNotEqual, Value: compiler.Unescape(m[1])}
	}
	if d, ok := decomposeCapture(pattern); ok {
		return d
	}
	if m := equalsShape.FindStringSubmatch(pattern); m != nil {
		return Decomposition{Operation: domain.OpEquals, Value: compiler.Unescape(m[1])}
	}
	if m := beginsWithShape.FindStringSubmatch(pattern); m != nil {
		return Decomposition{Operation: domain.OpBeginsWith, Value: compiler.Unescape(m[1])}
	}
	if m := endsWithShape.FindStringSubmatch(pattern); m != nil {
		return Decomposition{Operation: domain.OpEndsWith, Value: compiler.Unescape(m[1])}
	}
	// An escaped "\|" inside a value also splits here.
	if strings.Contains(pattern, "|") {
		parts := strings.Split(pattern, "|")
		for i, p := range parts {
			parts[i] = compiler.Unescape(p)
		}
		return Decomposition{Operation: domain.OpMatchesPattern, Value: parts[0], Values: parts}
	}
	return Decomposition{Operation: domain.OpContains, Value: compiler.Unescape(pattern)}
}

// decomposeCapture recognizes the between, after and before shapes.
func decomposeCapture(pattern string) (Decomposition, bool) {
	if m := extractBetweenShape.FindStringSubmatch(pattern); m != nil {
		return Decomposition{
			Operation: domain.OpExtractBetween,
			Prefix:    compiler.Unescape(m[1]),
			Suffix:    compiler.Unescape(m[2]),
		}, true
	}
	if m := extractAfterShape.FindStringSubmatch(pattern); m != nil {
		return Decomposition{Operation: domain.OpExtractAfter, Prefix: compiler.Unescape(m[1])}, true
	}
	if m := extractBeforeShape.FindStringSubmatch(pattern); m != nil {
		return Decomposition{Operation: domain.OpExtractBefore, Suffix: compiler.Unescape(m[1])}, true
	}
	return Decomposition{}, false
}

// DecomposeExtraction recovers the attribute extraction that compiles to pattern.
// Patterns outside the known shapes come back as extract_matching over the
// whole pattern.
func DecomposeExtraction(pattern string) Decomposition {
	d := decomposeExtraction(pattern)
	d.Description = compiler.DescribeExtraction(d.Operation, compiler.ExtractionParams{
		Prefix:  d.Prefix,
		Suffix:  d.Suffix,
		Pattern: d.Pattern,
	})
	return d
}

func decomposeExtraction(pattern string) Decomposition {
	if p, ok := predefinedFor(pattern); ok {
		return Decomposition{Operation: p.Operation()}
	}
	if d, ok := decomposeCapture(pattern); ok {
		return d
	}
	if m := extractMatchingShape.FindStringSubmatch(pattern); m != nil {
		return Decomposition{Operation: domain.OpExtractMatching, Pattern: m[1]}
	}
	return Decomposition{Operation: domain.OpExtractMatching, Pattern: pattern}
}

func predefinedFor(pattern string) (domain.PredefinedPattern, bool) {
	for _, p := range domain.PredefinedPatterns {
		if p.Regex == pattern {
			return p, true
		}
	}
	return domain.PredefinedPattern{}, false
}

// Describe renders a raw pattern in English. It is used when an expression
// carries no cached description.
func Describe(pattern string) string {
	if p, ok := predefinedFor(pattern); ok {
		return p.Label
	}
	return DecomposeMatch(pattern).Description
}

func describeDecomposition(d Decomposition) string {
	switch d.Operation {
	case domain.OpExtractAndCompare:
		return fmt.Sprintf("Extract between '%s' and '%s' equals '%s'", d.Prefix, d.Suffix, d.Value)
	case domain.OpDoesNotContain:
		return fmt.Sprintf("Does not contain '%s'", d.Value)
	case domain.OpDoesNotEqual:
		return fmt.Sprintf("Does not equal '%s'", d.Value)
	case domain.OpExtractBetween:
		return fmt.Sprintf("Extract between '%s' and '%s'", d.Prefix, d.Suffix)
	case domain.OpExtractAfter:
		return fmt.Sprintf("Extract after '%s'", d.Prefix)
	case domain.OpExtractBefore:
		return fmt.Sprintf("Extract before '%s'", d.Suffix)
	case domain.OpEquals:
		return fmt.Sprintf("Equals '%s'", d.Value)
	case domain.OpBeginsWith:
		return fmt.Sprintf("Starts with '%s'", d.Value)
	case domain.OpEndsWith:
		return fmt.Sprintf("Ends with '%s'", d.Value)
	case domain.OpMatchesPattern:
		quoted := make([]string, len(d.Values))
		for i, v := range d.Values {
			quoted[i] = "'" + v + "'"
		}
		return "Matches one of: " + strings.Join(quoted, ", ")
	case domain.OpGreaterThan, domain.OpLessThan, domain.OpGreaterThanOrEqual, domain.OpLessThanOrEqual:
		return compiler.DescribeNumeric(compiler.NumericComparison{Op: d.Operation, Threshold: d.Value})
	default:
		return fmt.Sprintf("Contains '%s'", d.Value)
	}
}

// DescribeExpression returns the cached description of e, or renders one from its pattern.
func DescribeExpression(e domain.CompiledExpression) string {
	if d := e.Description(); d != "" {
		return d
	}
	return Describe(e.Pattern)
}
