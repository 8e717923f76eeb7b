// Package compiler turns structured conditions and attribute specs into
// pattern sources and their English descriptions.
package compiler

import (
	"errors"
	"regexp"
	"strconv"
	"strings"

	"github.com/opensource-finance/tagspec/internal/domain"
)

// Affixes are the optional prefix and suffix of an extract_and_compare condition.
type Affixes struct {
	Prefix string
	Suffix string
}

// ExtractionParams parameterize an extraction operation.
type ExtractionParams struct {
	Prefix      string
	Suffix      string
	Pattern     string
	VerifyValue string
}

// NumericComparison is a numeric test that is evaluated without a pattern.
type NumericComparison struct {
	Op        domain.Operation
	Threshold string
}

// Compiled is the result of compiling a match condition: either a pattern
// or a numeric comparison, never both.
type Compiled struct {
	Pattern string
	Numeric *NumericComparison
}

// IsNumeric reports whether c is a numeric comparison.
func (c Compiled) IsNumeric() bool {
	return c.Numeric != nil
}

// Source returns the persisted string form. Numeric comparisons are
// written as a sentinel such as "__NUMERIC_GT:100".
func (c Compiled) Source() string {
	if c.Numeric == nil {
		return c.Pattern
	}
	for _, s := range sentinels {
		if s.op == c.Numeric.Op {
			return s.prefix + c.Numeric.Threshold
		}
	}
	return c.Pattern
}

type sentinel struct {
	prefix string
	op     domain.Operation
}

// No prefix is a prefix of another, so lookup order is irrelevant.
var sentinels = []sentinel{
	{"__NUMERIC_GT:", domain.OpGreaterThan},
	{"__NUMERIC_LT:", domain.OpLessThan},
	{"__NUMERIC_GTE:", domain.OpGreaterThanOrEqual},
	{"__NUMERIC_LTE:", domain.OpLessThanOrEqual},
}

// Parse reads a persisted pattern source back into its tagged form.
func Parse(src string) Compiled {
	for _, s := range sentinels {
		if strings.HasPrefix(src, s.prefix) {
			return Compiled{Numeric: &NumericComparison{Op: s.op, Threshold: src[len(s.prefix):]}}
		}
	}
	return Compiled{Pattern: src}
}

// Compare applies the comparison to a row value. Either side failing to
// parse as a number is a non-match.
func (n NumericComparison) Compare(value string) bool {
	threshold, ok := ParseNumber(n.Threshold)
	if !ok {
		return false
	}
	v, ok := ParseNumber(value)
	if !ok {
		return false
	}
	switch n.Op {
	case domain.OpGreaterThan:
		return v > threshold
	case domain.OpLessThan:
		return v < threshold
	case domain.OpGreaterThanOrEqual:
		return v >= threshold
	case domain.OpLessThanOrEqual:
		return v <= threshold
	}
	return false
}

var numberPrefix = regexp.MustCompile(`^[+-]?(?:Infinity|(?:\d+\.?\d*|\.\d+)(?:[eE][+-]?\d+)?)`)

// ParseNumber parses the leading numeric prefix of s, so "150 SAR" is 150
// and "abc" is not a number. Leading whitespace is ignored.
func ParseNumber(s string) (float64, bool) {
	m := numberPrefix.FindString(strings.TrimSpace(s))
	if m == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(m, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return 0, false
	}
	return f, true
}

var (
	metachars = regexp.MustCompile(`[.*+?^${}()|[\]\\]`)
	escaped   = regexp.MustCompile(`\\([.*+?^${}()|[\]\\])`)
)

// Escape backslash-escapes every pattern metacharacter in s.
func Escape(s string) string {
	return metachars.ReplaceAllString(s, `\$0`)
}

// Unescape reverses Escape.
func Unescape(s string) string {
	return escaped.ReplaceAllString(s, `$1`)
}

// CompileMatch compiles one match condition.
func CompileMatch(op domain.Operation, value string, values []string, affixes Affixes) Compiled {
	if op.IsNumeric() {
		return Compiled{Numeric: &NumericComparison{Op: op, Threshold: value}}
	}

	v := Escape(value)
	switch op {
	case domain.OpBeginsWith:
		return Compiled{Pattern: "^" + v}
	case domain.OpEndsWith:
		return Compiled{Pattern: v + "$"}
	case domain.OpEquals:
		return Compiled{Pattern: "^" + v + "$"}
	case domain.OpContains:
		return Compiled{Pattern: v}
	case domain.OpDoesNotContain:
		return Compiled{Pattern: "^(?!.*" + v + ")"}
	case domain.OpDoesNotEqual:
		return Compiled{Pattern: "^(?!" + v + "$)"}
	case domain.OpMatchesPattern:
		alts := alternatives(value, values)
		for i, a := range alts {
			alts[i] = Escape(a)
		}
		return Compiled{Pattern: strings.Join(alts, "|")}
	case domain.OpExtractAndCompare:
		return Compiled{Pattern: "(?:" + Escape(affixes.Prefix) + ")" + v + "(?:" + Escape(affixes.Suffix) + ")"}
	default:
		return Compiled{Pattern: v}
	}
}

// CompileExtraction compiles one attribute extraction. Unknown operations
// capture the whole value.
func CompileExtraction(op domain.Operation, params ExtractionParams) string {
	if op.IsPredefined() {
		if p, ok := domain.LookupPredefined(op.PredefinedName()); ok {
			return p.Regex
		}
		return "(.*)"
	}

	switch op {
	case domain.OpExtractBetween, domain.OpExtractBetweenAndVerify:
		return Escape(params.Prefix) + "(.*?)" + Escape(params.Suffix)
	case domain.OpExtractAfter:
		return Escape(params.Prefix) + "(.*)"
	case domain.OpExtractBefore:
		return "(.*?)" + Escape(params.Suffix)
	case domain.OpExtractMatching:
		raw := params.Pattern
		if raw == "" {
			raw = ".*"
		}
		return "(" + raw + ")"
	default:
		return "(.*)"
	}
}

// CompileCondition compiles c into its persisted expression with an English description.
func CompileCondition(c domain.Condition) domain.CompiledExpression {
	compiled := CompileMatch(c.Operation, c.Value, c.Values, Affixes{Prefix: c.Prefix, Suffix: c.Suffix})
	return domain.CompiledExpression{
		SourceField: c.SourceField,
		Pattern:     compiled.Source(),
		Details:     englishDetails(DescribeCondition(c)),
	}
}

// CompileAttribute compiles a into its persisted attribute with the given expression id.
func CompileAttribute(a domain.AttributeSpec, expressionID string) domain.TagAttribute {
	params := ExtractionParams{Prefix: a.Prefix, Suffix: a.Suffix, Pattern: a.Pattern, VerifyValue: a.VerifyValue}
	description := DescribeExtraction(a.ExtractionOperation, params)

	expr := domain.AttributeExpression{
		SourceField:  a.SourceField,
		ExpressionID: expressionID,
		Pattern:      CompileExtraction(a.ExtractionOperation, params),
		Details:      englishDetails(description),
		VerifyValue:  a.VerifyValue,
	}

	kind := a.ValidationKind
	if kind == "" {
		kind = domain.ValidationString
	}
	return domain.TagAttribute{
		AttributeTag:   a.AttributeTag,
		IsMandatory:    a.IsMandatory,
		ValidationKind: kind,
		Expression:     expr,
	}
}

func englishDetails(description string) []domain.PatternDetail {
	return []domain.PatternDetail{{LanguageCode: domain.LanguageEnglish, Description: description}}
}

func alternatives(value string, values []string) []string {
	if len(values) == 0 {
		return []string{value}
	}
	out := make([]string, len(values))
	copy(out, values)
	return out
}
