package compiler

import (
	"fmt"
	"strings"

	"github.com/opensource-finance/tagspec/internal/domain"
)

// DescribeMatch renders a match condition in English. It is kept in step
// with CompileMatch.
func DescribeMatch(op domain.Operation, value string, values []string, affixes Affixes) string {
	switch op {
	case domain.OpBeginsWith:
		return fmt.Sprintf("Begin with '%s'", value)
	case domain.OpEndsWith:
		return fmt.Sprintf("End with '%s'", value)
	case domain.OpContains:
		return fmt.Sprintf("Contain '%s'", value)
	case domain.OpDoesNotContain:
		return fmt.Sprintf("Not contain '%s'", value)
	case domain.OpEquals:
		return fmt.Sprintf("Equal '%s'", value)
	case domain.OpDoesNotEqual:
		return fmt.Sprintf("Not equal '%s'", value)
	case domain.OpMatchesPattern:
		return "Match one of: " + quoteList(alternatives(value, values))
	case domain.OpExtractAndCompare:
		return fmt.Sprintf("Extract between '%s' and '%s' equals '%s'", affixes.Prefix, affixes.Suffix, value)
	case domain.OpGreaterThan, domain.OpLessThan, domain.OpGreaterThanOrEqual, domain.OpLessThanOrEqual:
		return DescribeNumeric(NumericComparison{Op: op, Threshold: value})
	default:
		return value
	}
}

// DescribeNumeric renders a numeric comparison in English.
func DescribeNumeric(n NumericComparison) string {
	switch n.Op {
	case domain.OpGreaterThan:
		return "Greater than " + n.Threshold
	case domain.OpLessThan:
		return "Less than " + n.Threshold
	case domain.OpGreaterThanOrEqual:
		return "Greater than or equal to " + n.Threshold
	case domain.OpLessThanOrEqual:
		return "Less than or equal to " + n.Threshold
	}
	return n.Threshold
}

// DescribeExtraction renders an extraction in English.
func DescribeExtraction(op domain.Operation, params ExtractionParams) string {
	if op.IsPredefined() {
		if p, ok := domain.LookupPredefined(op.PredefinedName()); ok {
			return p.Label
		}
		return "Extract value"
	}

	switch op {
	case domain.OpExtractBetween:
		return fmt.Sprintf("Extract between '%s' and '%s'", params.Prefix, params.Suffix)
	case domain.OpExtractAfter:
		return fmt.Sprintf("Extract after '%s'", params.Prefix)
	case domain.OpExtractBefore:
		return fmt.Sprintf("Extract before '%s'", params.Suffix)
	case domain.OpExtractMatching:
		return fmt.Sprintf("Extract matching '%s'", params.Pattern)
	case domain.OpExtractBetweenAndVerify:
		return fmt.Sprintf("Extract between '%s' and '%s' and verify equals '%s'", params.Prefix, params.Suffix, params.VerifyValue)
	default:
		return "Extract value"
	}
}

// DescribeCondition renders c in English.
func DescribeCondition(c domain.Condition) string {
	return DescribeMatch(c.Operation, c.Value, c.Values, Affixes{Prefix: c.Prefix, Suffix: c.Suffix})
}

func quoteList(values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = "'" + v + "'"
	}
	return strings.Join(quoted, ", ")
}
