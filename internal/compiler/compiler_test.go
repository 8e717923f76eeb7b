package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opensource-finance/tagspec/internal/domain"
)

func TestCompileMatch(t *testing.T) {
	tests := []struct {
		name    string
		op      domain.Operation
		value   string
		values  []string
		affixes Affixes
		want    string
	}{
		{"begins with", domain.OpBeginsWith, "ORDP", nil, Affixes{}, "^ORDP"},
		{"ends with", domain.OpEndsWith, "USD", nil, Affixes{}, "USD$"},
		{"equals", domain.OpEquals, "EXACT", nil, Affixes{}, "^EXACT$"},
		{"contains", domain.OpContains, "PAYMENT", nil, Affixes{}, "PAYMENT"},
		{"does not contain", domain.OpDoesNotContain, "VOID", nil, Affixes{}, "^(?!.*VOID)"},
		{"does not equal", domain.OpDoesNotEqual, "BAD", nil, Affixes{}, "^(?!BAD$)"},
		{"matches pattern", domain.OpMatchesPattern, "", []string{"SAL", "PAY.ROLL"}, Affixes{}, `SAL|PAY\.ROLL`},
		{"matches pattern falls back to value", domain.OpMatchesPattern, "ONLY", nil, Affixes{}, "ONLY"},
		{"extract and compare", domain.OpExtractAndCompare, "1234", nil, Affixes{Prefix: "/ORDP/", Suffix: "/"}, "(?:/ORDP/)1234(?:/)"},
		{"escapes metacharacters", domain.OpBeginsWith, "TNXT/56.*(x)", nil, Affixes{}, `^TNXT/56\.\*\(x\)`},
		{"unknown operation is a literal", domain.Operation("nope"), "a+b", nil, Affixes{}, `a\+b`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CompileMatch(tt.op, tt.value, tt.values, tt.affixes)
			assert.False(t, got.IsNumeric())
			assert.Equal(t, tt.want, got.Source())
		})
	}
}

func TestCompileMatchNumeric(t *testing.T) {
	tests := []struct {
		op   domain.Operation
		want string
	}{
		{domain.OpGreaterThan, "__NUMERIC_GT:100"},
		{domain.OpLessThan, "__NUMERIC_LT:100"},
		{domain.OpGreaterThanOrEqual, "__NUMERIC_GTE:100"},
		{domain.OpLessThanOrEqual, "__NUMERIC_LTE:100"},
	}

	for _, tt := range tests {
		t.Run(string(tt.op), func(t *testing.T) {
			got := CompileMatch(tt.op, "100", nil, Affixes{})
			require.True(t, got.IsNumeric())
			assert.Equal(t, tt.want, got.Source())

			parsed := Parse(got.Source())
			require.NotNil(t, parsed.Numeric)
			assert.Equal(t, tt.op, parsed.Numeric.Op)
			assert.Equal(t, "100", parsed.Numeric.Threshold)
		})
	}
}

func TestParsePattern(t *testing.T) {
	got := Parse("^ORDP")
	assert.False(t, got.IsNumeric())
	assert.Equal(t, "^ORDP", got.Pattern)
}

func TestNumericCompare(t *testing.T) {
	gt := NumericComparison{Op: domain.OpGreaterThan, Threshold: "100"}
	assert.True(t, gt.Compare("150"))
	assert.False(t, gt.Compare("100"))
	assert.False(t, gt.Compare("abc"))
	assert.True(t, gt.Compare("  150.50 SAR"))

	gte := NumericComparison{Op: domain.OpGreaterThanOrEqual, Threshold: "100"}
	assert.True(t, gte.Compare("100"))

	lte := NumericComparison{Op: domain.OpLessThanOrEqual, Threshold: "1e2"}
	assert.True(t, lte.Compare("100"))
	assert.False(t, lte.Compare("100.01"))

	bad := NumericComparison{Op: domain.OpLessThan, Threshold: "x"}
	assert.False(t, bad.Compare("1"))
}

func TestParseNumber(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"150", 150, true},
		{"-1.5", -1.5, true},
		{".5", 0.5, true},
		{"3.", 3, true},
		{"12abc", 12, true},
		{"1e3", 1000, true},
		{"1e", 1, true},
		{"abc", 0, false},
		{"", 0, false},
		{"-", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseNumber(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCompileExtraction(t *testing.T) {
	tests := []struct {
		name   string
		op     domain.Operation
		params ExtractionParams
		want   string
	}{
		{"between", domain.OpExtractBetween, ExtractionParams{Prefix: "/ORDP/", Suffix: "/"}, "/ORDP/(.*?)/"},
		{"after", domain.OpExtractAfter, ExtractionParams{Prefix: "REF:"}, "REF:(.*)"},
		{"before", domain.OpExtractBefore, ExtractionParams{Suffix: "."}, `(.*?)\.`},
		{"matching", domain.OpExtractMatching, ExtractionParams{Pattern: `\d{4}`}, `(\d{4})`},
		{"matching defaults to anything", domain.OpExtractMatching, ExtractionParams{}, "(.*)"},
		{"between and verify", domain.OpExtractBetweenAndVerify, ExtractionParams{Prefix: "A", Suffix: "B", VerifyValue: "X"}, "A(.*?)B"},
		{"predefined", domain.Operation("predefined:ksa_iban"), ExtractionParams{Prefix: "ignored"}, `(SA\d{22})`},
		{"unknown predefined", domain.Operation("predefined:nope"), ExtractionParams{}, "(.*)"},
		{"unknown", domain.Operation("nope"), ExtractionParams{}, "(.*)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CompileExtraction(tt.op, tt.params))
		})
	}
}

func TestDescribeMatch(t *testing.T) {
	assert.Equal(t, "Begin with 'ORDP'", DescribeMatch(domain.OpBeginsWith, "ORDP", nil, Affixes{}))
	assert.Equal(t, "End with 'USD'", DescribeMatch(domain.OpEndsWith, "USD", nil, Affixes{}))
	assert.Equal(t, "Contain 'PAY'", DescribeMatch(domain.OpContains, "PAY", nil, Affixes{}))
	assert.Equal(t, "Not contain 'VOID'", DescribeMatch(domain.OpDoesNotContain, "VOID", nil, Affixes{}))
	assert.Equal(t, "Equal 'X'", DescribeMatch(domain.OpEquals, "X", nil, Affixes{}))
	assert.Equal(t, "Not equal 'X'", DescribeMatch(domain.OpDoesNotEqual, "X", nil, Affixes{}))
	assert.Equal(t, "Match one of: 'a', 'b'", DescribeMatch(domain.OpMatchesPattern, "", []string{"a", "b"}, Affixes{}))
	assert.Equal(t, "Extract between 'P' and 'S' equals 'V'", DescribeMatch(domain.OpExtractAndCompare, "V", nil, Affixes{Prefix: "P", Suffix: "S"}))
	assert.Equal(t, "Greater than 100", DescribeMatch(domain.OpGreaterThan, "100", nil, Affixes{}))
	assert.Equal(t, "Less than 5", DescribeMatch(domain.OpLessThan, "5", nil, Affixes{}))
	assert.Equal(t, "Greater than or equal to 1", DescribeMatch(domain.OpGreaterThanOrEqual, "1", nil, Affixes{}))
	assert.Equal(t, "Less than or equal to 2", DescribeMatch(domain.OpLessThanOrEqual, "2", nil, Affixes{}))
}

func TestDescribeExtraction(t *testing.T) {
	assert.Equal(t, "Extract between 'A' and 'B'", DescribeExtraction(domain.OpExtractBetween, ExtractionParams{Prefix: "A", Suffix: "B"}))
	assert.Equal(t, "Extract after 'A'", DescribeExtraction(domain.OpExtractAfter, ExtractionParams{Prefix: "A"}))
	assert.Equal(t, "Extract before 'B'", DescribeExtraction(domain.OpExtractBefore, ExtractionParams{Suffix: "B"}))
	assert.Equal(t, "Extract matching '\\d+'", DescribeExtraction(domain.OpExtractMatching, ExtractionParams{Pattern: `\d+`}))
	assert.Equal(t, "Extract between 'A' and 'B' and verify equals 'V'",
		DescribeExtraction(domain.OpExtractBetweenAndVerify, ExtractionParams{Prefix: "A", Suffix: "B", VerifyValue: "V"}))
	assert.Equal(t, "Verify KSA IBAN", DescribeExtraction(domain.Operation("predefined:ksa_iban"), ExtractionParams{}))
	assert.Equal(t, "Extract value", DescribeExtraction(domain.Operation("other"), ExtractionParams{}))
}

func TestCompileDeterministic(t *testing.T) {
	cond := domain.Condition{
		SourceField: "Field86",
		Operation:   domain.OpMatchesPattern,
		Values:      []string{"SAL(ARY)", "WAGE"},
	}
	first := CompileCondition(cond)
	second := CompileCondition(cond)
	assert.Equal(t, first, second)
	assert.Equal(t, `SAL\(ARY\)|WAGE`, first.Pattern)
	assert.Equal(t, "Match one of: 'SAL(ARY)', 'WAGE'", first.Description())
	assert.Nil(t, first.ExpressionID)
	assert.Nil(t, first.ExpressionPrompt)
}

func TestMatchesPatternDoesNotMutateInput(t *testing.T) {
	values := []string{"a.b", "c"}
	CompileMatch(domain.OpMatchesPattern, "", values, Affixes{})
	assert.Equal(t, []string{"a.b", "c"}, values)
}

func TestCompileAttribute(t *testing.T) {
	spec := domain.AttributeSpec{
		AttributeTag:        "Reference",
		IsMandatory:         true,
		SourceField:         "Field86",
		ExtractionOperation: domain.OpExtractBetweenAndVerify,
		Prefix:              "/ORDP/",
		Suffix:              "/",
		VerifyValue:         "ACME",
	}

	attr := CompileAttribute(spec, "42-attr-0")
	assert.Equal(t, "Reference", attr.AttributeTag)
	assert.True(t, attr.IsMandatory)
	assert.Equal(t, domain.ValidationString, attr.ValidationKind)
	assert.Equal(t, "/ORDP/(.*?)/", attr.Expression.Pattern)
	assert.Equal(t, "42-attr-0", attr.Expression.ExpressionID)
	assert.Equal(t, "ACME", attr.Expression.VerifyValue)
	assert.Nil(t, attr.Expression.ExpressionPrompt)
	assert.Equal(t, "Extract between '/ORDP/' and '/' and verify equals 'ACME'", attr.Expression.Description())

	spec.VerifyValue = ""
	assert.Empty(t, CompileAttribute(spec, "x").Expression.VerifyValue)
}

func TestEscapeRoundTrip(t *testing.T) {
	raw := `a.b*c+d?e^f$g{h}i(j)k|l[m]n\o`
	assert.Equal(t, raw, Unescape(Escape(raw)))
}
