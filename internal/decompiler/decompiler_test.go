package decompiler

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/opensource-finance/tagspec/internal/compiler"
	"github.com/opensource-finance/tagspec/internal/domain"
)

func TestDecomposeMatch(t *testing.T) {
	tests := []struct {
		pattern string
		want    Decomposition
	}{
		{"(?:/ORDP/)1234(?:/)", Decomposition{Operation: domain.OpExtractAndCompare, Value: "1234", Prefix: "/ORDP/", Suffix: "/",
			Description: "Extract between '/ORDP/' and '/' equals '1234'"}},
		{"^(?!.*VOID)", Decomposition{Operation: domain.OpDoesNotContain, Value: "VOID", Description: "Does not contain 'VOID'"}},
		{"^(?!BAD$)", Decomposition{Operation: domain.OpDoesNotEqual, Value: "BAD", Description: "Does not equal 'BAD'"}},
		{"/ORDP/(.*?)/", Decomposition{Operation: domain.OpExtractBetween, Prefix: "/ORDP/", Suffix: "/",
			Description: "Extract between '/ORDP/' and '/'"}},
		{"REF:(.*)", Decomposition{Operation: domain.OpExtractAfter, Prefix: "REF:", Description: "Extract after 'REF:'"}},
		{`(.*?)\.`, Decomposition{Operation: domain.OpExtractBefore, Suffix: ".", Description: "Extract before '.'"}},
		{"^EXACT$", Decomposition{Operation: domain.OpEquals, Value: "EXACT", Description: "Equals 'EXACT'"}},
		{`^TNXT/56\.`, Decomposition{Operation: domain.OpBeginsWith, Value: "TNXT/56.", Description: "Starts with 'TNXT/56.'"}},
		{"USD$", Decomposition{Operation: domain.OpEndsWith, Value: "USD", Description: "Ends with 'USD'"}},
		{`SAL|PAY\.ROLL`, Decomposition{Operation: domain.OpMatchesPattern, Value: "SAL", Values: []string{"SAL", "PAY.ROLL"},
			Description: "Matches one of: 'SAL', 'PAY.ROLL'"}},
		{"PAYMENT", Decomposition{Operation: domain.OpContains, Value: "PAYMENT", Description: "Contains 'PAYMENT'"}},
		{"__NUMERIC_GTE:10.5", Decomposition{Operation: domain.OpGreaterThanOrEqual, Value: "10.5",
			Description: "Greater than or equal to 10.5"}},
	}

	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			assert.Equal(t, tt.want, DecomposeMatch(tt.pattern))
		})
	}
}

func TestDecomposeMatchUnrecognizedIsContains(t *testing.T) {
	d := DecomposeMatch(`[A-Z]{3}\d+`)
	assert.Equal(t, domain.OpContains, d.Operation)
	assert.Equal(t, `[A-Z]{3}\d+`, d.Value)
	assert.Equal(t, `Contains '[A-Z]{3}\d+'`, d.Description)
}

func TestCanonicalRoundTrip(t *testing.T) {
	ops := []domain.Operation{domain.OpBeginsWith, domain.OpEndsWith, domain.OpContains, domain.OpEquals}
	for _, op := range ops {
		t.Run(string(op), func(t *testing.T) {
			compiled := compiler.CompileMatch(op, "ORDP", nil, compiler.Affixes{}).Source()
			d := DecomposeMatch(compiled)
			assert.Equal(t, op, d.Operation)

			again := compiler.CompileMatch(d.Operation, d.Value, d.Values, compiler.Affixes{Prefix: d.Prefix, Suffix: d.Suffix})
			assert.Equal(t, compiled, again.Source())
		})
	}
}

func TestRoundTripWithMetacharacters(t *testing.T) {
	conds := []domain.Condition{
		{Operation: domain.OpBeginsWith, Value: "TNXT/56.*"},
		{Operation: domain.OpDoesNotContain, Value: "VOID(1)"},
		{Operation: domain.OpDoesNotEqual, Value: "a+b"},
		{Operation: domain.OpMatchesPattern, Values: []string{"A.B", "C?"}},
		{Operation: domain.OpExtractAndCompare, Value: "X", Prefix: "[", Suffix: "]"},
		{Operation: domain.OpLessThan, Value: "42"},
	}
	for _, c := range conds {
		t.Run(string(c.Operation), func(t *testing.T) {
			compiled := compiler.CompileCondition(c).Pattern
			d := DecomposeMatch(compiled)
			assert.Equal(t, c.Operation, d.Operation)
			assert.Equal(t, compiled, compiler.CompileCondition(d.Condition("")).Pattern)
		})
	}
}

func TestDecomposeExtraction(t *testing.T) {
	tests := []struct {
		pattern string
		want    Decomposition
	}{
		{`(SA\d{22})`, Decomposition{Operation: domain.Operation("predefined:ksa_iban"), Description: "Verify KSA IBAN"}},
		{"A(.*?)B", Decomposition{Operation: domain.OpExtractBetween, Prefix: "A", Suffix: "B", Description: "Extract between 'A' and 'B'"}},
		{"REF:(.*)", Decomposition{Operation: domain.OpExtractAfter, Prefix: "REF:", Description: "Extract after 'REF:'"}},
		{`(.*?)\/`, Decomposition{Operation: domain.OpExtractBefore, Suffix: `\/`, Description: `Extract before '\/'`}},
		{`(\d{4})`, Decomposition{Operation: domain.OpExtractMatching, Pattern: `\d{4}`, Description: `Extract matching '\d{4}'`}},
		{"(.*)", Decomposition{Operation: domain.OpExtractMatching, Pattern: ".*", Description: "Extract matching '.*'"}},
		{`\d+`, Decomposition{Operation: domain.OpExtractMatching, Pattern: `\d+`, Description: `Extract matching '\d+'`}},
	}

	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			assert.Equal(t, tt.want, DecomposeExtraction(tt.pattern))
		})
	}
}

func TestExtractionRoundTrip(t *testing.T) {
	specs := []struct {
		op     domain.Operation
		params compiler.ExtractionParams
	}{
		{domain.OpExtractBetween, compiler.ExtractionParams{Prefix: "/ORDP/", Suffix: "/"}},
		{domain.OpExtractAfter, compiler.ExtractionParams{Prefix: "REF."}},
		{domain.OpExtractBefore, compiler.ExtractionParams{Suffix: "$"}},
		{domain.OpExtractMatching, compiler.ExtractionParams{Pattern: `[0-9]+`}},
		{domain.Operation("predefined:ksa_iban"), compiler.ExtractionParams{}},
	}
	for _, s := range specs {
		t.Run(string(s.op), func(t *testing.T) {
			compiled := compiler.CompileExtraction(s.op, s.params)
			d := DecomposeExtraction(compiled)
			assert.Equal(t, s.op, d.Operation)
			again := compiler.CompileExtraction(d.Operation, compiler.ExtractionParams{Prefix: d.Prefix, Suffix: d.Suffix, Pattern: d.Pattern})
			assert.Equal(t, compiled, again)
		})
	}
}

func TestDescribe(t *testing.T) {
	assert.Equal(t, "Starts with 'ORDP'", Describe("^ORDP"))
	assert.Equal(t, "Verify KSA IBAN", Describe(`(SA\d{22})`))
	assert.Equal(t, "Greater than 100", Describe("__NUMERIC_GT:100"))
}

func TestDescribeExpressionPrefersCachedText(t *testing.T) {
	e := domain.CompiledExpression{
		Pattern: "^ORDP",
		Details: []domain.PatternDetail{{LanguageCode: domain.LanguageEnglish, Description: "Begin with 'ORDP'"}},
	}
	assert.Equal(t, "Begin with 'ORDP'", DescribeExpression(e))

	e.Details = nil
	assert.Equal(t, "Starts with 'ORDP'", DescribeExpression(e))
}
