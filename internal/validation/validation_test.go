package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opensource-finance/tagspec/internal/domain"
)

func ptr(s string) *string { return &s }

func attr(kind domain.ValidationKind, mandatory bool, verify string) domain.TagAttribute {
	return domain.TagAttribute{
		AttributeTag:   "A",
		IsMandatory:    mandatory,
		ValidationKind: kind,
		Expression:     domain.AttributeExpression{VerifyValue: verify},
	}
}

func TestCheck(t *testing.T) {
	v, err := NewValidator()
	require.NoError(t, err)

	tests := []struct {
		name   string
		attr   domain.TagAttribute
		value  *string
		valid  bool
		reason string
	}{
		{"nil optional", attr(domain.ValidationString, false, ""), nil, true, ""},
		{"nil mandatory", attr(domain.ValidationString, true, ""), nil, false, ReasonMissing},
		{"string", attr(domain.ValidationString, true, ""), ptr("ACME"), true, ""},
		{"empty string", attr(domain.ValidationString, false, ""), ptr(""), false, "not a STRING"},
		{"number", attr(domain.ValidationNumber, true, ""), ptr("-12.50"), true, ""},
		{"number exponent", attr(domain.ValidationNumber, true, ""), ptr("1e5"), true, ""},
		{"not a number", attr(domain.ValidationNumber, true, ""), ptr("12a"), false, "not a NUMBER"},
		{"date", attr(domain.ValidationDate, true, ""), ptr("2024-01-31"), true, ""},
		{"not a date", attr(domain.ValidationDate, true, ""), ptr("31/01/2024"), false, "not a DATE"},
		{"unknown kind is string", attr(domain.ValidationKind("LIST"), true, ""), ptr("x"), true, ""},
		{"verify match", attr(domain.ValidationString, true, "ACME"), ptr("ACME"), true, ""},
		{"verify mismatch", attr(domain.ValidationString, true, "ACME"), ptr("OTHER"), false, "expected 'ACME'"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := v.Check(tt.attr, tt.value)
			assert.Equal(t, tt.valid, got.Valid)
			assert.Equal(t, tt.reason, got.Reason)
		})
	}
}

func TestCheckAll(t *testing.T) {
	v, err := NewValidator()
	require.NoError(t, err)

	attrs := []domain.TagAttribute{
		{AttributeTag: "Ref", IsMandatory: true, ValidationKind: domain.ValidationString},
		{AttributeTag: "Amount", IsMandatory: true, ValidationKind: domain.ValidationNumber},
	}
	got := v.CheckAll(attrs, map[string]*string{"Ref": ptr("1234")})

	assert.True(t, got["Ref"].Valid)
	assert.False(t, got["Amount"].Valid)
	assert.Equal(t, ReasonMissing, got["Amount"].Reason)
}
