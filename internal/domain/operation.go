package domain

import "strings"

// Operation names a user-facing match or extraction test.
type Operation string

// Match operations.
const (
	OpBeginsWith         Operation = "begins_with"
	OpEndsWith           Operation = "ends_with"
	OpContains           Operation = "contains"
	OpDoesNotContain     Operation = "does_not_contain"
	OpEquals             Operation = "equals"
	OpDoesNotEqual       Operation = "does_not_equal"
	OpMatchesPattern     Operation = "matches_pattern"
	OpExtractAndCompare  Operation = "extract_and_compare"
	OpGreaterThan        Operation = "greater_than"
	OpLessThan           Operation = "less_than"
	OpGreaterThanOrEqual Operation = "greater_than_or_equal"
	OpLessThanOrEqual    Operation = "less_than_or_equal"
)

// Extraction operations.
const (
	OpExtractBetween          Operation = "extract_between"
	OpExtractAfter            Operation = "extract_after"
	OpExtractBefore           Operation = "extract_before"
	OpExtractMatching         Operation = "extract_matching"
	OpExtractBetweenAndVerify Operation = "extract_between_and_verify"
)

// PredefinedPrefix marks an extraction operation backed by a built-in pattern.
const PredefinedPrefix = "predefined:"

// IsNumeric reports whether op is a numeric comparison.
func (op Operation) IsNumeric() bool {
	switch op {
	case OpGreaterThan, OpLessThan, OpGreaterThanOrEqual, OpLessThanOrEqual:
		return true
	}
	return false
}

// IsExtraction reports whether op is an extraction operation.
func (op Operation) IsExtraction() bool {
	switch op {
	case OpExtractBetween, OpExtractAfter, OpExtractBefore, OpExtractMatching, OpExtractBetweenAndVerify:
		return true
	}
	return op.IsPredefined()
}

// IsPredefined reports whether op names a predefined extraction pattern.
func (op Operation) IsPredefined() bool {
	return strings.HasPrefix(string(op), PredefinedPrefix)
}

// PredefinedName returns the table key of a predefined operation.
func (op Operation) PredefinedName() string {
	return strings.TrimPrefix(string(op), PredefinedPrefix)
}

// Condition is one user-authored match test against a single row field.
type Condition struct {
	SourceField string    `json:"sourceField"`
	Operation   Operation `json:"operation"`
	Value       string    `json:"value"`
	Values      []string  `json:"values,omitempty"`
	Prefix      string    `json:"prefix,omitempty"`
	Suffix      string    `json:"suffix,omitempty"`
	VerifyValue string    `json:"verifyValue,omitempty"`
}

// AttributeSpec is the structured, editable form of a TagAttribute.
type AttributeSpec struct {
	AttributeTag        string         `json:"attributeTag"`
	IsMandatory         bool           `json:"isMandatory"`
	ValidationKind      ValidationKind `json:"validationKind"`
	SourceField         string         `json:"sourceField"`
	ExtractionOperation Operation      `json:"extractionOperation"`
	Prefix              string         `json:"prefix,omitempty"`
	Suffix              string         `json:"suffix,omitempty"`
	Pattern             string         `json:"pattern,omitempty"`
	VerifyValue         string         `json:"verifyValue,omitempty"`
}

// PredefinedPattern is a built-in extraction pattern that takes no user parameters.
type PredefinedPattern struct {
	Name  string
	Label string
	Regex string
	// Validate marks patterns whose match result is itself the signal shown to users.
	Validate bool
}

// Operation returns the extraction operation that selects this pattern.
func (p PredefinedPattern) Operation() Operation {
	return Operation(PredefinedPrefix + p.Name)
}

// PredefinedPatterns is the fixed table of built-in extraction patterns.
var PredefinedPatterns = []PredefinedPattern{
	{Name: "ksa_iban", Label: "Verify KSA IBAN", Regex: `(SA\d{22})`, Validate: true},
}

// LookupPredefined finds a predefined pattern by name.
func LookupPredefined(name string) (PredefinedPattern, bool) {
	for _, p := range PredefinedPatterns {
		if p.Name == name {
			return p, true
		}
	}
	return PredefinedPattern{}, false
}
