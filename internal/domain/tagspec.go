package domain

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// ID identifies a rule library or a tag definition.
// Older exported documents carry numeric ids, so ID accepts a JSON number
// on decode and always encodes as a string.
type ID string

// UnmarshalJSON accepts either a JSON string or a JSON number.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = ID(n.String())
	return nil
}

// String returns the id as a plain string.
func (id ID) String() string {
	return string(id)
}

// IDFromInt is a convenience for tests and fixtures using numeric ids.
func IDFromInt(n int) ID {
	return ID(strconv.Itoa(n))
}

// ContextEntry is a single equality filter against a row field.
type ContextEntry struct {
	Key   string `json:"Key"`
	Value string `json:"Value"`
}

// Context is a set of equality filters. An empty Context matches every row.
type Context []ContextEntry

// Get returns the value for key, if present.
func (c Context) Get(key string) (string, bool) {
	for _, e := range c {
		if e.Key == key {
			return e.Value, true
		}
	}
	return "", false
}

// Equal reports whether both contexts hold the same entries, ignoring order.
func (c Context) Equal(other Context) bool {
	if len(c) != len(other) {
		return false
	}
	for _, e := range c {
		v, ok := other.Get(e.Key)
		if !ok || v != e.Value {
			return false
		}
	}
	return true
}

// PatternDetail is a cached, language-tagged rendering of a pattern.
type PatternDetail struct {
	LanguageCode string `json:"LanguageCode"`
	Description  string `json:"Description"`
}

// LanguageEnglish is the language code used for generated descriptions.
const LanguageEnglish = "en"

// CompiledExpression is the persisted form of a Condition.
type CompiledExpression struct {
	SourceField      string          `json:"SourceField"`
	ExpressionPrompt *string         `json:"ExpressionPrompt"`
	ExpressionID     *string         `json:"ExpressionId"`
	Pattern          string          `json:"Regex"`
	Details          []PatternDetail `json:"RegexDetails,omitempty"`
}

// Description returns the cached English description, or "" when none is stored.
func (e CompiledExpression) Description() string {
	return describeDetails(e.Details)
}

// AndGroup is a sequence of expressions that must all match.
type AndGroup []CompiledExpression

// RuleSet is a sequence of AND groups of which any may match.
// An empty RuleSet matches unconditionally.
type RuleSet []AndGroup

// AttributeExpression is the compiled, persisted form of an AttributeSpec.
type AttributeExpression struct {
	SourceField      string          `json:"SourceField"`
	ExpressionPrompt *string         `json:"ExpressionPrompt"`
	ExpressionID     string          `json:"ExpressionId"`
	Pattern          string          `json:"Regex"`
	Details          []PatternDetail `json:"RegexDetails,omitempty"`
	VerifyValue      string          `json:"VerifyValue,omitempty"`
}

// Description returns the cached English description, or "" when none is stored.
func (e AttributeExpression) Description() string {
	return describeDetails(e.Details)
}

// TagAttribute is a named value extracted from a row once its definition matches.
type TagAttribute struct {
	AttributeTag   string              `json:"AttributeTag"`
	IsMandatory    bool                `json:"IsMandatory"`
	LOVTag         *string             `json:"LOVTag"`
	ValidationKind ValidationKind      `json:"ValidationRuleTag"`
	Expression     AttributeExpression `json:"AttributeRuleExpression"`
}

// Validity is the date window in which a definition applies.
// Dates are ISO YYYY-MM-DD strings and compare lexically.
type Validity struct {
	StartDate string  `json:"StartDate"`
	EndDate   *string `json:"EndDate"`
}

// Contains reports whether day (YYYY-MM-DD) lies inside the window.
func (v Validity) Contains(day string) bool {
	if v.StartDate != "" && day < v.StartDate {
		return false
	}
	if v.EndDate != nil && *v.EndDate != "" && day > *v.EndDate {
		return false
	}
	return true
}

// TagDefinition is one taggable rule with its own context, rules and attributes.
type TagDefinition struct {
	ID         ID             `json:"Id"`
	Context    Context        `json:"Context"`
	Tag        string         `json:"Tag"`
	Status     Status         `json:"StatusTag"`
	Certainty  Certainty      `json:"CertaintyLevelTag"`
	Validity   Validity       `json:"Validity"`
	Rules      RuleSet        `json:"TagRuleExpressions"`
	Attributes []TagAttribute `json:"Attributes"`
}

// RuleLibrary groups definitions sharing a parent context.
type RuleLibrary struct {
	ID          ID              `json:"Id,omitempty"`
	Context     Context         `json:"Context"`
	Definitions []TagDefinition `json:"TagSpecDefinitions"`
}

// Status is the lifecycle state of a definition.
type Status string

const (
	StatusActive   Status = "ACTIVE"
	StatusInactive Status = "INACTIVE"
	StatusDraft    Status = "DRAFT"
)

// Certainty is the confidence attached to a definition's tag.
type Certainty string

const (
	CertaintyHigh   Certainty = "HIGH"
	CertaintyMedium Certainty = "MEDIUM"
	CertaintyLow    Certainty = "LOW"
)

// ValidationKind is the declared data type of an extracted attribute.
type ValidationKind string

const (
	ValidationString ValidationKind = "STRING"
	ValidationNumber ValidationKind = "NUMBER"
	ValidationDate   ValidationKind = "DATE"
)

func describeDetails(details []PatternDetail) string {
	for _, d := range details {
		if d.LanguageCode == LanguageEnglish {
			return d.Description
		}
	}
	if len(details) > 0 {
		return details[0].Description
	}
	return ""
}
