// Package editor converts between the structured form used to author a tag
// definition and the persisted definition.
package editor

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/opensource-finance/tagspec/internal/compiler"
	"github.com/opensource-finance/tagspec/internal/decompiler"
	"github.com/opensource-finance/tagspec/internal/domain"
)

// Context keys used by statement libraries.
const (
	KeySide                = "Side"
	KeyBankSwiftCode       = "BankSwiftCode"
	KeyTransactionTypeCode = "TransactionTypeCode"
)

// Form is the editable shape of a tag definition.
type Form struct {
	Tag           string                 `json:"tag"`
	ParentContext domain.Context         `json:"parentContext"`
	Context       domain.Context         `json:"context"`
	Status        domain.Status          `json:"status"`
	Certainty     domain.Certainty       `json:"certainty"`
	Validity      domain.Validity        `json:"validity"`
	Groups        [][]domain.Condition   `json:"groups"`
	Attributes    []domain.AttributeSpec `json:"attributes"`
}

// StatementContext builds the usual parent and child contexts of a statement
// library: side and bank at the library level, transaction type code on the
// definition when set.
func StatementContext(side, bankSwiftCode, transactionTypeCode string) (parent, child domain.Context) {
	parent = domain.Context{
		{Key: KeySide, Value: side},
		{Key: KeyBankSwiftCode, Value: bankSwiftCode},
	}
	child = domain.Context{}
	if transactionTypeCode != "" {
		child = append(child, domain.ContextEntry{Key: KeyTransactionTypeCode, Value: transactionTypeCode})
	}
	return parent, child
}

// NewForm returns an empty form for a new ACTIVE, HIGH certainty definition
// valid from day.
func NewForm(day string) Form {
	return Form{
		ParentContext: domain.Context{},
		Context:       domain.Context{},
		Status:        domain.StatusActive,
		Certainty:     domain.CertaintyHigh,
		Validity:      domain.Validity{StartDate: day},
		Groups:        [][]domain.Condition{},
		Attributes:    []domain.AttributeSpec{},
	}
}

// ToDefinition compiles form into a definition with id, returning the parent
// context the definition belongs under. An empty id is replaced with a new one.
func ToDefinition(id domain.ID, form Form) (domain.Context, domain.TagDefinition) {
	if id == "" {
		id = domain.ID(uuid.New().String())
	}

	def := domain.TagDefinition{
		ID:         id,
		Context:    nonNilContext(form.Context),
		Tag:        form.Tag,
		Status:     form.Status,
		Certainty:  form.Certainty,
		Validity:   form.Validity,
		Rules:      make(domain.RuleSet, 0, len(form.Groups)),
		Attributes: make([]domain.TagAttribute, 0, len(form.Attributes)),
	}

	for _, group := range form.Groups {
		and := make(domain.AndGroup, 0, len(group))
		for _, c := range group {
			and = append(and, compiler.CompileCondition(c))
		}
		def.Rules = append(def.Rules, and)
	}

	for i, a := range form.Attributes {
		def.Attributes = append(def.Attributes, compiler.CompileAttribute(a, AttributeExpressionID(id, i)))
	}

	return nonNilContext(form.ParentContext), def
}

// FromDefinition recovers the form a definition was authored from. Patterns
// that do not have a known shape come back as "contains" conditions or
// extract_matching attributes over the raw pattern.
func FromDefinition(def domain.TagDefinition, parent domain.Context) Form {
	form := Form{
		Tag:           def.Tag,
		ParentContext: nonNilContext(parent),
		Context:       nonNilContext(def.Context),
		Status:        def.Status,
		Certainty:     def.Certainty,
		Validity:      def.Validity,
		Groups:        make([][]domain.Condition, 0, len(def.Rules)),
		Attributes:    make([]domain.AttributeSpec, 0, len(def.Attributes)),
	}

	for _, group := range def.Rules {
		conds := make([]domain.Condition, 0, len(group))
		for _, expr := range group {
			conds = append(conds, decompiler.DecomposeMatch(expr.Pattern).Condition(expr.SourceField))
		}
		form.Groups = append(form.Groups, conds)
	}

	for _, attr := range def.Attributes {
		d := decompiler.DecomposeExtraction(attr.Expression.Pattern)
		op := d.Operation
		if attr.Expression.VerifyValue != "" {
			op = domain.OpExtractBetweenAndVerify
		}
		form.Attributes = append(form.Attributes, domain.AttributeSpec{
			AttributeTag:        attr.AttributeTag,
			IsMandatory:         attr.IsMandatory,
			ValidationKind:      attr.ValidationKind,
			SourceField:         attr.Expression.SourceField,
			ExtractionOperation: op,
			Prefix:              d.Prefix,
			Suffix:              d.Suffix,
			Pattern:             d.Pattern,
			VerifyValue:         attr.Expression.VerifyValue,
		})
	}

	return form
}

// AttributeExpressionID names the expression of the index-th attribute of definition id.
func AttributeExpressionID(id domain.ID, index int) string {
	return fmt.Sprintf("%s-attr-%d", id, index)
}

func nonNilContext(c domain.Context) domain.Context {
	if c == nil {
		return domain.Context{}
	}
	return c
}
