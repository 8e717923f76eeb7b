// Package analyzer applies a rule collection to transaction rows and
// produces the tags and attribute values for each row.
package analyzer

import (
	"time"

	"github.com/opensource-finance/tagspec/internal/domain"
	"github.com/opensource-finance/tagspec/internal/rules"
	"github.com/opensource-finance/tagspec/internal/validation"
)

// dateLayout is the ISO day format validity windows are written in.
const dateLayout = "2006-01-02"

// Analyzer evaluates rows against rule libraries.
type Analyzer struct {
	engine    *rules.Engine
	validator *validation.Validator
	now       func() time.Time
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithClock sets the clock used for validity windows.
func WithClock(now func() time.Time) Option {
	return func(a *Analyzer) {
		a.now = now
	}
}

// WithValidator enables attribute checks on every matched definition.
func WithValidator(v *validation.Validator) Option {
	return func(a *Analyzer) {
		a.validator = v
	}
}

// New creates an analyzer over engine.
func New(engine *rules.Engine, opts ...Option) *Analyzer {
	a := &Analyzer{
		engine: engine,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze evaluates one row against every library.
//
// A library applies only when its Context matches the row. Within it, a
// definition contributes when it is ACTIVE, today lies inside its validity
// window, its own Context matches, and its rule set matches. Tags keep
// library then definition order and are not de-duplicated. Attributes are
// keyed by tag, so a later definition with the same tag replaces an earlier one.
func (a *Analyzer) Analyze(row domain.Row, libraries []domain.RuleLibrary) domain.AnalysisResult {
	result := domain.NewAnalysisResult()
	today := a.now().UTC().Format(dateLayout)

	for _, lib := range libraries {
		if !contextMatches(lib.Context, row) {
			continue
		}

		for _, def := range lib.Definitions {
			if def.Status != domain.StatusActive {
				continue
			}
			if !def.Validity.Contains(today) {
				continue
			}
			if !contextMatches(def.Context, row) {
				continue
			}
			if !a.engine.EvaluateRuleSet(def.Rules, row) {
				continue
			}

			result.Tags = append(result.Tags, def.Tag)
			result.MatchedDefinitions = append(result.MatchedDefinitions, def)

			values := a.engine.Extract(def.Attributes, row)
			result.Attributes[def.Tag] = values
			if a.validator != nil {
				result.Checks[def.Tag] = a.validator.CheckAll(def.Attributes, values)
			}
		}
	}

	return result
}

// AnalyzeAll analyzes every row, preserving order.
func (a *Analyzer) AnalyzeAll(rows []domain.Row, libraries []domain.RuleLibrary) []domain.AnalyzedRow {
	out := make([]domain.AnalyzedRow, len(rows))
	for i, row := range rows {
		out[i] = domain.AnalyzedRow{Row: row, Analysis: a.Analyze(row, libraries)}
	}
	return out
}

// Preview analyzes rows against a single definition that has not been saved.
// The definition is wrapped in a library with an empty Context, so only the
// definition's own filters apply.
func (a *Analyzer) Preview(def domain.TagDefinition, rows []domain.Row) []domain.AnalyzedRow {
	return a.AnalyzeAll(rows, []domain.RuleLibrary{{Context: domain.Context{}, Definitions: []domain.TagDefinition{def}}})
}

// contextMatches requires every entry to equal the row's stringified field.
// An empty context matches every row.
func contextMatches(ctx domain.Context, row domain.Row) bool {
	for _, entry := range ctx {
		v, ok := row.String(entry.Key)
		if !ok || v != entry.Value {
			return false
		}
	}
	return true
}
