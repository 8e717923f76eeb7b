package analyzer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opensource-finance/tagspec/internal/domain"
)

func analyzed(label any, tags ...string) domain.AnalyzedRow {
	row := domain.Row{}
	if label != nil {
		row["Expected"] = label
	}
	result := domain.NewAnalysisResult()
	result.Tags = append(result.Tags, tags...)
	return domain.AnalyzedRow{Row: row, Analysis: result}
}

func TestScore(t *testing.T) {
	rows := []domain.AnalyzedRow{
		analyzed("SALARY", "SALARY"),
		analyzed("SALARY | FEE", "SALARY"),
		analyzed("", "FEE"),
		analyzed(""),
		analyzed(nil, "SALARY"),
	}

	card := Score(rows, "Expected")
	assert.Equal(t, 5, card.Rows)
	assert.Equal(t, 4, card.Labeled)
	assert.Equal(t, 2, card.ExactMatches)
	assert.InDelta(t, 0.5, card.Accuracy, 1e-9)

	require.Len(t, card.Tags, 2)
	fee, salary := card.Tags[0], card.Tags[1]
	assert.Equal(t, TagScore{Tag: "FEE", FalsePositives: 1, FalseNegatives: 1}, fee)

	assert.Equal(t, "SALARY", salary.Tag)
	assert.Equal(t, 2, salary.TruePositives)
	assert.InDelta(t, 1.0, salary.Precision, 1e-9)
	assert.InDelta(t, 1.0, salary.Recall, 1e-9)
	assert.InDelta(t, 1.0, salary.F1, 1e-9)

	assert.InDelta(t, 2.0/3.0, card.Precision, 1e-9)
	assert.InDelta(t, 2.0/3.0, card.Recall, 1e-9)
}

func TestScoreWithoutLabels(t *testing.T) {
	card := Score([]domain.AnalyzedRow{analyzed(nil, "A")}, "Expected")
	assert.Equal(t, 0, card.Labeled)
	assert.Zero(t, card.Accuracy)
	assert.NotNil(t, card.Tags)
	assert.Empty(t, card.Tags)
}

func TestParseLabel(t *testing.T) {
	assert.Equal(t, map[string]bool{"A": true, "B": true, "C": true}, ParseLabel(" A, B;C|"))
	assert.Empty(t, ParseLabel(" "))
}
