package analyzer

import "github.com/opensource-finance/tagspec/internal/domain"

// Summarize aggregates analyzed rows.
func Summarize(analyzed []domain.AnalyzedRow) domain.Summary {
	s := domain.Summary{
		Rows:      len(analyzed),
		TagCounts: make(map[string]int),
	}

	for _, r := range analyzed {
		tags := r.Analysis.Tags
		switch {
		case len(tags) == 0:
			s.Untagged++
		case len(tags) > 1:
			s.MultiTag++
			s.Tagged++
		default:
			s.Tagged++
		}
		for _, tag := range tags {
			s.TagCounts[tag]++
		}
		if incomplete(r.Analysis) {
			s.Incomplete++
		}
	}

	return s
}

// incomplete reports whether any attribute check failed.
func incomplete(result domain.AnalysisResult) bool {
	for _, checks := range result.Checks {
		for _, c := range checks {
			if !c.Valid {
				return true
			}
		}
	}
	return false
}
