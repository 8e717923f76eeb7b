package analyzer

import (
	"sort"
	"strings"

	"github.com/opensource-finance/tagspec/internal/domain"
)

// TagScore is the confusion count of one tag over labeled rows.
type TagScore struct {
	Tag            string  `json:"tag"`
	TruePositives  int     `json:"truePositives"`
	FalsePositives int     `json:"falsePositives"`
	FalseNegatives int     `json:"falseNegatives"`
	Precision      float64 `json:"precision"`
	Recall         float64 `json:"recall"`
	F1             float64 `json:"f1"`
}

// Scorecard compares produced tags with the expected tags held in a label
// field of each row. Rows without the label field are not scored.
type Scorecard struct {
	Rows         int        `json:"rows"`
	Labeled      int        `json:"labeled"`
	ExactMatches int        `json:"exactMatches"`
	Accuracy     float64    `json:"accuracy"`
	Precision    float64    `json:"precision"`
	Recall       float64    `json:"recall"`
	F1           float64    `json:"f1"`
	Tags         []TagScore `json:"tags"`
}

// Score builds a scorecard from analyzed rows. The label value lists the
// expected tags separated by commas, semicolons or pipes; an empty label
// expects the row to stay untagged.
func Score(analyzed []domain.AnalyzedRow, labelField string) Scorecard {
	card := Scorecard{Rows: len(analyzed), Tags: []TagScore{}}
	byTag := make(map[string]*TagScore)
	tag := func(name string) *TagScore {
		s, ok := byTag[name]
		if !ok {
			s = &TagScore{Tag: name}
			byTag[name] = s
		}
		return s
	}

	for _, r := range analyzed {
		raw, ok := r.Row[labelField]
		if !ok {
			continue
		}
		card.Labeled++

		expected := ParseLabel(domain.Stringify(raw))
		got := make(map[string]bool, len(r.Analysis.Tags))
		for _, t := range r.Analysis.Tags {
			got[t] = true
		}

		exact := len(got) == len(expected)
		for t := range expected {
			if got[t] {
				tag(t).TruePositives++
			} else {
				tag(t).FalseNegatives++
				exact = false
			}
		}
		for t := range got {
			if !expected[t] {
				tag(t).FalsePositives++
				exact = false
			}
		}
		if exact {
			card.ExactMatches++
		}
	}

	var tp, fp, fn int
	for _, s := range byTag {
		s.Precision, s.Recall, s.F1 = rates(s.TruePositives, s.FalsePositives, s.FalseNegatives)
		tp += s.TruePositives
		fp += s.FalsePositives
		fn += s.FalseNegatives
		card.Tags = append(card.Tags, *s)
	}
	sort.Slice(card.Tags, func(i, j int) bool { return card.Tags[i].Tag < card.Tags[j].Tag })

	card.Precision, card.Recall, card.F1 = rates(tp, fp, fn)
	if card.Labeled > 0 {
		card.Accuracy = float64(card.ExactMatches) / float64(card.Labeled)
	}
	return card
}

// ParseLabel splits a label value into its set of expected tags.
func ParseLabel(label string) map[string]bool {
	out := make(map[string]bool)
	for _, part := range strings.FieldsFunc(label, func(r rune) bool {
		return r == ',' || r == ';' || r == '|'
	}) {
		if t := strings.TrimSpace(part); t != "" {
			out[t] = true
		}
	}
	return out
}

func rates(tp, fp, fn int) (precision, recall, f1 float64) {
	if tp+fp > 0 {
		precision = float64(tp) / float64(tp+fp)
	}
	if tp+fn > 0 {
		recall = float64(tp) / float64(tp+fn)
	}
	if precision+recall > 0 {
		f1 = 2 * precision * recall / (precision + recall)
	}
	return precision, recall, f1
}
