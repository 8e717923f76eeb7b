package domain

// AnalysisResult is the outcome of analyzing one row against a rule collection.
type AnalysisResult struct {
	Tags []string `json:"tags"`

	// Attributes is keyed by tag, then attribute tag. A nil value means nothing was extracted.
	// Two definitions sharing a tag overwrite each other here; the later one wins.
	Attributes map[string]map[string]*string `json:"attributes"`

	MatchedDefinitions []TagDefinition `json:"matchedDefinitions"`

	// Checks holds the validation outcome for each extracted attribute, keyed like Attributes.
	Checks map[string]map[string]AttributeCheck `json:"checks,omitempty"`
}

// NewAnalysisResult returns an empty result with initialized maps.
func NewAnalysisResult() AnalysisResult {
	return AnalysisResult{
		Tags:               []string{},
		Attributes:         make(map[string]map[string]*string),
		MatchedDefinitions: []TagDefinition{},
		Checks:             make(map[string]map[string]AttributeCheck),
	}
}

// HasTag reports whether tag was produced for the row.
func (r AnalysisResult) HasTag(tag string) bool {
	for _, t := range r.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// AttributeCheck is the validation outcome of one extracted attribute.
type AttributeCheck struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`
}

// AnalyzedRow pairs a row with its analysis.
type AnalyzedRow struct {
	Row      Row            `json:"row"`
	Analysis AnalysisResult `json:"analysis"`
}

// Summary aggregates analysis over a batch of rows.
type Summary struct {
	Rows       int            `json:"rows"`
	Tagged     int            `json:"tagged"`
	Untagged   int            `json:"untagged"`
	TagCounts  map[string]int `json:"tagCounts"`
	MultiTag   int            `json:"multiTag"`
	Incomplete int            `json:"incomplete"`
}
