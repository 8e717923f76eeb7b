package rowdata

import (
	"regexp"
	"sort"

	"github.com/opensource-finance/tagspec/internal/domain"
)

// FieldMeta describes the columns of a row set.
type FieldMeta struct {
	IdentifierField string   `json:"identifierField"`
	DataFields      []string `json:"dataFields"`
	SourceFields    []string `json:"sourceFields"`
}

// Bookkeeping fields written by the statement pipeline; never offered as sources.
var skipFields = map[string]bool{
	"FMSId":                 true,
	"Hash":                  true,
	"IsDeadEnd":             true,
	"TagSpecId":             true,
	"Version":               true,
	"Tag":                   true,
	"CertaintyLevel":        true,
	"Attributes":            true,
	"MultiTags":             true,
	"ExtractionCompletness": true,
}

var identifierCandidates = []string{"_id", "Identifier", "Name"}

var priorityFields = []string{
	"BankSwiftCode",
	"IBAN",
	"EntryDate",
	"Side",
	"TransactionTypeCode",
	"Amount",
}

// DeriveFieldMeta picks the identifier column and orders the remaining scalar
// columns: priority fields first, then the rest alphabetically.
func DeriveFieldMeta(rows []domain.Row) FieldMeta {
	all := make(map[string]bool)
	objects := make(map[string]bool)
	for _, row := range rows {
		for key, value := range row {
			all[key] = true
			switch value.(type) {
			case map[string]any, []any, domain.Row:
				objects[key] = true
			}
		}
	}

	identifier := identifierCandidates[0]
	for _, candidate := range identifierCandidates {
		if all[candidate] {
			identifier = candidate
			break
		}
	}

	remaining := make([]string, 0, len(all))
	for key := range all {
		if skipFields[key] || objects[key] || key == identifier {
			continue
		}
		remaining = append(remaining, key)
	}
	sort.Strings(remaining)

	present := make(map[string]bool, len(remaining))
	for _, key := range remaining {
		present[key] = true
	}

	fields := make([]string, 0, len(remaining))
	priority := make(map[string]bool, len(priorityFields))
	for _, f := range priorityFields {
		priority[f] = true
		if present[f] {
			fields = append(fields, f)
		}
	}
	for _, key := range remaining {
		if !priority[key] {
			fields = append(fields, key)
		}
	}

	return FieldMeta{
		IdentifierField: identifier,
		DataFields:      fields,
		SourceFields:    fields,
	}
}

var humanizeSteps = []*regexp.Regexp{
	regexp.MustCompile(`([a-z])([A-Z])`),
	regexp.MustCompile(`([A-Z]+)([A-Z][a-z])`),
	regexp.MustCompile(`([a-zA-Z])(\d)`),
	regexp.MustCompile(`(\d)([a-zA-Z])`),
}

// HumanizeFieldName turns a PascalCase column name into a label:
// "BankSwiftCode" becomes "Bank Swift Code", "Description1" becomes "Description 1".
func HumanizeFieldName(name string) string {
	for _, re := range humanizeSteps {
		name = re.ReplaceAllString(name, "${1} ${2}")
	}
	return name
}
