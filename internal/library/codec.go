// Package library reads, writes and edits rule-collection documents.
package library

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/rotisserie/eris"

	"github.com/opensource-finance/tagspec/internal/domain"
)

var (
	// ErrInvalidDocument is returned when a rule-collection document has the wrong shape.
	ErrInvalidDocument = errors.New("invalid rule collection document")

	// ErrDefinitionNotFound is returned when no definition has the requested id.
	ErrDefinitionNotFound = errors.New("tag definition not found")
)

// Decode reads a rule-collection document: a JSON array of libraries, each
// carrying a Context array and a TagSpecDefinitions array.
func Decode(r io.Reader) ([]domain.RuleLibrary, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, eris.Wrap(err, "library: read document")
	}
	return Unmarshal(data)
}

// Unmarshal parses a rule-collection document held in memory.
func Unmarshal(data []byte) ([]domain.RuleLibrary, error) {
	var entries []json.RawMessage
	if err := json.Unmarshal(data, &entries); err != nil || entries == nil {
		return nil, invalid("document must be a JSON array of rule libraries")
	}

	libs := make([]domain.RuleLibrary, 0, len(entries))
	for i, raw := range entries {
		var shape struct {
			Context            json.RawMessage `json:"Context"`
			TagSpecDefinitions json.RawMessage `json:"TagSpecDefinitions"`
		}
		if err := json.Unmarshal(raw, &shape); err != nil {
			return nil, invalid(fmt.Sprintf("library %d is not an object", i))
		}
		if !isArray(shape.Context) {
			return nil, invalid(fmt.Sprintf("library %d is missing a Context array", i))
		}
		if !isArray(shape.TagSpecDefinitions) {
			return nil, invalid(fmt.Sprintf("library %d is missing a TagSpecDefinitions array", i))
		}

		var lib domain.RuleLibrary
		if err := json.Unmarshal(raw, &lib); err != nil {
			return nil, invalid(fmt.Sprintf("library %d: %v", i, err))
		}
		libs = append(libs, lib)
	}
	return libs, nil
}

// Encode writes libs as an indented rule-collection document.
func Encode(w io.Writer, libs []domain.RuleLibrary) error {
	data, err := Marshal(libs)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return eris.Wrap(err, "library: write document")
	}
	return nil
}

// Marshal renders libs as an indented rule-collection document.
func Marshal(libs []domain.RuleLibrary) ([]byte, error) {
	if libs == nil {
		libs = []domain.RuleLibrary{}
	}
	data, err := json.MarshalIndent(libs, "", "  ")
	if err != nil {
		return nil, eris.Wrap(err, "library: encode document")
	}
	return append(data, '\n'), nil
}

// ExportDefinition returns a document holding only the definition with id,
// wrapped in its parent library's id and context.
func ExportDefinition(libs []domain.RuleLibrary, id domain.ID) ([]domain.RuleLibrary, error) {
	def, parent, ok := find(libs, id)
	if !ok {
		return nil, eris.Wrapf(ErrDefinitionNotFound, "definition %s", id)
	}
	return []domain.RuleLibrary{{
		ID:          parent.ID,
		Context:     parent.Context,
		Definitions: []domain.TagDefinition{def},
	}}, nil
}

func invalid(reason string) error {
	return eris.Wrap(ErrInvalidDocument, reason)
}

func isArray(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '['
}

func find(libs []domain.RuleLibrary, id domain.ID) (domain.TagDefinition, domain.RuleLibrary, bool) {
	for _, lib := range libs {
		for _, def := range lib.Definitions {
			if def.ID == id {
				return def, lib, true
			}
		}
	}
	return domain.TagDefinition{}, domain.RuleLibrary{}, false
}
