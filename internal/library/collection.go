package library

import (
	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/opensource-finance/tagspec/internal/domain"
)

// Collection is an editable rule collection. Every method returns a new
// collection and leaves the receiver untouched, so a snapshot handed to the
// analyzer never changes underneath it.
type Collection struct {
	libs []domain.RuleLibrary
}

// NewCollection wraps libs. The slice is copied and libraries without an id
// get a new one.
func NewCollection(libs []domain.RuleLibrary) Collection {
	out := clone(libs)
	for i := range out {
		out[i].ID = libraryID(out[i].ID)
	}
	return Collection{libs: out}
}

// Libraries returns a copy of the libraries.
func (c Collection) Libraries() []domain.RuleLibrary {
	return clone(c.libs)
}

// Len returns the number of definitions across all libraries.
func (c Collection) Len() int {
	n := 0
	for _, lib := range c.libs {
		n += len(lib.Definitions)
	}
	return n
}

// Find returns the definition with id and the library that holds it.
func (c Collection) Find(id domain.ID) (domain.TagDefinition, domain.RuleLibrary, bool) {
	return find(c.libs, id)
}

// Add appends def to the library whose context equals parent, creating that
// library when none exists. An empty id is replaced with a new one.
func (c Collection) Add(parent domain.Context, def domain.TagDefinition) (Collection, domain.TagDefinition) {
	if def.ID == "" {
		def.ID = domain.ID(uuid.New().String())
	}
	libs := clone(c.libs)
	return Collection{libs: insert(libs, "", parent, def)}, def
}

// Update replaces the definition with the same id. When parent differs from
// its current library's context, the definition moves to the library
// matching parent and a library left empty by the move is dropped.
func (c Collection) Update(parent domain.Context, def domain.TagDefinition) (Collection, error) {
	li, di, ok := locate(c.libs, def.ID)
	if !ok {
		return c, eris.Wrapf(ErrDefinitionNotFound, "definition %s", def.ID)
	}

	libs := clone(c.libs)
	if libs[li].Context.Equal(parent) {
		libs[li].Definitions[di] = def
		return Collection{libs: libs}, nil
	}

	libs[li].Definitions = append(libs[li].Definitions[:di], libs[li].Definitions[di+1:]...)
	if len(libs[li].Definitions) == 0 {
		libs = append(libs[:li], libs[li+1:]...)
	}
	return Collection{libs: insert(libs, "", parent, def)}, nil
}

// Delete removes the definition with id. Its library is kept even when it
// becomes empty.
func (c Collection) Delete(id domain.ID) (Collection, error) {
	li, di, ok := locate(c.libs, id)
	if !ok {
		return c, eris.Wrapf(ErrDefinitionNotFound, "definition %s", id)
	}
	libs := clone(c.libs)
	libs[li].Definitions = append(libs[li].Definitions[:di], libs[li].Definitions[di+1:]...)
	return Collection{libs: libs}, nil
}

// Import merges libs into the collection. Libraries are matched by context;
// within a library, an imported definition replaces the one with the same id
// wherever it currently lives.
func (c Collection) Import(libs []domain.RuleLibrary) Collection {
	merged := clone(c.libs)
	for _, in := range libs {
		for _, def := range in.Definitions {
			if li, di, ok := locate(merged, def.ID); ok && def.ID != "" {
				if merged[li].Context.Equal(in.Context) {
					merged[li].Definitions[di] = def
					continue
				}
				merged[li].Definitions = append(merged[li].Definitions[:di], merged[li].Definitions[di+1:]...)
			}
			if def.ID == "" {
				def.ID = domain.ID(uuid.New().String())
			}
			merged = insert(merged, in.ID, in.Context, def)
		}
		if len(in.Definitions) == 0 && indexOf(merged, in.Context) < 0 {
			merged = append(merged, domain.RuleLibrary{ID: libraryID(in.ID), Context: in.Context, Definitions: []domain.TagDefinition{}})
		}
	}
	return Collection{libs: merged}
}

// ReplaceAll returns a collection holding exactly libs.
func (c Collection) ReplaceAll(libs []domain.RuleLibrary) Collection {
	return NewCollection(libs)
}

// insert appends def to the library matching parent, creating it with id
// (or a fresh id) when missing.
func insert(libs []domain.RuleLibrary, id domain.ID, parent domain.Context, def domain.TagDefinition) []domain.RuleLibrary {
	if i := indexOf(libs, parent); i >= 0 {
		libs[i].Definitions = append(libs[i].Definitions, def)
		return libs
	}
	return append(libs, domain.RuleLibrary{
		ID:          libraryID(id),
		Context:     append(domain.Context{}, parent...),
		Definitions: []domain.TagDefinition{def},
	})
}

func indexOf(libs []domain.RuleLibrary, ctx domain.Context) int {
	for i, lib := range libs {
		if lib.Context.Equal(ctx) {
			return i
		}
	}
	return -1
}

func locate(libs []domain.RuleLibrary, id domain.ID) (int, int, bool) {
	for li, lib := range libs {
		for di, def := range lib.Definitions {
			if def.ID == id {
				return li, di, true
			}
		}
	}
	return 0, 0, false
}

func libraryID(id domain.ID) domain.ID {
	if id != "" {
		return id
	}
	return domain.ID(uuid.New().String())
}

// clone copies the library and definition slices. Definitions themselves are
// values and are only ever replaced whole.
func clone(libs []domain.RuleLibrary) []domain.RuleLibrary {
	out := make([]domain.RuleLibrary, len(libs))
	for i, lib := range libs {
		out[i] = lib
		out[i].Context = append(domain.Context{}, lib.Context...)
		out[i].Definitions = append([]domain.TagDefinition{}, lib.Definitions...)
	}
	return out
}
