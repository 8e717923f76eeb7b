package api

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/opensource-finance/tagspec/internal/domain"
	"github.com/opensource-finance/tagspec/internal/editor"
	"github.com/opensource-finance/tagspec/internal/library"
)

// DefinitionResponse is a definition with the library that holds it.
type DefinitionResponse struct {
	LibraryID     domain.ID            `json:"libraryId,omitempty"`
	ParentContext domain.Context       `json:"parentContext"`
	Definition    domain.TagDefinition `json:"definition"`
}

// CollectionResponse reports the size of a collection after an edit.
type CollectionResponse struct {
	Libraries   int `json:"libraries"`
	Definitions int `json:"definitions"`
}

// ListLibraries handles GET /libraries. The body is the rule-collection document.
func (h *Handler) ListLibraries(w http.ResponseWriter, r *http.Request) {
	libs, err := h.store.Libraries(r.Context(), GetTenantID(r.Context()))
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeDocument(w, libs, "")
}

// ExportLibraries handles GET /libraries/export.
func (h *Handler) ExportLibraries(w http.ResponseWriter, r *http.Request) {
	libs, err := h.store.Libraries(r.Context(), GetTenantID(r.Context()))
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeDocument(w, libs, "tagspec-rules.json")
}

// ReplaceLibraries handles PUT /libraries.
func (h *Handler) ReplaceLibraries(w http.ResponseWriter, r *http.Request) {
	h.applyDocument(w, r, func(c library.Collection, libs []domain.RuleLibrary) library.Collection {
		return c.ReplaceAll(libs)
	})
}

// ImportLibraries handles POST /libraries/import.
func (h *Handler) ImportLibraries(w http.ResponseWriter, r *http.Request) {
	h.applyDocument(w, r, func(c library.Collection, libs []domain.RuleLibrary) library.Collection {
		return c.Import(libs)
	})
}

func (h *Handler) applyDocument(w http.ResponseWriter, r *http.Request, apply func(library.Collection, []domain.RuleLibrary) library.Collection) {
	ctx := r.Context()

	libs, err := library.Decode(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	for _, lib := range libs {
		for _, def := range lib.Definitions {
			if err := h.validateDefinition(def); err != nil {
				writeFailure(w, r, err)
				return
			}
		}
	}

	next, err := h.edit(ctx, GetTenantID(ctx), func(c library.Collection) (library.Collection, error) {
		return apply(c, libs), nil
	})
	if err != nil {
		writeFailure(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, CollectionResponse{
		Libraries:   len(next.Libraries()),
		Definitions: next.Len(),
	})
}

// GetDefinition handles GET /definitions/{id}.
func (h *Handler) GetDefinition(w http.ResponseWriter, r *http.Request) {
	def, parent, ok := h.findDefinition(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, DefinitionResponse{
		LibraryID:     parent.ID,
		ParentContext: parent.Context,
		Definition:    def,
	})
}

// ExportDefinition handles GET /definitions/{id}/export.
func (h *Handler) ExportDefinition(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := domain.ID(chi.URLParam(r, "id"))

	libs, err := h.store.Libraries(ctx, GetTenantID(ctx))
	if err != nil {
		writeFailure(w, r, err)
		return
	}

	doc, err := library.ExportDefinition(libs, id)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeDocument(w, doc, "tagspec-"+string(id)+".json")
}

// GetDefinitionForm handles GET /definitions/{id}/form.
func (h *Handler) GetDefinitionForm(w http.ResponseWriter, r *http.Request) {
	def, parent, ok := h.findDefinition(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, editor.FromDefinition(def, parent.Context))
}

// CreateDefinition handles POST /definitions. The body is an editor form.
func (h *Handler) CreateDefinition(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var form editor.Form
	if err := readJSON(r, &form); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON request body")
		return
	}
	if form.Tag == "" {
		writeError(w, http.StatusBadRequest, "tag is required")
		return
	}

	parent, def := editor.ToDefinition("", form)
	if err := h.validateDefinition(def); err != nil {
		writeFailure(w, r, err)
		return
	}

	next, err := h.edit(ctx, GetTenantID(ctx), func(c library.Collection) (library.Collection, error) {
		added, _ := c.Add(parent, def)
		return added, nil
	})
	if err != nil {
		writeFailure(w, r, err)
		return
	}

	_, lib, _ := next.Find(def.ID)
	slog.Info("definition created", "tenant_id", GetTenantID(ctx), "definition_id", def.ID, "tag", def.Tag)
	writeJSON(w, http.StatusCreated, DefinitionResponse{
		LibraryID:     lib.ID,
		ParentContext: parent,
		Definition:    def,
	})
}

// UpdateDefinition handles PUT /definitions/{id}. A changed parent context
// moves the definition to the matching library.
func (h *Handler) UpdateDefinition(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := domain.ID(chi.URLParam(r, "id"))

	var form editor.Form
	if err := readJSON(r, &form); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON request body")
		return
	}

	parent, def := editor.ToDefinition(id, form)
	if err := h.validateDefinition(def); err != nil {
		writeFailure(w, r, err)
		return
	}

	next, err := h.edit(ctx, GetTenantID(ctx), func(c library.Collection) (library.Collection, error) {
		return c.Update(parent, def)
	})
	if err != nil {
		writeFailure(w, r, err)
		return
	}

	_, lib, _ := next.Find(def.ID)
	writeJSON(w, http.StatusOK, DefinitionResponse{
		LibraryID:     lib.ID,
		ParentContext: parent,
		Definition:    def,
	})
}

// DeleteDefinition handles DELETE /definitions/{id}.
func (h *Handler) DeleteDefinition(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := domain.ID(chi.URLParam(r, "id"))

	next, err := h.edit(ctx, GetTenantID(ctx), func(c library.Collection) (library.Collection, error) {
		return c.Delete(id)
	})
	if err != nil {
		writeFailure(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, CollectionResponse{
		Libraries:   len(next.Libraries()),
		Definitions: next.Len(),
	})
}

func (h *Handler) findDefinition(w http.ResponseWriter, r *http.Request) (domain.TagDefinition, domain.RuleLibrary, bool) {
	ctx := r.Context()
	id := domain.ID(chi.URLParam(r, "id"))

	c, err := h.store.Collection(ctx, GetTenantID(ctx))
	if err != nil {
		writeFailure(w, r, err)
		return domain.TagDefinition{}, domain.RuleLibrary{}, false
	}

	def, parent, ok := c.Find(id)
	if !ok {
		writeError(w, http.StatusNotFound, "definition not found")
		return domain.TagDefinition{}, domain.RuleLibrary{}, false
	}
	return def, parent, true
}

// writeDocument writes libs as a rule-collection document, as an attachment
// when filename is set.
func writeDocument(w http.ResponseWriter, libs []domain.RuleLibrary, filename string) {
	var buf bytes.Buffer
	if err := library.Encode(&buf, libs); err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if filename != "" {
		w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	}
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		slog.Warn("failed to write document", "error", err)
	}
}
