package api

import (
	"net/http"

	"github.com/rotisserie/eris"

	"github.com/opensource-finance/tagspec/internal/compiler"
	"github.com/opensource-finance/tagspec/internal/decompiler"
	"github.com/opensource-finance/tagspec/internal/domain"
)

var errInvalidPattern = eris.New("invalid pattern")

// CompileResponse is the response for the compile endpoints.
type CompileResponse struct {
	Pattern     string `json:"pattern"`
	Description string `json:"description"`
	Numeric     bool   `json:"numeric,omitempty"`
}

// PatternRequest carries a single pattern to decompile or describe.
type PatternRequest struct {
	Pattern string `json:"pattern"`
}

// CompileMatch handles POST /compile/match.
func (h *Handler) CompileMatch(w http.ResponseWriter, r *http.Request) {
	var cond domain.Condition
	if err := readJSON(r, &cond); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON request body")
		return
	}
	if cond.Operation == "" {
		writeError(w, http.StatusBadRequest, "operation is required")
		return
	}

	expr := compiler.CompileCondition(cond)
	if err := h.validateExpression(expr.Pattern); err != nil {
		writeFailure(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, CompileResponse{
		Pattern:     expr.Pattern,
		Description: expr.Description(),
		Numeric:     compiler.Parse(expr.Pattern).IsNumeric(),
	})
}

// CompileExtraction handles POST /compile/extraction.
func (h *Handler) CompileExtraction(w http.ResponseWriter, r *http.Request) {
	var spec domain.AttributeSpec
	if err := readJSON(r, &spec); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON request body")
		return
	}
	if spec.ExtractionOperation == "" {
		writeError(w, http.StatusBadRequest, "extractionOperation is required")
		return
	}

	attr := compiler.CompileAttribute(spec, "")
	if err := h.validateExpression(attr.Expression.Pattern); err != nil {
		writeFailure(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, CompileResponse{
		Pattern:     attr.Expression.Pattern,
		Description: attr.Expression.Description(),
	})
}

// DecompileMatch handles POST /decompile/match.
func (h *Handler) DecompileMatch(w http.ResponseWriter, r *http.Request) {
	req, ok := readPattern(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, decompiler.DecomposeMatch(req.Pattern))
}

// DecompileExtraction handles POST /decompile/extraction.
func (h *Handler) DecompileExtraction(w http.ResponseWriter, r *http.Request) {
	req, ok := readPattern(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, decompiler.DecomposeExtraction(req.Pattern))
}

// Describe handles POST /describe.
func (h *Handler) Describe(w http.ResponseWriter, r *http.Request) {
	req, ok := readPattern(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"pattern":     req.Pattern,
		"description": decompiler.Describe(req.Pattern),
	})
}

func readPattern(w http.ResponseWriter, r *http.Request) (PatternRequest, bool) {
	var req PatternRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON request body")
		return req, false
	}
	if req.Pattern == "" {
		writeError(w, http.StatusBadRequest, "pattern is required")
		return req, false
	}
	return req, true
}

// validateExpression checks that a persisted pattern source can be matched.
// Numeric sentinels are not patterns and always pass.
func (h *Handler) validateExpression(src string) error {
	if compiler.Parse(src).IsNumeric() {
		return nil
	}
	if err := h.engine.ValidatePattern(src); err != nil {
		return eris.Wrap(errInvalidPattern, err.Error())
	}
	return nil
}

// validateDefinition checks every rule and attribute pattern of def.
func (h *Handler) validateDefinition(def domain.TagDefinition) error {
	for _, group := range def.Rules {
		for _, expr := range group {
			if err := h.validateExpression(expr.Pattern); err != nil {
				return err
			}
		}
	}
	for _, attr := range def.Attributes {
		if err := h.validateExpression(attr.Expression.Pattern); err != nil {
			return err
		}
	}
	return nil
}
