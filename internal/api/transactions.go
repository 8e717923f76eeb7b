package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/opensource-finance/tagspec/internal/analyzer"
	"github.com/opensource-finance/tagspec/internal/bus"
	"github.com/opensource-finance/tagspec/internal/domain"
	"github.com/opensource-finance/tagspec/internal/editor"
	"github.com/opensource-finance/tagspec/internal/library"
	"github.com/opensource-finance/tagspec/internal/rowdata"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// FieldsResponse is the response for GET /transactions/fields.
type FieldsResponse struct {
	rowdata.FieldMeta
	Labels map[string]string `json:"labels"`
}

// AnalyzeRequest is the request body for POST /analyze. Missing rows or
// libraries fall back to the tenant's stored ones.
type AnalyzeRequest struct {
	Rows      []domain.Row    `json:"rows,omitempty"`
	Libraries json.RawMessage `json:"libraries,omitempty"`
}

// PreviewRequest is the request body for POST /preview. Exactly one of
// Form and Definition is expected; Form wins when both are set.
type PreviewRequest struct {
	Form       *editor.Form          `json:"form,omitempty"`
	Definition *domain.TagDefinition `json:"definition,omitempty"`
	Rows       []domain.Row          `json:"rows,omitempty"`
}

// AnalyzeResponse is the response for POST /analyze and POST /preview.
type AnalyzeResponse struct {
	Rows    []domain.AnalyzedRow `json:"rows"`
	Summary domain.Summary       `json:"summary"`
}

// PublishResponse is returned when a batch is queued without waiting.
type PublishResponse struct {
	BatchID string `json:"batchId"`
	Rows    int    `json:"rows"`
}

// SaveRows handles POST /transactions. JSON, CSV and XLSX bodies are
// accepted; ?sheet= selects the XLSX sheet.
func (h *Handler) SaveRows(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)

	rows, err := readRows(r)
	if err != nil {
		writeFailure(w, r, err)
		return
	}

	if err := h.repo.SaveRows(ctx, tenantID, rows); err != nil {
		writeFailure(w, r, err)
		return
	}

	slog.Info("transactions stored", "tenant_id", tenantID, "rows", len(rows))
	writeJSON(w, http.StatusOK, map[string]any{
		"rows":   len(rows),
		"fields": rowdata.DeriveFieldMeta(rows),
	})
}

// ListRows handles GET /transactions.
func (h *Handler) ListRows(w http.ResponseWriter, r *http.Request) {
	rows, err := h.repo.ListRows(r.Context(), GetTenantID(r.Context()))
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rowdata.Document{Transactions: rows})
}

// ListFields handles GET /transactions/fields.
func (h *Handler) ListFields(w http.ResponseWriter, r *http.Request) {
	rows, err := h.repo.ListRows(r.Context(), GetTenantID(r.Context()))
	if err != nil {
		writeFailure(w, r, err)
		return
	}

	meta := rowdata.DeriveFieldMeta(rows)
	labels := make(map[string]string, len(meta.DataFields))
	for _, f := range meta.DataFields {
		labels[f] = rowdata.HumanizeFieldName(f)
	}
	writeJSON(w, http.StatusOK, FieldsResponse{FieldMeta: meta, Labels: labels})
}

// Analyze handles POST /analyze.
func (h *Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)

	var req AnalyzeRequest
	if err := readJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid JSON request body")
		return
	}

	rows, err := h.rowsOrStored(r, req.Rows)
	if err != nil {
		writeFailure(w, r, err)
		return
	}

	var libs []domain.RuleLibrary
	if len(req.Libraries) > 0 {
		libs, err = library.Unmarshal(req.Libraries)
	} else {
		libs, err = h.store.Libraries(ctx, tenantID)
	}
	if err != nil {
		writeFailure(w, r, err)
		return
	}

	_, span := tracer.Start(ctx, "analyze", trace.WithAttributes(
		attribute.String("tenant.id", tenantID),
		attribute.Int("rows", len(rows)),
		attribute.Int("libraries", len(libs)),
	))
	analyzed := h.analyzer.AnalyzeAll(rows, libs)
	summary := analyzer.Summarize(analyzed)
	span.SetAttributes(attribute.Int("tagged", summary.Tagged))
	span.End()

	writeJSON(w, http.StatusOK, AnalyzeResponse{Rows: analyzed, Summary: summary})
}

// Preview handles POST /preview: one unsaved definition against rows.
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	var req PreviewRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON request body")
		return
	}

	var def domain.TagDefinition
	switch {
	case req.Form != nil:
		_, def = editor.ToDefinition("preview", *req.Form)
	case req.Definition != nil:
		def = *req.Definition
	default:
		writeError(w, http.StatusBadRequest, "form or definition is required")
		return
	}
	if err := h.validateDefinition(def); err != nil {
		writeFailure(w, r, err)
		return
	}

	rows, err := h.rowsOrStored(r, req.Rows)
	if err != nil {
		writeFailure(w, r, err)
		return
	}

	analyzed := h.analyzer.Preview(def, rows)
	writeJSON(w, http.StatusOK, AnalyzeResponse{Rows: analyzed, Summary: analyzer.Summarize(analyzed)})
}

// PublishRows handles POST /transactions/publish. The stored rows are sent
// to the worker; with ?wait=true the analyzed batch is returned.
func (h *Handler) PublishRows(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)

	if h.bus == nil {
		writeError(w, http.StatusServiceUnavailable, "event bus not available")
		return
	}

	rows, err := h.repo.ListRows(ctx, tenantID)
	if err != nil {
		writeFailure(w, r, err)
		return
	}

	batch := domain.RowBatch{
		BatchID: uuid.New().String(),
		TraceID: GetTraceID(ctx),
		Rows:    rows,
	}

	wait, _ := strconv.ParseBool(r.URL.Query().Get("wait"))
	if wait {
		var analyzed domain.AnalyzedBatch
		if err := bus.RequestJSON(ctx, h.bus, tenantID, domain.TopicRowsIngested, batch, &analyzed); err != nil {
			writeFailure(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, analyzed)
		return
	}

	if err := bus.PublishJSON(ctx, h.bus, tenantID, domain.TopicRowsIngested, batch); err != nil {
		writeFailure(w, r, err)
		return
	}

	slog.Info("row batch published", "tenant_id", tenantID, "batch_id", batch.BatchID, "rows", len(rows))
	writeJSON(w, http.StatusAccepted, PublishResponse{BatchID: batch.BatchID, Rows: len(rows)})
}

func (h *Handler) rowsOrStored(r *http.Request, rows []domain.Row) ([]domain.Row, error) {
	if rows != nil {
		return rows, nil
	}
	return h.repo.ListRows(r.Context(), GetTenantID(r.Context()))
}

// readRows decodes the request body according to its content type.
func readRows(r *http.Request) ([]domain.Row, error) {
	body := io.LimitReader(r.Body, maxBodyBytes)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "text/csv":
		rows, err := rowdata.ReadCSV(body)
		return rows, asInvalidRows(err)
	case xlsxContentType:
		data, err := io.ReadAll(body)
		if err != nil {
			return nil, eris.Wrap(err, "read upload")
		}
		rows, err := rowdata.ReadXLSXBytes(data, r.URL.Query().Get("sheet"))
		return rows, asInvalidRows(err)
	default:
		return rowdata.DecodeJSON(body)
	}
}

// asInvalidRows reports a malformed upload as a client error.
func asInvalidRows(err error) error {
	if err == nil || errors.Is(err, rowdata.ErrInvalidRows) {
		return err
	}
	return eris.Wrap(rowdata.ErrInvalidRows, err.Error())
}
