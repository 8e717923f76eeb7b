package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"github.com/opensource-finance/tagspec/internal/analyzer"
	"github.com/opensource-finance/tagspec/internal/bus"
	"github.com/opensource-finance/tagspec/internal/domain"
	"github.com/opensource-finance/tagspec/internal/library"
	"github.com/opensource-finance/tagspec/internal/repository"
	"github.com/opensource-finance/tagspec/internal/rowdata"
	"github.com/opensource-finance/tagspec/internal/rules"
)

// maxBodyBytes bounds request bodies, including uploaded statements.
const maxBodyBytes = 32 << 20

// Handler holds dependencies for API handlers.
type Handler struct {
	repo     domain.Repository
	cache    domain.Cache
	bus      domain.EventBus
	store    *library.Store
	engine   *rules.Engine
	analyzer *analyzer.Analyzer
	version  string

	// editMu serializes read-modify-write cycles on rule collections.
	editMu sync.Mutex
}

// NewHandler creates a new API handler. cache and bus may be nil.
func NewHandler(repo domain.Repository, cache domain.Cache, eventBus domain.EventBus, store *library.Store, engine *rules.Engine, a *analyzer.Analyzer, version string) *Handler {
	return &Handler{
		repo:     repo,
		cache:    cache,
		bus:      eventBus,
		store:    store,
		engine:   engine,
		analyzer: a,
		version:  version,
	}
}

// Health returns server health status.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := "healthy"

	if h.repo != nil {
		if err := h.repo.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}
	if h.cache != nil {
		if err := h.cache.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}
	if h.bus != nil {
		if err := h.bus.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":  status,
		"version": h.version,
	})
}

// Ready returns whether the server is ready to accept traffic.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"ready": "true",
	})
}

// rulesChangedEvent is published on TopicRulesChanged after every edit.
type rulesChangedEvent struct {
	TraceID     string `json:"traceId,omitempty"`
	Libraries   int    `json:"libraries"`
	Definitions int    `json:"definitions"`
}

// edit applies fn to the tenant's collection, persists the result and
// announces the change.
func (h *Handler) edit(ctx context.Context, tenantID string, fn func(library.Collection) (library.Collection, error)) (library.Collection, error) {
	h.editMu.Lock()
	defer h.editMu.Unlock()

	current, err := h.store.Collection(ctx, tenantID)
	if err != nil {
		return library.Collection{}, err
	}

	next, err := fn(current)
	if err != nil {
		return library.Collection{}, err
	}

	if err := h.store.Replace(ctx, tenantID, next); err != nil {
		return library.Collection{}, err
	}

	if h.bus != nil {
		event := rulesChangedEvent{
			TraceID:     GetTraceID(ctx),
			Libraries:   len(next.Libraries()),
			Definitions: next.Len(),
		}
		if err := bus.PublishJSON(ctx, h.bus, tenantID, domain.TopicRulesChanged, event); err != nil {
			slog.Warn("failed to announce rule change", "tenant_id", tenantID, "error", err)
		}
	}

	slog.Info("rule collection updated",
		"tenant_id", tenantID,
		"libraries", len(next.Libraries()),
		"definitions", next.Len(),
	)
	return next, nil
}

// readJSON decodes the request body into v, keeping numbers as json.Number.
func readJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.UseNumber()
	return dec.Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Warn("failed to write response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeFailure maps err onto a status code and logs server-side failures.
func writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		slog.Error("request failed",
			"path", r.URL.Path,
			"tenant_id", GetTenantID(r.Context()),
			"error", err,
		)
		writeError(w, status, "internal error")
		return
	}
	writeError(w, status, err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, library.ErrDefinitionNotFound), errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, library.ErrInvalidDocument),
		errors.Is(err, rowdata.ErrInvalidRows),
		errors.Is(err, repository.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, errInvalidPattern):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
