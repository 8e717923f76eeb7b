// Package worker analyzes ingested transaction batches asynchronously from
// the EventBus.
package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rotisserie/eris"

	"github.com/opensource-finance/tagspec/internal/analyzer"
	"github.com/opensource-finance/tagspec/internal/bus"
	"github.com/opensource-finance/tagspec/internal/domain"
)

// LibrarySource supplies a tenant's rule libraries.
type LibrarySource interface {
	Libraries(ctx context.Context, tenantID string) ([]domain.RuleLibrary, error)
	Invalidate(ctx context.Context, tenantID string) error
}

// Worker analyzes row batches published on TopicRowsIngested and publishes
// the results on TopicRowsAnalyzed.
type Worker struct {
	bus       domain.EventBus
	libraries LibrarySource
	analyzer  *analyzer.Analyzer

	mu            sync.Mutex
	subscriptions []domain.Subscription
	ctx           context.Context
	cancel        context.CancelFunc

	batches atomic.Int64
	rows    atomic.Int64
	failed  atomic.Int64
}

// Config holds worker configuration.
type Config struct {
	// TenantIDs is the list of tenants to subscribe for.
	TenantIDs []string
}

// NewWorker creates a new async worker.
func NewWorker(eventBus domain.EventBus, libraries LibrarySource, a *analyzer.Analyzer) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		bus:       eventBus,
		libraries: libraries,
		analyzer:  a,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start subscribes to the ingest and rule-change topics of every tenant.
func (w *Worker) Start(cfg Config) error {
	if len(cfg.TenantIDs) == 0 {
		return eris.New("worker: no tenants configured")
	}

	for _, tenantID := range cfg.TenantIDs {
		if err := w.startTenantWorker(tenantID); err != nil {
			slog.Error("failed to start worker for tenant",
				"tenant_id", tenantID,
				"error", err,
			)
			continue
		}
	}

	slog.Info("workers started",
		"tenant_count", len(cfg.TenantIDs),
	)

	return nil
}

// startTenantWorker subscribes for a specific tenant.
func (w *Worker) startTenantWorker(tenantID string) error {
	ingested, err := w.bus.Subscribe(w.ctx, tenantID, domain.TopicRowsIngested, func(ctx context.Context, msg *domain.Message) error {
		return w.processBatch(ctx, tenantID, msg)
	})
	if err != nil {
		return err
	}

	changed, err := w.bus.Subscribe(w.ctx, tenantID, domain.TopicRulesChanged, func(ctx context.Context, msg *domain.Message) error {
		return w.libraries.Invalidate(ctx, tenantID)
	})
	if err != nil {
		ingested.Unsubscribe()
		return err
	}

	w.mu.Lock()
	w.subscriptions = append(w.subscriptions, ingested, changed)
	w.mu.Unlock()

	slog.Info("tenant worker started",
		"tenant_id", tenantID,
		"topic", domain.TopicRowsIngested,
	)

	return nil
}

// processBatch analyzes one batch against the tenant's current libraries.
func (w *Worker) processBatch(ctx context.Context, tenantID string, msg *domain.Message) error {
	start := time.Now()

	var batch domain.RowBatch
	dec := json.NewDecoder(bytes.NewReader(msg.Payload))
	dec.UseNumber()
	if err := dec.Decode(&batch); err != nil {
		w.failed.Add(1)
		slog.Error("failed to parse row batch",
			"message_id", msg.ID,
			"error", err,
		)
		return eris.Wrap(err, "decode row batch")
	}

	if batch.BatchID == "" {
		batch.BatchID = msg.ID
	}
	traceID := batch.TraceID
	if traceID == "" {
		traceID = msg.Metadata[domain.MetadataTraceID]
	}

	libs, err := w.libraries.Libraries(ctx, tenantID)
	if err != nil {
		w.failed.Add(1)
		slog.Error("failed to load libraries",
			"tenant_id", tenantID,
			"batch_id", batch.BatchID,
			"error", err,
		)
		return err
	}

	analyzed := w.analyzer.AnalyzeAll(batch.Rows, libs)
	result := domain.AnalyzedBatch{
		BatchID: batch.BatchID,
		TraceID: traceID,
		Rows:    analyzed,
		Summary: analyzer.Summarize(analyzed),
	}

	payload, err := json.Marshal(result)
	if err != nil {
		w.failed.Add(1)
		return eris.Wrap(err, "encode analyzed batch")
	}

	if err := w.bus.Publish(ctx, tenantID, domain.TopicRowsAnalyzed, payload); err != nil {
		slog.Error("failed to publish analyzed batch",
			"batch_id", batch.BatchID,
			"error", err,
		)
	}

	if _, err := bus.Reply(ctx, w.bus, msg, payload); err != nil {
		slog.Error("failed to reply",
			"batch_id", batch.BatchID,
			"error", err,
		)
	}

	w.batches.Add(1)
	w.rows.Add(int64(len(batch.Rows)))

	slog.Info("batch analyzed",
		"batch_id", batch.BatchID,
		"tenant_id", tenantID,
		"trace_id", traceID,
		"rows", result.Summary.Rows,
		"tagged", result.Summary.Tagged,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return nil
}

// Stop gracefully stops all workers.
func (w *Worker) Stop() error {
	w.cancel()

	w.mu.Lock()
	defer w.mu.Unlock()

	for _, sub := range w.subscriptions {
		if err := sub.Unsubscribe(); err != nil {
			slog.Error("failed to unsubscribe",
				"topic", sub.Topic(),
				"error", err,
			)
		}
	}
	w.subscriptions = nil

	slog.Info("workers stopped")
	return nil
}

// Stats returns worker statistics.
type Stats struct {
	SubscriptionCount int      `json:"subscriptionCount"`
	Topics            []string `json:"topics"`
	Batches           int64    `json:"batches"`
	Rows              int64    `json:"rows"`
	Failed            int64    `json:"failed"`
}

// GetStats returns current worker statistics.
func (w *Worker) GetStats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()

	topics := make([]string, len(w.subscriptions))
	for i, sub := range w.subscriptions {
		topics[i] = sub.Topic()
	}
	return Stats{
		SubscriptionCount: len(w.subscriptions),
		Topics:            topics,
		Batches:           w.batches.Load(),
		Rows:              w.rows.Load(),
		Failed:            w.failed.Load(),
	}
}
