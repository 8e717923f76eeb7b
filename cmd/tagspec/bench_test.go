package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opensource-finance/tagspec/internal/analyzer"
	"github.com/opensource-finance/tagspec/internal/api"
	"github.com/opensource-finance/tagspec/internal/domain"
	"github.com/opensource-finance/tagspec/internal/library"
	"github.com/opensource-finance/tagspec/internal/rules"
)

const labeledRows = `[
  {"_id": "t1", "Side": "CR", "Field86": "ORDP/1", "ExpectedTag": "INCOMING_TRANSFER"},
  {"_id": "t2", "Side": "DR", "Field86": "ORDP/2", "ExpectedTag": ""},
  {"_id": "t3", "Side": "CR", "Field86": "REMI", "ExpectedTag": "INCOMING_TRANSFER"},
  {"_id": "t4", "Side": "CR", "Field86": "ORDP/4"}
]`

func resetBenchFlags(t *testing.T) {
	t.Cleanup(func() {
		benchURL = ""
		benchWorkers = 4
		benchBatch = 100
		benchLabel = "ExpectedTag"
	})
}

func assertLabeledReport(t *testing.T, out string) {
	t.Helper()

	var report BenchReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, 4, report.Summary.Rows)
	assert.Equal(t, 2, report.Summary.Tagged)

	card := report.Scorecard
	assert.Equal(t, 3, card.Labeled)
	assert.Equal(t, 2, card.ExactMatches)
	require.Len(t, card.Tags, 1)
	assert.Equal(t, "INCOMING_TRANSFER", card.Tags[0].Tag)
	assert.Equal(t, 1, card.Tags[0].TruePositives)
	assert.Equal(t, 1, card.Tags[0].FalseNegatives)
	assert.InDelta(t, 1.0, card.Precision, 1e-9)
	assert.InDelta(t, 0.5, card.Recall, 1e-9)
}

func TestBenchCommand_InProcess(t *testing.T) {
	resetBenchFlags(t)
	rulesPath := writeTemp(t, "rules.json", rulesDocument)
	rowsPath := writeTemp(t, "rows.json", labeledRows)

	out := execute(t, "bench", "--rules", rulesPath, "--rows", rowsPath, "--workers", "2", "--batch", "1")
	assertLabeledReport(t, out)

	var report BenchReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, 4, report.Batches)
}

func TestBenchCommand_Remote(t *testing.T) {
	resetBenchFlags(t)
	a := analyzer.New(rules.NewEngine(rules.Options{}))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/analyze" || r.Header.Get(api.TenantIDHeader) != "bench" {
			http.Error(w, "unexpected request", http.StatusBadRequest)
			return
		}
		var req api.AnalyzeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		libs, err := library.Unmarshal(req.Libraries)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		analyzed := a.AnalyzeAll(req.Rows, libs)
		_ = json.NewEncoder(w).Encode(api.AnalyzeResponse{Rows: analyzed, Summary: analyzer.Summarize(analyzed)})
	}))
	defer srv.Close()

	rulesPath := writeTemp(t, "rules.json", rulesDocument)
	rowsPath := writeTemp(t, "rows.json", labeledRows)

	out := execute(t, "bench", "--rules", rulesPath, "--rows", rowsPath, "--url", srv.URL+"/", "--batch", "3")
	assertLabeledReport(t, out)
}

func TestRunBench_PropagatesErrors(t *testing.T) {
	boom := errors.New("boom")
	rows := []domain.Row{{"a": "1"}, {"a": "2"}}

	_, err := runBench(context.Background(), rows, func(context.Context, []domain.Row) ([]domain.AnalyzedRow, error) {
		return nil, boom
	}, 2, 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}

func TestRunBench_KeepsRowOrder(t *testing.T) {
	rows := []domain.Row{{"n": "1"}, {"n": "2"}, {"n": "3"}, {"n": "4"}, {"n": "5"}}
	echo := func(_ context.Context, batch []domain.Row) ([]domain.AnalyzedRow, error) {
		out := make([]domain.AnalyzedRow, len(batch))
		for i, r := range batch {
			out[i] = domain.AnalyzedRow{Row: r, Analysis: domain.NewAnalysisResult()}
		}
		return out, nil
	}

	run, err := runBench(context.Background(), rows, echo, 3, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, run.Batches)
	require.Len(t, run.analyzed, 5)
	for i, r := range run.analyzed {
		assert.Equal(t, rows[i], r.Row)
	}

	empty, err := runBench(context.Background(), nil, echo, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Batches)
}
