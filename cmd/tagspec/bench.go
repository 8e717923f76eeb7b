package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/opensource-finance/tagspec/internal/analyzer"
	"github.com/opensource-finance/tagspec/internal/api"
	"github.com/opensource-finance/tagspec/internal/domain"
	"github.com/opensource-finance/tagspec/internal/library"
	"github.com/opensource-finance/tagspec/internal/rules"
	"github.com/opensource-finance/tagspec/internal/validation"
)

var (
	benchRules   string
	benchRows    string
	benchSheet   string
	benchLabel   string
	benchURL     string
	benchTenant  string
	benchWorkers int
	benchBatch   int
)

// BenchReport is printed by the bench command.
type BenchReport struct {
	Scorecard     analyzer.Scorecard `json:"scorecard"`
	Summary       domain.Summary     `json:"summary"`
	Batches       int                `json:"batches"`
	DurationMs    int64              `json:"durationMs"`
	AvgBatchMs    float64            `json:"avgBatchMs"`
	RowsPerSecond float64            `json:"rowsPerSecond"`
}

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Measure tagging accuracy and throughput against labeled rows",
	Long: `Analyzes statement rows whose label field holds the expected tags and
reports per-tag precision, recall and F1 along with throughput.

Rows are split into batches and analyzed by concurrent workers, either
in-process or against a running server's /analyze endpoint (--url).

Examples:
  tagspec bench --rules rules.json --rows labeled.csv --label ExpectedTag
  tagspec bench --rules rules.json --rows labeled.csv --url http://localhost:8080 --workers 8`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		libs, err := loadLibraries(benchRules)
		if err != nil {
			return err
		}
		rows, err := loadRows(benchRows, benchSheet)
		if err != nil {
			return err
		}

		var analyze batchFunc
		if benchURL != "" {
			analyze, err = remoteAnalyzer(benchURL, benchTenant, libs)
		} else {
			analyze, err = localAnalyzer(libs)
		}
		if err != nil {
			return err
		}

		report, err := runBench(cmd.Context(), rows, analyze, benchWorkers, benchBatch)
		if err != nil {
			return err
		}
		report.Scorecard = analyzer.Score(report.analyzed, benchLabel)
		return printJSON(cmd.OutOrStdout(), report.BenchReport)
	},
}

func init() {
	benchCmd.Flags().StringVar(&benchRules, "rules", "", "path to a rule-collection JSON document (required)")
	benchCmd.Flags().StringVar(&benchRows, "rows", "", "path to labeled rows: .json, .csv or .xlsx (required)")
	benchCmd.Flags().StringVar(&benchSheet, "sheet", "", "XLSX sheet name (default: first sheet)")
	benchCmd.Flags().StringVar(&benchLabel, "label", "ExpectedTag", "row field holding the expected tags")
	benchCmd.Flags().StringVar(&benchURL, "url", "", "server base URL; analyze in-process when empty")
	benchCmd.Flags().StringVar(&benchTenant, "tenant", "bench", "tenant ID sent to the server")
	benchCmd.Flags().IntVar(&benchWorkers, "workers", 4, "number of concurrent workers")
	benchCmd.Flags().IntVar(&benchBatch, "batch", 100, "rows per batch")
	_ = benchCmd.MarkFlagRequired("rules")
	_ = benchCmd.MarkFlagRequired("rows")
	rootCmd.AddCommand(benchCmd)
}

// batchFunc analyzes one batch of rows.
type batchFunc func(ctx context.Context, rows []domain.Row) ([]domain.AnalyzedRow, error)

type benchRun struct {
	BenchReport
	analyzed []domain.AnalyzedRow
}

func runBench(ctx context.Context, rows []domain.Row, analyze batchFunc, workers, size int) (*benchRun, error) {
	if workers < 1 {
		workers = 1
	}
	if size < 1 {
		size = 1
	}

	batches := make([][]domain.Row, 0, len(rows)/size+1)
	for start := 0; start < len(rows); start += size {
		batches = append(batches, rows[start:min(start+size, len(rows))])
	}

	results := make([][]domain.AnalyzedRow, len(batches))
	var elapsedMs atomic.Int64

	started := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, batch := range batches {
		g.Go(func() error {
			t := time.Now()
			out, err := analyze(gctx, batch)
			elapsedMs.Add(time.Since(t).Milliseconds())
			if err != nil {
				return eris.Wrapf(err, "batch %d", i)
			}
			results[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	duration := time.Since(started)

	run := &benchRun{analyzed: make([]domain.AnalyzedRow, 0, len(rows))}
	for _, out := range results {
		run.analyzed = append(run.analyzed, out...)
	}
	run.Summary = analyzer.Summarize(run.analyzed)
	run.Batches = len(batches)
	run.DurationMs = duration.Milliseconds()
	if len(batches) > 0 {
		run.AvgBatchMs = float64(elapsedMs.Load()) / float64(len(batches))
	}
	if s := duration.Seconds(); s > 0 {
		run.RowsPerSecond = float64(len(rows)) / s
	}
	return run, nil
}

func localAnalyzer(libs []domain.RuleLibrary) (batchFunc, error) {
	validator, err := validation.NewValidator()
	if err != nil {
		return nil, eris.Wrap(err, "initialize attribute validator")
	}
	engine := rules.NewEngine(rules.Options{MatchTimeout: cfg.Engine.MatchTimeout()})
	a := analyzer.New(engine, analyzer.WithValidator(validator))

	return func(_ context.Context, rows []domain.Row) ([]domain.AnalyzedRow, error) {
		return a.AnalyzeAll(rows, libs), nil
	}, nil
}

func remoteAnalyzer(baseURL, tenant string, libs []domain.RuleLibrary) (batchFunc, error) {
	doc, err := library.Marshal(libs)
	if err != nil {
		return nil, err
	}
	endpoint := strings.TrimRight(baseURL, "/") + "/analyze"
	client := &http.Client{Timeout: 30 * time.Second}

	return func(ctx context.Context, rows []domain.Row) ([]domain.AnalyzedRow, error) {
		body, err := json.Marshal(api.AnalyzeRequest{Rows: rows, Libraries: doc})
		if err != nil {
			return nil, eris.Wrap(err, "encode request")
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
		if err != nil {
			return nil, eris.Wrap(err, "build request")
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set(api.TenantIDHeader, tenant)

		resp, err := client.Do(req)
		if err != nil {
			return nil, eris.Wrap(err, "post batch")
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return nil, eris.Errorf("analyze returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
		}

		var out api.AnalyzeResponse
		dec := json.NewDecoder(resp.Body)
		dec.UseNumber()
		if err := dec.Decode(&out); err != nil {
			return nil, eris.Wrap(err, "decode response")
		}
		return out.Rows, nil
	}, nil
}
