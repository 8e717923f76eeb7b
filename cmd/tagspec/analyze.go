package main

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/opensource-finance/tagspec/internal/analyzer"
	"github.com/opensource-finance/tagspec/internal/domain"
	"github.com/opensource-finance/tagspec/internal/library"
	"github.com/opensource-finance/tagspec/internal/rowdata"
	"github.com/opensource-finance/tagspec/internal/rules"
	"github.com/opensource-finance/tagspec/internal/validation"
)

var (
	analyzeRules       string
	analyzeRows        string
	analyzeSheet       string
	analyzeSummaryOnly bool

	fieldsRows  string
	fieldsSheet string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Tag statement rows with a rule collection",
	Long: `Applies a rule-collection document to statement rows and prints the
tags and attributes of every row with a summary.

Examples:
  tagspec analyze --rules rules.json --rows statement.json
  tagspec analyze --rules rules.json --rows statement.xlsx --sheet Sheet1 --summary-only`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		libs, err := loadLibraries(analyzeRules)
		if err != nil {
			return err
		}
		rows, err := loadRows(analyzeRows, analyzeSheet)
		if err != nil {
			return err
		}

		validator, err := validation.NewValidator()
		if err != nil {
			return eris.Wrap(err, "initialize attribute validator")
		}
		engine := rules.NewEngine(rules.Options{MatchTimeout: cfg.Engine.MatchTimeout()})
		a := analyzer.New(engine, analyzer.WithValidator(validator))

		analyzed := a.AnalyzeAll(rows, libs)
		summary := analyzer.Summarize(analyzed)
		if analyzeSummaryOnly {
			return printJSON(cmd.OutOrStdout(), summary)
		}
		return printJSON(cmd.OutOrStdout(), struct {
			Rows    []domain.AnalyzedRow `json:"rows"`
			Summary domain.Summary       `json:"summary"`
		}{analyzed, summary})
	},
}

var fieldsCmd = &cobra.Command{
	Use:   "fields",
	Short: "List the fields of statement rows in authoring order",
	RunE: func(cmd *cobra.Command, _ []string) error {
		rows, err := loadRows(fieldsRows, fieldsSheet)
		if err != nil {
			return err
		}

		meta := rowdata.DeriveFieldMeta(rows)
		labels := make(map[string]string, len(meta.DataFields))
		for _, f := range meta.DataFields {
			labels[f] = rowdata.HumanizeFieldName(f)
		}
		return printJSON(cmd.OutOrStdout(), struct {
			rowdata.FieldMeta
			Labels map[string]string `json:"labels"`
		}{meta, labels})
	},
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeRules, "rules", "", "path to a rule-collection JSON document (required)")
	analyzeCmd.Flags().StringVar(&analyzeRows, "rows", "", "path to statement rows: .json, .csv or .xlsx (required)")
	analyzeCmd.Flags().StringVar(&analyzeSheet, "sheet", "", "XLSX sheet name (default: first sheet)")
	analyzeCmd.Flags().BoolVar(&analyzeSummaryOnly, "summary-only", false, "print only the summary")
	_ = analyzeCmd.MarkFlagRequired("rules")
	_ = analyzeCmd.MarkFlagRequired("rows")
	rootCmd.AddCommand(analyzeCmd)

	fieldsCmd.Flags().StringVar(&fieldsRows, "rows", "", "path to statement rows: .json, .csv or .xlsx (required)")
	fieldsCmd.Flags().StringVar(&fieldsSheet, "sheet", "", "XLSX sheet name (default: first sheet)")
	_ = fieldsCmd.MarkFlagRequired("rows")
	rootCmd.AddCommand(fieldsCmd)
}

func loadLibraries(path string) ([]domain.RuleLibrary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "open rules")
	}
	defer f.Close()

	libs, err := library.Decode(f)
	if err != nil {
		return nil, eris.Wrapf(err, "read rules %s", path)
	}
	return libs, nil
}

// loadRows picks the reader by file extension. Anything other than .csv
// and .xlsx is read as JSON.
func loadRows(path, sheet string) ([]domain.Row, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return rowdata.ReadXLSX(path, sheet)
	case ".csv":
		f, err := os.Open(path)
		if err != nil {
			return nil, eris.Wrap(err, "open rows")
		}
		defer f.Close()
		return rowdata.ReadCSV(f)
	default:
		f, err := os.Open(path)
		if err != nil {
			return nil, eris.Wrap(err, "open rows")
		}
		defer f.Close()
		return rowdata.DecodeJSON(f)
	}
}
