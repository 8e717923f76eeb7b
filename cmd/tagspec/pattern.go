package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/opensource-finance/tagspec/internal/compiler"
	"github.com/opensource-finance/tagspec/internal/decompiler"
	"github.com/opensource-finance/tagspec/internal/domain"
)

var (
	decomposeExtraction bool

	compileOp      string
	compileValue   string
	compileValues  []string
	compilePrefix  string
	compileSuffix  string
	compilePattern string
	compileVerify  string
)

var describeCmd = &cobra.Command{
	Use:   "describe <pattern>",
	Short: "Render a pattern in English",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := fmt.Fprintln(cmd.OutOrStdout(), decompiler.Describe(args[0]))
		return err
	},
}

var decomposeCmd = &cobra.Command{
	Use:   "decompose <pattern>",
	Short: "Recover the condition or extraction a pattern was compiled from",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if decomposeExtraction {
			return printJSON(cmd.OutOrStdout(), decompiler.DecomposeExtraction(args[0]))
		}
		return printJSON(cmd.OutOrStdout(), decompiler.DecomposeMatch(args[0]))
	},
}

var compileCmd = &cobra.Command{
	Use:   "compile",
	Short: "Compile a condition or extraction into a pattern",
	Long: `Compiles one operation into its persisted pattern and description.

Examples:
  tagspec compile --op begins_with --value ORDP
  tagspec compile --op matches_pattern --values SAL,WAGE
  tagspec compile --op extract_between --prefix /ORDP/ --suffix /`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		op := domain.Operation(compileOp)

		var pattern, description string
		if op.IsExtraction() {
			attr := compiler.CompileAttribute(domain.AttributeSpec{
				ExtractionOperation: op,
				Prefix:              compilePrefix,
				Suffix:              compileSuffix,
				Pattern:             compilePattern,
				VerifyValue:         compileVerify,
			}, "")
			pattern, description = attr.Expression.Pattern, attr.Expression.Description()
		} else {
			expr := compiler.CompileCondition(domain.Condition{
				Operation: op,
				Value:     compileValue,
				Values:    compileValues,
				Prefix:    compilePrefix,
				Suffix:    compileSuffix,
			})
			pattern, description = expr.Pattern, expr.Description()
		}

		return printJSON(cmd.OutOrStdout(), map[string]string{
			"pattern":     pattern,
			"description": description,
		})
	},
}

func init() {
	rootCmd.AddCommand(describeCmd)

	decomposeCmd.Flags().BoolVar(&decomposeExtraction, "extraction", false, "read the pattern as an attribute extraction")
	rootCmd.AddCommand(decomposeCmd)

	compileCmd.Flags().StringVar(&compileOp, "op", "", "operation, e.g. begins_with or extract_between (required)")
	compileCmd.Flags().StringVar(&compileValue, "value", "", "operand")
	compileCmd.Flags().StringSliceVar(&compileValues, "values", nil, "alternatives for matches_pattern")
	compileCmd.Flags().StringVar(&compilePrefix, "prefix", "", "prefix for extract_and_compare and extractions")
	compileCmd.Flags().StringVar(&compileSuffix, "suffix", "", "suffix for extract_and_compare and extractions")
	compileCmd.Flags().StringVar(&compilePattern, "pattern", "", "raw pattern for extract_matching")
	compileCmd.Flags().StringVar(&compileVerify, "verify", "", "expected value for extract_between_and_verify")
	_ = compileCmd.MarkFlagRequired("op")
	rootCmd.AddCommand(compileCmd)
}
