// Tagspec - Pattern-based transaction tagging for bank statements.
// Copyright (c) 2025 opensource.finance
// Licensed under the Apache License 2.0

package main

import (
	"encoding/json"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/opensource-finance/tagspec/internal/config"
	"github.com/opensource-finance/tagspec/internal/domain"
	"github.com/opensource-finance/tagspec/internal/logging"
)

// Version information (set via ldflags)
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

var (
	configPath string
	cluster    bool
	cfg        *domain.Config
)

var rootCmd = &cobra.Command{
	Use:   "tagspec",
	Short: "Pattern-based transaction tagging",
	Long: `Tags bank statement transactions with rule collections built from
structured conditions, and extracts attribute values from matched rows.

Configuration comes from defaults, an optional JSON file (--config) and
TAGSPEC_* environment variables, in that order.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		base := domain.DefaultConfig()
		if cluster {
			base = domain.ClusterConfig()
		}

		c, err := config.LoadFrom(base, configPath)
		if err != nil {
			return eris.Wrap(err, "load config")
		}
		cfg = c

		logCfg := logging.FromDomain(cfg.Logging)
		logCfg.Output = cmd.ErrOrStderr()
		logging.Setup(logCfg)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a JSON config file")
	rootCmd.PersistentFlags().BoolVar(&cluster, "cluster", false, "start from the Postgres/Redis/NATS defaults")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
