package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/anjumanuel/digital-commerce-readiness/internal/catalogue"
	"github.com/anjumanuel/digital-commerce-readiness/internal/config"
	"github.com/anjumanuel/digital-commerce-readiness/internal/dataset"
	"github.com/anjumanuel/digital-commerce-readiness/internal/engine"
	"github.com/anjumanuel/digital-commerce-readiness/internal/logging"
)

var (
	cfg config.Config

	flagData      string
	flagCatalogue string
	flagPGDSN     string
	flagPGTable   string
	flagLogLevel  string
	flagPretty    bool
)

var rootCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Digital Commerce Readiness dashboard backend",
	Long: `Serves the Digital Commerce Readiness Index dashboard.

The dataset is loaded once at startup from a CSV file or a Postgres table and
checked against the chart catalogue. Charts are resolved per session from the
current filter selection.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		applyFlags(cmd)
		return cfg.Validate()
	},
}

func init() {
	cfg = config.Load()

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagData, "data", "", "CSV dataset path (default: $DATA_PATH)")
	pf.StringVar(&flagCatalogue, "catalogue", "", "chart catalogue YAML (default: built-in)")
	pf.StringVar(&flagPGDSN, "pg-dsn", "", "Postgres connection string (default: $PG_DSN or DB_*)")
	pf.StringVar(&flagPGTable, "pg-table", "", "load the dataset from this Postgres table instead of CSV")
	pf.StringVar(&flagLogLevel, "log-level", "", "log level: debug, info, warn, error")
	pf.BoolVar(&flagPretty, "pretty", false, "human-readable console logs")

	rootCmd.AddCommand(serveCmd, chartsCmd, resolveCmd, exportCmd)
}

// applyFlags overrides the environment configuration with explicitly set flags.
func applyFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	if flags.Changed("data") {
		cfg.DataPath = flagData
	}
	if flags.Changed("catalogue") {
		cfg.CataloguePath = flagCatalogue
	}
	if flags.Changed("pg-dsn") {
		cfg.PostgresDSN = flagPGDSN
	}
	if flags.Changed("pg-table") {
		cfg.PostgresTable = flagPGTable
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = flagLogLevel
	}
	if flags.Changed("pretty") {
		cfg.LogPretty = flagPretty
	}
}

func newLogger() zerolog.Logger {
	return logging.New(cfg.LogLevel, cfg.LogPretty, os.Stderr)
}

// loadDispatcher loads the catalogue and the dataset it describes. Any
// failure here is fatal to the command.
func loadDispatcher(ctx context.Context, logger zerolog.Logger) (*engine.Dispatcher, dataset.Source, error) {
	var (
		cat *catalogue.Catalogue
		err error
	)
	if cfg.CataloguePath != "" {
		cat, err = catalogue.LoadFile(cfg.CataloguePath)
	} else {
		cat, err = catalogue.Default()
	}
	if err != nil {
		return nil, nil, fmt.Errorf("load catalogue: %w", err)
	}

	src := cfg.Source()
	ds, err := dataset.Load(ctx, src, cat.Schema(), cat.ReferencedColumns())
	if err != nil {
		return nil, nil, fmt.Errorf("load dataset from %s: %w", src, err)
	}

	logger.Info().
		Str("source", fmt.Sprint(src)).
		Int("rows", ds.Len()).
		Int("columns", ds.Columns().Len()).
		Int("catalogue_version", cat.Version()).
		Msg("dataset loaded")
	return engine.NewDispatcher(ds, cat, logger), src, nil
}

func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
