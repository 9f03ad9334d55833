package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/anjumanuel/digital-commerce-readiness/internal/engine"
	"github.com/anjumanuel/digital-commerce-readiness/internal/export"
)

var (
	chartsVersion int

	resolveChart    string
	resolveClusters string
	resolveRegion   string
	resolveCompare  string
	resolveMetric   string

	exportFormat  string
	exportOut     string
	exportColumns string
)

var chartsCmd = &cobra.Command{
	Use:   "charts",
	Short: "List the chart catalogue",
	RunE:  runCharts,
}

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Resolve one chart and print it as JSON",
	Example: `  dashboard resolve --chart top10_dcri --clusters 1,2
  dashboard resolve --chart state_radar --compare Kerala,Goa`,
	RunE: runResolve,
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the filtered dataset as CSV or XLSX",
	RunE:  runExport,
}

func init() {
	chartsCmd.Flags().IntVar(&chartsVersion, "version", 0, "catalogue version (0 = latest)")

	for _, cmd := range []*cobra.Command{resolveCmd, exportCmd} {
		cmd.Flags().StringVar(&resolveClusters, "clusters", "", "comma-separated clusters (default: all)")
		cmd.Flags().StringVar(&resolveRegion, "region", "", "single selected region")
		cmd.Flags().StringVar(&resolveCompare, "compare", "", "comma-separated compare regions")
		cmd.Flags().StringVar(&resolveMetric, "metric", "", "selected numeric metric")
	}
	resolveCmd.Flags().StringVar(&resolveChart, "chart", "", "chart id")
	resolveCmd.MarkFlagRequired("chart")

	exportCmd.Flags().StringVar(&exportFormat, "format", "csv", "csv or xlsx")
	exportCmd.Flags().StringVarP(&exportOut, "output", "o", "", "output file path (default: stdout)")
	exportCmd.Flags().StringVar(&exportColumns, "columns", "", "comma-separated columns (default: the selected metric)")
}

func runCharts(cmd *cobra.Command, args []string) error {
	dispatcher, _, err := loadDispatcher(cmd.Context(), newLogger())
	if err != nil {
		return err
	}
	cat := dispatcher.Catalogue()
	if chartsVersion < 0 || chartsVersion > cat.Version() {
		return fmt.Errorf("version must be between 0 and %d", cat.Version())
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tKIND\tTRANSFORM\tSINCE\tTITLE")
	for _, e := range cat.Entries(chartsVersion) {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", e.ID, e.Kind, e.Transform, e.Since, e.Title)
	}
	return tw.Flush()
}

func runResolve(cmd *cobra.Command, args []string) error {
	dispatcher, _, err := loadDispatcher(cmd.Context(), newLogger())
	if err != nil {
		return err
	}
	fs, err := cliFilters(cmd, dispatcher)
	if err != nil {
		return err
	}

	out := dispatcher.Resolve(fs, resolveChart)
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return err
	}
	if out.Status == engine.StatusError {
		return out.Err
	}
	return nil
}

func runExport(cmd *cobra.Command, args []string) error {
	format, err := export.ParseFormat(exportFormat)
	if err != nil {
		return err
	}
	dispatcher, _, err := loadDispatcher(cmd.Context(), newLogger())
	if err != nil {
		return err
	}
	fs, err := cliFilters(cmd, dispatcher)
	if err != nil {
		return err
	}

	table, err := dispatcher.ExportTable(fs, splitList(exportColumns))
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if exportOut != "" {
		f, err := os.Create(exportOut)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	return export.Write(w, format, table)
}

// cliFilters builds a filter state from the defaults plus any filter flags.
func cliFilters(cmd *cobra.Command, d *engine.Dispatcher) (engine.FilterState, error) {
	compare := cfg.DefaultCompare
	if resolveCompare != "" {
		compare = splitList(resolveCompare)
	}
	fs := d.Defaults(compare, cfg.DefaultMetric)
	if resolveMetric != "" {
		fs.SelectedMetric = resolveMetric
	}
	if cmd.Flags().Changed("clusters") {
		fs.SelectedClusters = splitList(resolveClusters)
		if fs.SelectedClusters == nil {
			fs.SelectedClusters = []string{}
		}
	}
	fs.SelectedRegion = resolveRegion
	return fs, d.Validate(fs)
}
