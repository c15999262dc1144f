package main

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/proscan/pkg/config"
	"github.com/Sumatoshi-tech/proscan/pkg/quality"
)

func newMetricsCommand(gf *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "metrics",
		Short: "List the print-quality metrics and their defect thresholds",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadConfig(gf.configPath)
			if err != nil {
				return err
			}

			analyzer, err := quality.NewAnalyzer(cfg.Quality)
			if err != nil {
				return err
			}

			writeMetrics(cmd.OutOrStdout(), analyzer)

			return nil
		},
	}
}

func writeMetrics(w io.Writer, analyzer *quality.Analyzer) {
	thresholds := analyzer.Thresholds()
	limits := map[string]float64{
		quality.MetricBlur:          thresholds.Blur,
		quality.MetricContrast:      thresholds.Contrast,
		quality.MetricEdgeIntegrity: thresholds.EdgeIntegrity,
	}

	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Metric", "Name", "Defect below", "Description"})
	tw.SetColumnConfigs([]table.ColumnConfig{{Number: 4, WidthMax: 60}})

	registry := analyzer.Registry()

	for _, name := range registry.Names() {
		m, _ := registry.Get(name)

		limit := "-"
		if v, ok := limits[name]; ok {
			limit = fmt.Sprintf("%.2f", v)
		}

		tw.AppendRow(table.Row{m.DisplayName(), name, limit, m.Description()})
	}

	tw.Render()
}
