package report

import (
	"fmt"
	"io"
	"maps"
	"slices"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/Sumatoshi-tech/proscan/pkg/grading"
	"github.com/Sumatoshi-tech/proscan/pkg/scanstats"
)

const (
	chartWidth  = "900px"
	chartHeight = "420px"
)

var gradeHex = map[grading.Grade]string{
	grading.A: "#2e7d32",
	grading.B: "#66bb6a",
	grading.C: "#fbc02d",
	grading.D: "#ef6c00",
	grading.F: "#c62828",
}

// WritePlot renders an HTML page with the grade histogram, the duplicate
// suppression split and the per-symbology and per-defect breakdowns.
func WritePlot(w io.Writer, view scanstats.View, opts Options) error {
	title := opts.Title
	if title == "" {
		title = defaultTitle
	}

	page := components.NewPage()
	page.PageTitle = title
	page.AddCharts(
		GradeChart(view),
		outcomeChart(view),
		countChart("Scans by symbology", "#5470c6", view.Symbologies),
		countChart("Scans by defect", "#fac858", view.Defects),
	)

	err := page.Render(w)
	if err != nil {
		return fmt.Errorf("render plot: %w", err)
	}

	return nil
}

// GradeChart builds the A..F histogram, one coloured bar per grade.
func GradeChart(view scanstats.View) *charts.Bar {
	grades := grading.All()
	labels := make([]string, len(grades))
	data := make([]opts.BarData, len(grades))

	for i, g := range grades {
		labels[i] = g.String()
		data[i] = opts.BarData{
			Name:      g.String(),
			Value:     view.GradeCount(g),
			ItemStyle: &opts.ItemStyle{Color: gradeHex[g]},
		}
	}

	bar := newBar("Grade distribution", fmt.Sprintf("pass grade %s, pass rate %.1f%%", view.PassGrade, view.PassRate*percentScale))
	bar.SetXAxis(labels).AddSeries("Scans", data)

	return bar
}

func outcomeChart(view scanstats.View) *charts.Pie {
	pie := charts.NewPie()
	pie.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: chartWidth, Height: chartHeight}),
		charts.WithTitleOpts(opts.Title{Title: "Duplicate suppression", Left: "center"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	pie.AddSeries("Scans", []opts.PieData{
		{Name: "admitted", Value: view.Admitted},
		{Name: "suppressed", Value: view.Suppressed},
	})

	return pie
}

func countChart(title, colour string, counts map[string]int) *charts.Bar {
	keys := slices.Sorted(maps.Keys(counts))
	data := make([]opts.BarData, len(keys))

	for i, k := range keys {
		data[i] = opts.BarData{Value: counts[k]}
	}

	subtitle := ""
	if len(keys) == 0 {
		subtitle = "No data"
	}

	bar := newBar(title, subtitle)
	bar.SetXAxis(keys).AddSeries("Scans", data, charts.WithItemStyleOpts(opts.ItemStyle{Color: colour}))

	return bar
}

func newBar(title, subtitle string) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: chartWidth, Height: chartHeight}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: subtitle, Left: "center"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Scans"}),
	)

	return bar
}
