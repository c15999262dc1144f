package report

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/Sumatoshi-tech/proscan/pkg/grading"
	"github.com/Sumatoshi-tech/proscan/pkg/scanstats"
)

const (
	barWidth       = 24
	percentScale   = 100
	defaultTitle   = "Scan statistics"
	latencyRounder = 10 * time.Microsecond
)

// gradeColors follows the traffic-light convention of verification reports.
var gradeColors = map[grading.Grade]color.Attribute{
	grading.A: color.FgGreen,
	grading.B: color.FgGreen,
	grading.C: color.FgYellow,
	grading.D: color.FgRed,
	grading.F: color.FgHiRed,
}

// WriteTable renders a summary table followed by the grade histogram and the
// per-symbology and per-defect breakdowns.
func WriteTable(w io.Writer, view scanstats.View, opts Options) error {
	title := opts.Title
	if title == "" {
		title = defaultTitle
	}

	sections := []string{
		summaryTable(title, view, opts),
		gradeTable(view, opts),
		countTable("Symbology", view.Symbologies),
		countTable("Defect", view.Defects),
	}

	_, err := io.WriteString(w, strings.Join(sections, "\n\n")+"\n")
	if err != nil {
		return fmt.Errorf("write table: %w", err)
	}

	return nil
}

func newTable() table.Writer {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	return tw
}

func summaryTable(title string, view scanstats.View, opts Options) string {
	tw := newTable()
	tw.SetTitle(title)
	tw.SetColumnConfigs([]table.ColumnConfig{{Number: 2, Align: text.AlignRight}})

	rate := fmt.Sprintf("%.1f%%", view.PassRate*percentScale)
	if opts.Color {
		attr := color.FgGreen
		if view.PassRate < 1 {
			attr = color.FgYellow
		}

		rate = paint(attr, rate)
	}

	tw.AppendRows([]table.Row{
		{"Scans", humanize.Comma(int64(view.Total))},
		{"Admitted", humanize.Comma(int64(view.Admitted))},
		{"Suppressed duplicates", humanize.Comma(int64(view.Suppressed))},
		{"Passed (grade " + view.PassGrade.String() + " or better)", humanize.Comma(int64(view.Passed))},
		{"Pass rate", rate},
		{"Ungradable", humanize.Comma(int64(view.Invalid))},
	})
	tw.AppendSeparator()
	tw.AppendRows([]table.Row{
		{"Frames", humanize.Comma(int64(view.Frames))},
		{"Skipped frames", humanize.Comma(int64(view.Skipped))},
		{"Mean frame latency", view.MeanLatency.Round(latencyRounder).String()},
		{"p95 frame latency", view.P95Latency.Round(latencyRounder).String()},
		{"Stream rate", humanize.FtoaWithDigits(view.FPS, 1) + " fps"},
		{"Capacity", humanize.FtoaWithDigits(view.MaxFPS, 1) + " fps"},
	})

	return tw.Render()
}

func gradeTable(view scanstats.View, opts Options) string {
	tw := newTable()
	tw.AppendHeader(table.Row{"Grade", "Count", "Share", ""})
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
		{Number: 3, Align: text.AlignRight},
	})

	for _, g := range grading.All() {
		n := view.GradeCount(g)

		share := 0.0
		if view.Total > 0 {
			share = float64(n) / float64(view.Total)
		}

		label := g.String()
		bar := strings.Repeat("█", int(share*barWidth+0.5))

		if opts.Color {
			label = paint(gradeColors[g], label)
			bar = paint(gradeColors[g], bar)
		}

		tw.AppendRow(table.Row{label, humanize.Comma(int64(n)), fmt.Sprintf("%.1f%%", share*percentScale), bar})
	}

	tw.AppendFooter(table.Row{"Total", humanize.Comma(int64(view.Total))})

	return tw.Render()
}

// countTable lists counts in descending order, ties by name.
func countTable(header string, counts map[string]int) string {
	tw := newTable()
	tw.AppendHeader(table.Row{header, "Count"})
	tw.SetColumnConfigs([]table.ColumnConfig{{Number: 2, Align: text.AlignRight}})

	keys := slices.SortedFunc(maps.Keys(counts), func(a, b string) int {
		if counts[a] != counts[b] {
			return counts[b] - counts[a]
		}

		return strings.Compare(a, b)
	})

	for _, k := range keys {
		tw.AppendRow(table.Row{k, humanize.Comma(int64(counts[k]))})
	}

	if len(keys) == 0 {
		tw.AppendRow(table.Row{"(none)", "0"})
	}

	return tw.Render()
}

func paint(attr color.Attribute, s string) string {
	c := color.New(attr)
	c.EnableColor()

	return c.Sprint(s)
}
