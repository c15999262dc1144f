// Package report renders inspection statistics for people and machines.
package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Sumatoshi-tech/proscan/pkg/scanstats"
)

// Output formats.
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
	FormatPlot  = "plot"
)

// ErrUnknownFormat is returned for an unsupported output format.
var ErrUnknownFormat = errors.New("unknown output format")

// Options tunes human-oriented output.
type Options struct {
	// Title heads the table and the HTML page.
	Title string
	// Color enables ANSI colours in table output.
	Color bool
}

// Formats lists the supported output formats.
func Formats() []string {
	return []string{FormatTable, FormatJSON, FormatYAML, FormatPlot}
}

// ParseFormat normalizes and checks a format name.
func ParseFormat(name string) (string, error) {
	f := strings.ToLower(strings.TrimSpace(name))
	if !slices.Contains(Formats(), f) {
		return "", fmt.Errorf("%w: %q (want one of %s)", ErrUnknownFormat, name, strings.Join(Formats(), ", "))
	}

	return f, nil
}

// Write renders view to w in the given format.
func Write(w io.Writer, format string, view scanstats.View, opts Options) error {
	switch format {
	case FormatTable:
		return WriteTable(w, view, opts)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")

		err := enc.Encode(view)
		if err != nil {
			return fmt.Errorf("encode json: %w", err)
		}

		return nil
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)

		err := enc.Encode(view)
		if err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}

		return enc.Close()
	case FormatPlot:
		return WritePlot(w, view, opts)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}
