package main

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/proscan/pkg/scan"
)

const (
	// exitCodeInvalid is returned when records fail validation or cannot be read.
	exitCodeInvalid = 2

	// maxRecordBytes bounds one JSON line; records carry the raw payload.
	maxRecordBytes = 4 << 20
)

// ErrInvalidRecords is returned when at least one record fails the schema.
var ErrInvalidRecords = errors.New("invalid scan records")

func newValidateCommand(gf *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <records.jsonl|->",
		Short: "Check scan records against the record schema",
		Long: `Validate JSON-lines scan records, as written by "proscan scan -o", against the
embedded record schema. Use - to read from stdin.

Exits with status 2 when any record is invalid or the input cannot be read.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			return runValidate(args[0], cmd.InOrStdin(), out, newPalette(shouldColorize(out, gf.noColor)), gf.verbose)
		},
	}
}

// validateSummary counts the outcome of a validation run.
type validateSummary struct {
	valid   int
	invalid int
}

func runValidate(path string, stdin io.Reader, out io.Writer, colors palette, verbose bool) error {
	input := stdin

	if path != "-" {
		file, err := os.Open(path)
		if err != nil {
			return &ExitError{Code: exitCodeInvalid, Err: fmt.Errorf("open records: %w", err)}
		}
		defer file.Close()

		input = file
	}

	summary, err := validateRecords(input, out, colors, verbose)
	if err != nil {
		return &ExitError{Code: exitCodeInvalid, Err: err}
	}

	colors.info.Fprintf(out, "%d records checked: ", summary.valid+summary.invalid)

	if summary.invalid == 0 {
		colors.ok.Fprintf(out, "all valid\n")

		return nil
	}

	colors.bad.Fprintf(out, "%d invalid\n", summary.invalid)

	return &ExitError{
		Code: exitCodeInvalid,
		Err:  fmt.Errorf("%w: %d of %d", ErrInvalidRecords, summary.invalid, summary.valid+summary.invalid),
	}
}

func validateRecords(input io.Reader, out io.Writer, colors palette, verbose bool) (validateSummary, error) {
	var summary validateSummary

	scanner := bufio.NewScanner(input)
	scanner.Buffer(make([]byte, 0, 64*1024), maxRecordBytes)

	line := 0

	for scanner.Scan() {
		line++

		data := bytes.TrimSpace(scanner.Bytes())
		if len(data) == 0 {
			continue
		}

		err := scan.ValidateJSON(data)
		if err == nil {
			summary.valid++

			if verbose {
				colors.ok.Fprintf(out, "line %d: ok\n", line)
			}

			continue
		}

		summary.invalid++

		reportInvalid(out, colors, line, err)
	}

	err := scanner.Err()
	if err != nil {
		return summary, fmt.Errorf("read records: %w", err)
	}

	return summary, nil
}

func reportInvalid(out io.Writer, colors palette, line int, err error) {
	var verr *scan.ValidationError
	if !errors.As(err, &verr) {
		colors.bad.Fprintf(out, "line %d: ", line)
		fmt.Fprintln(out, err)

		return
	}

	colors.bad.Fprintf(out, "line %d: %d violations\n", line, len(verr.Fields))

	for _, f := range verr.Fields {
		fmt.Fprint(out, "  ")
		colors.warn.Fprint(out, f.Field)
		fmt.Fprintf(out, ": %s\n", f.Description)
	}
}
