package main

import (
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// shouldColorize reports whether writer is an interactive terminal.
func shouldColorize(writer io.Writer, disabled bool) bool {
	if disabled {
		return false
	}

	file, ok := writer.(*os.File)
	if !ok {
		return false
	}

	fd := file.Fd()

	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// palette holds the colours used by command output.
type palette struct {
	ok   *color.Color
	warn *color.Color
	bad  *color.Color
	info *color.Color
}

func newPalette(enabled bool) palette {
	p := palette{
		ok:   color.New(color.FgGreen),
		warn: color.New(color.FgYellow),
		bad:  color.New(color.FgRed),
		info: color.New(color.FgCyan),
	}

	for _, c := range []*color.Color{p.ok, p.warn, p.bad, p.info} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}

	return p
}
