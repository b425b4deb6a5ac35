// Package output renders run results for humans via pterm.
package output

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pterm/pterm"

	"github.com/exedev/chronicle/internal/schema"
)

// Printer wraps pterm for styled output. All methods are no-ops in quiet
// mode.
type Printer struct {
	quiet  bool
	writer io.Writer
}

// NewPrinter creates a Printer writing to stdout.
func NewPrinter(quiet bool) *Printer {
	return &Printer{quiet: quiet, writer: os.Stdout}
}

// NewPrinterWithWriter creates a Printer with a custom writer (for testing).
func NewPrinterWithWriter(quiet bool, w io.Writer) *Printer {
	return &Printer{quiet: quiet, writer: w}
}

// Info prints an informational message.
func (p *Printer) Info(format string, args ...any) {
	if p.quiet {
		return
	}
	pterm.Info.WithWriter(p.writer).Printfln(format, args...)
}

// Success prints a success message.
func (p *Printer) Success(format string, args ...any) {
	if p.quiet {
		return
	}
	pterm.Success.WithWriter(p.writer).Printfln(format, args...)
}

// Warn prints a warning.
func (p *Printer) Warn(format string, args ...any) {
	if p.quiet {
		return
	}
	pterm.Warning.WithWriter(p.writer).Printfln(format, args...)
}

// Error prints an error message.
func (p *Printer) Error(format string, args ...any) {
	if p.quiet {
		return
	}
	pterm.Error.WithWriter(p.writer).Printfln(format, args...)
}

// Records renders the collected annotations of one run.
func (p *Printer) Records(summary string, regions []schema.RegionAnnotation, concerns []schema.CrossCuttingConcern) {
	if p.quiet {
		return
	}

	pterm.DefaultSection.WithWriter(p.writer).Println("Summary")
	fmt.Fprintln(p.writer, summary)

	if len(regions) > 0 {
		pterm.DefaultSection.WithWriter(p.writer).Println("Annotations")
		items := make([]pterm.BulletListItem, 0, len(regions))
		for _, r := range regions {
			text := fmt.Sprintf("%s %s in %s (lines %d-%d): %s",
				r.Anchor.UnitType, r.Anchor.Name, r.File, r.Lines.Start, r.Lines.End, r.Intent)
			items = append(items, pterm.BulletListItem{Level: 0, Text: text})
		}
		pterm.DefaultBulletList.WithWriter(p.writer).WithItems(items).Render()
	}

	if len(concerns) > 0 {
		pterm.DefaultSection.WithWriter(p.writer).Println("Cross-cutting concerns")
		items := make([]pterm.BulletListItem, 0, len(concerns))
		for _, c := range concerns {
			text := fmt.Sprintf("%s: %s", c.Theme, c.Intent)
			if len(c.Files) > 0 {
				text += fmt.Sprintf(" [%s]", strings.Join(c.Files, ", "))
			}
			items = append(items, pterm.BulletListItem{Level: 0, Text: text})
		}
		pterm.DefaultBulletList.WithWriter(p.writer).WithItems(items).Render()
	}
}
