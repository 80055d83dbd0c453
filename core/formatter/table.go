package formatter

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/aurabx/harmony-dsl/core/schema"
)

// fingerprintWidth is how much of a fingerprint the table shows.
const fingerprintWidth = 12

// TableFormatter formats output as aligned text tables.
type TableFormatter struct{}

// NewTableFormatter creates a new table formatter.
func NewTableFormatter() *TableFormatter {
	return &TableFormatter{}
}

// Name returns the formatter name.
func (f *TableFormatter) Name() string {
	return "table"
}

// Description returns the formatter description.
func (f *TableFormatter) Description() string {
	return "Aligned text table output"
}

// FormatReports writes a status line per file, followed by its
// diagnostics when it is invalid.
func (f *TableFormatter) FormatReports(w io.Writer, reports []FileReport, opts FormatOptions) error {
	for i, fr := range reports {
		if i > 0 {
			fmt.Fprintln(w)
		}
		rep := fr.Report
		name := fr.File
		if name == "" {
			name = "<stdin>"
		}

		if rep.Valid() {
			fmt.Fprintf(w, "%s: valid (%s schema %s)\n", name, rep.Domain, rep.SchemaVersion)
			continue
		}
		fmt.Fprintf(w, "%s: %d %s (%s schema %s)\n", name, len(rep.Diagnostics),
			plural(len(rep.Diagnostics), "problem", "problems"), rep.Domain, rep.SchemaVersion)

		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		if !opts.NoHeader {
			fmt.Fprintln(tw, "LINE\tKIND\tPATH\tMESSAGE")
		}
		for _, d := range rep.Diagnostics {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
				f.formatLine(d.Line), d.Kind, f.formatValue(d.Path, 0), f.formatValue(d.Message, opts.MaxWidth))
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}
	return nil
}

// FormatSchemas formats a schema listing as a table.
func (f *TableFormatter) FormatSchemas(w io.Writer, schemas []SchemaSummary, opts FormatOptions) error {
	if len(schemas) == 0 {
		fmt.Fprintln(w, "No schemas found.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if !opts.NoHeader {
		fmt.Fprintln(tw, "DOMAIN\tVERSION\tFINGERPRINT\tDESCRIPTION")
	}
	for _, s := range schemas {
		fp := s.Fingerprint
		if len(fp) > fingerprintWidth {
			fp = fp[:fingerprintWidth]
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", s.Domain, s.Version, fp, f.formatValue(s.Description, opts.MaxWidth))
	}
	return tw.Flush()
}

// FormatChanges formats breaking changes as a table.
func (f *TableFormatter) FormatChanges(w io.Writer, changes []schema.BreakingChange, opts FormatOptions) error {
	if len(changes) == 0 {
		fmt.Fprintln(w, "No breaking changes.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if !opts.NoHeader {
		fmt.Fprintln(tw, "TYPE\tPATH\tDETAIL")
	}
	for _, c := range changes {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", c.Type, f.formatValue(c.Path, 0), f.formatValue(c.Detail, opts.MaxWidth))
	}
	return tw.Flush()
}

// FormatError formats an error message.
func (f *TableFormatter) FormatError(w io.Writer, err error) error {
	fmt.Fprintf(w, "Error: %s\n", err.Error())
	return nil
}

func (f *TableFormatter) formatLine(line int) string {
	if line <= 0 {
		return "-"
	}
	return fmt.Sprintf("%d", line)
}

// formatValue formats a cell, keeping tabwriter columns intact.
func (f *TableFormatter) formatValue(s string, maxWidth int) string {
	if s == "" {
		return "-"
	}
	s = strings.NewReplacer("\t", " ", "\n", " ").Replace(s)

	if maxWidth > 3 && len(s) > maxWidth {
		s = s[:maxWidth-3] + "..."
	}
	return s
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

func init() {
	Register(NewTableFormatter())
}
