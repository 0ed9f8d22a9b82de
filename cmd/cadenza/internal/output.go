package internal

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
)

// OutputFormat selects how command results are rendered.
type OutputFormat string

const (
	FormatText OutputFormat = "text"
	FormatJSON OutputFormat = "json"
)

// Formatter renders command results either as aligned text for a terminal
// or as JSON for scripting. The same call sites serve both modes.
type Formatter struct {
	w      io.Writer
	asJSON bool
}

// NewFormatter returns a formatter for the given output format. A nil
// writer defaults to stdout; unknown formats render as text.
func NewFormatter(format OutputFormat, w io.Writer) *Formatter {
	if w == nil {
		w = os.Stdout
	}
	return &Formatter{w: w, asJSON: format == FormatJSON}
}

// PrintSuccess reports a completed operation.
func (f *Formatter) PrintSuccess(message string) error {
	if f.asJSON {
		return f.PrintJSON(map[string]string{"status": "success", "message": message})
	}
	_, err := fmt.Fprintf(f.w, "✓ %s\n", message)
	return err
}

// PrintError reports a failed check or operation without aborting the
// command.
func (f *Formatter) PrintError(message string) error {
	if f.asJSON {
		return f.PrintJSON(map[string]string{"status": "error", "message": message})
	}
	_, err := fmt.Fprintf(f.w, "✗ %s\n", message)
	return err
}

// PrintTable renders rows under the given headers. Text output aligns
// columns with tabwriter and uppercases the header line; JSON output
// emits one object per row keyed by header.
func (f *Formatter) PrintTable(headers []string, rows [][]string) error {
	if f.asJSON {
		objects := make([]map[string]string, 0, len(rows))
		for _, row := range rows {
			obj := make(map[string]string, len(headers))
			for i, header := range headers {
				if i < len(row) {
					obj[header] = row[i]
				}
			}
			objects = append(objects, obj)
		}
		return f.PrintJSON(objects)
	}

	tw := tabwriter.NewWriter(f.w, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintln(tw, strings.ToUpper(strings.Join(headers, "\t"))); err != nil {
		return err
	}
	for _, row := range rows {
		if _, err := fmt.Fprintln(tw, strings.Join(row, "\t")); err != nil {
			return err
		}
	}
	return tw.Flush()
}

// PrintJSON writes data as indented JSON regardless of the configured
// format.
func (f *Formatter) PrintJSON(data any) error {
	enc := json.NewEncoder(f.w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}
