package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"
)

// stdout is where command output goes.
var stdout io.Writer = os.Stdout

// OutputWriter handles formatted output based on the global output format flag
type OutputWriter struct {
	format string
	out    io.Writer
}

// NewOutputWriter creates an output writer for the current format on stdout
func NewOutputWriter() *OutputWriter {
	return newOutputWriter(OutputFormat(), stdout)
}

func newOutputWriter(format string, out io.Writer) *OutputWriter {
	return &OutputWriter{format: format, out: out}
}

// Quiet reports whether only bare values are printed.
func (o *OutputWriter) Quiet() bool {
	return o.format == "quiet"
}

// Write outputs data according to the configured format. table is used
// for the table format and quiet for the quiet one; either may be nil, in
// which case data is printed as JSON.
func (o *OutputWriter) Write(data any, table *TableData, quiet []string) error {
	switch o.format {
	case "json":
		return o.writeJSON(data)
	case "yaml":
		return o.writeYAML(data)
	case "quiet":
		if quiet == nil {
			return o.writeJSON(data)
		}
		for _, s := range quiet {
			fmt.Fprintln(o.out, s)
		}
		return nil
	default:
		if table == nil {
			return o.writeJSON(data)
		}
		return o.renderTable(*table)
	}
}

// writeJSON outputs data as JSON
func (o *OutputWriter) writeJSON(data any) error {
	output, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	fmt.Fprintln(o.out, string(output))
	return nil
}

// writeYAML outputs data as YAML
func (o *OutputWriter) writeYAML(data any) error {
	output, err := yaml.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal YAML: %w", err)
	}
	fmt.Fprint(o.out, string(output))
	return nil
}

// TableData represents data that can be rendered as a table
type TableData struct {
	Headers []string
	Rows    [][]string
}

// renderTable renders TableData as a formatted table
func (o *OutputWriter) renderTable(data TableData) error {
	w := tabwriter.NewWriter(o.out, 0, 0, 2, ' ', 0)

	if len(data.Headers) > 0 {
		fmt.Fprintln(w, strings.Join(data.Headers, "\t"))
		sep := make([]string, len(data.Headers))
		for i, h := range data.Headers {
			sep[i] = strings.Repeat("-", len(h))
		}
		fmt.Fprintln(w, strings.Join(sep, "\t"))
	}

	for _, row := range data.Rows {
		fmt.Fprintln(w, strings.Join(row, "\t"))
	}

	return w.Flush()
}

// WriteSuccess writes a success message (only in non-quiet mode)
func (o *OutputWriter) WriteSuccess(msg string) {
	if !o.Quiet() {
		fmt.Fprintln(o.out, msg)
	}
}
