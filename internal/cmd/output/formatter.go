// Package output renders command results as tables, JSON or YAML.
package output

import (
	"encoding/json"
	"io"
	"os"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/mattn/go-isatty"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/agentstation/legisync/pkg/errors"
)

// Format is an -o/--output value.
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
	FormatWide  Format = "wide" // table with extra columns
)

// IsTable reports whether f renders a table. The zero Format does.
func (f Format) IsTable() bool {
	return f == FormatTable || f == FormatWide || f == ""
}

// Data is a rendered table. Align may be shorter than Headers; missing
// columns keep tablewriter's default.
type Data struct {
	Headers []string
	Rows    [][]string
	Align   []tw.Align
}

// ParseFormat validates an --output value.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatTable, FormatJSON, FormatYAML, FormatWide, "":
		return f, nil
	}
	return "", errors.NewValidationError("output", s, "must be one of table, json, yaml, wide")
}

// DetectFormat returns explicit when set. Otherwise terminals get a table
// and pipes get JSON.
func DetectFormat(explicit string) Format {
	if explicit != "" {
		return Format(strings.ToLower(explicit))
	}
	if fd := os.Stdout.Fd(); isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd) {
		return FormatTable
	}
	return FormatJSON
}

// Render writes table for table formats and raw for the others.
func Render(w io.Writer, format Format, table Data, raw any) error {
	switch {
	case format.IsTable():
		return writeTable(w, table)
	case format == FormatYAML:
		return writeYAML(w, raw)
	default:
		return writeJSON(w, raw)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeYAML(w io.Writer, v any) error {
	out, err := yaml.MarshalWithOptions(v, yaml.Indent(2), yaml.IndentSequence(false))
	if err != nil {
		return errors.WrapParse("yaml", "", err)
	}
	_, err = w.Write(out)
	return err
}

func writeTable(w io.Writer, data Data) error {
	var cfg tablewriter.Config
	if len(data.Align) > 0 {
		cfg.Header.Alignment = tw.CellAlignment{PerColumn: data.Align}
		cfg.Row.Alignment = tw.CellAlignment{PerColumn: data.Align}
	}

	table := tablewriter.NewTable(w, tablewriter.WithConfig(cfg))
	table.Header(cells(data.Headers)...)
	for _, row := range data.Rows {
		if err := table.Append(cells(row)...); err != nil {
			return err
		}
	}
	return table.Render()
}

func cells(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
