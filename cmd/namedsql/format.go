package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"gopkg.in/yaml.v3"

	"github.com/syssam/namedsql"
	"github.com/syssam/namedsql/dialect"
)

var formats = []string{"text", "json", "yaml"}

func validateFormat(format string) error {
	for _, f := range formats {
		if f == format {
			return nil
		}
	}
	return fmt.Errorf("invalid format %q: must be one of %s", format, strings.Join(formats, ", "))
}

// queryInfo describes one query for output.
type queryInfo struct {
	Path   string   `json:"path" yaml:"path"`
	Kind   string   `json:"kind" yaml:"kind"`
	Params []string `json:"params,omitempty" yaml:"params,omitempty"`
	Doc    string   `json:"doc,omitempty" yaml:"doc,omitempty"`
	SQL    string   `json:"sql,omitempty" yaml:"sql,omitempty"`
	Source string   `json:"source,omitempty" yaml:"source,omitempty"`
	Line   int      `json:"line,omitempty" yaml:"line,omitempty"`
}

func newQueryInfo(path string, q *namedsql.Query, withSQL bool) queryInfo {
	d := q.Descriptor()
	info := queryInfo{
		Path:   path,
		Kind:   d.Kind.String(),
		Params: d.Names(),
		Doc:    d.Doc,
		Source: d.Source,
		Line:   d.Line,
	}
	if withSQL {
		info.SQL = d.SQL
	}
	return info
}

// formatQueriesText formats queries as aligned columns.
func formatQueriesText(w io.Writer, infos []queryInfo) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PATH\tKIND\tPARAMS\tDOC")
	for _, q := range infos {
		doc, _, _ := strings.Cut(q.Doc, "\n")
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", q.Path, q.Kind, strings.Join(q.Params, ","), doc)
	}
	tw.Flush()
}

// formatQueryText prints a query the way it could be declared.
func formatQueryText(w io.Writer, q queryInfo) {
	bold := color.New(color.Bold)
	bold.Fprintf(w, "-- %s (%s)\n", q.Path, q.Kind)
	if q.Source != "" {
		fmt.Fprintf(w, "-- source: %s:%d\n", q.Source, q.Line)
	}
	if len(q.Params) > 0 {
		fmt.Fprintf(w, "-- params: %s\n", strings.Join(q.Params, ", "))
	}
	for _, l := range strings.Split(q.Doc, "\n") {
		if l != "" {
			fmt.Fprintf(w, "-- %s\n", l)
		}
	}
	fmt.Fprintln(w, q.SQL)
}

func writeStructured(w io.Writer, format string, v any) error {
	switch format {
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encoding yaml: %w", err)
		}
		return enc.Close()
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encoding json: %w", err)
		}
		return nil
	}
}

// writeResult prints the value a query call returned.
func writeResult(w io.Writer, format string, result any) error {
	rs, isRows := result.(*dialect.ResultSet)
	if isRows {
		for _, row := range rs.Rows {
			for i, v := range row {
				row[i] = normalize(v)
			}
		}
	} else {
		result = normalize(result)
	}

	if format != "text" {
		if isRows {
			return writeStructured(w, format, rs.Maps())
		}
		return writeStructured(w, format, result)
	}

	switch {
	case isRows:
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, strings.ToUpper(strings.Join(rs.Columns, "\t")))
		for _, row := range rs.Rows {
			cells := make([]string, len(row))
			for i, v := range row {
				cells[i] = formatCell(v)
			}
			fmt.Fprintln(tw, strings.Join(cells, "\t"))
		}
		tw.Flush()
		fmt.Fprintf(w, "(%d rows)\n", rs.Len())
	case result == nil:
		color.New(color.FgGreen).Fprintln(w, "OK")
	default:
		fmt.Fprintln(w, formatCell(result))
	}
	return nil
}

func normalize(v any) any {
	switch v := v.(type) {
	case []byte:
		return string(v)
	case []any:
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = normalize(e)
		}
		return out
	default:
		return v
	}
}

func formatCell(v any) string {
	if v == nil {
		return "NULL"
	}
	if row, ok := v.([]any); ok {
		cells := make([]string, len(row))
		for i, e := range row {
			cells[i] = formatCell(e)
		}
		return strings.Join(cells, "\t")
	}
	return fmt.Sprint(v)
}
