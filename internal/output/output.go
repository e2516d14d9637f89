// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/apex/log"
	"github.com/charmbracelet/lipgloss/v2"
	"github.com/charmbracelet/lipgloss/v2/table"
	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v2"

	"github.com/staranto/fragwiki/internal/config"
	"github.com/staranto/fragwiki/internal/filters"
)

// Formats accepted by --output.
var Formats = []string{"text", "json", "yaml"}

// Column is one column of a listing.
type Column struct {
	Key string
	// Format renders the value for the text table. InterfaceToString is used
	// when it is nil. json and yaml always carry the raw value.
	Format func(any) string
}

// Options are the presentation flags shared by the listing commands.
type Options struct {
	Format  string
	Filter  string
	Sort    string
	Titles  bool
	Color   bool
	Padding int

	HeaderColor string
	EvenColor   string
	OddColor    string
}

// OptionsFromConfig fills the table styling from the config file. Keys are
// padding and colors.title, colors.even and colors.odd.
func OptionsFromConfig(o Options, cfg config.Type) Options {
	o.Padding, _ = cfg.GetInt("padding", 1)
	o.HeaderColor, _ = cfg.GetString("colors.title", "#f6be00")
	o.EvenColor, _ = cfg.GetString("colors.even", "#ffffff")
	o.OddColor, _ = cfg.GetString("colors.odd", "#00c8f0")
	return o
}

// SliceDiceSpit filters, sorts and writes rows.
func SliceDiceSpit(rows []map[string]any, cols []Column, opts Options, w io.Writer) error {
	if w == nil {
		w = os.Stdout
	}

	rows = filters.Apply(rows, opts.Filter)
	SortDataset(rows, opts.Sort)

	switch opts.Format {
	case "json":
		out, err := json.Marshal(projectMaps(rows, cols))
		if err != nil {
			return fmt.Errorf("failed to encode json: %w", err)
		}
		_, err = fmt.Fprintln(w, string(out))
		return err
	case "yaml":
		out, err := yaml.Marshal(project(rows, cols))
		if err != nil {
			return fmt.Errorf("failed to encode yaml: %w", err)
		}
		_, err = w.Write(out)
		return err
	case "", "text":
		return TableWriter(rows, cols, opts, w)
	default:
		return fmt.Errorf("unknown output format %q", opts.Format)
	}
}

// projectMaps keeps only the listed columns. encoding/json sorts the keys.
func projectMaps(rows []map[string]any, cols []Column) []map[string]any {
	out := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		item := make(map[string]any, len(cols))
		for _, c := range cols {
			item[c.Key] = row[c.Key]
		}
		out = append(out, item)
	}
	return out
}

// project keeps only the listed columns, as ordered maps so the yaml keys
// follow the column order.
func project(rows []map[string]any, cols []Column) []yaml.MapSlice {
	out := make([]yaml.MapSlice, 0, len(rows))
	for _, row := range rows {
		item := make(yaml.MapSlice, 0, len(cols))
		for _, c := range cols {
			item = append(item, yaml.MapItem{Key: c.Key, Value: row[c.Key]})
		}
		out = append(out, item)
	}
	return out
}

// TableWriter renders rows as an aligned table.
func TableWriter(rows []map[string]any, cols []Column, opts Options, w io.Writer) error {
	if len(rows) == 0 {
		return nil
	}

	var (
		headerStyle  = lipgloss.NewStyle().Align(lipgloss.Left)
		cellStyle    = lipgloss.NewStyle().Padding(0, 0).Align(lipgloss.Left)
		evenRowStyle = cellStyle
		oddRowStyle  = cellStyle
	)

	if opts.Color {
		headerStyle = headerStyle.Foreground(lipgloss.Color(opts.HeaderColor))
		evenRowStyle = evenRowStyle.Foreground(lipgloss.Color(opts.EvenColor))
		oddRowStyle = oddRowStyle.Foreground(lipgloss.Color(opts.OddColor))
	}

	cells := make([][]string, 0, len(rows))
	for _, row := range rows {
		line := make([]string, 0, len(cols))
		for _, c := range cols {
			format := c.Format
			if format == nil {
				format = func(v any) string { return InterfaceToString(v, "-") }
			}
			line = append(line, format(row[c.Key]))
		}
		cells = append(cells, line)
	}

	t := table.New().
		BorderBottom(false).
		BorderTop(false).
		BorderLeft(false).
		BorderRight(false).
		Border(lipgloss.HiddenBorder()).
		StyleFunc(func(row, col int) lipgloss.Style {
			var style lipgloss.Style
			switch {
			case row == table.HeaderRow:
				style = headerStyle
			case row%2 == 0:
				style = evenRowStyle
			default:
				style = oddRowStyle
			}
			if col > 0 {
				style = style.PaddingLeft(opts.Padding)
			}
			return style
		}).
		Rows(cells...)

	if opts.Titles {
		headers := make([]string, 0, len(cols))
		for _, c := range cols {
			headers = append(headers, c.Key)
		}
		// https://github.com/charmbracelet/lipgloss/issues/261
		t = t.Headers(headers...).BorderHeader(false)
	}

	_, err := fmt.Fprintln(w, t)
	return err
}

// DumpExamples renders a table of example command usages.
func DumpExamples(w io.Writer, examples [][2]string) {
	if len(examples) == 0 {
		return
	}
	rows := make([][]string, 0, len(examples))
	for _, ex := range examples {
		rows = append(rows, []string{ex[0], ex[1]})
	}

	t := table.New().
		BorderBottom(false).
		BorderTop(false).
		BorderLeft(false).
		BorderRight(false).
		Border(lipgloss.HiddenBorder()).
		Headers("Command", "Description").
		BorderHeader(false).
		Rows(rows...)

	if _, err := fmt.Fprintln(w, t); err != nil {
		log.WithError(err).Debug("examples")
	}
}

// Bytes formats a size column.
func Bytes(v any) string {
	switch n := v.(type) {
	case int64:
		return humanize.Bytes(uint64(max(n, 0)))
	case int:
		return humanize.Bytes(uint64(max(n, 0)))
	default:
		return InterfaceToString(v, "-")
	}
}

// Age formats a time column relative to now.
func Age(v any) string {
	if t, ok := v.(time.Time); ok && !t.IsZero() {
		return humanize.Time(t)
	}
	return "-"
}

// Count formats the length of a list column.
func Count(v any) string {
	if v == nil {
		return "0"
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		return humanize.Comma(int64(rv.Len()))
	default:
		return InterfaceToString(v, "0")
	}
}

// InterfaceToString converts a value to its display form. Zero values become
// emptyValue, "" when not given.
func InterfaceToString(value any, emptyValue ...string) string {
	if len(emptyValue) == 0 {
		emptyValue = []string{""}
	}

	if value == nil || reflect.ValueOf(value).IsZero() {
		return emptyValue[0]
	}

	switch value := value.(type) {
	case string:
		return value
	case int:
		return strconv.Itoa(value)
	case int64:
		return strconv.FormatInt(value, 10)
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(value)
	case time.Time:
		return value.Local().Format(time.RFC3339)
	case []string:
		return strings.Join(value, ",")
	default:
		jsonBytes, err := json.Marshal(value)
		if err != nil {
			return fmt.Sprintf("%v", value)
		}
		return string(jsonBytes)
	}
}
