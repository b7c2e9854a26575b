// Package console formats operator-facing output with optional colour.
package console

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"
)

const (
	Plain   = color.FgWhite
	Success = color.FgGreen
	Warning = color.FgYellow
	Error   = color.FgRed
)

var maybeColorize func(kind color.Attribute, tmpl string, a ...any) string

// InitColors sets up colour output. color.NoColor is already true when stdout
// is not a terminal or NO_COLOR is set.
func InitColors(isColorDisabled bool) {
	if color.NoColor || isColorDisabled {
		maybeColorize = nil
		return
	}
	maybeColorize = func(kind color.Attribute, tmpl string, a ...any) string {
		return color.New(kind).SprintfFunc()(tmpl, a...)
	}
}

// Message formats a line, coloured by kind when colours are enabled.
func Message(kind color.Attribute, tmpl string, a ...any) string {
	if maybeColorize == nil || kind == Plain {
		return fmt.Sprintf(tmpl+"\n", a...)
	}
	return fmt.Sprintln(maybeColorize(kind, tmpl, a...))
}

// Fprint writes a formatted line to w.
func Fprint(w io.Writer, kind color.Attribute, tmpl string, a ...any) {
	io.WriteString(w, Message(kind, tmpl, a...)) // nolint:errcheck
}

// Heading writes a title underlined with '='.
func Heading(w io.Writer, title string) {
	fmt.Fprintf(w, "\n%s\n%s\n", title, strings.Repeat("=", len(title)))
}

// Table renders header and rows as a borderless table.
func Table(header []string, data [][]string) (string, error) {
	buf := strings.Builder{}

	table := tablewriter.NewTable(
		&buf,
		tablewriter.WithRenderer(renderer.NewBlueprint(tw.Rendition{
			Borders: tw.BorderNone,
			Settings: tw.Settings{
				Lines: tw.Lines{
					ShowHeaderLine: tw.Off,
				},
				Separators: tw.Separators{
					BetweenColumns: tw.Off,
				},
			},
		})),
	)

	if len(header) > 0 {
		table.Header(header)
	}

	if err := table.Bulk(data); err != nil {
		return "", fmt.Errorf("bulk adding data to table: %w", err)
	}

	if err := table.Render(); err != nil {
		return "", fmt.Errorf("rendering table: %w", err)
	}

	return buf.String(), nil
}
