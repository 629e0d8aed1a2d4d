package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
)

// TableColumn defines a table column with name and width.
type TableColumn struct {
	Title string
	Width int
}

// NewTable creates a non-focused Bubbles table sized to show every row.
func NewTable(columns []TableColumn, rows []table.Row) table.Model {
	cols := make([]table.Column, len(columns))
	for i, c := range columns {
		cols[i] = table.Column{Title: c.Title, Width: c.Width}
	}

	t := table.New(
		table.WithColumns(cols),
		table.WithRows(rows),
		table.WithFocused(false),
		table.WithHeight(len(rows)+1), // +1 for header
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(ColorMuted).
		BorderBottom(true).
		Bold(true).
		Foreground(ColorPrimary)
	s.Cell = s.Cell.Foreground(ColorPrimary)
	// Nothing is focused, so the first row must not look selected.
	s.Selected = s.Cell

	t.SetStyles(s)
	return t
}

// RenderSimpleTable renders rows as a static table for command output.
func RenderSimpleTable(columns []TableColumn, rows [][]string) string {
	if len(rows) == 0 {
		return ""
	}

	tableRows := make([]table.Row, len(rows))
	for i, row := range rows {
		tableRows[i] = table.Row(row)
	}
	return NewTable(columns, tableRows).View()
}

// TargetRow is one line of the targets listing.
type TargetRow struct {
	Name    string `json:"name"`
	Via     string `json:"via"`
	Address string `json:"address"` // SSH hosts or ubus URL
	Source  string `json:"source"`  // "config" or "ssh config"
	Default bool   `json:"default"`
}

// RenderTargetTable lists routers diagnostics can run on. The default
// target is marked with a filled dot.
func RenderTargetTable(rows []TargetRow) string {
	if len(rows) == 0 {
		return "No targets configured"
	}

	headerStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(ColorPrimary).
		BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).
		BorderForeground(ColorMuted)
	defaultStyle := lipgloss.NewStyle().Foreground(ColorSuccess)
	mutedStyle := MutedStyle()

	var b strings.Builder
	b.WriteString(headerStyle.Render("    " + padRight("NAME", 18) + padRight("VIA", 7) + padRight("ADDRESS", 34) + "SOURCE"))
	b.WriteString("\n")

	for _, row := range rows {
		mark := mutedStyle.Render(SymbolPending)
		name := row.Name
		if row.Default {
			mark = defaultStyle.Render(SymbolComplete)
			name = lipgloss.NewStyle().Bold(true).Render(row.Name)
		}
		b.WriteString("  " + mark + " " +
			padRight(name, 18) +
			padRight(row.Via, 7) +
			padRight(row.Address, 34) +
			mutedStyle.Render(row.Source))
		b.WriteString("\n")
	}
	return b.String()
}

// padRight pads a string to the specified visible width.
func padRight(s string, width int) string {
	visible := lipgloss.Width(s)
	if visible >= width {
		return s
	}
	return s + strings.Repeat(" ", width-visible)
}
