package ui

import (
	"strings"
	"testing"

	"github.com/charmbracelet/bubbles/table"
	"github.com/stretchr/testify/assert"
)

func TestNewTable(t *testing.T) {
	columns := []TableColumn{
		{Title: "Name", Width: 20},
		{Title: "Status", Width: 10},
	}
	rows := []table.Row{
		{"item1", "ok"},
		{"item2", "error"},
	}

	tbl := NewTable(columns, rows)

	// Table should be created without panicking
	view := tbl.View()
	assert.NotEmpty(t, view)
	assert.Contains(t, view, "Name")
	assert.Contains(t, view, "Status")
	assert.Contains(t, view, "item1")
	assert.Contains(t, view, "item2")
}

func TestNewTable_EmptyRows(t *testing.T) {
	columns := []TableColumn{
		{Title: "Name", Width: 20},
	}
	rows := []table.Row{}

	tbl := NewTable(columns, rows)
	view := tbl.View()

	assert.NotEmpty(t, view)
	assert.Contains(t, view, "Name")
}

func TestRenderSimpleTable(t *testing.T) {
	columns := []TableColumn{
		{Title: "Host", Width: 15},
		{Title: "Status", Width: 10},
	}
	rows := [][]string{
		{"server1", "online"},
		{"server2", "offline"},
	}

	output := RenderSimpleTable(columns, rows)

	assert.Contains(t, output, "Host")
	assert.Contains(t, output, "Status")
	assert.Contains(t, output, "server1")
	assert.Contains(t, output, "server2")
	assert.Contains(t, output, "online")
	assert.Contains(t, output, "offline")
}

func TestRenderSimpleTable_EmptyRows(t *testing.T) {
	columns := []TableColumn{
		{Title: "Name", Width: 20},
	}
	rows := [][]string{}

	output := RenderSimpleTable(columns, rows)
	assert.Empty(t, output)
}

func TestRenderTargetTable(t *testing.T) {
	rows := []TargetRow{
		{Name: "ap", Via: "ssh", Address: "root@10.42.0.1", Source: "config", Default: true},
		{Name: "mesh", Via: "ubus", Address: "http://10.42.0.9/ubus", Source: "config"},
		{Name: "lab-router", Via: "ssh", Address: "192.168.8.1", Source: "ssh config"},
	}

	output := RenderTargetTable(rows)

	for _, want := range []string{"NAME", "VIA", "ADDRESS", "SOURCE", "ap", "root@10.42.0.1", "mesh", "http://10.42.0.9/ubus", "lab-router", "ssh config"} {
		assert.Contains(t, output, want)
	}
	assert.Contains(t, output, SymbolComplete, "default target is marked")
	assert.Len(t, strings.Split(strings.TrimRight(output, "\n"), "\n"), 5, "header, its border and three rows")
}

func TestRenderTargetTable_EmptyRows(t *testing.T) {
	assert.Equal(t, "No targets configured", RenderTargetTable(nil))
}

func TestPadRight(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		width    int
		expected string
	}{
		{
			name:     "shorter than width",
			input:    "foo",
			width:    5,
			expected: "foo  ",
		},
		{
			name:     "equal to width",
			input:    "foobar",
			width:    6,
			expected: "foobar",
		},
		{
			name:     "longer than width",
			input:    "foobar",
			width:    3,
			expected: "foobar",
		},
		{
			name:     "empty string",
			input:    "",
			width:    3,
			expected: "   ",
		},
		{
			name:     "zero width",
			input:    "foo",
			width:    0,
			expected: "foo",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := padRight(tt.input, tt.width)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestTableColumn(t *testing.T) {
	col := TableColumn{Title: "Test", Width: 25}
	assert.Equal(t, "Test", col.Title)
	assert.Equal(t, 25, col.Width)
}
