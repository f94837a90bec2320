package ui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// Table renders device listings. StateColumn, when >= 0, names the column
// whose cells are colored by StateStyle.
type Table struct {
	Headers     []string
	Rows        [][]string
	StateColumn int
}

// NewTable creates a table without a state column.
func NewTable(headers ...string) *Table {
	return &Table{Headers: headers, StateColumn: -1}
}

// AddRow appends a row. Missing cells render empty.
func (t *Table) AddRow(cells ...string) *Table {
	row := make([]string, len(t.Headers))
	copy(row, cells)
	t.Rows = append(t.Rows, row)
	return t
}

// Render returns the bordered table.
func (t *Table) Render() string {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(PrimaryColor)).
		Headers(t.Headers...).
		Rows(t.Rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return TableHeaderStyle.Padding(0, 1)
			}
			if col == t.StateColumn && row >= 0 && row < len(t.Rows) {
				return StateStyle(t.Rows[row][col]).Padding(0, 1)
			}
			return TableCellStyle.Padding(0, 1)
		}).
		Render()
}

// String implements fmt.Stringer
func (t *Table) String() string {
	return t.Render()
}
