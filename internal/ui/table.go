package ui

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

type Align int

const (
	AlignLeft Align = iota
	AlignRight
)

// Column configures a column in the table.
type Column struct {
	Header   string
	Align    Align // default: AlignLeft
	MaxWidth int   // 0 = unlimited; longer cells are cut with "…"
}

type Table struct {
	columns []Column
	rows    [][]string

	// Plain renders without borders or colors (non-TTY output, log files).
	Plain bool
}

func NewTable(columns ...Column) *Table {
	return &Table{columns: columns}
}

func (t *Table) AddRow(cells ...string) {
	// normalize row length
	row := make([]string, len(t.columns))
	for i := range row {
		if i < len(cells) {
			row[i] = truncateEnd(cells[i], t.columns[i].MaxWidth)
		}
	}
	t.rows = append(t.rows, row)
}

func (t *Table) Len() int {
	return len(t.rows)
}

func (t *Table) Render(w io.Writer) error {
	if len(t.columns) == 0 {
		return nil
	}

	headers := make([]string, len(t.columns))
	for i, c := range t.columns {
		headers[i] = c.Header
	}

	if t.Plain {
		return t.renderPlain(w, headers)
	}

	headerStyle := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle := lipgloss.NewStyle().Padding(0, 1)

	tbl := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("240"))).
		Headers(headers...).
		Rows(t.rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			st := cellStyle
			if row == table.HeaderRow {
				st = headerStyle
			}
			if col < len(t.columns) && t.columns[col].Align == AlignRight {
				st = st.Align(lipgloss.Right)
			}
			return st
		})

	_, err := fmt.Fprintln(w, tbl.Render())
	return err
}

// renderPlain prints space-aligned columns with a dashed separator under the header.
func (t *Table) renderPlain(w io.Writer, headers []string) error {
	widths := make([]int, len(t.columns))
	for i, h := range headers {
		widths[i] = utf8.RuneCountInString(h)
	}
	for _, row := range t.rows {
		for i, cell := range row {
			widths[i] = max(widths[i], utf8.RuneCountInString(cell))
		}
	}

	lines := make([][]string, 0, len(t.rows)+2)
	lines = append(lines, headers)
	sep := make([]string, len(widths))
	for i, wd := range widths {
		sep[i] = strings.Repeat("-", wd)
	}
	lines = append(lines, sep)
	lines = append(lines, t.rows...)

	for _, cells := range lines {
		var b strings.Builder
		for i, cell := range cells {
			pad := strings.Repeat(" ", widths[i]-utf8.RuneCountInString(cell))
			if t.columns[i].Align == AlignRight {
				b.WriteString(pad + cell)
			} else {
				b.WriteString(cell + pad)
			}
			if i < len(cells)-1 {
				b.WriteString("  ")
			}
		}
		b.WriteString("\n")
		if _, err := io.WriteString(w, strings.TrimRight(b.String(), " \n")+"\n"); err != nil {
			return err
		}
	}
	return nil
}

func truncateEnd(s string, maxWidth int) string {
	if maxWidth <= 0 || utf8.RuneCountInString(s) <= maxWidth {
		return s
	}
	if maxWidth == 1 {
		return "…"
	}
	i := 0
	for pos := range s {
		if i == maxWidth-1 {
			return s[:pos] + "…"
		}
		i++
	}
	return s
}
