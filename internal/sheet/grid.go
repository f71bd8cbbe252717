// Package sheet holds the raw cell grid the engine reads and the decoders
// that build it from spreadsheet files.
package sheet

import (
	"strconv"
	"strings"
)

// CellKind is the decoded type of a cell.
type CellKind uint8

const (
	Empty CellKind = iota
	Text
	Number
)

// Cell is one spreadsheet value. Number cells keep the text they were read
// from so codes with leading zeros survive.
type Cell struct {
	Kind   CellKind
	Text   string
	Number float64
}

// TextCell classifies raw text as empty, numeric or plain text.
func TextCell(raw string) Cell {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Cell{Kind: Empty}
	}
	if d, ok := ParseNumber(trimmed); ok {
		return Cell{Kind: Number, Text: trimmed, Number: d.InexactFloat64()}
	}
	return Cell{Kind: Text, Text: trimmed}
}

// NumberCell builds a numeric cell.
func NumberCell(v float64) Cell {
	return Cell{Kind: Number, Text: strconv.FormatFloat(v, 'f', -1, 64), Number: v}
}

func (c Cell) IsEmpty() bool {
	if c.Kind == Number {
		return false
	}
	return strings.TrimSpace(c.Text) == ""
}

// String returns the trimmed text of the cell.
func (c Cell) String() string {
	return strings.TrimSpace(c.Text)
}

// Float returns the numeric value of the cell, parsing text when needed.
func (c Cell) Float() (float64, bool) {
	switch c.Kind {
	case Number:
		return c.Number, true
	case Text:
		if d, ok := ParseNumber(c.Text); ok {
			return d.InexactFloat64(), true
		}
	}
	return 0, false
}

// Grid is a read-only table of cells with no assumed header.
type Grid struct {
	Name string
	rows [][]Cell
}

// NewGrid copies rows into a new Grid.
func NewGrid(name string, rows [][]Cell) Grid {
	cp := make([][]Cell, len(rows))
	for i, row := range rows {
		cp[i] = append([]Cell(nil), row...)
	}
	return Grid{Name: name, rows: cp}
}

// FromStrings builds a Grid from raw text rows.
func FromStrings(name string, rows [][]string) Grid {
	cells := make([][]Cell, len(rows))
	for i, row := range rows {
		cells[i] = make([]Cell, len(row))
		for j, v := range row {
			cells[i][j] = TextCell(v)
		}
	}
	return Grid{Name: name, rows: cells}
}

// Len returns the number of rows.
func (g Grid) Len() int {
	return len(g.rows)
}

// Width returns the length of the widest row.
func (g Grid) Width() int {
	w := 0
	for _, row := range g.rows {
		if len(row) > w {
			w = len(row)
		}
	}
	return w
}

// Cell returns the cell at row r, column c, or an empty cell when out of range.
func (g Grid) Cell(r, c int) Cell {
	if r < 0 || r >= len(g.rows) || c < 0 || c >= len(g.rows[r]) {
		return Cell{Kind: Empty}
	}
	return g.rows[r][c]
}

// RowLen returns the number of cells in row r.
func (g Grid) RowLen(r int) int {
	if r < 0 || r >= len(g.rows) {
		return 0
	}
	return len(g.rows[r])
}
