package ingest

import (
	"math"
	"strconv"
	"strings"
)

// CellKind tags the value held by a Cell.
type CellKind uint8

const (
	CellEmpty CellKind = iota
	CellText
	CellNumber
)

// Cell is one spreadsheet cell.
type Cell struct {
	Kind   CellKind
	Text   string
	Number float64
}

// Row is one spreadsheet row. Rows may be ragged.
type Row []Cell

// Grid is a whole sheet.
type Grid []Row

// TextCell builds a text cell. Blank text becomes an empty cell.
func TextCell(s string) Cell {
	s = strings.TrimSpace(s)
	if s == "" {
		return Cell{}
	}
	return Cell{Kind: CellText, Text: s}
}

// NumberCell builds a numeric cell.
func NumberCell(f float64) Cell {
	return Cell{Kind: CellNumber, Number: f}
}

// ParseCell classifies raw spreadsheet text: plain numbers become numeric
// cells, everything else text.
func ParseCell(raw string) Cell {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Cell{}
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		return NumberCell(f)
	}
	return Cell{Kind: CellText, Text: s}
}

// GridFromStrings converts raw string rows into a Grid.
func GridFromStrings(rows [][]string) Grid {
	g := make(Grid, len(rows))
	for i, raw := range rows {
		row := make(Row, len(raw))
		for j, v := range raw {
			row[j] = ParseCell(v)
		}
		g[i] = row
	}
	return g
}

// IsEmpty reports whether the cell holds nothing.
func (c Cell) IsEmpty() bool {
	return c.Kind == CellEmpty
}

// String renders the cell as trimmed text.
func (c Cell) String() string {
	switch c.Kind {
	case CellText:
		return c.Text
	case CellNumber:
		return strconv.FormatFloat(c.Number, 'f', -1, 64)
	default:
		return ""
	}
}

// Float reads the cell as a number. Text is accepted with thousands
// separators and a trailing percent sign.
func (c Cell) Float() (float64, bool) {
	switch c.Kind {
	case CellNumber:
		return c.Number, true
	case CellText:
		s := strings.ReplaceAll(c.Text, ",", "")
		s = strings.TrimSpace(strings.TrimSuffix(s, "%"))
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// At returns the cell at column i, or an empty cell past the end of the row.
func (r Row) At(i int) Cell {
	if i < 0 || i >= len(r) {
		return Cell{}
	}
	return r[i]
}

// IsBlank reports whether every cell in the row is empty.
func (r Row) IsBlank() bool {
	for _, c := range r {
		if !c.IsEmpty() {
			return false
		}
	}
	return true
}

// Row returns row i, or nil past the end of the grid.
func (g Grid) Row(i int) Row {
	if i < 0 || i >= len(g) {
		return nil
	}
	return g[i]
}

// Width is the length of the longest row.
func (g Grid) Width() int {
	w := 0
	for _, r := range g {
		if len(r) > w {
			w = len(r)
		}
	}
	return w
}
