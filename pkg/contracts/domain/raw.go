package domain

import (
	"strconv"
	"strings"
	"time"
)

// CellKind classifies a raw spreadsheet value
type CellKind int

const (
	CellEmpty CellKind = iota
	CellNumber
	CellText
	CellTime
)

// Cell is one raw spreadsheet value as read from a workbook
type Cell struct {
	Kind CellKind  `json:"k"`
	Num  float64   `json:"n,omitempty"`
	Text string    `json:"s,omitempty"`
	Time time.Time `json:"t,omitempty"`
}

// EmptyCell returns a blank cell
func EmptyCell() Cell { return Cell{} }

// NumberCell wraps a numeric value
func NumberCell(v float64) Cell { return Cell{Kind: CellNumber, Num: v} }

// TextCell wraps a string; whitespace-only text is treated as blank
func TextCell(s string) Cell {
	if strings.TrimSpace(s) == "" {
		return Cell{}
	}
	return Cell{Kind: CellText, Text: s}
}

// TimeCell wraps an already-typed timestamp
func TimeCell(t time.Time) Cell { return Cell{Kind: CellTime, Time: t} }

// IsEmpty reports whether the cell holds no value
func (c Cell) IsEmpty() bool { return c.Kind == CellEmpty }

// String renders the cell the way it would appear in an exported sheet
func (c Cell) String() string {
	switch c.Kind {
	case CellNumber:
		return strconv.FormatFloat(c.Num, 'f', -1, 64)
	case CellText:
		return c.Text
	case CellTime:
		return c.Time.Format("2006-01-02")
	default:
		return ""
	}
}

// RawTable is the untyped table handed from the loader to the cleaner.
// Every row has len(Headers) cells.
type RawTable struct {
	Headers []string `json:"headers"`
	Rows    [][]Cell `json:"rows"`
}

// ColumnIndex returns the position of header name, or -1
func (t *RawTable) ColumnIndex(name string) int {
	for i, h := range t.Headers {
		if h == name {
			return i
		}
	}
	return -1
}

// HasColumn reports whether a header named name exists
func (t *RawTable) HasColumn(name string) bool {
	return t.ColumnIndex(name) >= 0
}

// Len returns the number of data rows
func (t *RawTable) Len() int { return len(t.Rows) }

// Append concatenates other onto t, aligning columns by header name.
// Headers missing on either side are added and filled with blanks.
func (t *RawTable) Append(other *RawTable) {
	mapping := make([]int, len(other.Headers))
	for i, h := range other.Headers {
		idx := t.ColumnIndex(h)
		if idx < 0 {
			t.Headers = append(t.Headers, h)
			idx = len(t.Headers) - 1
			for r := range t.Rows {
				t.Rows[r] = append(t.Rows[r], EmptyCell())
			}
		}
		mapping[i] = idx
	}

	for _, row := range other.Rows {
		out := make([]Cell, len(t.Headers))
		for i, c := range row {
			if i < len(mapping) {
				out[mapping[i]] = c
			}
		}
		t.Rows = append(t.Rows, out)
	}
}
