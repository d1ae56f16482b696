package dataprocessing

import (
	"math"
	"strconv"
	"strings"

	"freightcli/pkg/contracts/domain"
)

// coerceNumber reads a cell as a float. present is false for blank cells
// and for values that do not parse; nonNumeric is true only when the cell
// held something that was not a number.
func coerceNumber(c domain.Cell) (v float64, present bool, nonNumeric bool) {
	switch c.Kind {
	case domain.CellNumber:
		if math.IsNaN(c.Num) || math.IsInf(c.Num, 0) {
			return 0, false, true
		}
		return c.Num, true, false
	case domain.CellText:
		f, err := strconv.ParseFloat(strings.TrimSpace(c.Text), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false, true
		}
		return f, true, false
	case domain.CellTime:
		return 0, false, true
	default:
		return 0, false, false
	}
}

// textValue renders an identity cell; blank means missing.
func textValue(c domain.Cell) string {
	return strings.TrimSpace(c.String())
}
