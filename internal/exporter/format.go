package exporter

import (
	"strconv"
)

// formatFloat formats a value with exactly 2 decimal places
func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', 2, 64)
}

// formatInt formats an integer value
func formatInt(i int) string {
	return strconv.Itoa(i)
}

// formatBool renders a flag the way the workbook shows it
func formatBool(b bool) string {
	if b {
		return "是"
	}
	return ""
}

// formatCell renders one table value as CSV text
func formatCell(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return formatFloat(x)
	case int:
		return formatInt(x)
	case bool:
		return formatBool(x)
	default:
		return ""
	}
}
