package exporter

import (
	"strconv"

	"github.com/volatiletech/null/v8"
)

// formatFloat formats a value with exactly 2 decimal places; a missing
// value is an empty cell.
func formatFloat(f null.Float64) string {
	if !f.Valid {
		return ""
	}
	return strconv.FormatFloat(f.Float64, 'f', 2, 64)
}

func formatInt(i null.Int) string {
	if !i.Valid {
		return ""
	}
	return strconv.Itoa(i.Int)
}

func formatBool(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
