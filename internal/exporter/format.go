package exporter

import (
	"strconv"
)

// formatFloat writes the shortest decimal that round-trips to f, so exported
// amounts and coordinates keep full precision.
func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// formatInt formats an integer value for CSV output
func formatInt(i int) string {
	return strconv.Itoa(i)
}
