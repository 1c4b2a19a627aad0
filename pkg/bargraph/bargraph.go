// Package bargraph renders a ratio as a fixed-width text bar.
package bargraph

import (
	"math"
	"strings"
)

// DefaultLength is the bar width used when none is configured.
const DefaultLength = 20

// Fill marks a used cell; unused cells are spaces.
const Fill = "#"

// Filled returns the number of fill cells for ratio at the given length,
// rounding half to even.
func Filled(ratio float64, length int) int {
	return int(math.RoundToEven(ratio * float64(length)))
}

// Render returns Filled(ratio, length) fill characters padded with spaces
// to length. The bar is not clamped: a ratio above 1 produces more than
// length fill characters and no padding, and a negative ratio produces
// only padding, length-filled spaces of it.
func Render(ratio float64, length int) string {
	filled := Filled(ratio, length)
	return strings.Repeat(Fill, max(filled, 0)) + strings.Repeat(" ", max(length-filled, 0))
}
