// Package humanfmt formats kernel memory counters for display.
//
// Kernel counters are already in kibibytes, so the scale starts at KiB
// rather than bytes.
package humanfmt

import (
	"strconv"
)

// DefaultPlaces is the number of decimals used by KiBDefault.
const DefaultPlaces = 2

// units is the ordered display scale; each step is a factor of 1024.
var units = []string{"KiB", "MiB", "GiB", "TiB"}

// KiB renders kb kibibytes with the largest unit from KiB..TiB that keeps
// the value below 1024, e.g. KiB(1536, 2) == "1.50 MiB". Values at or
// beyond 1024 TiB stay in TiB.
func KiB(kb int64, places int) string {
	value := float64(kb)
	unit := 0
	for value >= 1024 && unit < len(units)-1 {
		value /= 1024
		unit++
	}
	return strconv.FormatFloat(value, 'f', places, 64) + " " + units[unit]
}

// KiBDefault is KiB with DefaultPlaces decimals.
func KiBDefault(kb int64) string {
	return KiB(kb, DefaultPlaces)
}

// KB renders a raw kibibyte count the way /proc does, e.g. "2048 kB".
func KB(kb int64) string {
	return strconv.FormatInt(kb, 10) + " kB"
}
