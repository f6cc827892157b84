package compute

import (
	"math"
	"strconv"
	"strings"
)

// FormatValue renders v with the shortest digits that round-trip, always
// keeping a decimal point: 1 -> "1.0", 0.5 -> "0.5", 2/3 ->
// "0.6666666666666666". Magnitudes below 1e-4 or from 1e16 up use exponent
// form ("1e-05").
func FormatValue(v float64) string {
	switch {
	case math.IsNaN(v):
		return "nan"
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	}

	abs := math.Abs(v)
	if abs != 0 && (abs < 1e-4 || abs >= 1e16) {
		return strconv.FormatFloat(v, 'e', -1, 64)
	}

	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsRune(s, '.') {
		s += ".0"
	}
	return s
}
