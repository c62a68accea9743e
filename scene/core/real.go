// ABOUTME: FormatReal renders float64 values as the real literals written into decks.
// ABOUTME: Shortest round-trip digits, fixed notation with a trailing ".0" in the mid range.
package core

import (
	"math"
	"strconv"
	"strings"
)

// FormatReal formats v using the shortest decimal that parses back to v.
//
// Values whose decimal exponent lies in [-4, 16) are written in fixed notation
// and always carry a fractional part ("2.5", "0.0", "100.0"). Everything else
// uses scientific notation with a signed, at least two digit exponent
// ("1e-05", "1.5e+16").
func FormatReal(v float64) string {
	switch {
	case math.IsNaN(v):
		return "nan"
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	}

	// 'e' with precision -1 yields the shortest digits: d.ddde±XX
	sci := strconv.FormatFloat(v, 'e', -1, 64)
	neg := strings.HasPrefix(sci, "-")
	if neg {
		sci = sci[1:]
	}
	mant, expStr, _ := strings.Cut(sci, "e")
	exp, _ := strconv.Atoi(expStr)
	digits := strings.Replace(mant, ".", "", 1)

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}

	if exp < -4 || exp >= 16 {
		b.WriteByte(digits[0])
		if len(digits) > 1 {
			b.WriteByte('.')
			b.WriteString(digits[1:])
		}
		b.WriteByte('e')
		if exp < 0 {
			b.WriteByte('-')
			exp = -exp
		} else {
			b.WriteByte('+')
		}
		if exp < 10 {
			b.WriteByte('0')
		}
		b.WriteString(strconv.Itoa(exp))
		return b.String()
	}

	point := exp + 1 // digits before the decimal point
	switch {
	case point <= 0:
		b.WriteString("0.")
		b.WriteString(strings.Repeat("0", -point))
		b.WriteString(digits)
	case point >= len(digits):
		b.WriteString(digits)
		b.WriteString(strings.Repeat("0", point-len(digits)))
		b.WriteString(".0")
	default:
		b.WriteString(digits[:point])
		b.WriteByte('.')
		b.WriteString(digits[point:])
	}
	return b.String()
}

// formatReals joins values with ", ".
func formatReals(vs []float64) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = FormatReal(v)
	}
	return strings.Join(parts, ", ")
}
