// Package expression turns free-form calculator input into signed numbers.
//
// Only signed decimal literals are recognised. Anything else in the input is
// skipped, so garbled text degrades to whatever numbers it still contains.
package expression

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	detachedSign = regexp.MustCompile(`([+-])[\s,]+`)
	literal      = regexp.MustCompile(`[+-]?\d+(?:\.\d+)?`)
)

// Parse scans the expression left to right and returns every signed literal
// it contains, in order of occurrence. Whitespace and commas end a number; a
// sign followed by separators still applies to the next number. It never
// fails; input with no literals yields an empty, non-nil slice.
func Parse(expr string) []float64 {
	bound := detachedSign.ReplaceAllString(expr, "$1")
	matches := literal.FindAllString(bound, -1)

	values := make([]float64, 0, len(matches))
	for _, m := range matches {
		v, err := strconv.ParseFloat(m, 64)
		if err != nil {
			continue
		}
		values = append(values, v)
	}
	return values
}

// Format renders values as an expression that Parse reads back to the same
// values: the first literal bare, the rest prefixed with their sign.
func Format(values []float64) string {
	var b strings.Builder
	for i, v := range values {
		s := FormatNumber(v)
		if i > 0 {
			b.WriteByte(' ')
			if v >= 0 {
				b.WriteByte('+')
			}
		}
		b.WriteString(s)
	}
	return b.String()
}

// FormatNumber uses the shortest decimal form that round-trips through
// strconv.ParseFloat. Exponent notation is never produced since Parse has no
// grammar for it.
func FormatNumber(v float64) string {
	if v == 0 {
		return "0"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
