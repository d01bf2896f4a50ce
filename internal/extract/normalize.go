package extract

import (
	"strconv"
	"strings"
)

// NormalizeNumber strips thousands separators from a numeric span and
// parses it as an integer: "1.234", "1,234" and "1 234" all become 1234.
// Fields whose separator is a real decimal point (distance in km) must
// not pass through here.
func NormalizeNumber(s string) (int, error) {
	cleaned := strings.NewReplacer(".", "", ",", "", " ", "").Replace(strings.TrimSpace(s))
	return strconv.Atoi(cleaned)
}

// digitCount reports how many digit characters remain after separator
// stripping, used by the layout stage's plausibility window.
func digitCount(s string) int {
	n := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			n++
		}
	}
	return n
}
