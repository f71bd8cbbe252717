package sheet

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var numberCleaner = strings.NewReplacer(" ", "", "\u00a0", "", "\t", "")

// thousandsDots matches integers grouped with dots, e.g. "1.000" or "12.500".
var thousandsDots = regexp.MustCompile(`^[+-]?[1-9]\d{0,2}(\.\d{3})+$`)

// ParseNumber reads numbers written with either decimal convention:
// "1.234,56", "1,234.56", "1234,5", "1234.5" and "1.234.567". A lone dot
// followed by exactly three digits ("2.500") is a thousands separator, so
// integers formatted the Brazilian way read back unchanged. Any other single
// separator is taken as the decimal point.
func ParseNumber(s string) (decimal.Decimal, bool) {
	s = numberCleaner.Replace(strings.TrimSpace(s))
	if s == "" {
		return decimal.Zero, false
	}
	if !numberish(s) {
		return decimal.Zero, false
	}

	dots := strings.Count(s, ".")
	commas := strings.Count(s, ",")
	switch {
	case dots > 0 && commas > 0:
		if strings.LastIndex(s, ",") > strings.LastIndex(s, ".") {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case commas == 1:
		s = strings.Replace(s, ",", ".", 1)
	case commas > 1:
		s = strings.ReplaceAll(s, ",", "")
	case dots > 1, thousandsDots.MatchString(s):
		s = strings.ReplaceAll(s, ".", "")
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// numberish rejects anything but an optional sign, digits, separators and an exponent.
func numberish(s string) bool {
	digits := 0
	for i, r := range s {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == '.' || r == ',':
		case (r == '-' || r == '+') && i == 0:
		case r == 'e' || r == 'E':
			if digits == 0 {
				return false
			}
		case (r == '-' || r == '+') && i > 0 && (s[i-1] == 'e' || s[i-1] == 'E'):
		default:
			return false
		}
	}
	return digits > 0
}
