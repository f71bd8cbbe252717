package coverage

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// roundFloat rounds v to the given number of decimal places.
func roundFloat(v float64, decimals int) float64 {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return v
	}
	if decimals <= 0 {
		return math.Round(v)
	}

	factor := math.Pow(10, float64(decimals))
	return math.Round(v*factor) / factor
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func percent(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return roundFloat(float64(part)/float64(total)*100, 2)
}

// codeLess orders product codes numerically when both are digit strings,
// lexically otherwise, so "9" sorts before "151".
func codeLess(a, b string) bool {
	ai, aerr := strconv.ParseUint(a, 10, 64)
	bi, berr := strconv.ParseUint(b, 10, 64)
	switch {
	case aerr == nil && berr == nil:
		if ai != bi {
			return ai < bi
		}
		return a < b
	case aerr == nil:
		return true
	case berr == nil:
		return false
	}
	return a < b
}

// FormatBR formats a float using Brazilian conventions: dot thousands
// separator and comma decimal separator. Infinite values render as "∞".
// Example: 1234.5 (2 decimals) => "1.234,50"; 1000.0 => "1.000".
func FormatBR(v float64, decimals int) string {
	if math.IsInf(v, 1) {
		return "∞"
	}
	if math.IsNaN(v) {
		return "-"
	}

	neg := v < 0
	if neg {
		v = -v
	}
	if decimals < 0 {
		decimals = 0
	}

	factor := math.Pow(10, float64(decimals))
	scaled := math.Round(v * factor)
	intPart := int64(scaled) / int64(factor)
	fracPart := int64(scaled) % int64(factor)

	s := groupThousands(strconv.FormatInt(intPart, 10), '.')

	prefix := ""
	if neg && scaled != 0 {
		prefix = "-"
	}

	if decimals == 0 || fracPart == 0 {
		return prefix + s
	}

	fracStr := strconv.FormatInt(fracPart, 10)
	fracStr = strings.Repeat("0", decimals-len(fracStr)) + fracStr

	return fmt.Sprintf("%s%s,%s", prefix, s, fracStr)
}

func groupThousands(s string, sep byte) string {
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(sep)
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}
