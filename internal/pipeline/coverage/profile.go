package coverage

import (
	"unicode"

	"github.com/andresuchdata/stockcover/internal/sheet"
)

// columnProfile counts value shapes of one column over the sampled rows.
type columnProfile struct {
	nonEmpty    int
	numeric     int
	digitLed    int
	combined    int
	identifiers int
	unitLike    int
	textLen     int
}

func (p columnProfile) ratio(n int) float64 {
	if p.nonEmpty == 0 {
		return 0
	}
	return float64(n) / float64(p.nonEmpty)
}

func (p columnProfile) meanTextLen() float64 {
	if p.nonEmpty == 0 {
		return 0
	}
	return float64(p.textLen) / float64(p.nonEmpty)
}

func (f Frame) profile(col int) columnProfile {
	if p, ok := f.profiles[col]; ok {
		return p
	}
	p := profileColumn(f.Grid, col, f.SampleFrom, f.SampleTo)
	if f.profiles != nil {
		f.profiles[col] = p
	}
	return p
}

func profileColumn(g sheet.Grid, col, from, to int) columnProfile {
	var p columnProfile
	for r := from; r < to; r++ {
		cell := g.Cell(r, col)
		if cell.IsEmpty() {
			continue
		}
		text := cell.String()
		p.nonEmpty++
		p.textLen += len([]rune(text))

		_, isNumber := cell.Float()
		if isNumber {
			p.numeric++
		} else if unitToken(text) {
			p.unitLike++
		}
		if leadingDigit.MatchString(text) {
			p.digitLed++
		}
		if combinedCell.MatchString(text) {
			p.combined++
		}
		if identifier.MatchString(text) {
			p.identifiers++
		}
	}
	return p
}

// unitToken matches short unit abbreviations such as UN, AMP, CX, ML, FR/AMP.
func unitToken(s string) bool {
	runes := []rune(s)
	if len(runes) == 0 || len(runes) > 6 {
		return false
	}
	letters := 0
	for _, r := range runes {
		switch {
		case unicode.IsLetter(r):
			letters++
		case r == '.' || r == '/':
		default:
			return false
		}
	}
	return letters > 0
}
