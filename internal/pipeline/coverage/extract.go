package coverage

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/andresuchdata/stockcover/internal/domain"
	"github.com/andresuchdata/stockcover/internal/sheet"
)

var (
	digitsOnly = regexp.MustCompile(`^\d+$`)
	tokenCode  = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._/-]*$`)
)

// SplitCode splits a "151 - DIPIRONA 500MG" cell into code and description.
// Digits alone give an empty description; text without a leading code gives
// no code and the whole text as description.
func SplitCode(text string) (code, description string) {
	text = strings.TrimSpace(text)
	if m := combinedCell.FindStringSubmatch(text); m != nil {
		return m[1], strings.TrimSpace(m[2])
	}
	if digitsOnly.MatchString(text) {
		return text, ""
	}
	return "", text
}

// Extract reads product records from g starting at row start. Rows without a
// code, total rows, repeated codes and rows with unusable quantities are
// dropped and tallied; retained records keep their row order.
func Extract(g sheet.Grid, start int, m domain.ColumnMapping, kind domain.SourceKind) Extraction {
	var out Extraction
	seen := make(map[string]struct{})

	for r := start; r < g.Len(); r++ {
		out.RowsScanned++
		if rowBlank(g, r) {
			continue
		}

		codeCell := g.Cell(r, m.Code)
		code, splitDesc := codeFromCell(codeCell, m.Combined())
		if code == "" {
			if strings.HasPrefix(domain.FoldKey(codeCell.Text), "total") {
				out.Dropped.Total++
			} else {
				out.Dropped.BlankCode++
			}
			continue
		}
		if strings.EqualFold(code, "total") {
			out.Dropped.Total++
			continue
		}
		if _, dup := seen[code]; dup {
			out.Dropped.Duplicate++
			continue
		}

		qty, ok := g.Cell(r, m.Quantity).Float()
		if !ok || math.IsNaN(qty) || math.IsInf(qty, 0) {
			out.Dropped.MalformedQuantity++
			continue
		}
		if qty < 0 {
			out.Dropped.NegativeQuantity++
			continue
		}

		rec := domain.ProductRecord{
			Code:        code,
			Description: splitDesc,
			Quantity:    qty,
		}
		if m.Description >= 0 && !m.Combined() {
			if desc := g.Cell(r, m.Description).String(); desc != "" {
				rec.Description = desc
			}
		}
		if m.Unit >= 0 {
			rec.Unit = g.Cell(r, m.Unit).String()
		}

		seen[code] = struct{}{}
		out.Records = append(out.Records, rec)
	}

	return out
}

// codeFromCell returns the product code of a cell. Dedicated code columns also
// accept single-token alphanumeric codes such as PROD001.
func codeFromCell(c sheet.Cell, combined bool) (string, string) {
	if c.IsEmpty() {
		return "", ""
	}
	text := c.String()
	if c.Kind == sheet.Number && !digitsOnly.MatchString(text) {
		if c.Number == math.Trunc(c.Number) && c.Number >= 0 && c.Number < 1e15 {
			return strconv.FormatInt(int64(c.Number), 10), ""
		}
		return "", text
	}

	code, desc := SplitCode(text)
	if code != "" || combined {
		return code, desc
	}
	if tokenCode.MatchString(text) && strings.ContainsAny(text, "0123456789") {
		return text, ""
	}
	return "", desc
}

func rowBlank(g sheet.Grid, r int) bool {
	for c := 0; c < g.RowLen(r); c++ {
		if !g.Cell(r, c).IsEmpty() {
			return false
		}
	}
	return true
}
