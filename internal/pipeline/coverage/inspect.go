package coverage

import (
	"github.com/andresuchdata/stockcover/internal/domain"
	"github.com/andresuchdata/stockcover/internal/sheet"
)

// RowHint describes what the inferer sees in one row.
type RowHint struct {
	Row      int           `json:"row"`
	Cells    []string      `json:"cells"`
	Numeric  int           `json:"numeric"`
	DigitLed bool          `json:"digit_led"`
	Roles    []domain.Role `json:"roles,omitempty"` // header keywords found in the row
}

// InspectGrid returns hints for the first n rows of g.
func InspectGrid(g sheet.Grid, kind domain.SourceKind, n int) []RowHint {
	if n <= 0 || n > g.Len() {
		n = g.Len()
	}
	hints := make([]RowHint, 0, n)
	for r := 0; r < n; r++ {
		cells := make([]string, g.RowLen(r))
		for c := range cells {
			cells[c] = g.Cell(r, c).String()
		}
		hint := RowHint{
			Row:      r,
			Cells:    cells,
			Numeric:  numericCells(g, r),
			DigitLed: digitLed(g, r),
		}
		if hint.Numeric == 0 {
			hint.Roles = headerRoles(g, kind, r)
		}
		hints = append(hints, hint)
	}
	return hints
}

// Inspect resolves the schema of a single grid without running the analysis.
func (a *Analyzer) Inspect(g sheet.Grid, kind domain.SourceKind, start *int, mapping *domain.ColumnMapping) (Schema, error) {
	return a.inferer.Resolve(g, kind, start, mapping)
}
