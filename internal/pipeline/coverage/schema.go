package coverage

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/andresuchdata/stockcover/internal/domain"
	"github.com/andresuchdata/stockcover/internal/sheet"
)

var (
	leadingDigit = regexp.MustCompile(`^\s*\d`)
	combinedCell = regexp.MustCompile(`^\s*(\d+)\s*-\s*(.*?)\s*$`)
	identifier   = regexp.MustCompile(`^\d{8,}$`)
)

const maxHeaderCellLen = 40

// StartRowDetector finds the first data row of a grid.
type StartRowDetector interface {
	Name() string
	// DetectStart looks in [header+1, limit). header is -1 when no header row was recognized.
	DetectStart(g sheet.Grid, header, limit int) (int, bool)
}

// RoleDetector resolves the column of one role. m holds the roles resolved so far.
type RoleDetector interface {
	Name() string
	Detect(f Frame, role domain.Role, m domain.ColumnMapping) (int, bool)
}

// Frame is the part of a grid role detectors look at.
type Frame struct {
	Grid       sheet.Grid
	Kind       domain.SourceKind
	HeaderRows []int // best header row first, then its neighbours
	SampleFrom int
	SampleTo   int

	profiles map[int]columnProfile
}

// NumericDensity picks the first row holding at least MinNumeric numeric cells.
type NumericDensity struct {
	MinNumeric int
}

func (d NumericDensity) Name() string { return "numeric_density" }

func (d NumericDensity) DetectStart(g sheet.Grid, header, limit int) (int, bool) {
	min := d.MinNumeric
	if min <= 0 {
		min = 2
	}
	for r := header + 1; r < limit; r++ {
		if numericCells(g, r) >= min {
			return r, true
		}
	}
	return 0, false
}

// HeaderAnchor picks the first row below a recognized header that holds a
// digit-led cell. Reports with "151 - DIPIRONA" rows carry a single numeric
// cell per row, which NumericDensity misses.
type HeaderAnchor struct{}

func (HeaderAnchor) Name() string { return "header_anchor" }

func (HeaderAnchor) DetectStart(g sheet.Grid, header, limit int) (int, bool) {
	if header < 0 {
		return 0, false
	}
	for r := header + 1; r < limit; r++ {
		if digitLed(g, r) {
			return r, true
		}
	}
	return 0, false
}

// HeaderKeywords matches header cell text against role keywords.
type HeaderKeywords struct{}

func (HeaderKeywords) Name() string { return "header_keywords" }

func (HeaderKeywords) Detect(f Frame, role domain.Role, m domain.ColumnMapping) (int, bool) {
	for _, set := range roleKeywords(role, f.Kind) {
		for _, r := range f.HeaderRows {
			for c := 0; c < f.Grid.RowLen(r); c++ {
				cell := f.Grid.Cell(r, c)
				if !headerCell(cell) || !set.match(domain.FoldKey(cell.Text)) {
					continue
				}
				if !f.available(m, role, c) {
					continue
				}
				// Merged headers can sit over an empty column; let content detection decide then.
				if (role == domain.RoleCode || role == domain.RoleQuantity) && f.profile(c).nonEmpty == 0 {
					continue
				}
				return c, true
			}
		}
	}
	return 0, false
}

// ContentProfile infers roles from the values below the start row.
type ContentProfile struct{}

func (ContentProfile) Name() string { return "content_profile" }

func (ContentProfile) Detect(f Frame, role domain.Role, m domain.ColumnMapping) (int, bool) {
	width := f.Grid.Width()
	switch role {
	case domain.RoleCode:
		for c := 0; c < width; c++ {
			if f.available(m, role, c) && f.combinedColumn(c) {
				return c, true
			}
		}
		for c := 0; c < width; c++ {
			p := f.profile(c)
			if f.available(m, role, c) && p.ratio(p.digitLed) >= 0.5 {
				return c, true
			}
		}
	case domain.RoleQuantity:
		for c := 0; c < width; c++ {
			p := f.profile(c)
			if f.available(m, role, c) && p.ratio(p.numeric) >= 0.3 && p.ratio(p.identifiers) < 0.5 {
				return c, true
			}
		}
	case domain.RoleDescription:
		if m.Code >= 0 && f.combinedColumn(m.Code) {
			return m.Code, true
		}
		for c := 0; c < width; c++ {
			p := f.profile(c)
			if f.available(m, role, c) && p.meanTextLen() > 10 {
				return c, true
			}
		}
	case domain.RoleUnit:
		for c := 0; c < width; c++ {
			p := f.profile(c)
			if f.available(m, role, c) && p.ratio(p.unitLike) >= 0.5 {
				return c, true
			}
		}
	}
	return 0, false
}

// SchemaInferer runs the ordered detector lists over a grid.
type SchemaInferer struct {
	cfg   Config
	Start []StartRowDetector
	Roles []RoleDetector
}

// NewSchemaInferer returns an inferer with the default detector order.
func NewSchemaInferer(cfg Config) *SchemaInferer {
	return &SchemaInferer{
		cfg:   cfg.withDefaults(),
		Start: []StartRowDetector{NumericDensity{MinNumeric: 2}, HeaderAnchor{}},
		Roles: []RoleDetector{HeaderKeywords{}, ContentProfile{}},
	}
}

// Infer locates the first data row and the column mapping of g.
func (s *SchemaInferer) Infer(g sheet.Grid, kind domain.SourceKind) (Schema, error) {
	return s.Resolve(g, kind, nil, nil)
}

// Resolve is Infer with optional overrides for the start row and the mapping.
func (s *SchemaInferer) Resolve(g sheet.Grid, kind domain.SourceKind, start *int, mapping *domain.ColumnMapping) (Schema, error) {
	schema := Schema{HeaderRow: -1}
	limit := g.Len()
	if limit > s.cfg.ScanDepth {
		limit = s.cfg.ScanDepth
	}

	if start != nil {
		if *start >= g.Len() {
			return schema, &domain.OptionsError{
				Field:  fmt.Sprintf("start_row_%s", kind),
				Reason: fmt.Sprintf("row %d is past the last row (%d)", *start, g.Len()-1),
			}
		}
		schema.StartRow = *start
		schema.StartDetector = "override"
		from := *start - s.cfg.HeaderLookback
		if from < 0 {
			from = 0
		}
		schema.HeaderRow, _ = locateHeader(g, kind, from, *start)
	} else {
		schema.HeaderRow, _ = locateHeader(g, kind, 0, limit)
		row, name, err := s.startRow(g, kind, schema.HeaderRow, limit)
		if err != nil {
			return schema, err
		}
		schema.StartRow, schema.StartDetector = row, name
	}

	if mapping != nil {
		schema.Mapping = *mapping
		schema.RoleDetectors = map[domain.Role]string{}
		for _, role := range domain.Roles {
			if mapping.Column(role) >= 0 {
				schema.RoleDetectors[role] = "override"
			}
		}
		return schema, nil
	}

	frame := s.frame(g, kind, schema)
	m, used, err := s.mapRoles(frame)
	if err != nil {
		return schema, err
	}
	schema.Mapping, schema.RoleDetectors = m, used
	return schema, nil
}

func (s *SchemaInferer) startRow(g sheet.Grid, kind domain.SourceKind, header, limit int) (int, string, error) {
	best, name := -1, ""
	for _, d := range s.Start {
		if row, ok := d.DetectStart(g, header, limit); ok && (best < 0 || row < best) {
			best, name = row, d.Name()
		}
	}
	if best >= 0 {
		return best, name, nil
	}

	// No detector matched: start at the fixed offset, or earlier when a
	// digit-led row shows up first. Without any digit-led row there is no data.
	for r := header + 1; r < limit; r++ {
		if digitLed(g, r) {
			fb := s.cfg.FallbackStartRow
			if fb < 0 || fb > r || fb <= header {
				fb = r
			}
			return fb, "fallback", nil
		}
	}
	return 0, "", &domain.SchemaInferenceError{Source: kind, Name: g.Name, ScanDepth: s.cfg.ScanDepth}
}

func (s *SchemaInferer) frame(g sheet.Grid, kind domain.SourceKind, schema Schema) Frame {
	f := Frame{
		Grid:       g,
		Kind:       kind,
		SampleFrom: schema.StartRow,
		SampleTo:   schema.StartRow + s.cfg.ContentSampleRows,
	}
	if f.SampleTo > g.Len() {
		f.SampleTo = g.Len()
	}
	if h := schema.HeaderRow; h >= 0 {
		f.HeaderRows = append(f.HeaderRows, h)
		if h-1 >= 0 {
			f.HeaderRows = append(f.HeaderRows, h-1)
		}
		if h+1 < schema.StartRow {
			f.HeaderRows = append(f.HeaderRows, h+1)
		}
	}
	f.profiles = make(map[int]columnProfile)
	return f
}

func (s *SchemaInferer) mapRoles(f Frame) (domain.ColumnMapping, map[domain.Role]string, error) {
	m := domain.EmptyMapping()
	used := make(map[domain.Role]string)
	for _, role := range domain.Roles {
		for _, d := range s.Roles {
			if col, ok := d.Detect(f, role, m); ok {
				m = m.With(role, col)
				used[role] = d.Name()
				break
			}
		}
		if m.Column(role) < 0 && (role == domain.RoleCode || role == domain.RoleQuantity) {
			return m, used, &domain.ColumnMappingError{Source: f.Kind, Name: f.Grid.Name, Role: role}
		}
	}
	return m, used, nil
}

// available reports whether col can take role given the roles already mapped.
// A description may share the code column when that column holds "digits - text" cells.
func (f Frame) available(m domain.ColumnMapping, role domain.Role, col int) bool {
	if role == domain.RoleDescription && col == m.Code {
		return f.combinedColumn(col)
	}
	return !m.Uses(col)
}

func (f Frame) combinedColumn(col int) bool {
	p := f.profile(col)
	return p.ratio(p.combined) >= 0.5
}

type keywordSet struct {
	contains []string
	tokens   []string
}

func (k keywordSet) match(folded string) bool {
	for _, c := range k.contains {
		if strings.Contains(folded, c) {
			return true
		}
	}
	if len(k.tokens) == 0 {
		return false
	}
	for _, tok := range tokenize(folded) {
		for _, t := range k.tokens {
			if tok == t {
				return true
			}
		}
	}
	return false
}

// roleKeywords returns keyword tiers for role, highest priority first.
// Keywords are accent-folded and lowercase.
func roleKeywords(role domain.Role, kind domain.SourceKind) []keywordSet {
	switch role {
	case domain.RoleCode:
		return []keywordSet{{contains: []string{"codigo"}, tokens: []string{"cod", "code", "sku"}}}
	case domain.RoleDescription:
		return []keywordSet{{contains: []string{"descri", "produto"}, tokens: []string{"desc", "item", "nome"}}}
	case domain.RoleUnit:
		return []keywordSet{{contains: []string{"unidade"}, tokens: []string{"un", "und", "unid", "unit", "ud"}}}
	case domain.RoleQuantity:
		if kind == domain.SourceOutflow {
			return []keywordSet{
				{contains: []string{"saida", "consumo"}},
				{contains: []string{"quantidade"}, tokens: []string{"qtd", "qtde", "qt"}},
			}
		}
		return []keywordSet{
			{contains: []string{"quantidade", "saldo"}, tokens: []string{"qtd", "qtde", "qt"}},
			{contains: []string{"estoque"}},
		}
	}
	return nil
}

// locateHeader returns the row in [from, to) matching the most distinct roles
// (at least two). Rows holding numbers are data, never headers.
func locateHeader(g sheet.Grid, kind domain.SourceKind, from, to int) (int, int) {
	best, bestHits := -1, 1
	for r := from; r < to; r++ {
		if numericCells(g, r) > 0 {
			continue
		}
		hits := len(headerRoles(g, kind, r))
		if hits > bestHits {
			best, bestHits = r, hits
		}
	}
	if best < 0 {
		return -1, 0
	}
	return best, bestHits
}

func headerRoles(g sheet.Grid, kind domain.SourceKind, r int) []domain.Role {
	var roles []domain.Role
	for _, role := range domain.Roles {
		matched := false
		for c := 0; c < g.RowLen(r) && !matched; c++ {
			cell := g.Cell(r, c)
			if !headerCell(cell) {
				continue
			}
			folded := domain.FoldKey(cell.Text)
			for _, set := range roleKeywords(role, kind) {
				if set.match(folded) {
					matched = true
					break
				}
			}
		}
		if matched {
			roles = append(roles, role)
		}
	}
	return roles
}

func headerCell(c sheet.Cell) bool {
	return c.Kind == sheet.Text && len([]rune(c.String())) <= maxHeaderCellLen
}

func tokenize(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func numericCells(g sheet.Grid, r int) int {
	n := 0
	for c := 0; c < g.RowLen(r); c++ {
		if _, ok := g.Cell(r, c).Float(); ok {
			n++
		}
	}
	return n
}

func digitLed(g sheet.Grid, r int) bool {
	for c := 0; c < g.RowLen(r); c++ {
		cell := g.Cell(r, c)
		if !cell.IsEmpty() && leadingDigit.MatchString(cell.Text) {
			return true
		}
	}
	return false
}
