package coverage

import (
	"errors"
	"testing"

	"github.com/andresuchdata/stockcover/internal/domain"
	"github.com/andresuchdata/stockcover/internal/sheet"
)

func TestNumericDensity(t *testing.T) {
	t.Parallel()

	g := sheet.FromStrings("g", [][]string{
		{"Relatório"},
		{"Página", "1"},
		{"151", "DIPIRONA", "100"},
	})
	row, ok := NumericDensity{MinNumeric: 2}.DetectStart(g, -1, g.Len())
	if !ok || row != 2 {
		t.Fatalf("expected row 2, got %d (%v)", row, ok)
	}
	if _, ok := (NumericDensity{MinNumeric: 4}).DetectStart(g, -1, g.Len()); ok {
		t.Fatalf("no row has four numbers")
	}
}

func TestHeaderAnchor(t *testing.T) {
	t.Parallel()

	g := sheet.FromStrings("g", [][]string{
		{"Código - Descrição", "Quantidade"},
		{"Grupo: MEDICAMENTOS"},
		{"151 - DIPIRONA", "100"},
	})
	row, ok := HeaderAnchor{}.DetectStart(g, 0, g.Len())
	if !ok || row != 2 {
		t.Fatalf("expected row 2, got %d (%v)", row, ok)
	}
	if _, ok := (HeaderAnchor{}).DetectStart(g, -1, g.Len()); ok {
		t.Fatalf("no header means no anchor")
	}
}

func TestHeaderKeywordsPrefersOutflowColumn(t *testing.T) {
	t.Parallel()

	g := sheet.FromStrings("g", [][]string{
		{"Cód.", "Produto", "Quantidade", "Saída"},
		{"151", "DIPIRONA", "500", "120"},
	})
	f := NewSchemaInferer(DefaultConfig()).frame(g, domain.SourceOutflow, Schema{StartRow: 1, HeaderRow: 0})
	m := domain.EmptyMapping()

	col, ok := HeaderKeywords{}.Detect(f, domain.RoleQuantity, m)
	if !ok || col != 3 {
		t.Fatalf("expected the Saída column, got %d (%v)", col, ok)
	}
	col, ok = HeaderKeywords{}.Detect(f, domain.RoleCode, m)
	if !ok || col != 0 {
		t.Fatalf("expected code at 0, got %d (%v)", col, ok)
	}

	f = NewSchemaInferer(DefaultConfig()).frame(g, domain.SourceStock, Schema{StartRow: 1, HeaderRow: 0})
	col, ok = HeaderKeywords{}.Detect(f, domain.RoleQuantity, m)
	if !ok || col != 2 {
		t.Fatalf("expected the Quantidade column for stock, got %d (%v)", col, ok)
	}
}

func TestContentProfileWithoutHeader(t *testing.T) {
	t.Parallel()

	g := sheet.FromStrings("g", [][]string{
		{"151", "DIPIRONA 500MG COMP", "CX", "100"},
		{"152", "SORO FISIOLOGICO 0,9%", "FR", "40"},
		{"153", "LUVA PROCEDIMENTO M", "UN", "1.000"},
	})
	schema, err := NewSchemaInferer(DefaultConfig()).Infer(g, domain.SourceStock)
	if err != nil {
		t.Fatalf("Infer: %v", err)
	}
	want := domain.ColumnMapping{Code: 0, Description: 1, Unit: 2, Quantity: 3}
	if schema.StartRow != 0 || schema.Mapping != want {
		t.Fatalf("unexpected schema %+v", schema)
	}
	for _, role := range domain.Roles {
		if schema.RoleDetectors[role] != "content_profile" {
			t.Fatalf("role %s resolved by %q", role, schema.RoleDetectors[role])
		}
	}
}

func TestContentProfileSkipsIdentifierColumns(t *testing.T) {
	t.Parallel()

	g := sheet.FromStrings("g", [][]string{
		{"151", "7891234567890", "12"},
		{"152", "7891234567891", "8"},
	})
	schema, err := NewSchemaInferer(DefaultConfig()).Infer(g, domain.SourceOutflow)
	if err != nil {
		t.Fatalf("Infer: %v", err)
	}
	if schema.Mapping.Quantity != 2 {
		t.Fatalf("barcode column taken as quantity: %s", schema.Mapping)
	}
}

func TestInferFallbackStartRow(t *testing.T) {
	t.Parallel()

	rows := [][]string{}
	for i := 0; i < 20; i++ {
		rows = append(rows, []string{"cabecalho"})
	}
	rows[17] = []string{"151 - DIPIRONA", "UN"}
	g := sheet.FromStrings("g", rows)

	row, name, err := NewSchemaInferer(DefaultConfig()).startRow(g, domain.SourceStock, -1, g.Len())
	if err != nil || row != 15 || name != "fallback" {
		t.Fatalf("expected fallback 15, got %d %q %v", row, name, err)
	}

	rows[17] = []string{"cabecalho"}
	rows[3] = []string{"151 - DIPIRONA"}
	g = sheet.FromStrings("g", rows)
	row, _, err = NewSchemaInferer(DefaultConfig()).startRow(g, domain.SourceStock, -1, g.Len())
	if err != nil || row != 3 {
		t.Fatalf("expected the earlier digit-led row 3, got %d %v", row, err)
	}
}

func TestInferErrors(t *testing.T) {
	t.Parallel()

	inferer := NewSchemaInferer(Config{ScanDepth: 10})

	_, err := inferer.Infer(sheet.FromStrings("vazio", [][]string{{"a", "b"}, {"c", "d"}}), domain.SourceStock)
	var schemaErr *domain.SchemaInferenceError
	if !errors.As(err, &schemaErr) || schemaErr.ScanDepth != 10 || schemaErr.Name != "vazio" {
		t.Fatalf("expected SchemaInferenceError, got %v", err)
	}

	_, err = inferer.Infer(sheet.FromStrings("sem-qtd", [][]string{{"151 - A"}, {"152 - B"}}), domain.SourceOutflow)
	var mapErr *domain.ColumnMappingError
	if !errors.As(err, &mapErr) || mapErr.Role != domain.RoleQuantity || mapErr.Source != domain.SourceOutflow {
		t.Fatalf("expected quantity ColumnMappingError, got %v", err)
	}
}

func TestInspectGrid(t *testing.T) {
	t.Parallel()

	g := sheet.FromStrings("g", [][]string{
		{"Código", "Descrição", "Saída"},
		{"151", "DIPIRONA", "120"},
	})
	hints := InspectGrid(g, domain.SourceOutflow, 10)
	if len(hints) != 2 {
		t.Fatalf("expected 2 hints, got %d", len(hints))
	}
	if len(hints[0].Roles) != 3 || hints[0].Numeric != 0 {
		t.Fatalf("unexpected header hint %+v", hints[0])
	}
	if !hints[1].DigitLed || hints[1].Numeric != 2 || hints[1].Roles != nil {
		t.Fatalf("unexpected data hint %+v", hints[1])
	}
}
