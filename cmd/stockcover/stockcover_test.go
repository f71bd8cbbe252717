package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/andresuchdata/stockcover/internal/domain"
	"github.com/andresuchdata/stockcover/internal/pipeline/coverage"
	"github.com/andresuchdata/stockcover/internal/service"
	"github.com/andresuchdata/stockcover/internal/storage"
)

type listStorage struct {
	objects []storage.ObjectInfo
	prefix  string
}

func (s *listStorage) ListObjects(ctx context.Context, prefix string) ([]storage.ObjectInfo, error) {
	s.prefix = prefix
	return s.objects, nil
}

func (s *listStorage) GetObject(ctx context.Context, key string) ([]byte, error) { return nil, nil }

func (s *listStorage) PutObject(ctx context.Context, key string, data []byte, contentType string) error {
	return nil
}

func (s *listStorage) Bucket() string { return "planilhas" }

func TestStorageRefsOrdersSpreadsheetsByKey(t *testing.T) {
	t.Parallel()

	store := &listStorage{objects: []storage.ObjectInfo{
		{Key: "saidas/2024-03.xlsx"},
		{Key: "saidas/leia-me.txt"},
		{Key: "saidas/2024-01.XLS"},
		{Key: "saidas/2024-02.csv"},
	}}
	refs, err := storageRefs(context.Background(), store, "/saidas/")
	if err != nil {
		t.Fatalf("storageRefs: %v", err)
	}
	want := []string{
		"s3://planilhas/saidas/2024-01.XLS",
		"s3://planilhas/saidas/2024-02.csv",
		"s3://planilhas/saidas/2024-03.xlsx",
	}
	if strings.Join(refs, " ") != strings.Join(want, " ") {
		t.Fatalf("refs = %v, want %v", refs, want)
	}
	if store.prefix != "saidas/" {
		t.Fatalf("listed prefix %q", store.prefix)
	}

	if _, err := storageRefs(context.Background(), &listStorage{}, "vazio/"); err == nil {
		t.Fatalf("expected error for an empty prefix")
	}
}

func TestPrintInspect(t *testing.T) {
	t.Parallel()

	mapping := domain.EmptyMapping().With(domain.RoleCode, 0).With(domain.RoleQuantity, 2)
	result := &service.InspectResult{
		Name: "estoque.xlsx",
		Kind: domain.SourceStock,
		Schema: &coverage.Schema{
			StartRow:      3,
			StartDetector: "numeric_density",
			HeaderRow:     2,
			Mapping:       mapping,
		},
		Rows: []coverage.RowHint{
			{Row: 2, Cells: []string{"Código", "Descrição", "Quantidade"}, Roles: []domain.Role{domain.RoleCode, domain.RoleQuantity}},
			{Row: 3, Cells: []string{"151", "DIPIRONA", "100"}, Numeric: 2, DigitLed: true},
		},
	}

	var buf bytes.Buffer
	if err := printInspect(&buf, result); err != nil {
		t.Fatalf("printInspect: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"estoque.xlsx (stock)", "start row: 3 (numeric_density)", "151 | DIPIRONA | 100", "yes"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}

	buf.Reset()
	result.Schema = nil
	result.Error = "no data rows"
	if err := printInspect(&buf, result); err != nil {
		t.Fatalf("printInspect: %v", err)
	}
	if !strings.Contains(buf.String(), "inference failed: no data rows") {
		t.Fatalf("output = %s", buf.String())
	}
}
