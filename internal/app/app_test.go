package app

import (
	"context"
	"testing"

	"github.com/andresuchdata/stockcover/internal/config"
	"github.com/andresuchdata/stockcover/internal/domain"
)

func TestNewWithoutOptionalBackends(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{
		Analysis: config.AnalysisConfig{DefaultCategory: "Insumo", DesiredPeriodDays: 60},
	}
	a, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if a.Storage != nil || a.Drive != nil {
		t.Fatalf("optional backends wired without configuration")
	}
	if a.Analysis == nil || a.Cache == nil {
		t.Fatalf("analysis service not wired")
	}
}

func TestDefaultsFrom(t *testing.T) {
	t.Parallel()

	d, err := defaultsFrom(config.AnalysisConfig{DefaultCategory: "equipamentos", DesiredPeriodDays: 30})
	if err != nil {
		t.Fatalf("defaultsFrom: %v", err)
	}
	if d.Category == nil || *d.Category != domain.CategoryEquipamentos || d.DesiredPeriodDays != 30 {
		t.Fatalf("defaults = %+v", d)
	}
	if _, err := defaultsFrom(config.AnalysisConfig{DefaultCategory: "brinquedos"}); err == nil {
		t.Fatalf("expected error for unknown category")
	}
}

func TestAnalyzerConfigKeepsFallbackOverride(t *testing.T) {
	t.Parallel()

	got := AnalyzerConfig(config.AnalysisConfig{ScanDepth: 80, FallbackStartRow: -1, ForecastHorizon: 6})
	if got.ScanDepth != 80 || got.FallbackStartRow != -1 || got.ForecastHorizon != 6 {
		t.Fatalf("config = %+v", got)
	}
}
