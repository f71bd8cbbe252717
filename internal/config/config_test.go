package config

import (
	"testing"

	"github.com/spf13/viper"
)

func TestDefaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	cfg := fromViper(v)

	if cfg.Analysis.ScanDepth != 200 {
		t.Fatalf("expected scan depth 200, got %d", cfg.Analysis.ScanDepth)
	}
	if cfg.Analysis.FallbackStartRow != 15 {
		t.Fatalf("expected fallback start row 15, got %d", cfg.Analysis.FallbackStartRow)
	}
	if cfg.Analysis.DesiredPeriodDays != 90 {
		t.Fatalf("expected desired period 90, got %d", cfg.Analysis.DesiredPeriodDays)
	}
	if cfg.Cache.Enabled {
		t.Fatalf("cache should be disabled by default")
	}
	if cfg.Storage.Enabled() {
		t.Fatalf("storage should be disabled without endpoint and credentials")
	}
}

func TestOverrides(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("ANALYSIS_SCAN_DEPTH", 500)
	v.Set("S3_ENDPOINT", "minio:9000")
	v.Set("S3_ACCESS_KEY", "key")
	v.Set("S3_SECRET_KEY", "secret")
	cfg := fromViper(v)

	if cfg.Analysis.ScanDepth != 500 {
		t.Fatalf("expected scan depth 500, got %d", cfg.Analysis.ScanDepth)
	}
	if !cfg.Storage.Enabled() {
		t.Fatalf("storage should be enabled with endpoint and credentials")
	}
}
