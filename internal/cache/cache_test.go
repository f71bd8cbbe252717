package cache

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/andresuchdata/stockcover/internal/config"
	"github.com/andresuchdata/stockcover/internal/domain"
)

func TestReportKeyIsStable(t *testing.T) {
	t.Parallel()

	volume := 1000.0
	opts := domain.Options{PatientVolume: &volume}

	a := ReportKey(opts, "s1", "o1", "o2")
	b := ReportKey(opts, "s1", "o1", "o2")
	if a != b || len(a) != 40 {
		t.Fatalf("expected a stable sha1 key, got %q and %q", a, b)
	}

	if ReportKey(opts, "s1", "o2", "o1") == a {
		t.Fatalf("period order must change the key")
	}
	if ReportKey(domain.Options{}, "s1", "o1", "o2") == a {
		t.Fatalf("options must change the key")
	}
}

func TestReportKeyDefaultsMatchExplicit(t *testing.T) {
	t.Parallel()

	category := domain.DefaultCategory
	days := domain.DefaultDesiredPeriodDays
	explicit := domain.Options{Category: &category, DesiredPeriodDays: &days}

	if ReportKey(domain.Options{}, "s") != ReportKey(explicit, "s") {
		t.Fatalf("default options should share the key of their explicit form")
	}
}

func TestNoopCacheWhenDisabled(t *testing.T) {
	t.Parallel()

	c, err := NewReportCache(config.CacheConfig{Enabled: false})
	if err != nil {
		t.Fatalf("NewReportCache: %v", err)
	}

	ctx := context.Background()
	if err := c.Set(ctx, "k", &domain.Report{RunID: "x"}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if _, ok, err := c.Get(ctx, "k"); ok || err != nil {
		t.Fatalf("noop cache should always miss, got ok=%v err=%v", ok, err)
	}
}

func TestReportStoreOptions(t *testing.T) {
	t.Parallel()

	opts, err := reportStoreOptions(config.CacheConfig{RedisHost: "cache", RedisPort: "6380", RedisDB: 2})
	if err != nil {
		t.Fatalf("reportStoreOptions: %v", err)
	}
	if opts.Addr != "cache:6380" || opts.DB != 2 || opts.ClientName != reportClientName {
		t.Fatalf("unexpected options %+v", opts)
	}

	opts, err = reportStoreOptions(config.CacheConfig{})
	if err != nil {
		t.Fatalf("reportStoreOptions defaults: %v", err)
	}
	if opts.Addr != "127.0.0.1:6379" || opts.DialTimeout != reportDialTimeout {
		t.Fatalf("unexpected default options %+v", opts)
	}

	opts, err = reportStoreOptions(config.CacheConfig{RedisURL: "redis://:secret@localhost:6379/1"})
	if err != nil {
		t.Fatalf("reportStoreOptions url: %v", err)
	}
	if opts.Password != "secret" || opts.DB != 1 {
		t.Fatalf("unexpected url options %+v", opts)
	}

	if _, err := reportStoreOptions(config.CacheConfig{RedisURL: "://bad"}); err == nil {
		t.Fatalf("expected an error for a bad url")
	}
}

func TestReportTTL(t *testing.T) {
	t.Parallel()

	cases := map[int]time.Duration{
		0:      10 * time.Minute,
		-5:     10 * time.Minute,
		90:     90 * time.Second,
		86400:  24 * time.Hour,
		604800: 24 * time.Hour,
	}
	for seconds, want := range cases {
		if got := reportTTL(config.CacheConfig{ReportTTLSeconds: seconds}); got != want {
			t.Fatalf("reportTTL(%d) = %v, want %v", seconds, got, want)
		}
	}
}

func TestReportKeysShareThePurgeNamespace(t *testing.T) {
	t.Parallel()

	key := reportKey(ReportKey(domain.Options{}, "s1", "o1"))
	if !strings.HasPrefix(key, strings.TrimSuffix(reportKeyPattern, "*")) {
		t.Fatalf("report key %q falls outside purge pattern %q", key, reportKeyPattern)
	}
}
