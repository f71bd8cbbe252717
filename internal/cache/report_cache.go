package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/andresuchdata/stockcover/internal/config"
	"github.com/andresuchdata/stockcover/internal/domain"
	"github.com/redis/go-redis/v9"
)

const (
	reportKeyPrefix     = "stockcover:report"
	reportScanBatchSize = 100
)

// ReportCache stores finished reports keyed by their inputs.
type ReportCache interface {
	Get(ctx context.Context, key string) (*domain.Report, bool, error)
	Set(ctx context.Context, key string, report *domain.Report) error
	Invalidate(ctx context.Context, key string) error
	InvalidateAll(ctx context.Context) error
}

type redisReportCache struct {
	client *redis.Client
	ttl    time.Duration
}

type noopReportCache struct{}

// NewReportCache returns a Redis backed cache, or a no-op cache when caching is disabled.
func NewReportCache(cfg config.CacheConfig) (ReportCache, error) {
	if !cfg.Enabled {
		return &noopReportCache{}, nil
	}

	client, ttl, err := dialReportStore(cfg)
	if err != nil {
		return nil, err
	}

	return &redisReportCache{
		client: client,
		ttl:    ttl,
	}, nil
}

func NewNoopReportCache() ReportCache {
	return &noopReportCache{}
}

func (c *redisReportCache) Get(ctx context.Context, key string) (*domain.Report, bool, error) {
	payload, err := c.client.Get(ctx, reportKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}

	var report domain.Report
	if err := json.Unmarshal(payload, &report); err != nil {
		return nil, false, fmt.Errorf("decode report cache: %w", err)
	}

	return &report, true, nil
}

func (c *redisReportCache) Set(ctx context.Context, key string, report *domain.Report) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("encode report cache: %w", err)
	}

	if err := c.client.Set(ctx, reportKey(key), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (c *redisReportCache) Invalidate(ctx context.Context, key string) error {
	return c.client.Del(ctx, reportKey(key)).Err()
}

func (c *redisReportCache) InvalidateAll(ctx context.Context) error {
	_, err := purgeReports(ctx, c.client)
	return err
}

func (n *noopReportCache) Get(ctx context.Context, key string) (*domain.Report, bool, error) {
	return nil, false, nil
}

func (n *noopReportCache) Set(ctx context.Context, key string, report *domain.Report) error {
	return nil
}

func (n *noopReportCache) Invalidate(ctx context.Context, key string) error {
	return nil
}

func (n *noopReportCache) InvalidateAll(ctx context.Context) error {
	return nil
}

func reportKey(key string) string {
	return fmt.Sprintf("%s:%s", reportKeyPrefix, key)
}

// ReportKey hashes the source digests and the run options into a cache key.
// The stock digest comes first; outflow digests keep their period order.
func ReportKey(opts domain.Options, stockDigest string, outflowDigests ...string) string {
	parts := []string{"stock=" + stockDigest}
	for i, d := range outflowDigests {
		parts = append(parts, fmt.Sprintf("outflow%d=%s", i, d))
	}
	parts = append(parts, optionParts(opts)...)

	raw := strings.Join(parts, "|")
	sum := sha1.Sum([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// ContentDigest returns the hex sha1 of a source file.
func ContentDigest(data []byte) string {
	sum := sha1.Sum(data)
	return hex.EncodeToString(sum[:])
}

func optionParts(opts domain.Options) []string {
	parts := []string{}

	if opts.StartRowStock != nil {
		parts = append(parts, fmt.Sprintf("start_row_stock=%d", *opts.StartRowStock))
	}
	if opts.StartRowOutflow != nil {
		parts = append(parts, fmt.Sprintf("start_row_outflow=%d", *opts.StartRowOutflow))
	}
	if opts.MappingStock != nil {
		parts = append(parts, "mapping_stock="+opts.MappingStock.String())
	}
	if opts.MappingOutflow != nil {
		parts = append(parts, "mapping_outflow="+opts.MappingOutflow.String())
	}
	parts = append(parts, "category="+string(opts.Profile().Category))
	if opts.PatientVolume != nil {
		parts = append(parts, fmt.Sprintf("patient_volume=%.4f", *opts.PatientVolume))
	}
	parts = append(parts, fmt.Sprintf("period_days=%d", opts.PeriodDays()))
	if opts.Forecast {
		parts = append(parts, "forecast=true")
	}

	sort.Strings(parts)
	return parts
}
