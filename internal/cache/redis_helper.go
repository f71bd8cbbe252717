package cache

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/andresuchdata/stockcover/internal/config"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	defaultReportTTL = 10 * time.Minute

	// A report is recomputed from its sources at least once a day.
	maxReportTTL = 24 * time.Hour

	reportDialTimeout  = 5 * time.Second
	reportClientName   = "stockcover-reports"
	defaultRedisHost   = "127.0.0.1"
	defaultRedisPort   = "6379"
	reportKeyPattern   = reportKeyPrefix + ":*"
	reportPurgeLogName = "report cache purge"
)

// dialReportStore connects to the Redis instance holding cached reports and
// returns the expiry to apply to each stored report.
func dialReportStore(cfg config.CacheConfig) (*redis.Client, time.Duration, error) {
	opts, err := reportStoreOptions(cfg)
	if err != nil {
		return nil, 0, err
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), reportDialTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, 0, fmt.Errorf("report cache at %s unreachable: %w", opts.Addr, err)
	}

	ttl := reportTTL(cfg)
	log.Debug().Str("addr", opts.Addr).Int("db", opts.DB).Dur("ttl", ttl).Msg("report cache connected")
	return client, ttl, nil
}

// reportTTL turns CACHE_REPORT_TTL_SECONDS into a report expiry. Unset or
// non-positive values fall back to ten minutes; longer than a day is capped.
func reportTTL(cfg config.CacheConfig) time.Duration {
	ttl := time.Duration(cfg.ReportTTLSeconds) * time.Second
	switch {
	case ttl <= 0:
		return defaultReportTTL
	case ttl > maxReportTTL:
		return maxReportTTL
	}
	return ttl
}

// reportStoreOptions prefers CACHE_REDIS_URL and otherwise assembles the
// address from host and port.
func reportStoreOptions(cfg config.CacheConfig) (*redis.Options, error) {
	var opts *redis.Options
	if cfg.RedisURL != "" {
		parsed, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("invalid report cache url: %w", err)
		}
		opts = parsed
	} else {
		host := cfg.RedisHost
		if host == "" {
			host = defaultRedisHost
		}
		port := cfg.RedisPort
		if port == "" {
			port = defaultRedisPort
		}
		opts = &redis.Options{
			Addr:     net.JoinHostPort(host, port),
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}
	}

	opts.ClientName = reportClientName
	if opts.DialTimeout == 0 {
		opts.DialTimeout = reportDialTimeout
	}
	return opts, nil
}

// purgeReports unlinks every cached report and returns how many were removed.
// Keys outside the report namespace are left alone.
func purgeReports(ctx context.Context, client *redis.Client) (int, error) {
	var (
		cursor  uint64
		removed int
	)
	for {
		keys, next, err := client.Scan(ctx, cursor, reportKeyPattern, reportScanBatchSize).Result()
		if err != nil {
			return removed, fmt.Errorf("%s: scan: %w", reportPurgeLogName, err)
		}

		if len(keys) > 0 {
			n, err := client.Unlink(ctx, keys...).Result()
			if err != nil {
				return removed, fmt.Errorf("%s: unlink: %w", reportPurgeLogName, err)
			}
			removed += int(n)
		}

		cursor = next
		if cursor == 0 {
			break
		}
	}

	log.Info().Int("removed", removed).Msg(reportPurgeLogName)
	return removed, nil
}
