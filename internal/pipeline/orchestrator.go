package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
)

const summaryFile = "batch-summary.json"

// Orchestrator loads a manifest, runs its jobs and writes the batch summary.
type Orchestrator struct {
	cfg   BatchConfig
	makeW func() *Worker
}

// NewOrchestrator creates a new Orchestrator.
func NewOrchestrator(analyzer Analyzer, uploader Uploader, cfg BatchConfig) *Orchestrator {
	return &Orchestrator{
		cfg: cfg,
		makeW: func() *Worker {
			return NewWorker(analyzer, uploader, cfg)
		},
	}
}

// Run executes the manifest at manifestPath. The summary is written even when
// jobs fail; the returned error then counts the failures.
func (o *Orchestrator) Run(ctx context.Context, manifestPath string) (*Summary, error) {
	m, err := LoadManifest(manifestPath)
	if err != nil {
		return nil, err
	}

	log.Info().Str("manifest", manifestPath).Int("jobs", len(m.Jobs)).Int("workers", o.cfg.WorkerCount).Msg("starting batch")

	summary := &Summary{Manifest: manifestPath, StartedAt: time.Now()}
	summary.Results, summary.Metrics = o.makeW().ProcessManifest(ctx, m)
	summary.CompletedAt = time.Now()

	dir := m.Output.Dir
	if dir == "" {
		dir = o.cfg.OutputDir
	}
	if err := writeSummary(filepath.Join(dir, summaryFile), summary); err != nil {
		return summary, err
	}

	log.Info().
		Int("completed", summary.Metrics.JobsCompleted).
		Int("failed", summary.Metrics.JobsFailed).
		Int("records", summary.Metrics.RecordsWritten).
		Dur("elapsed", summary.Metrics.Elapsed).
		Msg("batch finished")

	if summary.Metrics.JobsFailed > 0 {
		return summary, fmt.Errorf("%d of %d batch jobs failed", summary.Metrics.JobsFailed, len(m.Jobs))
	}
	return summary, nil
}

func writeSummary(path string, summary *Summary) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
