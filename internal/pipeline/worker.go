package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sync"
	"time"

	"github.com/andresuchdata/stockcover/internal/domain"
	"github.com/andresuchdata/stockcover/internal/export"
	"github.com/andresuchdata/stockcover/internal/service"
	"github.com/rs/zerolog/log"
)

// Analyzer runs one analysis request.
type Analyzer interface {
	Analyze(ctx context.Context, req service.Request) (*domain.Report, error)
}

// Uploader receives finished report files. storage.ObjectStorage satisfies it.
type Uploader interface {
	PutObject(ctx context.Context, key string, data []byte, contentType string) error
}

// Worker executes manifest jobs on a bounded pool.
type Worker struct {
	analyzer Analyzer
	uploader Uploader
	config   BatchConfig
	sleep    func(time.Duration)
	mu       sync.Mutex
}

// NewWorker creates a batch worker. uploader may be nil.
func NewWorker(analyzer Analyzer, uploader Uploader, config BatchConfig) *Worker {
	return &Worker{
		analyzer: analyzer,
		uploader: uploader,
		config:   config,
		sleep:    time.Sleep,
	}
}

// ProcessManifest runs every job and returns one result per job in manifest
// order. A failing job does not stop the others.
func (w *Worker) ProcessManifest(ctx context.Context, m *Manifest) ([]JobResult, BatchMetrics) {
	start := time.Now()
	results := make([]JobResult, len(m.Jobs))
	for i, job := range m.Jobs {
		results[i] = JobResult{Job: job.Name, Status: JobQueued}
	}

	workerCount := w.config.WorkerCount
	if workerCount < 1 {
		workerCount = 1
	}

	jobChan := make(chan int, len(m.Jobs))
	var wg sync.WaitGroup

	for i := 0; i < workerCount; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for idx := range jobChan {
				res := w.processJob(ctx, m, m.Jobs[idx])
				if res.Status == JobFailed {
					log.Error().Int("worker", workerID).Str("job", res.Job).Str("error", res.Error).Msg("batch job failed")
				}
				w.mu.Lock()
				results[idx] = res
				w.mu.Unlock()
			}
		}(i)
	}

	for i := range m.Jobs {
		jobChan <- i
	}
	close(jobChan)
	wg.Wait()

	metrics := BatchMetrics{Elapsed: time.Since(start)}
	for _, r := range results {
		switch r.Status {
		case JobCompleted:
			metrics.JobsCompleted++
			metrics.RecordsWritten += r.Records
			if r.UploadKey != "" {
				metrics.Uploaded++
			}
		default:
			metrics.JobsFailed++
		}
	}
	return results, metrics
}

func (w *Worker) processJob(ctx context.Context, m *Manifest, job Job) JobResult {
	start := time.Now()
	res := JobResult{Job: job.Name, Status: JobProcessing}

	report, attempts, err := w.analyze(ctx, m, job)
	res.Attempts = attempts
	if err != nil {
		return failed(res, start, err)
	}
	res.RunID = report.RunID
	res.Records = len(report.Records)
	res.NeedsPurchase = report.Summary.NeedsPurchase

	format, _ := export.ParseFormat(m.Output.Format)
	data, err := render(report, format)
	if err != nil {
		return failed(res, start, fmt.Errorf("render report: %w", err))
	}

	name := job.Name + "." + extension(format)
	dir := m.Output.Dir
	if dir == "" {
		dir = w.config.OutputDir
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return failed(res, start, fmt.Errorf("create output dir: %w", err))
	}
	res.OutputPath = filepath.Join(dir, name)
	if err := os.WriteFile(res.OutputPath, data, 0o644); err != nil {
		return failed(res, start, fmt.Errorf("write report: %w", err))
	}

	if w.uploader != nil && m.Output.UploadPrefix != "" {
		key := path.Join(m.Output.UploadPrefix, name)
		if err := w.uploader.PutObject(ctx, key, data, contentType(format)); err != nil {
			return failed(res, start, fmt.Errorf("upload report: %w", err))
		}
		res.UploadKey = key
	}

	res.Status = JobCompleted
	res.Duration = time.Since(start)
	log.Info().
		Str("job", job.Name).
		Str("run_id", res.RunID).
		Int("records", res.Records).
		Int("needs_purchase", res.NeedsPurchase).
		Str("output", res.OutputPath).
		Dur("elapsed", res.Duration).
		Msg("batch job completed")
	return res
}

// analyze retries only when a source could not be fetched; engine errors are
// deterministic.
func (w *Worker) analyze(ctx context.Context, m *Manifest, job Job) (*domain.Report, int, error) {
	req, err := m.Request(job)
	if err != nil {
		return nil, 0, err
	}
	attempts := w.config.RetryAttempts
	if attempts < 1 {
		attempts = 1
	}
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		report, err := w.analyzer.Analyze(ctx, req)
		if err == nil {
			return report, attempt, nil
		}
		lastErr = err
		var srcErr *service.SourceError
		if !errors.As(err, &srcErr) || attempt == attempts || ctx.Err() != nil {
			return nil, attempt, err
		}
		log.Warn().Str("job", job.Name).Int("attempt", attempt).Err(err).Msg("retrying batch job")
		w.sleep(w.config.RetryBackoff * time.Duration(attempt))
	}
	return nil, attempts, lastErr
}

func failed(res JobResult, start time.Time, err error) JobResult {
	res.Status = JobFailed
	res.Error = err.Error()
	res.Duration = time.Since(start)
	return res
}

func render(report *domain.Report, format export.Format) ([]byte, error) {
	var buf bytes.Buffer
	var err error
	switch format {
	case export.FormatCSV:
		err = export.WriteCSV(&buf, report)
	case export.FormatXLSX:
		err = export.WriteXLSX(&buf, report)
	case export.FormatTable:
		err = export.WriteTable(&buf, report)
	default:
		enc := json.NewEncoder(&buf)
		enc.SetIndent("", "  ")
		err = enc.Encode(report)
	}
	return buf.Bytes(), err
}

func extension(format export.Format) string {
	if format == export.FormatTable {
		return "txt"
	}
	return string(format)
}

func contentType(format export.Format) string {
	switch format {
	case export.FormatCSV:
		return "text/csv"
	case export.FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case export.FormatTable:
		return "text/plain; charset=utf-8"
	}
	return "application/json"
}
