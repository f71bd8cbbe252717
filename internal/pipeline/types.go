// Package pipeline runs batches of analyses described by a YAML manifest.
package pipeline

import (
	"time"
)

// BatchConfig holds configuration for a batch run
type BatchConfig struct {
	WorkerCount   int           // Number of concurrent workers
	OutputDir     string        // Directory for report files
	RetryAttempts int           // Attempts per job when a source cannot be fetched
	RetryBackoff  time.Duration // Backoff duration between retries
}

// DefaultBatchConfig returns sensible defaults
func DefaultBatchConfig() BatchConfig {
	return BatchConfig{
		WorkerCount:   4,
		OutputDir:     "data/reports",
		RetryAttempts: 3,
		RetryBackoff:  2 * time.Second,
	}
}

// JobStatus represents the state of a single analysis job
type JobStatus string

const (
	JobQueued     JobStatus = "queued"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

// JobResult tracks the outcome of one manifest job
type JobResult struct {
	Job           string        `json:"job"`
	Status        JobStatus     `json:"status"`
	RunID         string        `json:"run_id,omitempty"`
	OutputPath    string        `json:"output_path,omitempty"`
	UploadKey     string        `json:"upload_key,omitempty"`
	Records       int           `json:"records"`
	NeedsPurchase int           `json:"needs_purchase"`
	Attempts      int           `json:"attempts"`
	Error         string        `json:"error,omitempty"`
	Duration      time.Duration `json:"duration_ns"`
}

// BatchMetrics summarizes a batch run
type BatchMetrics struct {
	JobsCompleted  int           `json:"jobs_completed"`
	JobsFailed     int           `json:"jobs_failed"`
	RecordsWritten int           `json:"records_written"`
	Uploaded       int           `json:"uploaded"`
	Elapsed        time.Duration `json:"elapsed_ns"`
}

// Summary is written next to the reports at the end of a batch.
type Summary struct {
	Manifest    string       `json:"manifest"`
	StartedAt   time.Time    `json:"started_at"`
	CompletedAt time.Time    `json:"completed_at"`
	Metrics     BatchMetrics `json:"metrics"`
	Results     []JobResult  `json:"results"`
}
