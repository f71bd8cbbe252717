package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/andresuchdata/stockcover/internal/domain"
	"github.com/andresuchdata/stockcover/internal/service"
)

const manifestYAML = `
output:
  format: csv
  upload_prefix: reports/2024-03
defaults:
  category: insumos
  desired_period_days: 60
jobs:
  - name: central
    stock: estoque.xls
    outflows: [saidas-01.xls, s3://planilhas/saidas-02.xlsx]
    options:
      patient_volume: 1200
      forecast: true
  - name: norte
    stock: /dados/norte.xlsx
    outflows: [drive://abc]
    options:
      category: medicamentos
`

type fakeAnalyzer struct {
	mu       sync.Mutex
	requests map[string]service.Request
	failures map[string][]error
	calls    map[string]int
}

func newFakeAnalyzer() *fakeAnalyzer {
	return &fakeAnalyzer{
		requests: map[string]service.Request{},
		failures: map[string][]error{},
		calls:    map[string]int{},
	}
}

func (a *fakeAnalyzer) Analyze(ctx context.Context, req service.Request) (*domain.Report, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.requests[req.Stock.Ref] = req
	a.calls[req.Stock.Ref]++
	if errs := a.failures[req.Stock.Ref]; len(errs) > 0 {
		err := errs[0]
		a.failures[req.Stock.Ref] = errs[1:]
		return nil, err
	}
	return &domain.Report{
		RunID: "run-" + filepath.Base(req.Stock.Ref),
		Records: []domain.AnalysisRecord{
			{Code: "151", Description: "DIPIRONA", StockQuantity: 10, Status: domain.StatusNeedsPurchase},
			{Code: "9", Description: "LUVA", StockQuantity: 50, Status: domain.StatusOK},
		},
		Summary: domain.Summary{Total: 2, NeedsPurchase: 1, OK: 1},
	}, nil
}

type memUploader struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (u *memUploader) PutObject(ctx context.Context, key string, data []byte, contentType string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.objects == nil {
		u.objects = map[string][]byte{}
	}
	u.objects[key] = data
	return nil
}

func writeManifest(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "batch.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	return path
}

func testConfig(dir string) BatchConfig {
	cfg := DefaultBatchConfig()
	cfg.OutputDir = dir
	cfg.WorkerCount = 2
	cfg.RetryBackoff = time.Millisecond
	return cfg
}

func TestParseManifestMergesDefaults(t *testing.T) {
	t.Parallel()

	m, err := ParseManifest([]byte(manifestYAML))
	if err != nil {
		t.Fatalf("ParseManifest: %v", err)
	}
	m.baseDir = "/planilhas"

	req, err := m.Request(m.Jobs[0])
	if err != nil {
		t.Fatalf("Request: %v", err)
	}
	if req.Stock.Ref != filepath.Join("/planilhas", "estoque.xls") {
		t.Fatalf("stock ref = %q", req.Stock.Ref)
	}
	if len(req.Outflows) != 2 || req.Outflows[1].Ref != "s3://planilhas/saidas-02.xlsx" {
		t.Fatalf("outflows = %+v", req.Outflows)
	}
	opts := req.Options
	if opts.Category == nil || *opts.Category != domain.CategoryInsumos {
		t.Fatalf("category = %v, want insumos", opts.Category)
	}
	if opts.PeriodDays() != 60 || opts.PatientVolume == nil || *opts.PatientVolume != 1200 || !opts.Forecast {
		t.Fatalf("options = %+v", opts)
	}

	req, err = m.Request(m.Jobs[1])
	if err != nil {
		t.Fatalf("Request: %v", err)
	}
	if req.Stock.Ref != "/dados/norte.xlsx" {
		t.Fatalf("absolute ref rewritten to %q", req.Stock.Ref)
	}
	if *req.Options.Category != domain.CategoryMedicamentos || req.Options.Forecast {
		t.Fatalf("job override not applied: %+v", req.Options)
	}
}

func TestParseManifestRejectsInvalid(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"no jobs":        "jobs: []",
		"missing name":   "jobs: [{stock: a.xls, outflows: [b.xls]}]",
		"duplicate name": "jobs: [{name: a, stock: a.xls, outflows: [b.xls]}, {name: a, stock: c.xls, outflows: [d.xls]}]",
		"no outflow":     "jobs: [{name: a, stock: a.xls}]",
		"bad category":   "jobs: [{name: a, stock: a.xls, outflows: [b.xls], options: {category: brinquedos}}]",
		"bad mapping":    "jobs: [{name: a, stock: a.xls, outflows: [b.xls], options: {column_mapping_stock: 'code:0'}}]",
		"bad format":     "output: {format: pdf}\njobs: [{name: a, stock: a.xls, outflows: [b.xls]}]",
		"bad yaml":       "jobs: [",
		"parent in name": "jobs: [{name: ../x, stock: a.xls, outflows: [b.xls]}]",
		"nested name":    "jobs: [{name: reports/x, stock: a.xls, outflows: [b.xls]}]",
		"backslash name": `jobs: [{name: 'a\b', stock: a.xls, outflows: [b.xls]}]`,
		"dot-dot name":   "jobs: [{name: '..', stock: a.xls, outflows: [b.xls]}]",
	}
	for name, body := range cases {
		if _, err := ParseManifest([]byte(body)); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestWorkerWritesAndUploadsReports(t *testing.T) {
	t.Parallel()

	out := t.TempDir()
	m, err := ParseManifest([]byte(manifestYAML))
	if err != nil {
		t.Fatalf("ParseManifest: %v", err)
	}
	analyzer := newFakeAnalyzer()
	uploader := &memUploader{}

	results, metrics := NewWorker(analyzer, uploader, testConfig(out)).ProcessManifest(context.Background(), m)

	if metrics.JobsCompleted != 2 || metrics.JobsFailed != 0 || metrics.RecordsWritten != 4 || metrics.Uploaded != 2 {
		t.Fatalf("metrics = %+v", metrics)
	}
	if results[0].Job != "central" || results[1].Job != "norte" {
		t.Fatalf("results not in manifest order: %+v", results)
	}
	for _, r := range results {
		if r.Status != JobCompleted || r.NeedsPurchase != 1 || r.Attempts != 1 {
			t.Fatalf("result = %+v", r)
		}
		data, err := os.ReadFile(r.OutputPath)
		if err != nil {
			t.Fatalf("read %s: %v", r.OutputPath, err)
		}
		if !strings.Contains(string(data), "DIPIRONA") {
			t.Fatalf("csv report missing records:\n%s", data)
		}
		if _, ok := uploader.objects[r.UploadKey]; !ok {
			t.Fatalf("upload %q missing", r.UploadKey)
		}
	}
	if results[0].OutputPath != filepath.Join(out, "central.csv") || results[0].UploadKey != "reports/2024-03/central.csv" {
		t.Fatalf("paths = %q %q", results[0].OutputPath, results[0].UploadKey)
	}
}

func TestWorkerRetriesOnlySourceErrors(t *testing.T) {
	t.Parallel()

	m, err := ParseManifest([]byte(manifestYAML))
	if err != nil {
		t.Fatalf("ParseManifest: %v", err)
	}
	analyzer := newFakeAnalyzer()
	analyzer.failures["estoque.xls"] = []error{
		&service.SourceError{Source: "estoque.xls", Err: errors.New("connection reset")},
	}
	analyzer.failures["/dados/norte.xlsx"] = []error{&domain.NoOverlapError{}}

	w := NewWorker(analyzer, nil, testConfig(t.TempDir()))
	w.sleep = func(time.Duration) {}
	results, metrics := w.ProcessManifest(context.Background(), m)

	if results[0].Status != JobCompleted || results[0].Attempts != 2 {
		t.Fatalf("central = %+v, want completed after retry", results[0])
	}
	if results[0].UploadKey != "" {
		t.Fatalf("uploaded without an uploader: %+v", results[0])
	}
	if results[1].Status != JobFailed || results[1].Attempts != 1 || analyzer.calls["/dados/norte.xlsx"] != 1 {
		t.Fatalf("norte = %+v, want a single failed attempt", results[1])
	}
	if metrics.JobsFailed != 1 || metrics.JobsCompleted != 1 {
		t.Fatalf("metrics = %+v", metrics)
	}
}

func TestOrchestratorWritesSummary(t *testing.T) {
	t.Parallel()

	out := t.TempDir()
	path := writeManifest(t, "output: {dir: "+out+", format: json}\njobs:\n  - {name: a, stock: a.xls, outflows: [b.xls]}\n  - {name: b, stock: c.xls, outflows: [d.xls]}\n")
	analyzer := newFakeAnalyzer()
	analyzer.failures[filepath.Join(filepath.Dir(path), "c.xls")] = []error{&domain.OptionsError{Field: "outflow", Reason: "empty"}}

	summary, err := NewOrchestrator(analyzer, nil, testConfig(t.TempDir())).Run(context.Background(), path)
	if err == nil {
		t.Fatalf("expected error for the failing job")
	}
	if summary == nil || summary.Metrics.JobsCompleted != 1 || summary.Metrics.JobsFailed != 1 {
		t.Fatalf("summary = %+v", summary)
	}

	data, err := os.ReadFile(filepath.Join(out, summaryFile))
	if err != nil {
		t.Fatalf("read summary: %v", err)
	}
	var decoded Summary
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if len(decoded.Results) != 2 || decoded.Results[1].Error == "" {
		t.Fatalf("decoded = %+v", decoded)
	}

	report, err := os.ReadFile(filepath.Join(out, "a.json"))
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	if !strings.Contains(string(report), `"run_id": "run-a.xls"`) {
		t.Fatalf("json report = %s", report)
	}
}
