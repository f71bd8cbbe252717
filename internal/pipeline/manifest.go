package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/andresuchdata/stockcover/internal/domain"
	"github.com/andresuchdata/stockcover/internal/export"
	"github.com/andresuchdata/stockcover/internal/service"
	"gopkg.in/yaml.v3"
)

// Manifest lists the analyses of a batch.
//
//	output:
//	  dir: data/reports
//	  format: xlsx
//	  upload_prefix: reports/2024-03
//	defaults:
//	  category: medicamentos
//	jobs:
//	  - name: farmacia-central
//	    stock: estoque-central.xls
//	    outflows: [saidas-01.xls, saidas-02.xls, s3://planilhas/saidas-03.xlsx]
//	    options:
//	      patient_volume: 1200
type Manifest struct {
	Output   OutputConfig `yaml:"output"`
	Defaults JobOptions   `yaml:"defaults"`
	Jobs     []Job        `yaml:"jobs"`

	baseDir string
}

type OutputConfig struct {
	Dir          string `yaml:"dir"`
	Format       string `yaml:"format"`
	UploadPrefix string `yaml:"upload_prefix"`
}

type Job struct {
	Name     string     `yaml:"name"`
	Stock    string     `yaml:"stock"`
	Outflows []string   `yaml:"outflows"`
	Options  JobOptions `yaml:"options"`
}

// JobOptions are the text form of domain.Options, shared by manifests and
// CLI flags.
type JobOptions struct {
	Category             string   `yaml:"category"`
	PatientVolume        *float64 `yaml:"patient_volume"`
	DesiredPeriodDays    *int     `yaml:"desired_period_days"`
	StartRowStock        *int     `yaml:"start_row_stock"`
	StartRowOutflow      *int     `yaml:"start_row_outflow"`
	ColumnMappingStock   string   `yaml:"column_mapping_stock"`
	ColumnMappingOutflow string   `yaml:"column_mapping_outflow"`
	Forecast             *bool    `yaml:"forecast"`
}

// LoadManifest reads and validates a manifest. Relative local paths are
// resolved against the manifest's directory.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	m, err := ParseManifest(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	m.baseDir = filepath.Dir(path)
	return m, nil
}

func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

func (m *Manifest) Validate() error {
	if len(m.Jobs) == 0 {
		return fmt.Errorf("manifest has no jobs")
	}
	if _, err := export.ParseFormat(m.Output.Format); err != nil {
		return err
	}
	seen := make(map[string]struct{}, len(m.Jobs))
	for i, job := range m.Jobs {
		if strings.TrimSpace(job.Name) == "" {
			return fmt.Errorf("job %d: name is required", i)
		}
		// The name becomes the report file name inside the output directory.
		if strings.ContainsAny(job.Name, `/\`) || job.Name == "." || job.Name == ".." {
			return fmt.Errorf("job %q: name must not contain path separators", job.Name)
		}
		if _, dup := seen[job.Name]; dup {
			return fmt.Errorf("job %q: duplicate name", job.Name)
		}
		seen[job.Name] = struct{}{}
		if job.Stock == "" {
			return fmt.Errorf("job %q: stock is required", job.Name)
		}
		if len(job.Outflows) == 0 {
			return fmt.Errorf("job %q: at least one outflow is required", job.Name)
		}
		if _, err := m.Defaults.merge(job.Options).Options(); err != nil {
			return fmt.Errorf("job %q: %w", job.Name, err)
		}
	}
	return nil
}

// Request builds the service request of a job.
func (m *Manifest) Request(job Job) (service.Request, error) {
	opts, err := m.Defaults.merge(job.Options).Options()
	if err != nil {
		return service.Request{}, err
	}
	req := service.Request{
		Stock:   service.Source{Ref: m.resolve(job.Stock)},
		Options: opts,
	}
	for _, ref := range job.Outflows {
		req.Outflows = append(req.Outflows, service.Source{Ref: m.resolve(ref)})
	}
	return req, nil
}

func (m *Manifest) resolve(ref string) string {
	if strings.Contains(ref, "://") || filepath.IsAbs(ref) || m.baseDir == "" {
		return ref
	}
	return filepath.Join(m.baseDir, ref)
}

// merge returns o with the fields set in job taking precedence.
func (o JobOptions) merge(job JobOptions) JobOptions {
	if job.Category != "" {
		o.Category = job.Category
	}
	if job.PatientVolume != nil {
		o.PatientVolume = job.PatientVolume
	}
	if job.DesiredPeriodDays != nil {
		o.DesiredPeriodDays = job.DesiredPeriodDays
	}
	if job.StartRowStock != nil {
		o.StartRowStock = job.StartRowStock
	}
	if job.StartRowOutflow != nil {
		o.StartRowOutflow = job.StartRowOutflow
	}
	if job.ColumnMappingStock != "" {
		o.ColumnMappingStock = job.ColumnMappingStock
	}
	if job.ColumnMappingOutflow != "" {
		o.ColumnMappingOutflow = job.ColumnMappingOutflow
	}
	if job.Forecast != nil {
		o.Forecast = job.Forecast
	}
	return o
}

func (o JobOptions) Options() (domain.Options, error) {
	opts := domain.Options{
		PatientVolume:     o.PatientVolume,
		DesiredPeriodDays: o.DesiredPeriodDays,
		StartRowStock:     o.StartRowStock,
		StartRowOutflow:   o.StartRowOutflow,
	}
	if o.Category != "" {
		c, ok := domain.ParseCategory(o.Category)
		if !ok {
			return opts, &domain.OptionsError{Field: "category", Reason: fmt.Sprintf("unknown category %q", o.Category)}
		}
		opts.Category = &c
	}
	if o.ColumnMappingStock != "" {
		m, err := domain.ParseColumnMapping(o.ColumnMappingStock)
		if err != nil {
			return opts, err
		}
		opts.MappingStock = &m
	}
	if o.ColumnMappingOutflow != "" {
		m, err := domain.ParseColumnMapping(o.ColumnMappingOutflow)
		if err != nil {
			return opts, err
		}
		opts.MappingOutflow = &m
	}
	if o.Forecast != nil {
		opts.Forecast = *o.Forecast
	}
	return opts, opts.Validate()
}
