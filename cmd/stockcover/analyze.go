package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/andresuchdata/stockcover/internal/config"
	"github.com/andresuchdata/stockcover/internal/domain"
	"github.com/andresuchdata/stockcover/internal/export"
	"github.com/andresuchdata/stockcover/internal/pipeline"
	"github.com/andresuchdata/stockcover/internal/service"
	"github.com/urfave/cli/v2"
)

func optionFlags(cfg *config.Config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "category",
			Usage:   "Product category (medicamentos, insumos, equipamentos)",
			Value:   cfg.Analysis.DefaultCategory,
			EnvVars: []string{"ANALYSIS_DEFAULT_CATEGORY"},
		},
		&cli.Float64Flag{
			Name:  "patient-volume",
			Usage: "Expected patients in the period; adjusts demand when set",
		},
		&cli.IntFlag{
			Name:    "period-days",
			Usage:   "Purchase horizon in days",
			Value:   cfg.Analysis.DesiredPeriodDays,
			EnvVars: []string{"ANALYSIS_DESIRED_PERIOD_DAYS"},
		},
		&cli.IntFlag{
			Name:  "start-row-stock",
			Usage: "First data row of the stock sheet (0-based); skips inference",
		},
		&cli.IntFlag{
			Name:  "start-row-outflow",
			Usage: "First data row of the outflow sheets (0-based); skips inference",
		},
		&cli.StringFlag{
			Name:  "mapping-stock",
			Usage: `Stock column mapping, e.g. "0,codigo;1,descricao;11,unidade;14,quantidade"`,
		},
		&cli.StringFlag{
			Name:  "mapping-outflow",
			Usage: "Outflow column mapping in the same format",
		},
		&cli.BoolFlag{
			Name:  "forecast",
			Usage: "Project demand with a linear trend over the outflow periods",
		},
	}
}

// flagOptions reads the override flags, leaving unset ones nil.
func flagOptions(c *cli.Context) (domain.Options, error) {
	o := pipeline.JobOptions{
		Category:             c.String("category"),
		ColumnMappingStock:   c.String("mapping-stock"),
		ColumnMappingOutflow: c.String("mapping-outflow"),
	}
	if c.IsSet("patient-volume") {
		v := c.Float64("patient-volume")
		o.PatientVolume = &v
	}
	if d := c.Int("period-days"); d > 0 {
		o.DesiredPeriodDays = &d
	}
	if c.IsSet("start-row-stock") {
		v := c.Int("start-row-stock")
		o.StartRowStock = &v
	}
	if c.IsSet("start-row-outflow") {
		v := c.Int("start-row-outflow")
		o.StartRowOutflow = &v
	}
	if c.Bool("forecast") {
		f := true
		o.Forecast = &f
	}
	return o.Options()
}

func analyzeCommand(cfg *config.Config) *cli.Command {
	flags := []cli.Flag{
		&cli.StringFlag{
			Name:     "stock",
			Aliases:  []string{"s"},
			Usage:    "Stock snapshot: local path, s3://bucket/key or drive://fileID",
			Required: true,
		},
		&cli.StringSliceFlag{
			Name:    "outflow",
			Aliases: []string{"o"},
			Usage:   "Outflow log, repeatable, oldest period first",
		},
		&cli.StringFlag{
			Name:  "outflow-prefix",
			Usage: "Use every spreadsheet under this object storage prefix as outflow periods",
		},
		&cli.StringFlag{
			Name:  "outflow-folder",
			Usage: "Use every spreadsheet in this Google Drive folder (ID or path) as outflow periods",
		},
		&cli.StringFlag{
			Name:    "format",
			Aliases: []string{"f"},
			Usage:   "Output format: table, json, csv or xlsx",
			Value:   string(export.FormatTable),
		},
		&cli.StringFlag{
			Name:  "out",
			Usage: "Write the report to this file instead of stdout",
		},
		&cli.BoolFlag{
			Name:  "refresh",
			Usage: "Ignore a cached report for these inputs",
		},
	}

	return &cli.Command{
		Name:      "analyze",
		Usage:     "Analyze a stock snapshot against one or more outflow periods",
		ArgsUsage: " ",
		Flags:     append(flags, optionFlags(cfg)...),
		Action: func(c *cli.Context) error {
			format, err := export.ParseFormat(c.String("format"))
			if err != nil {
				return err
			}
			opts, err := flagOptions(c)
			if err != nil {
				return err
			}

			application, err := newApp(c, cfg)
			if err != nil {
				return err
			}

			outflows, err := outflowRefs(c, application)
			if err != nil {
				return err
			}

			req := service.Request{
				Stock:   service.Source{Ref: c.String("stock")},
				Options: opts,
				Refresh: c.Bool("refresh"),
			}
			for _, ref := range outflows {
				req.Outflows = append(req.Outflows, service.Source{Ref: ref})
			}

			report, err := application.Analysis.Analyze(c.Context, req)
			if err != nil {
				return err
			}

			w, closeFn, err := output(c.String("out"))
			if err != nil {
				return err
			}
			defer closeFn()
			return writeReport(w, report, format)
		},
	}
}

func writeReport(w io.Writer, report *domain.Report, format export.Format) error {
	switch format {
	case export.FormatCSV:
		return export.WriteCSV(w, report)
	case export.FormatXLSX:
		return export.WriteXLSX(w, report)
	case export.FormatJSON:
		return writeJSON(w, report)
	}
	return export.WriteTable(w, report)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func output(path string) (io.Writer, func() error, error) {
	if path == "" || path == "-" {
		return os.Stdout, func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("create %s: %w", path, err)
	}
	return f, f.Close, nil
}
