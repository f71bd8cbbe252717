package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/andresuchdata/stockcover/internal/config"
	"github.com/andresuchdata/stockcover/internal/domain"
	"github.com/andresuchdata/stockcover/internal/pipeline"
	"github.com/urfave/cli/v2"
)

func batchCommand(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:      "batch",
		Usage:     "Run the analyses listed in a YAML manifest",
		ArgsUsage: "<manifest.yaml>",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "workers",
				Usage:   "Number of concurrent jobs",
				Value:   cfg.Analysis.Workers,
				EnvVars: []string{"ANALYSIS_WORKERS"},
			},
			&cli.StringFlag{
				Name:    "output-dir",
				Usage:   "Report directory when the manifest sets none",
				Value:   cfg.App.OutputDir,
				EnvVars: []string{"APP_OUTPUT_DIR"},
			},
			&cli.IntFlag{
				Name:  "retries",
				Usage: "Attempts per job when a source cannot be fetched",
				Value: pipeline.DefaultBatchConfig().RetryAttempts,
			},
			&cli.DurationFlag{
				Name:  "retry-backoff",
				Usage: "Backoff between fetch retries",
				Value: 2 * time.Second,
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return cli.ShowCommandHelp(c, "batch")
			}

			application, err := newApp(c, cfg)
			if err != nil {
				return err
			}

			batchCfg := pipeline.BatchConfig{
				WorkerCount:   c.Int("workers"),
				OutputDir:     c.String("output-dir"),
				RetryAttempts: c.Int("retries"),
				RetryBackoff:  c.Duration("retry-backoff"),
			}
			var uploader pipeline.Uploader
			if application.Storage != nil {
				uploader = application.Storage
			}

			summary, runErr := pipeline.NewOrchestrator(application.Analysis, uploader, batchCfg).Run(c.Context, c.Args().First())
			if summary != nil {
				tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
				fmt.Fprintln(tw, "JOB\tSTATUS\tRECORDS\tNEEDS PURCHASE\tOUTPUT\tERROR")
				for _, r := range summary.Results {
					fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\t%s\n", r.Job, r.Status, r.Records, r.NeedsPurchase, r.OutputPath, r.Error)
				}
				tw.Flush()
			}
			return runErr
		},
	}
}

func categoriesCommand() *cli.Command {
	return &cli.Command{
		Name:  "categories",
		Usage: "List the category profiles",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "json", Usage: "Print the profiles as JSON"},
		},
		Action: func(c *cli.Context) error {
			profiles := domain.Profiles()
			if c.Bool("json") {
				return writeJSON(os.Stdout, profiles)
			}
			tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "CATEGORY\tPATIENT WEIGHT\tSEASONAL\tMIN STOCK\tSAFETY LEAD DAYS")
			for _, p := range profiles {
				fmt.Fprintf(tw, "%s\t%.1f\t%.1f\t%.0f%%\t%d\n",
					p.Category, p.PatientWeight, p.SeasonalMultiplier, p.MinimumStockFraction*100, p.SafetyLeadDays)
			}
			return tw.Flush()
		},
	}
}
