package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/andresuchdata/stockcover/internal/config"
	"github.com/andresuchdata/stockcover/internal/domain"
	"github.com/andresuchdata/stockcover/internal/service"
	"github.com/urfave/cli/v2"
)

func inspectCommand(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:      "inspect",
		Usage:     "Show the first rows of a sheet with the inferred start row and column mapping",
		ArgsUsage: "<path | s3://bucket/key | drive://fileID>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "kind",
				Usage: "Sheet kind: stock or outflow",
				Value: string(domain.SourceStock),
			},
			&cli.IntFlag{
				Name:  "rows",
				Usage: "Number of rows to show",
				Value: 20,
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Print the result as JSON",
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return cli.ShowCommandHelp(c, "inspect")
			}
			kind := domain.SourceKind(strings.ToLower(c.String("kind")))
			if kind != domain.SourceStock && kind != domain.SourceOutflow {
				return fmt.Errorf("unknown kind %q (stock or outflow)", c.String("kind"))
			}

			application, err := newApp(c, cfg)
			if err != nil {
				return err
			}
			result, err := application.Analysis.Inspect(c.Context, service.Source{Ref: c.Args().First()}, kind, c.Int("rows"))
			if err != nil {
				return err
			}
			if c.Bool("json") {
				return writeJSON(os.Stdout, result)
			}
			return printInspect(os.Stdout, result)
		},
	}
}

func printInspect(w io.Writer, result *service.InspectResult) error {
	fmt.Fprintf(w, "%s (%s)\n", result.Name, result.Kind)
	if result.Schema != nil {
		s := result.Schema
		fmt.Fprintf(w, "start row: %d (%s)  header row: %d\n", s.StartRow, s.StartDetector, s.HeaderRow)
		fmt.Fprintf(w, "mapping:   %s\n", s.Mapping)
	} else {
		fmt.Fprintf(w, "inference failed: %s\n", result.Error)
	}
	fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ROW\tNUM\tDIGIT\tROLES\tCELLS")
	for _, h := range result.Rows {
		roles := make([]string, len(h.Roles))
		for i, r := range h.Roles {
			roles[i] = string(r)
		}
		digit := ""
		if h.DigitLed {
			digit = "yes"
		}
		fmt.Fprintf(tw, "%d\t%d\t%s\t%s\t%s\n", h.Row, h.Numeric, digit, strings.Join(roles, ","), strings.Join(h.Cells, " | "))
	}
	return tw.Flush()
}
