// Package export renders a report as a terminal table, CSV or an Excel workbook.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/andresuchdata/stockcover/internal/domain"
	"github.com/andresuchdata/stockcover/internal/pipeline/coverage"
	"github.com/xuri/excelize/v2"
)

// Format is an output encoding of a report.
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatCSV   Format = "csv"
	FormatXLSX  Format = "xlsx"
)

// ParseFormat accepts the format names case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatTable, FormatJSON, FormatCSV, FormatXLSX:
		return f, nil
	case "":
		return FormatJSON, nil
	}
	return "", fmt.Errorf("unknown format %q (table, json, csv or xlsx)", s)
}

var recordHeader = []string{
	"Código", "Descrição", "Unidade", "Estoque", "Saída média", "Demanda esperada",
	"Cobertura (dias)", "Estoque restante", "Status", "Compra sugerida", "Urgência",
}

// WriteCSV writes one line per record with plain decimal numbers.
func WriteCSV(w io.Writer, report *domain.Report) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(recordHeader); err != nil {
		return err
	}
	for _, r := range report.Records {
		row := []string{
			r.Code,
			r.Description,
			r.Unit,
			plain(r.StockQuantity),
			plain(r.MeanMonthlyOutflow),
			plain(r.ExpectedDemand),
			days(r.EstimatedRunwayDays),
			plain(r.RemainingStock),
			r.Status.Label(),
			plain(r.SuggestedPurchaseQuantity),
			r.UrgencyBand.Label(),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteTable writes an aligned summary and record table with Brazilian number formatting.
func WriteTable(w io.Writer, report *domain.Report) error {
	s := report.Summary
	fmt.Fprintf(w, "Itens analisados: %d  OK: %d (%s%%)  Comprar: %d (%s%%)\n",
		s.Total, s.OK, coverage.FormatBR(s.OKPercent, 2), s.NeedsPurchase, coverage.FormatBR(s.NeedsPurchasePercent, 2))
	fmt.Fprintf(w, "Urgente: %d  Atenção: %d  Normal: %d  Excesso: %d\n\n",
		s.Bands.Critical, s.Bands.Watch, s.Bands.Normal, s.Bands.Excess)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(recordHeader, "\t"))
	for _, r := range report.Records {
		fmt.Fprintln(tw, strings.Join([]string{
			r.Code,
			truncate(r.Description, 40),
			r.Unit,
			coverage.FormatBR(r.StockQuantity, 2),
			coverage.FormatBR(r.MeanMonthlyOutflow, 2),
			coverage.FormatBR(r.ExpectedDemand, 2),
			coverage.FormatBR(float64(r.EstimatedRunwayDays), 1),
			coverage.FormatBR(r.RemainingStock, 2),
			r.Status.Label(),
			coverage.FormatBR(r.SuggestedPurchaseQuantity, 2),
			r.UrgencyBand.Label(),
		}, "\t"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	for _, g := range report.Recommendations {
		fmt.Fprintf(w, "\n%s (%d)\n", g.Title, g.Count)
		for _, r := range g.Examples {
			fmt.Fprintf(w, "  %s %s: estoque %s, cobertura %s dias\n",
				r.Code, truncate(r.Description, 40), coverage.FormatBR(r.StockQuantity, 2),
				coverage.FormatBR(float64(r.EstimatedRunwayDays), 1))
		}
	}
	return nil
}

// WriteXLSX writes a workbook with the records, the summary and the
// recommendation groups on separate sheets.
func WriteXLSX(w io.Writer, report *domain.Report) error {
	f := excelize.NewFile()
	defer f.Close()

	const recordsSheet = "Análise"
	if err := f.SetSheetName("Sheet1", recordsSheet); err != nil {
		return err
	}
	if err := setRow(f, recordsSheet, 1, toCells(recordHeader)); err != nil {
		return err
	}
	for i, r := range report.Records {
		row := []interface{}{
			r.Code, r.Description, r.Unit,
			r.StockQuantity, r.MeanMonthlyOutflow, r.ExpectedDemand,
			daysCell(r.EstimatedRunwayDays), r.RemainingStock,
			r.Status.Label(), r.SuggestedPurchaseQuantity, r.UrgencyBand.Label(),
		}
		if err := setRow(f, recordsSheet, i+2, row); err != nil {
			return err
		}
	}

	const summarySheet = "Resumo"
	if _, err := f.NewSheet(summarySheet); err != nil {
		return err
	}
	s := report.Summary
	summary := [][]interface{}{
		{"Itens analisados", s.Total},
		{"OK", s.OK},
		{"Comprar", s.NeedsPurchase},
		{"% OK", s.OKPercent},
		{"% Comprar", s.NeedsPurchasePercent},
		{domain.BandCritical.Label(), s.Bands.Critical},
		{domain.BandWatch.Label(), s.Bands.Watch},
		{domain.BandNormal.Label(), s.Bands.Normal},
		{domain.BandExcess.Label(), s.Bands.Excess},
		{"Estoque total", s.TotalStock},
		{"Saída média", s.MeanOutflow},
	}
	for i, row := range summary {
		if err := setRow(f, summarySheet, i+1, row); err != nil {
			return err
		}
	}

	const recSheet = "Recomendações"
	if _, err := f.NewSheet(recSheet); err != nil {
		return err
	}
	line := 1
	for _, g := range report.Recommendations {
		if err := setRow(f, recSheet, line, []interface{}{g.Title, g.Count}); err != nil {
			return err
		}
		line++
		for _, r := range g.Examples {
			row := []interface{}{"", r.Code, r.Description, r.StockQuantity, daysCell(r.EstimatedRunwayDays)}
			if err := setRow(f, recSheet, line, row); err != nil {
				return err
			}
			line++
		}
	}

	return f.Write(w)
}

func setRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}

func toCells(values []string) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

func plain(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func days(d domain.Days) string {
	if d.Infinite() {
		return ""
	}
	return plain(float64(d))
}

func daysCell(d domain.Days) interface{} {
	if d.Infinite() {
		return "∞"
	}
	return float64(d)
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}
