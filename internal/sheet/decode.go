package sheet

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/shakinm/xlsReader/xls"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// Format is a supported spreadsheet encoding.
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatXLS  Format = "xls"
	FormatCSV  Format = "csv"
)

var (
	zipMagic = []byte("PK\x03\x04")
	oleMagic = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}
	utf8BOM  = []byte{0xEF, 0xBB, 0xBF}
)

// ErrEmptyFile is returned when a file decodes to no rows.
var ErrEmptyFile = errors.New("spreadsheet has no rows")

// DetectFormat sniffs the content, falling back to the file extension.
func DetectFormat(name string, data []byte) Format {
	switch {
	case bytes.HasPrefix(data, zipMagic):
		return FormatXLSX
	case bytes.HasPrefix(data, oleMagic):
		return FormatXLS
	}

	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm":
		return FormatXLSX
	case ".xls":
		return FormatXLS
	}
	return FormatCSV
}

// ReadFile decodes a spreadsheet from disk.
func ReadFile(path string) (Grid, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Grid{}, fmt.Errorf("read %s: %w", path, err)
	}
	return Decode(filepath.Base(path), data)
}

// Decode turns file content into a Grid using the first non-empty sheet.
func Decode(name string, data []byte) (Grid, error) {
	var (
		rows [][]Cell
		err  error
	)

	switch DetectFormat(name, data) {
	case FormatXLSX:
		rows, err = decodeXLSX(data)
	case FormatXLS:
		rows, err = decodeXLS(data)
	default:
		rows, err = decodeCSV(data)
	}
	if err != nil {
		return Grid{}, fmt.Errorf("decode %s: %w", name, err)
	}
	if len(rows) == 0 {
		return Grid{}, fmt.Errorf("decode %s: %w", name, ErrEmptyFile)
	}

	return Grid{Name: name, rows: rows}, nil
}

func decodeXLSX(data []byte) ([][]Cell, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	for _, sheetName := range f.GetSheetList() {
		raw, err := f.GetRows(sheetName, excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, fmt.Errorf("read rows from sheet %s: %w", sheetName, err)
		}
		if len(raw) == 0 {
			continue
		}
		return stringsToCells(raw), nil
	}
	return nil, nil
}

// decodeXLS goes through a temp file because the legacy reader only opens paths.
func decodeXLS(data []byte) ([][]Cell, error) {
	tmp, err := os.CreateTemp("", "stockcover-*.xls")
	if err != nil {
		return nil, err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return nil, err
	}
	if err := tmp.Close(); err != nil {
		return nil, err
	}

	book, err := xls.OpenFile(tmp.Name())
	if err != nil {
		return nil, fmt.Errorf("open xls: %w", err)
	}

	sheet, err := book.GetSheet(0)
	if err != nil || sheet == nil {
		return nil, fmt.Errorf("xls has no readable sheet")
	}

	var rows [][]Cell
	for _, xlsRow := range sheet.GetRows() {
		cols := xlsRow.GetCols()
		row := make([]Cell, len(cols))
		for i, col := range cols {
			row[i] = TextCell(col.GetString())
		}
		rows = append(rows, row)
	}
	return trimTrailingEmpty(rows), nil
}

func decodeCSV(data []byte) ([][]Cell, error) {
	data = bytes.TrimPrefix(data, utf8BOM)

	var src io.Reader = bytes.NewReader(data)
	if !utf8.Valid(data) {
		// Exports from older ERP systems come in Windows-1252.
		src = transform.NewReader(src, charmap.Windows1252.NewDecoder())
	}

	r := csv.NewReader(src)
	r.Comma = sniffDelimiter(data)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true

	raw, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	return trimTrailingEmpty(stringsToCells(raw)), nil
}

// sniffDelimiter picks the most frequent separator in the first few KB; report
// exports often start with title lines that hold no separator at all.
func sniffDelimiter(data []byte) rune {
	sample := data
	if len(sample) > 4096 {
		sample = sample[:4096]
	}
	best, bestCount := ',', 0
	for _, d := range []rune{';', '\t', ','} {
		if n := bytes.Count(sample, []byte(string(d))); n > bestCount {
			best, bestCount = d, n
		}
	}
	return best
}

func stringsToCells(raw [][]string) [][]Cell {
	rows := make([][]Cell, len(raw))
	for i, r := range raw {
		rows[i] = make([]Cell, len(r))
		for j, v := range r {
			rows[i][j] = TextCell(v)
		}
	}
	return rows
}

func trimTrailingEmpty(rows [][]Cell) [][]Cell {
	end := len(rows)
	for end > 0 && rowEmpty(rows[end-1]) {
		end--
	}
	return rows[:end]
}

func rowEmpty(row []Cell) bool {
	for _, c := range row {
		if !c.IsEmpty() {
			return false
		}
	}
	return true
}
