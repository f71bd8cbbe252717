package drive

import (
	"context"
	"path/filepath"
	"sort"
	"strings"
)

// Lister is the part of Service the folder helpers need.
type Lister interface {
	ListFiles(ctx context.Context, folderID string) ([]*File, error)
}

// Spreadsheets returns the spreadsheet files of a folder ordered by name, which
// is how monthly outflow exports ("saidas-2024-01.xlsx", ...) are kept in
// period order.
func Spreadsheets(ctx context.Context, l Lister, folderID string) ([]*File, error) {
	files, err := l.ListFiles(ctx, folderID)
	if err != nil {
		return nil, err
	}

	var sheets []*File
	for _, f := range files {
		if IsSpreadsheet(f) {
			sheets = append(sheets, f)
		}
	}
	sort.SliceStable(sheets, func(i, j int) bool {
		return strings.ToLower(sheets[i].Name) < strings.ToLower(sheets[j].Name)
	})
	return sheets, nil
}

// IsSpreadsheet reports whether f can be decoded as a grid.
func IsSpreadsheet(f *File) bool {
	if f.MimeType == sheetsMimeType {
		return true
	}
	switch strings.ToLower(filepath.Ext(f.Name)) {
	case ".xlsx", ".xls", ".csv":
		return true
	}
	return false
}
