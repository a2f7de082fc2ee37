// Package export renders tabular datasets as CSV, XLSX or PDF.
package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Dataset defines tabular export content. Rows are positional against Headers.
type Dataset struct {
	Headers []string
	Rows    [][]string
}

func (d Dataset) cell(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}

// Options tunes format-specific rendering.
type Options struct {
	// PDFFont is a TrueType font file for PDF text. Empty uses the Go fonts.
	PDFFont string
}

// Render picks a format from the file extension of name.
func Render(data Dataset, name, title string, opts Options) ([]byte, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		return NewCSVExporter().Render(data)
	case ".xlsx":
		return NewXLSXExporter().Render(data)
	case ".pdf":
		if opts.PDFFont != "" {
			return NewPDFExporterWithFont(opts.PDFFont).Render(data, title)
		}
		return NewPDFExporter().Render(data, title)
	default:
		return nil, fmt.Errorf("unsupported export format %q", filepath.Ext(name))
	}
}

// WriteFile renders data in the format implied by path and writes it there.
func WriteFile(path string, data Dataset, title string, opts Options) error {
	content, err := Render(data, path, title, opts)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return fmt.Errorf("write export file: %w", err)
	}
	return nil
}
